package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "mc"
	QuestionTypeOpenText       QuestionType = "open"
)

type Question struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChapterID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"chapter_id"`
	Chapter       *Chapter       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChapterID;references:ID" json:"chapter,omitempty"`
	Type          QuestionType   `gorm:"column:type;not null;index" json:"type"`
	Question      string         `gorm:"column:question;type:text;not null" json:"question"`
	AnswerA       string         `gorm:"column:answer_a" json:"answer_a,omitempty"`
	AnswerB       string         `gorm:"column:answer_b" json:"answer_b,omitempty"`
	AnswerC       string         `gorm:"column:answer_c" json:"answer_c,omitempty"`
	AnswerD       string         `gorm:"column:answer_d" json:"answer_d,omitempty"`
	CorrectAnswer string         `gorm:"column:correct_answer;type:text;not null" json:"correct_answer"`
	Explanation   string         `gorm:"column:explanation;type:text" json:"explanation,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Chapter struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_chapter_course_index,unique" json:"course_id"`
	Course      *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Index       int            `gorm:"column:index;not null;index:idx_chapter_course_index,unique" json:"index"`
	Caption     string         `gorm:"column:caption;not null" json:"caption"`
	Summary     string         `gorm:"column:summary" json:"summary"`
	Content     string         `gorm:"column:content;type:text" json:"content"`
	TimeMinutes int            `gorm:"column:time_minutes;not null;default:0" json:"time_minutes"`
	ImageURL    string         `gorm:"column:image_url" json:"image_url"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Chapter) TableName() string { return "chapter" }

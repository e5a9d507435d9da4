package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusFinished CourseStatus = "finished"
	CourseStatusFailed   CourseStatus = "failed"
)

type Course struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SessionID      string         `gorm:"column:session_id" json:"session_id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Description    string         `gorm:"column:description" json:"description"`
	ImageURL       string         `gorm:"column:image_url" json:"image_url"`
	TotalTimeHours float64        `gorm:"column:total_time_hours;not null;default:0" json:"total_time_hours"`
	ChapterCount   int            `gorm:"column:chapter_count;not null;default:0" json:"chapter_count"`
	Status         CourseStatus   `gorm:"column:status;not null;default:'pending';index" json:"status"`
	ErrorMsg       string         `gorm:"column:error_msg" json:"error_msg,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID    *uuid.UUID     `gorm:"type:uuid;index" json:"course_id,omitempty"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	ContentType string         `gorm:"column:content_type;not null" json:"content_type"`
	Text        string         `gorm:"column:text;type:text" json:"text"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

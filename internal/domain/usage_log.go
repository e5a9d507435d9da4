package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UsageLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID  *uuid.UUID     `gorm:"type:uuid;index" json:"course_id,omitempty"`
	ChapterID *uuid.UUID     `gorm:"type:uuid;index" json:"chapter_id,omitempty"`
	Action    string         `gorm:"column:action;not null;index" json:"action"`
	Detail    datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (UsageLog) TableName() string { return "usage_log" }

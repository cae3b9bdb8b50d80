package model

import (
	"time"
)

type ModuleStatus string

const (
	ModuleDraft     ModuleStatus = "draft"
	ModulePublished ModuleStatus = "published"
	ModuleArchived  ModuleStatus = "archived"
)

// swagger:model LearningModule
type LearningModule struct {
	BaseModel
	TeacherID   uint             `gorm:"index;not null" json:"teacherId"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Subject     string           `gorm:"size:100;index" json:"subject"`
	GradeLevel  string           `gorm:"size:50;index" json:"gradeLevel"`
	Status      ModuleStatus     `gorm:"size:20;default:'draft';index" json:"status"`
	PublishedAt *time.Time       `json:"publishedAt,omitempty"`
	ArchivedAt  *time.Time       `json:"archivedAt,omitempty"`
	Materials   []ModuleMaterial `gorm:"foreignKey:ModuleID" json:"materials,omitempty"`
}

func (LearningModule) TableName() string {
	return "learning_modules"
}

type MaterialKind string

const (
	MaterialVideo    MaterialKind = "video"
	MaterialDocument MaterialKind = "document"
	MaterialLink     MaterialKind = "link"
)

type ModuleMaterial struct {
	BaseModel
	ModuleID uint         `gorm:"index;not null" json:"moduleId"`
	Title    string       `gorm:"size:255;not null" json:"title"`
	Kind     MaterialKind `gorm:"size:20;not null" json:"kind"`
	URL      string       `gorm:"size:512;not null" json:"url"`
	Thumb    string       `gorm:"size:512" json:"thumbnailUrl,omitempty"`
	Duration float64      `json:"duration,omitempty"` // seconds
	Width    int          `json:"width,omitempty"`
	Height   int          `json:"height,omitempty"`
	Size     int64        `json:"size,omitempty"`
	Order    int          `gorm:"column:position;default:0" json:"order"`
}

func (ModuleMaterial) TableName() string {
	return "module_materials"
}

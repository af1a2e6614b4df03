// Package domain contains persistence models for application types.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Question types supported by completion forms.
const (
	QuestionTypeText     = "text"
	QuestionTypeTextarea = "textarea"
)

// Question is a single form field in an application type.
type Question struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ApplicationType defines what an organization asks an applicant to
// fill in after a scan.
type ApplicationType struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID   `gorm:"column:org_id;not null;index;uniqueIndex:ux_application_types_slug,priority:1" json:"org_id"`
	Slug        string         `gorm:"type:text;not null;uniqueIndex:ux_application_types_slug,priority:2" json:"slug"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Questions   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"questions"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ApplicationType) TableName() string { return "application_types" }

// ParsedQuestions decodes the stored question list.
func (t ApplicationType) ParsedQuestions() ([]Question, error) {
	if len(t.Questions) == 0 {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal(t.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

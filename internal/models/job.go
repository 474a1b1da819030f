package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusOpen   JobStatus = "Open"
	JobStatusClosed JobStatus = "Closed"
)

// Job is owned by exactly one client; the owner's email is denormalized
// at creation time. Proposals is a counter maintained atomically with
// Proposal creation, never recomputed client-side.
type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientEmail string    `gorm:"type:varchar(150);index;not null" json:"clientEmail"`

	Title           string         `gorm:"not null" json:"title"`
	Category        string         `gorm:"type:varchar(80)" json:"category"`
	JobType         string         `gorm:"type:varchar(40)" json:"jobType"`
	Position        string         `gorm:"type:varchar(80)" json:"position"`
	ExperienceLevel string         `gorm:"type:varchar(40)" json:"experienceLevel"`
	BudgetType      string         `gorm:"type:varchar(20)" json:"budgetType"` // Fixed | Hourly
	Budget          int64          `json:"budget"`
	Currency        string         `gorm:"type:varchar(10)" json:"currency"`
	Deadline        string         `gorm:"type:varchar(30)" json:"deadline"`
	Description     string         `gorm:"type:text" json:"description"`
	Skills          datatypes.JSON `json:"skills"`
	CompanyLogo     string         `gorm:"type:text" json:"companyLogo"`

	Status    JobStatus `gorm:"type:varchar(10);default:'Open';index" json:"status"`
	Proposals int       `gorm:"default:0" json:"proposals"`

	// Claim slot for single acceptance: set once, never overwritten.
	AcceptedProposalID *uuid.UUID `gorm:"type:uuid" json:"acceptedProposalId,omitempty"`

	PostedAt  time.Time `json:"postedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.PostedAt.IsZero() {
		j.PostedAt = time.Now()
	}
	return
}

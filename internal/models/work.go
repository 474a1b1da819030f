package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkAssignmentStatus string

const (
	AssignmentStatusInProgress WorkAssignmentStatus = "in_progress"
	AssignmentStatusSubmitted  WorkAssignmentStatus = "submitted"
	AssignmentStatusCompleted  WorkAssignmentStatus = "completed"
)

// WorkAssignment is the client's brief attached to a hire, one per hire.
// Its status mirrors the deliverable's progress but tracks brief
// fulfilment; the WorkSubmission status stays authoritative for
// completion.
type WorkAssignment struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HireID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"hireId"`

	WorkDetails       string `gorm:"type:text;not null" json:"workDetails"`
	FigmaLink         string `gorm:"type:text" json:"figmaLink"`
	APIInfo           string `gorm:"type:text" json:"apiInfo"`
	GithubRepo        string `gorm:"type:text" json:"githubRepo"`
	ExtraInstructions string `gorm:"type:text" json:"extraInstructions"`
	Deadline          string `gorm:"type:varchar(30)" json:"deadline"`

	Status WorkAssignmentStatus `gorm:"type:varchar(20);default:'in_progress'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w *WorkAssignment) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return
}

type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusCompleted SubmissionStatus = "completed"
)

// WorkSubmission is the freelancer's deliverable. Resubmission is
// allowed; the most recent submission is authoritative for completion.
type WorkSubmission struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HireID uuid.UUID `gorm:"type:uuid;index;not null" json:"hireId"`

	JobTitle        string `json:"jobTitle"`
	FreelancerEmail string `gorm:"type:varchar(150);index;not null" json:"freelancerEmail"`
	ClientEmail     string `gorm:"type:varchar(150);index;not null" json:"clientEmail"`

	LiveLink   string `gorm:"type:text" json:"liveLink"`
	GithubLink string `gorm:"type:text" json:"githubLink"`
	Message    string `gorm:"type:text" json:"message"`

	Status SubmissionStatus `gorm:"type:varchar(20);default:'submitted';index" json:"status"`

	SubmittedAt time.Time `json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (w *WorkSubmission) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.SubmittedAt.IsZero() {
		w.SubmittedAt = time.Now()
	}
	return
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// Proposal is one freelancer's bid on one job. The unique index on
// (job_id, freelancer_email) is what turns a double submit into a
// DuplicateProposal error instead of a second row.
type Proposal struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_job_freelancer" json:"jobId"`

	JobTitle          string    `gorm:"not null" json:"jobTitle"`
	FreelancerID      uuid.UUID `gorm:"type:uuid;index" json:"freelancerId"`
	FreelancerEmail   string    `gorm:"type:varchar(150);not null;uniqueIndex:idx_job_freelancer" json:"freelancerEmail"`
	FreelancerName    string    `json:"freelancerName"`
	FreelancerProfile string    `gorm:"type:text" json:"freelancerProfile"`
	ClientEmail       string    `gorm:"type:varchar(150);index;not null" json:"clientEmail"`

	CoverLetter   string `gorm:"type:text" json:"coverLetter"`
	BidAmount     int64  `json:"bidAmount"`
	EstimatedTime int    `json:"estimatedTime"` // days

	Status ProposalStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Proposal) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

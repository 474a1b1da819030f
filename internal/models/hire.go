package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HireStatus string

const (
	HireStatusInProgress HireStatus = "in_progress"
	HireStatusCompleted  HireStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// Hire is the unit of work tracking, created when a client accepts a
// proposal. Status, rating and payment are mutated only by the owning
// client; the freelancer acts on it indirectly via WorkSubmission.
type Hire struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID      uuid.UUID `gorm:"type:uuid;index" json:"jobId"`
	ProposalID uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"proposalId"`

	JobTitle          string `gorm:"not null" json:"jobTitle"`
	FreelancerEmail   string `gorm:"type:varchar(150);index;not null" json:"freelancerEmail"`
	FreelancerName    string `json:"freelancerName"`
	FreelancerProfile string `gorm:"type:text" json:"freelancerProfile"`
	ClientEmail       string `gorm:"type:varchar(150);index;not null" json:"clientEmail"`

	BidAmount     int64  `json:"bidAmount"`
	Currency      string `gorm:"type:varchar(10)" json:"currency"`
	BudgetType    string `gorm:"type:varchar(20)" json:"budgetType"`
	EstimatedTime int    `json:"estimatedTime"`

	Status       HireStatus `gorm:"type:varchar(20);default:'in_progress';index" json:"status"`
	Rating       *float64   `json:"rating,omitempty"` // 1..5, unset until rated
	TotalReviews int        `gorm:"default:0" json:"totalReviews"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(10);default:'unpaid'" json:"paymentStatus"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`

	HiredAt   time.Time `json:"hiredAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *Hire) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.HiredAt.IsZero() {
		h.HiredAt = time.Now()
	}
	return
}

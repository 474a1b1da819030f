package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleRequestStatus string

const (
	RoleRequestPending  RoleRequestStatus = "pending"
	RoleRequestApproved RoleRequestStatus = "approved"
)

// RoleRequest records a freelancer asking to become a client. Approval
// mutates the user's role and clears the user's roleRequestSent flag so
// a future request stays possible.
type RoleRequest struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;index;not null" json:"userId"`
	UserEmail   string            `gorm:"type:varchar(150);index;not null" json:"userEmail"`
	UserProfile string            `gorm:"type:text" json:"userProfile"`
	CurrentRole Role              `gorm:"type:varchar(20)" json:"currentRole"`
	RequestRole Role              `gorm:"type:varchar(20)" json:"requestRole"`
	Status      RoleRequestStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (r *RoleRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

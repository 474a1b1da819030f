package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// Notification is a fire-and-forget side effect of lifecycle
// transitions, addressed to the counterparty.
type Notification struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiverEmail string             `gorm:"type:varchar(150);index;not null" json:"receiverEmail"`
	Message       string             `gorm:"type:text;not null" json:"message"`
	Status        NotificationStatus `gorm:"type:varchar(10);default:'unread';index" json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "PENDING"
	PayoutStatusSettled PayoutStatus = "SETTLED"
	PayoutStatusFailed  PayoutStatus = "FAILED"
)

// PayoutTransaction is the ledger of calls to the external payout
// gateway. A row left PENDING means the hire was claimed as paid but
// the gateway call did not confirm; it is safe to redeliver.
type PayoutTransaction struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	HireID      uuid.UUID    `gorm:"type:uuid;index;not null" json:"hireId"`
	Reference   string       `gorm:"type:varchar(50);index" json:"reference"`       // gateway reference
	MerchantRef string       `gorm:"type:varchar(50);uniqueIndex" json:"merchantRef"` // PAY-{hireId}
	Amount      int64        `json:"amount"`
	Currency    string       `gorm:"type:varchar(10)" json:"currency"`
	Status      PayoutStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	SettledAt   *time.Time   `json:"settledAt,omitempty"`
	Note        string       `gorm:"type:text" json:"note"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (t *PayoutTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

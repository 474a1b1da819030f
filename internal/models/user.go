package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleFreelancer Role = "freelancer"
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
)

// User is created on first sign-in. Role changes only through an
// approved RoleRequest or direct admin action.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`

	// Empty for Google-only accounts.
	Password string `json:"-"`

	Role            Role `gorm:"type:varchar(20);not null;index;default:'freelancer'" json:"role"`
	IsVerified      bool `gorm:"default:false" json:"isVerified"`
	RoleRequestSent bool `gorm:"default:false" json:"roleRequestSent"`

	PhotoURL    string         `gorm:"type:text" json:"photoUrl"`
	CoverURL    string         `gorm:"type:text" json:"coverUrl"`
	Title       string         `gorm:"type:varchar(120)" json:"title"`
	Skills      datatypes.JSON `json:"skills"` // ordered list of skill names
	Github      string         `gorm:"type:text" json:"github"`
	Linkedin    string         `gorm:"type:text" json:"linkedin"`
	ResumeURL   string         `gorm:"type:text" json:"resumeUrl"`
	Description string         `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

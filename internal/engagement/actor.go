package engagement

import (
	"strings"

	"github.com/google/uuid"

	"github.com/freelancehub/freelancehub_backend/internal/models"
)

// Actor is the authenticated identity a view passes to every
// coordinator call. It replaces any ambient session state: nothing in
// this package reads identity from anywhere else.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  models.Role
}

func NewActor(id uuid.UUID, email string, role models.Role) Actor {
	return Actor{ID: id, Email: strings.ToLower(strings.TrimSpace(email)), Role: role}
}

func (a Actor) IsClient() bool     { return a.Role == models.RoleClient }
func (a Actor) IsFreelancer() bool { return a.Role == models.RoleFreelancer }
func (a Actor) IsAdmin() bool      { return a.Role == models.RoleAdmin }

// ownsAsClient reports whether the actor is the client side of a record
// carrying the given denormalized owner email.
func (a Actor) ownsAsClient(clientEmail string) bool {
	return a.IsClient() && strings.EqualFold(a.Email, clientEmail)
}

// ownsAsFreelancer reports whether the actor is the freelancer side of
// a record carrying the given denormalized freelancer email.
func (a Actor) ownsAsFreelancer(freelancerEmail string) bool {
	return a.IsFreelancer() && strings.EqualFold(a.Email, freelancerEmail)
}

// CanReadParty gates reads of another party's records: either side of
// the engagement may read, an admin may moderate, everyone else is
// denied before any entity state leaks.
func (a Actor) CanReadParty(clientEmail, freelancerEmail string) bool {
	if a.IsAdmin() {
		return true
	}
	return strings.EqualFold(a.Email, clientEmail) || strings.EqualFold(a.Email, freelancerEmail)
}

package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Typed outcomes of lifecycle operations. Views map these to user
// facing messages and retry only ErrUnavailable.
var (
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDuplicateProposal = errors.New("duplicate proposal")
	ErrAlreadyCompleted  = errors.New("already completed")
	ErrAlreadyPaid       = errors.New("already paid")
	ErrUnavailable       = errors.New("unavailable")
)

// ErrJobClosed is a specialised invalid transition so callers can still
// match on ErrInvalidTransition.
var ErrJobClosed = fmt.Errorf("%w: job is closed", ErrInvalidTransition)

func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// postgres and sqlite phrasings
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "unique constraint")
}

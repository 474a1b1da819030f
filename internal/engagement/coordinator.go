package engagement

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/models"
)

// Notifier persists and fans out a notification to the counterparty of
// a transition. Implementations must never fail the caller: a lost
// notification is acceptable, a lost state transition is not.
type Notifier interface {
	Notify(ctx context.Context, receiverEmail, message string)
}

// PayoutGateway is the external payment collaborator invoked when a
// client releases payment for a completed hire.
type PayoutGateway interface {
	Disburse(ctx context.Context, merchantRef string, amount int64, currency, recipientEmail, note string) (reference string, err error)
}

// Coordinator is the single authority for every engagement lifecycle
// transition: proposal, hire, work submission, completion, rating,
// payment and role changes. All role/ownership checks happen here,
// before any cross-party state is read, and all racy transitions go
// through conditional updates rather than read-then-write.
type Coordinator struct {
	DB       *gorm.DB
	Notifier Notifier
	Payouts  PayoutGateway
}

func New(db *gorm.DB, notifier Notifier, payouts PayoutGateway) *Coordinator {
	return &Coordinator{DB: db, Notifier: notifier, Payouts: payouts}
}

func (s *Coordinator) notify(ctx context.Context, receiver, message string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, receiver, message)
}

// ---- SubmitProposal ----

type SubmitProposalInput struct {
	JobID         uuid.UUID
	CoverLetter   string
	BidAmount     int64
	EstimatedTime int
}

// SubmitProposal creates a pending proposal and bumps the job's
// proposal counter in the same transaction. The counter moves via
// `proposals + 1` guarded by the job still being open, so concurrent
// submissions can neither drift the count nor slip past a close.
func (s *Coordinator) SubmitProposal(ctx context.Context, actor Actor, in SubmitProposalInput) (*models.Proposal, error) {
	if !actor.IsFreelancer() {
		return nil, fmt.Errorf("%w: only freelancers can submit proposals", ErrForbidden)
	}

	var proposal models.Proposal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, "id = ?", in.JobID).Error; err != nil {
			return wrapDB(err)
		}

		var freelancer models.User
		if err := tx.First(&freelancer, "id = ?", actor.ID).Error; err != nil {
			return wrapDB(err)
		}

		proposal = models.Proposal{
			JobID:             job.ID,
			JobTitle:          job.Title,
			FreelancerID:      freelancer.ID,
			FreelancerEmail:   actor.Email,
			FreelancerName:    freelancer.Name,
			FreelancerProfile: freelancer.PhotoURL,
			ClientEmail:       job.ClientEmail,
			CoverLetter:       in.CoverLetter,
			BidAmount:         in.BidAmount,
			EstimatedTime:     in.EstimatedTime,
			Status:            models.ProposalStatusPending,
		}
		if err := tx.Create(&proposal).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: you already have a proposal on this job", ErrDuplicateProposal)
			}
			return wrapDB(err)
		}

		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", job.ID, models.JobStatusOpen).
			Update("proposals", gorm.Expr("proposals + 1"))
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrJobClosed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, proposal.ClientEmail,
		fmt.Sprintf("%s submitted a proposal for \"%s\".", proposal.FreelancerName, proposal.JobTitle))
	return &proposal, nil
}

// ---- DecideProposal ----

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// DecideProposal accepts or rejects a pending proposal. Acceptance
// claims the job's single acceptance slot with a conditional update,
// closes the job, and creates the hire; sibling proposals stay pending
// but can never be accepted afterwards because the slot is taken.
func (s *Coordinator) DecideProposal(ctx context.Context, actor Actor, proposalID uuid.UUID, decision Decision) (*models.Proposal, *models.Hire, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, decision)
	}

	var (
		proposal models.Proposal
		hire     *models.Hire
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proposal, "id = ?", proposalID).Error; err != nil {
			return wrapDB(err)
		}
		if !actor.ownsAsClient(proposal.ClientEmail) {
			return fmt.Errorf("%w: only the job owner can decide this proposal", ErrForbidden)
		}

		newStatus := models.ProposalStatusRejected
		if decision == DecisionAccept {
			newStatus = models.ProposalStatusAccepted
		}

		res := tx.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", proposal.ID, models.ProposalStatusPending).
			Update("status", newStatus)
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: proposal is already %s", ErrInvalidTransition, proposal.Status)
		}
		proposal.Status = newStatus

		if decision == DecisionReject {
			return nil
		}

		// Claim the job's acceptance slot. Losing the race (or a prior
		// acceptance) leaves zero rows affected and rolls everything back.
		res = tx.Model(&models.Job{}).
			Where("id = ? AND accepted_proposal_id IS NULL", proposal.JobID).
			Updates(map[string]interface{}{
				"accepted_proposal_id": proposal.ID,
				"status":               models.JobStatusClosed,
			})
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: another proposal was already accepted for this job", ErrInvalidTransition)
		}

		var job models.Job
		if err := tx.First(&job, "id = ?", proposal.JobID).Error; err != nil {
			return wrapDB(err)
		}

		hire = &models.Hire{
			JobID:             job.ID,
			ProposalID:        proposal.ID,
			JobTitle:          proposal.JobTitle,
			FreelancerEmail:   proposal.FreelancerEmail,
			FreelancerName:    proposal.FreelancerName,
			FreelancerProfile: proposal.FreelancerProfile,
			ClientEmail:       proposal.ClientEmail,
			BidAmount:         proposal.BidAmount,
			Currency:          job.Currency,
			BudgetType:        job.BudgetType,
			EstimatedTime:     proposal.EstimatedTime,
			Status:            models.HireStatusInProgress,
			PaymentStatus:     models.PaymentStatusUnpaid,
		}
		return wrapDB(tx.Create(hire).Error)
	})
	if err != nil {
		return nil, nil, err
	}

	if decision == DecisionAccept {
		s.notify(ctx, proposal.FreelancerEmail,
			fmt.Sprintf("Your proposal for \"%s\" has been accepted. You have been hired!", proposal.JobTitle))
	} else {
		s.notify(ctx, proposal.FreelancerEmail,
			fmt.Sprintf("Your proposal for \"%s\" has been rejected.", proposal.JobTitle))
	}
	return &proposal, hire, nil
}

// ---- AssignWork ----

type AssignWorkInput struct {
	HireID            uuid.UUID
	WorkDetails       string
	FigmaLink         string
	APIInfo           string
	GithubRepo        string
	ExtraInstructions string
	Deadline          string
}

// AssignWork attaches the client's brief to an in-progress hire, one
// brief per hire.
func (s *Coordinator) AssignWork(ctx context.Context, actor Actor, in AssignWorkInput) (*models.WorkAssignment, error) {
	var assignment models.WorkAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hire models.Hire
		if err := tx.First(&hire, "id = ?", in.HireID).Error; err != nil {
			return wrapDB(err)
		}
		if !actor.ownsAsClient(hire.ClientEmail) {
			return fmt.Errorf("%w: only the hiring client can assign work", ErrForbidden)
		}
		if hire.Status != models.HireStatusInProgress {
			return fmt.Errorf("%w: hire is %s", ErrInvalidTransition, hire.Status)
		}

		assignment = models.WorkAssignment{
			HireID:            hire.ID,
			WorkDetails:       in.WorkDetails,
			FigmaLink:         in.FigmaLink,
			APIInfo:           in.APIInfo,
			GithubRepo:        in.GithubRepo,
			ExtraInstructions: in.ExtraInstructions,
			Deadline:          in.Deadline,
			Status:            models.AssignmentStatusInProgress,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: work already assigned for this hire", ErrInvalidTransition)
			}
			return wrapDB(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ---- SubmitWork ----

type SubmitWorkInput struct {
	HireID     uuid.UUID
	LiveLink   string
	GithubLink string
	Message    string
}

// SubmitWork records a deliverable against an in-progress hire.
// Resubmission is allowed; the latest submission is the one the client
// completes. The brief's status follows along when one exists.
func (s *Coordinator) SubmitWork(ctx context.Context, actor Actor, in SubmitWorkInput) (*models.WorkSubmission, error) {
	var (
		submission models.WorkSubmission
		hire       models.Hire
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&hire, "id = ?", in.HireID).Error; err != nil {
			return wrapDB(err)
		}
		if !actor.ownsAsFreelancer(hire.FreelancerEmail) {
			return fmt.Errorf("%w: only the assigned freelancer can submit work", ErrForbidden)
		}
		if hire.Status != models.HireStatusInProgress {
			return fmt.Errorf("%w: hire is %s", ErrInvalidTransition, hire.Status)
		}

		submission = models.WorkSubmission{
			HireID:          hire.ID,
			JobTitle:        hire.JobTitle,
			FreelancerEmail: hire.FreelancerEmail,
			ClientEmail:     hire.ClientEmail,
			LiveLink:        in.LiveLink,
			GithubLink:      in.GithubLink,
			Message:         in.Message,
			Status:          models.SubmissionStatusSubmitted,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return wrapDB(err)
		}

		// Brief exists for most hires but is optional.
		if err := tx.Model(&models.WorkAssignment{}).
			Where("hire_id = ?", hire.ID).
			Update("status", models.AssignmentStatusSubmitted).Error; err != nil {
			return wrapDB(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, hire.ClientEmail,
		fmt.Sprintf("%s submitted work for %s", hire.FreelancerName, hire.JobTitle))
	return &submission, nil
}

// ---- MarkCompleted ----

// MarkCompleted is the client's acceptance of a submitted deliverable.
// It completes the hire and the submission exactly once; a second call,
// including one aimed at an older sibling submission, fails with
// ErrAlreadyCompleted instead of silently succeeding, so no duplicate
// notification ever goes out.
func (s *Coordinator) MarkCompleted(ctx context.Context, actor Actor, submissionID uuid.UUID) (*models.WorkSubmission, error) {
	var submission models.WorkSubmission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&submission, "id = ?", submissionID).Error; err != nil {
			return wrapDB(err)
		}
		if !actor.ownsAsClient(submission.ClientEmail) {
			return fmt.Errorf("%w: only the hiring client can complete this work", ErrForbidden)
		}

		// The hire leaves in_progress first: once it has, no sibling
		// submission can be completed again.
		res := tx.Model(&models.Hire{}).
			Where("id = ? AND status = ?", submission.HireID, models.HireStatusInProgress).
			Update("status", models.HireStatusCompleted)
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: hire was already completed", ErrAlreadyCompleted)
		}

		res = tx.Model(&models.WorkSubmission{}).
			Where("id = ? AND status = ?", submission.ID, models.SubmissionStatusSubmitted).
			Update("status", models.SubmissionStatusCompleted)
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: submission was already completed", ErrAlreadyCompleted)
		}
		submission.Status = models.SubmissionStatusCompleted

		if err := tx.Model(&models.WorkAssignment{}).
			Where("hire_id = ?", submission.HireID).
			Update("status", models.AssignmentStatusCompleted).Error; err != nil {
			return wrapDB(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, submission.FreelancerEmail,
		fmt.Sprintf("Your work for \"%s\" has been marked as completed by the client.", submission.JobTitle))
	return &submission, nil
}

// ---- SubmitRating ----

// SubmitRating sets the hire's rating once. Overwriting is rejected as
// an invalid transition: the chosen policy is one rating per hire.
func (s *Coordinator) SubmitRating(ctx context.Context, actor Actor, hireID uuid.UUID, rating float64) (*models.Hire, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidTransition)
	}

	var hire models.Hire
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&hire, "id = ?", hireID).Error; err != nil {
			return wrapDB(err)
		}
		if !actor.ownsAsClient(hire.ClientEmail) {
			return fmt.Errorf("%w: only the hiring client can rate this hire", ErrForbidden)
		}

		res := tx.Model(&models.Hire{}).
			Where("id = ? AND status = ? AND rating IS NULL", hire.ID, models.HireStatusCompleted).
			Updates(map[string]interface{}{
				"rating":        rating,
				"total_reviews": gorm.Expr("total_reviews + 1"),
			})
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			if hire.Status != models.HireStatusCompleted {
				return fmt.Errorf("%w: hire is not completed yet", ErrInvalidTransition)
			}
			return fmt.Errorf("%w: hire has already been rated", ErrInvalidTransition)
		}

		return wrapDB(tx.First(&hire, "id = ?", hire.ID).Error)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, hire.FreelancerEmail,
		fmt.Sprintf("You received a %.1f star rating for \"%s\".", rating, hire.JobTitle))
	return &hire, nil
}

// ---- ReleasePayment ----

// ReleasePayment settles payment for a completed hire exactly once.
// The unpaid->paid claim commits before the payout gateway is called,
// so a concurrent or repeated call fails with ErrAlreadyPaid and the
// gateway can never be invoked twice for the same hire. A gateway
// failure after the claim leaves the payout ledger row PENDING for
// redelivery and is not surfaced to the caller.
func (s *Coordinator) ReleasePayment(ctx context.Context, actor Actor, hireID uuid.UUID) (*models.Hire, error) {
	var (
		hire   models.Hire
		trx    models.PayoutTransaction
		paidAt = time.Now()
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&hire, "id = ?", hireID).Error; err != nil {
			return wrapDB(err)
		}
		if !actor.ownsAsClient(hire.ClientEmail) {
			return fmt.Errorf("%w: only the hiring client can release payment", ErrForbidden)
		}

		res := tx.Model(&models.Hire{}).
			Where("id = ? AND status = ? AND payment_status = ?",
				hire.ID, models.HireStatusCompleted, models.PaymentStatusUnpaid).
			Updates(map[string]interface{}{
				"payment_status": models.PaymentStatusPaid,
				"paid_at":        paidAt,
			})
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			if hire.PaymentStatus == models.PaymentStatusPaid {
				return fmt.Errorf("%w: payment was already settled for this hire", ErrAlreadyPaid)
			}
			return fmt.Errorf("%w: hire is not completed yet", ErrInvalidTransition)
		}
		hire.PaymentStatus = models.PaymentStatusPaid
		hire.PaidAt = &paidAt

		trx = models.PayoutTransaction{
			HireID:      hire.ID,
			MerchantRef: "PAY-" + hire.ID.String(),
			Amount:      hire.BidAmount,
			Currency:    hire.Currency,
			Status:      models.PayoutStatusPending,
		}
		return wrapDB(tx.Create(&trx).Error)
	})
	if err != nil {
		return nil, err
	}

	if s.Payouts != nil {
		note := "Payment for \"" + hire.JobTitle + "\""
		ref, gerr := s.Payouts.Disburse(ctx, trx.MerchantRef, trx.Amount, trx.Currency, hire.FreelancerEmail, note)
		if gerr != nil {
			log.Printf("payout gateway failed for hire %s (ref %s), leaving ledger pending: %v", hire.ID, trx.MerchantRef, gerr)
		} else {
			now := time.Now()
			if uerr := s.DB.WithContext(ctx).Model(&models.PayoutTransaction{}).
				Where("id = ?", trx.ID).
				Updates(map[string]interface{}{
					"reference":  ref,
					"status":     models.PayoutStatusSettled,
					"settled_at": now,
				}).Error; uerr != nil {
				log.Printf("failed to record payout settlement for hire %s: %v", hire.ID, uerr)
			}
		}
	}

	s.notify(ctx, hire.FreelancerEmail,
		fmt.Sprintf("You have received payment for \"%s\".", hire.JobTitle))
	return &hire, nil
}

// ---- RequestRoleChange ----

// RequestRoleChange files a freelancer's request to become a client.
// The roleRequestSent flag is flipped with a conditional update so a
// user can never queue two requests.
func (s *Coordinator) RequestRoleChange(ctx context.Context, actor Actor, targetRole models.Role) (*models.RoleRequest, error) {
	if !actor.IsFreelancer() {
		return nil, fmt.Errorf("%w: only freelancers can request a role change", ErrForbidden)
	}
	if targetRole != models.RoleClient {
		return nil, fmt.Errorf("%w: only freelancer to client requests are allowed", ErrInvalidTransition)
	}

	var request models.RoleRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", actor.ID).Error; err != nil {
			return wrapDB(err)
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND role_request_sent = ?", user.ID, false).
			Update("role_request_sent", true)
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: a role request is already pending", ErrInvalidTransition)
		}

		request = models.RoleRequest{
			UserID:      user.ID,
			UserEmail:   user.Email,
			UserProfile: user.PhotoURL,
			CurrentRole: user.Role,
			RequestRole: targetRole,
			Status:      models.RoleRequestPending,
		}
		return wrapDB(tx.Create(&request).Error)
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ---- ApproveRoleChange ----

// ApproveRoleChange is admin-only. Approval promotes the user and
// clears roleRequestSent so a later request (after any future role
// change) stays possible.
func (s *Coordinator) ApproveRoleChange(ctx context.Context, actor Actor, requestID uuid.UUID) (*models.RoleRequest, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can approve role requests", ErrForbidden)
	}

	var request models.RoleRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			return wrapDB(err)
		}

		res := tx.Model(&models.RoleRequest{}).
			Where("id = ? AND status = ?", request.ID, models.RoleRequestPending).
			Update("status", models.RoleRequestApproved)
		if res.Error != nil {
			return wrapDB(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request is already %s", ErrInvalidTransition, request.Status)
		}
		request.Status = models.RoleRequestApproved

		return wrapDB(tx.Model(&models.User{}).
			Where("id = ?", request.UserID).
			Updates(map[string]interface{}{
				"role":              request.RequestRole,
				"role_request_sent": false,
			}).Error)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, request.UserEmail,
		fmt.Sprintf("Your role change request has been approved. You are now a %s.", request.RequestRole))
	return &request, nil
}

package engagement

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/models"
)

type recordedNote struct {
	Receiver string
	Message  string
}

type recordingNotifier struct {
	notes []recordedNote
}

func (n *recordingNotifier) Notify(_ context.Context, receiver, message string) {
	n.notes = append(n.notes, recordedNote{Receiver: receiver, Message: message})
}

func (n *recordingNotifier) countFor(email string) int {
	count := 0
	for _, note := range n.notes {
		if note.Receiver == email {
			count++
		}
	}
	return count
}

type fakeGateway struct {
	calls   int
	lastRef string
	err     error
}

func (g *fakeGateway) Disburse(_ context.Context, merchantRef string, _ int64, _, _, _ string) (string, error) {
	g.calls++
	g.lastRef = merchantRef
	if g.err != nil {
		return "", g.err
	}
	return "GW-" + merchantRef, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Proposal{},
		&models.Hire{},
		&models.WorkAssignment{},
		&models.WorkSubmission{},
		&models.Notification{},
		&models.RoleRequest{},
		&models.PayoutTransaction{},
	))
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, name, email string, role models.Role) (models.User, Actor) {
	t.Helper()
	u := models.User{Name: name, Email: email, Role: role}
	require.NoError(t, gdb.Create(&u).Error)
	return u, NewActor(u.ID, u.Email, u.Role)
}

func seedJob(t *testing.T, gdb *gorm.DB, clientEmail string) models.Job {
	t.Helper()
	job := models.Job{
		ClientEmail: clientEmail,
		Title:       "Build landing page",
		Category:    "Web Development",
		BudgetType:  "Fixed",
		Budget:      500,
		Currency:    "USD",
		Status:      models.JobStatusOpen,
	}
	require.NoError(t, gdb.Create(&job).Error)
	return job
}

type fixture struct {
	db         *gorm.DB
	coord      *Coordinator
	notifier   *recordingNotifier
	gateway    *fakeGateway
	client     Actor
	freelancer Actor
	job        models.Job
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := openTestDB(t)
	notifier := &recordingNotifier{}
	gateway := &fakeGateway{}

	_, client := seedUser(t, gdb, "Carol Client", "carol@client.test", models.RoleClient)
	_, freelancer := seedUser(t, gdb, "Frank Freelancer", "frank@freelancer.test", models.RoleFreelancer)
	job := seedJob(t, gdb, client.Email)

	return &fixture{
		db:         gdb,
		coord:      New(gdb, notifier, gateway),
		notifier:   notifier,
		gateway:    gateway,
		client:     client,
		freelancer: freelancer,
		job:        job,
	}
}

func (f *fixture) submitProposal(t *testing.T) *models.Proposal {
	t.Helper()
	p, err := f.coord.SubmitProposal(context.Background(), f.freelancer, SubmitProposalInput{
		JobID:         f.job.ID,
		CoverLetter:   "I can build this.",
		BidAmount:     450,
		EstimatedTime: 7,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) hire(t *testing.T) *models.Hire {
	t.Helper()
	p := f.submitProposal(t)
	_, h, err := f.coord.DecideProposal(context.Background(), f.client, p.ID, DecisionAccept)
	require.NoError(t, err)
	require.NotNil(t, h)
	return h
}

func (f *fixture) completedHire(t *testing.T) *models.Hire {
	t.Helper()
	h := f.hire(t)
	sub, err := f.coord.SubmitWork(context.Background(), f.freelancer, SubmitWorkInput{
		HireID:     h.ID,
		GithubLink: "https://github.com/frank/landing",
	})
	require.NoError(t, err)
	done, err := f.coord.MarkCompleted(context.Background(), f.client, sub.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusCompleted, done.Status)
	return h
}

func TestSubmitProposalCreatesPendingAndBumpsCounter(t *testing.T) {
	f := newFixture(t)

	p := f.submitProposal(t)
	assert.Equal(t, models.ProposalStatusPending, p.Status)
	assert.Equal(t, f.job.Title, p.JobTitle)
	assert.Equal(t, f.client.Email, p.ClientEmail)

	var job models.Job
	require.NoError(t, f.db.First(&job, "id = ?", f.job.ID).Error)
	assert.Equal(t, 1, job.Proposals)

	assert.Equal(t, 1, f.notifier.countFor(f.client.Email))
}

func TestSubmitProposalRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.submitProposal(t)

	_, err := f.coord.SubmitProposal(context.Background(), f.freelancer, SubmitProposalInput{
		JobID:         f.job.ID,
		CoverLetter:   "second try",
		BidAmount:     400,
		EstimatedTime: 5,
	})
	require.ErrorIs(t, err, ErrDuplicateProposal)

	var job models.Job
	require.NoError(t, f.db.First(&job, "id = ?", f.job.ID).Error)
	assert.Equal(t, 1, job.Proposals, "counter must match the single live proposal")
}

func TestSubmitProposalClosedJobLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.Job{}).
		Where("id = ?", f.job.ID).
		Update("status", models.JobStatusClosed).Error)

	_, err := f.coord.SubmitProposal(context.Background(), f.freelancer, SubmitProposalInput{
		JobID:         f.job.ID,
		CoverLetter:   "too late",
		BidAmount:     450,
		EstimatedTime: 7,
	})
	require.ErrorIs(t, err, ErrInvalidTransition)

	var count int64
	f.db.Model(&models.Proposal{}).Where("job_id = ?", f.job.ID).Count(&count)
	assert.Zero(t, count, "rolled back proposal must not persist")
	assert.Empty(t, f.notifier.notes)
}

func TestSubmitProposalRequiresFreelancerRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.SubmitProposal(context.Background(), f.client, SubmitProposalInput{
		JobID:         f.job.ID,
		CoverLetter:   "client bidding",
		BidAmount:     100,
		EstimatedTime: 1,
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitProposalUnknownJob(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.SubmitProposal(context.Background(), f.freelancer, SubmitProposalInput{
		JobID:         uuid.New(),
		CoverLetter:   "ghost job",
		BidAmount:     100,
		EstimatedTime: 1,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptProposalCreatesHireAndClosesJob(t *testing.T) {
	f := newFixture(t)
	p := f.submitProposal(t)

	decided, hire, err := f.coord.DecideProposal(context.Background(), f.client, p.ID, DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusAccepted, decided.Status)

	require.NotNil(t, hire)
	assert.Equal(t, p.ID, hire.ProposalID)
	assert.Equal(t, p.BidAmount, hire.BidAmount)
	assert.Equal(t, f.job.Currency, hire.Currency)
	assert.Equal(t, models.HireStatusInProgress, hire.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, hire.PaymentStatus)

	var job models.Job
	require.NoError(t, f.db.First(&job, "id = ?", f.job.ID).Error)
	assert.Equal(t, models.JobStatusClosed, job.Status)
	require.NotNil(t, job.AcceptedProposalID)
	assert.Equal(t, p.ID, *job.AcceptedProposalID)

	assert.Equal(t, 1, f.notifier.countFor(f.freelancer.Email))
}

func TestSecondAcceptOnSameJobIsBlocked(t *testing.T) {
	f := newFixture(t)
	first := f.submitProposal(t)

	_, other := seedUser(t, f.db, "Fiona", "fiona@freelancer.test", models.RoleFreelancer)
	second, err := f.coord.SubmitProposal(context.Background(), other, SubmitProposalInput{
		JobID:         f.job.ID,
		CoverLetter:   "me too",
		BidAmount:     480,
		EstimatedTime: 10,
	})
	require.NoError(t, err)

	_, _, err = f.coord.DecideProposal(context.Background(), f.client, first.ID, DecisionAccept)
	require.NoError(t, err)

	_, hire, err := f.coord.DecideProposal(context.Background(), f.client, second.ID, DecisionAccept)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Nil(t, hire)

	// The losing accept rolls back entirely: the sibling stays pending.
	var sibling models.Proposal
	require.NoError(t, f.db.First(&sibling, "id = ?", second.ID).Error)
	assert.Equal(t, models.ProposalStatusPending, sibling.Status)

	var hires int64
	f.db.Model(&models.Hire{}).Where("job_id = ?", f.job.ID).Count(&hires)
	assert.EqualValues(t, 1, hires)
}

func TestDecideNonPendingProposalFails(t *testing.T) {
	f := newFixture(t)
	p := f.submitProposal(t)

	_, _, err := f.coord.DecideProposal(context.Background(), f.client, p.ID, DecisionReject)
	require.NoError(t, err)

	_, _, err = f.coord.DecideProposal(context.Background(), f.client, p.ID, DecisionAccept)
	require.ErrorIs(t, err, ErrInvalidTransition)

	var stored models.Proposal
	require.NoError(t, f.db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, models.ProposalStatusRejected, stored.Status)
}

func TestRejectLeavesJobOpen(t *testing.T) {
	f := newFixture(t)
	p := f.submitProposal(t)

	decided, hire, err := f.coord.DecideProposal(context.Background(), f.client, p.ID, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusRejected, decided.Status)
	assert.Nil(t, hire)

	var job models.Job
	require.NoError(t, f.db.First(&job, "id = ?", f.job.ID).Error)
	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.Nil(t, job.AcceptedProposalID)
}

func TestOnlyTheJobOwnerDecides(t *testing.T) {
	f := newFixture(t)
	p := f.submitProposal(t)

	_, otherClient := seedUser(t, f.db, "Mallory", "mallory@client.test", models.RoleClient)
	_, _, err := f.coord.DecideProposal(context.Background(), otherClient, p.ID, DecisionAccept)
	require.ErrorIs(t, err, ErrForbidden)

	// The freelancer cannot decide their own proposal either.
	_, _, err = f.coord.DecideProposal(context.Background(), f.freelancer, p.ID, DecisionAccept)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDecideUnknownProposal(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.coord.DecideProposal(context.Background(), f.client, uuid.New(), DecisionAccept)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssignWorkOncePerHire(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)

	in := AssignWorkInput{
		HireID:      h.ID,
		WorkDetails: "Build the landing page per the figma file",
		FigmaLink:   "https://figma.com/file/abc",
		Deadline:    "2026-10-01",
	}
	assignment, err := f.coord.AssignWork(context.Background(), f.client, in)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusInProgress, assignment.Status)

	_, err = f.coord.AssignWork(context.Background(), f.client, in)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAssignWorkGuards(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)

	_, err := f.coord.AssignWork(context.Background(), f.freelancer, AssignWorkInput{HireID: h.ID, WorkDetails: "x"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.coord.AssignWork(context.Background(), f.client, AssignWorkInput{HireID: uuid.New(), WorkDetails: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitWorkAllowsResubmission(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)
	_, err := f.coord.AssignWork(context.Background(), f.client, AssignWorkInput{
		HireID:      h.ID,
		WorkDetails: "details",
	})
	require.NoError(t, err)

	before := f.notifier.countFor(f.client.Email)

	first, err := f.coord.SubmitWork(context.Background(), f.freelancer, SubmitWorkInput{
		HireID:     h.ID,
		GithubLink: "https://github.com/frank/landing",
		Message:    "first draft",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, first.Status)

	second, err := f.coord.SubmitWork(context.Background(), f.freelancer, SubmitWorkInput{
		HireID:     h.ID,
		GithubLink: "https://github.com/frank/landing",
		LiveLink:   "https://landing.example",
		Message:    "revised",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var assignment models.WorkAssignment
	require.NoError(t, f.db.First(&assignment, "hire_id = ?", h.ID).Error)
	assert.Equal(t, models.AssignmentStatusSubmitted, assignment.Status)

	// one notification per submission, on top of the proposal one
	assert.Equal(t, before+2, f.notifier.countFor(f.client.Email))
}

func TestSubmitWorkGuards(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)

	_, err := f.coord.SubmitWork(context.Background(), f.client, SubmitWorkInput{HireID: h.ID})
	require.ErrorIs(t, err, ErrForbidden)

	_, stranger := seedUser(t, f.db, "Steve", "steve@freelancer.test", models.RoleFreelancer)
	_, err = f.coord.SubmitWork(context.Background(), stranger, SubmitWorkInput{HireID: h.ID})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMarkCompletedExactlyOnce(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)
	sub, err := f.coord.SubmitWork(context.Background(), f.freelancer, SubmitWorkInput{
		HireID:     h.ID,
		GithubLink: "https://github.com/frank/landing",
	})
	require.NoError(t, err)

	before := f.notifier.countFor(f.freelancer.Email)

	done, err := f.coord.MarkCompleted(context.Background(), f.client, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusCompleted, done.Status)

	var hire models.Hire
	require.NoError(t, f.db.First(&hire, "id = ?", h.ID).Error)
	assert.Equal(t, models.HireStatusCompleted, hire.Status)

	_, err = f.coord.MarkCompleted(context.Background(), f.client, sub.ID)
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	// exactly one completion notification
	assert.Equal(t, before+1, f.notifier.countFor(f.freelancer.Email))
}

func TestMarkCompletedRejectsOlderSibling(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)

	older, err := f.coord.SubmitWork(context.Background(), f.freelancer, SubmitWorkInput{
		HireID:     h.ID,
		GithubLink: "https://github.com/frank/landing",
		Message:    "first draft",
	})
	require.NoError(t, err)
	latest, err := f.coord.SubmitWork(context.Background(), f.freelancer, SubmitWorkInput{
		HireID:     h.ID,
		GithubLink: "https://github.com/frank/landing",
		LiveLink:   "https://landing.example",
		Message:    "final",
	})
	require.NoError(t, err)

	_, err = f.coord.MarkCompleted(context.Background(), f.client, latest.ID)
	require.NoError(t, err)

	before := f.notifier.countFor(f.freelancer.Email)

	// the hire is done; the superseded submission cannot be completed
	_, err = f.coord.MarkCompleted(context.Background(), f.client, older.ID)
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	var stored models.WorkSubmission
	require.NoError(t, f.db.First(&stored, "id = ?", older.ID).Error)
	assert.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	assert.Equal(t, before, f.notifier.countFor(f.freelancer.Email), "no duplicate completion notification")
}

func TestMarkCompletedOwnership(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)
	sub, err := f.coord.SubmitWork(context.Background(), f.freelancer, SubmitWorkInput{
		HireID:     h.ID,
		GithubLink: "https://github.com/frank/landing",
	})
	require.NoError(t, err)

	_, err = f.coord.MarkCompleted(context.Background(), f.freelancer, sub.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitRatingOnce(t *testing.T) {
	f := newFixture(t)
	h := f.completedHire(t)

	rated, err := f.coord.SubmitRating(context.Background(), f.client, h.ID, 4.5)
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.InDelta(t, 4.5, *rated.Rating, 0.001)
	assert.Equal(t, 1, rated.TotalReviews)

	_, err = f.coord.SubmitRating(context.Background(), f.client, h.ID, 2)
	require.ErrorIs(t, err, ErrInvalidTransition)

	var stored models.Hire
	require.NoError(t, f.db.First(&stored, "id = ?", h.ID).Error)
	require.NotNil(t, stored.Rating)
	assert.InDelta(t, 4.5, *stored.Rating, 0.001, "rating must not be overwritten")
	assert.Equal(t, 1, stored.TotalReviews)
}

func TestSubmitRatingValidation(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)

	_, err := f.coord.SubmitRating(context.Background(), f.client, h.ID, 0)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.coord.SubmitRating(context.Background(), f.client, h.ID, 5.5)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// hire still in progress
	_, err = f.coord.SubmitRating(context.Background(), f.client, h.ID, 5)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.coord.SubmitRating(context.Background(), f.freelancer, h.ID, 5)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestReleasePaymentSettlesOnce(t *testing.T) {
	f := newFixture(t)
	h := f.completedHire(t)

	paid, err := f.coord.ReleasePayment(context.Background(), f.client, h.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)

	assert.Equal(t, 1, f.gateway.calls)
	assert.Equal(t, "PAY-"+h.ID.String(), f.gateway.lastRef)

	var trx models.PayoutTransaction
	require.NoError(t, f.db.First(&trx, "hire_id = ?", h.ID).Error)
	assert.Equal(t, models.PayoutStatusSettled, trx.Status)
	assert.Equal(t, "GW-PAY-"+h.ID.String(), trx.Reference)

	_, err = f.coord.ReleasePayment(context.Background(), f.client, h.ID)
	require.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, 1, f.gateway.calls, "gateway must never be invoked twice for one hire")
}

func TestReleasePaymentGatewayFailureLeavesLedgerPending(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("gateway down")
	h := f.completedHire(t)

	paid, err := f.coord.ReleasePayment(context.Background(), f.client, h.ID)
	require.NoError(t, err, "gateway failure must not surface after the claim committed")
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

	var trx models.PayoutTransaction
	require.NoError(t, f.db.First(&trx, "hire_id = ?", h.ID).Error)
	assert.Equal(t, models.PayoutStatusPending, trx.Status)
	assert.Empty(t, trx.Reference)
}

func TestReleasePaymentRequiresCompletion(t *testing.T) {
	f := newFixture(t)
	h := f.hire(t)

	_, err := f.coord.ReleasePayment(context.Background(), f.client, h.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, f.gateway.calls)

	_, err = f.coord.ReleasePayment(context.Background(), f.freelancer, h.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRoleChangeLifecycle(t *testing.T) {
	f := newFixture(t)

	request, err := f.coord.RequestRoleChange(context.Background(), f.freelancer, models.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRequestPending, request.Status)

	var u models.User
	require.NoError(t, f.db.First(&u, "id = ?", f.freelancer.ID).Error)
	assert.True(t, u.RoleRequestSent)

	// second request while one is pending
	_, err = f.coord.RequestRoleChange(context.Background(), f.freelancer, models.RoleClient)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, admin := seedUser(t, f.db, "Ada Admin", "ada@admin.test", models.RoleAdmin)
	approved, err := f.coord.ApproveRoleChange(context.Background(), admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRequestApproved, approved.Status)

	require.NoError(t, f.db.First(&u, "id = ?", f.freelancer.ID).Error)
	assert.Equal(t, models.RoleClient, u.Role)
	assert.False(t, u.RoleRequestSent)

	_, err = f.coord.ApproveRoleChange(context.Background(), admin, request.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRoleChangeGuards(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.RequestRoleChange(context.Background(), f.client, models.RoleClient)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.coord.RequestRoleChange(context.Background(), f.freelancer, models.RoleAdmin)
	require.ErrorIs(t, err, ErrInvalidTransition)

	request, err := f.coord.RequestRoleChange(context.Background(), f.freelancer, models.RoleClient)
	require.NoError(t, err)

	_, err = f.coord.ApproveRoleChange(context.Background(), f.client, request.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestFullEngagementLifecycle(t *testing.T) {
	f := newFixture(t)
	h := f.completedHire(t)

	_, err := f.coord.SubmitRating(context.Background(), f.client, h.ID, 5)
	require.NoError(t, err)

	paid, err := f.coord.ReleasePayment(context.Background(), f.client, h.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

	// proposal accepted -> work submitted -> completed -> rated -> paid:
	// the freelancer heard about each step.
	assert.GreaterOrEqual(t, f.notifier.countFor(f.freelancer.Email), 4)
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/engagement"
	"github.com/freelancehub/freelancehub_backend/internal/models"
)

type ProposalHandler struct {
	DB          *gorm.DB
	Coordinator *engagement.Coordinator
}

func NewProposalHandler(db *gorm.DB, coord *engagement.Coordinator) *ProposalHandler {
	return &ProposalHandler{DB: db, Coordinator: coord}
}

type SubmitProposalReq struct {
	JobID         string `json:"jobId"`
	CoverLetter   string `json:"coverLetter"`
	BidAmount     int64  `json:"bidAmount"`
	EstimatedTime int    `json:"estimatedTime"`
}

func (h *ProposalHandler) Submit(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	var req SubmitProposalReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid jobId")
	}
	if strings.TrimSpace(req.CoverLetter) == "" {
		return fail(c, fiber.StatusBadRequest, "cover letter is required")
	}
	if req.BidAmount <= 0 {
		return fail(c, fiber.StatusBadRequest, "bid amount must be positive")
	}
	if req.EstimatedTime <= 0 {
		return fail(c, fiber.StatusBadRequest, "estimated time must be positive")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	proposal, err := h.Coordinator.SubmitProposal(ctx, actor, engagement.SubmitProposalInput{
		JobID:         jobID,
		CoverLetter:   strings.TrimSpace(req.CoverLetter),
		BidAmount:     req.BidAmount,
		EstimatedTime: req.EstimatedTime,
	})
	if err != nil {
		return respondError(c, err)
	}
	return created(c, proposal)
}

// List is the admin moderation view over all proposals.
func (h *ProposalHandler) List(c *fiber.Ctx) error {
	var proposals []models.Proposal
	if err := h.DB.Order("created_at DESC").Find(&proposals).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch proposals")
	}
	return ok(c, proposals)
}

// ListByFreelancer returns the calling freelancer's own proposals.
func (h *ProposalHandler) ListByFreelancer(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))
	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var proposals []models.Proposal
	if err := h.DB.Where("freelancer_email = ?", email).Order("created_at DESC").Find(&proposals).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch proposals")
	}
	return ok(c, proposals)
}

// ListByClient returns proposals received on the calling client's jobs.
func (h *ProposalHandler) ListByClient(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))
	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var proposals []models.Proposal
	if err := h.DB.Where("client_email = ?", email).Order("created_at DESC").Find(&proposals).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch proposals")
	}
	return ok(c, proposals)
}

type DecideProposalReq struct {
	Status string `json:"status"`
}

// Decide accepts or rejects a pending proposal. The body carries the
// target status the way the frontend sends it ("accepted"/"rejected");
// it is mapped onto a decision before the coordinator sees it.
func (h *ProposalHandler) Decide(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req DecideProposalReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	var decision engagement.Decision
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case "accepted", "accept":
		decision = engagement.DecisionAccept
	case "rejected", "reject":
		decision = engagement.DecisionReject
	default:
		return fail(c, fiber.StatusBadRequest, "status must be accepted or rejected")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	proposal, hire, err := h.Coordinator.DecideProposal(ctx, actor, id, decision)
	if err != nil {
		return respondError(c, err)
	}

	data := fiber.Map{"proposal": proposal}
	if hire != nil {
		data["hire"] = hire
	}
	return ok(c, data)
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/engagement"
	"github.com/freelancehub/freelancehub_backend/internal/models"
)

type HireHandler struct {
	DB          *gorm.DB
	Coordinator *engagement.Coordinator
}

func NewHireHandler(db *gorm.DB, coord *engagement.Coordinator) *HireHandler {
	return &HireHandler{DB: db, Coordinator: coord}
}

// ListByEmail returns hires where the email is either side of the
// engagement, so the same endpoint serves both dashboards.
func (h *HireHandler) ListByEmail(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))
	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var hires []models.Hire
	err = h.DB.
		Where("client_email = ? OR freelancer_email = ?", email, email).
		Order("hired_at DESC").
		Find(&hires).
		Error
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch hires")
	}
	return ok(c, hires)
}

// Get returns one hire with its brief and submissions. Only the two
// parties and admins may read it.
func (h *HireHandler) Get(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var hire models.Hire
	if err := h.DB.First(&hire, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "hire not found")
	}
	if !actor.CanReadParty(hire.ClientEmail, hire.FreelancerEmail) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var assignment models.WorkAssignment
	var assignmentOut *models.WorkAssignment
	if err := h.DB.First(&assignment, "hire_id = ?", hire.ID).Error; err == nil {
		assignmentOut = &assignment
	}

	var submissions []models.WorkSubmission
	h.DB.Where("hire_id = ?", hire.ID).Order("submitted_at DESC").Find(&submissions)

	return ok(c, fiber.Map{
		"hire":        hire,
		"assignment":  assignmentOut,
		"submissions": submissions,
	})
}

type AddRatingReq struct {
	HireID string  `json:"hireId"`
	Rating float64 `json:"rating"`
}

func (h *HireHandler) AddRating(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	var req AddRatingReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	hireID, err := uuid.Parse(req.HireID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid hireId")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hire, err := h.Coordinator.SubmitRating(ctx, actor, hireID, req.Rating)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, hire)
}

type MakePaymentReq struct {
	HireID string `json:"hireId"`
}

func (h *HireHandler) MakePayment(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	var req MakePaymentReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	hireID, err := uuid.Parse(req.HireID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid hireId")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hire, err := h.Coordinator.ReleasePayment(ctx, actor, hireID)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, hire)
}

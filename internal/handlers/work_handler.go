package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/engagement"
	"github.com/freelancehub/freelancehub_backend/internal/models"
)

type WorkHandler struct {
	DB          *gorm.DB
	Coordinator *engagement.Coordinator
}

func NewWorkHandler(db *gorm.DB, coord *engagement.Coordinator) *WorkHandler {
	return &WorkHandler{DB: db, Coordinator: coord}
}

type AssignWorkReq struct {
	HireID            string `json:"hireId"`
	WorkDetails       string `json:"workDetails"`
	FigmaLink         string `json:"figmaLink"`
	APIInfo           string `json:"apiInfo"`
	GithubRepo        string `json:"githubRepo"`
	ExtraInstructions string `json:"extraInstructions"`
	Deadline          string `json:"deadline"`
}

func (h *WorkHandler) Assign(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	var req AssignWorkReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	hireID, err := uuid.Parse(req.HireID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid hireId")
	}
	if strings.TrimSpace(req.WorkDetails) == "" {
		return fail(c, fiber.StatusBadRequest, "work details are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	assignment, err := h.Coordinator.AssignWork(ctx, actor, engagement.AssignWorkInput{
		HireID:            hireID,
		WorkDetails:       req.WorkDetails,
		FigmaLink:         req.FigmaLink,
		APIInfo:           req.APIInfo,
		GithubRepo:        req.GithubRepo,
		ExtraInstructions: req.ExtraInstructions,
		Deadline:          req.Deadline,
	})
	if err != nil {
		return respondError(c, err)
	}
	return created(c, assignment)
}

// ListFreelancerWorks returns a freelancer's briefs joined with their
// hires, the data the "my work" board renders.
func (h *WorkHandler) ListFreelancerWorks(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))
	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	type workRow struct {
		models.WorkAssignment
		JobTitle    string            `json:"jobTitle"`
		ClientEmail string            `json:"clientEmail"`
		HireStatus  models.HireStatus `json:"hireStatus"`
	}

	var rows []workRow
	err = h.DB.
		Table("work_assignments").
		Select("work_assignments.*, hires.job_title, hires.client_email, hires.status AS hire_status").
		Joins("JOIN hires ON hires.id = work_assignments.hire_id").
		Where("hires.freelancer_email = ?", email).
		Order("work_assignments.created_at DESC").
		Scan(&rows).
		Error
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch works")
	}
	return ok(c, rows)
}

type SubmitWorkReq struct {
	HireID     string `json:"hireId"`
	LiveLink   string `json:"liveLink"`
	GithubLink string `json:"githubLink"`
	Message    string `json:"message"`
}

func (h *WorkHandler) Submit(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	var req SubmitWorkReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	hireID, err := uuid.Parse(req.HireID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid hireId")
	}
	if strings.TrimSpace(req.GithubLink) == "" && strings.TrimSpace(req.LiveLink) == "" {
		return fail(c, fiber.StatusBadRequest, "a live link or github link is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	submission, err := h.Coordinator.SubmitWork(ctx, actor, engagement.SubmitWorkInput{
		HireID:     hireID,
		LiveLink:   req.LiveLink,
		GithubLink: req.GithubLink,
		Message:    req.Message,
	})
	if err != nil {
		return respondError(c, err)
	}
	return created(c, submission)
}

// ListSubmissionsByHire returns a hire's submissions to either party.
func (h *WorkHandler) ListSubmissionsByHire(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	hireID, err := parseIDParam(c, "hireId")
	if err != nil {
		return err
	}

	var hire models.Hire
	if err := h.DB.First(&hire, "id = ?", hireID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "hire not found")
	}
	if !actor.CanReadParty(hire.ClientEmail, hire.FreelancerEmail) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var submissions []models.WorkSubmission
	if err := h.DB.Where("hire_id = ?", hireID).Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch submissions")
	}
	return ok(c, submissions)
}

// ListSubmissionsByClient is the client's review inbox.
func (h *WorkHandler) ListSubmissionsByClient(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))
	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var submissions []models.WorkSubmission
	if err := h.DB.Where("client_email = ?", email).Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch submissions")
	}
	return ok(c, submissions)
}

func (h *WorkHandler) Complete(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	submission, err := h.Coordinator.MarkCompleted(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, submission)
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/models"
)

type JobHandler struct {
	DB *gorm.DB
}

func NewJobHandler(db *gorm.DB) *JobHandler {
	return &JobHandler{DB: db}
}

type CreateJobReq struct {
	Title           string         `json:"title"`
	Category        string         `json:"category"`
	JobType         string         `json:"jobType"`
	Position        string         `json:"position"`
	ExperienceLevel string         `json:"experienceLevel"`
	BudgetType      string         `json:"budgetType"`
	Budget          int64          `json:"budget"`
	Currency        string         `json:"currency"`
	Deadline        string         `json:"deadline"`
	Description     string         `json:"description"`
	Skills          datatypes.JSON `json:"skills"`
	CompanyLogo     string         `json:"companyLogo"`
}

// Create posts a new job owned by the calling client. The owner email
// is denormalized from the session, never taken from the body.
func (h *JobHandler) Create(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	var req CreateJobReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return fail(c, fiber.StatusBadRequest, "title is required")
	}
	if req.Budget <= 0 {
		return fail(c, fiber.StatusBadRequest, "budget must be positive")
	}

	job := models.Job{
		ClientEmail:     actor.Email,
		Title:           strings.TrimSpace(req.Title),
		Category:        req.Category,
		JobType:         req.JobType,
		Position:        req.Position,
		ExperienceLevel: req.ExperienceLevel,
		BudgetType:      req.BudgetType,
		Budget:          req.Budget,
		Currency:        req.Currency,
		Deadline:        req.Deadline,
		Description:     req.Description,
		Skills:          req.Skills,
		CompanyLogo:     req.CompanyLogo,
		Status:          models.JobStatusOpen,
	}
	if err := h.DB.Create(&job).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to create job")
	}
	return created(c, job)
}

// List is the public browse surface.
func (h *JobHandler) List(c *fiber.Ctx) error {
	q := h.DB.Order("posted_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	var jobs []models.Job
	if err := q.Find(&jobs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch jobs")
	}
	return ok(c, jobs)
}

func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var job models.Job
	if err := h.DB.First(&job, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "job not found")
	}
	return ok(c, job)
}

// ListByClient returns the calling client's own postings.
func (h *JobHandler) ListByClient(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))
	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var jobs []models.Job
	if err := h.DB.Where("client_email = ?", email).Order("posted_at DESC").Find(&jobs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch jobs")
	}
	return ok(c, jobs)
}

type AdminUpdateJobReq struct {
	Title           *string `json:"title"`
	Category        *string `json:"category"`
	JobType         *string `json:"jobType"`
	Position        *string `json:"position"`
	ExperienceLevel *string `json:"experienceLevel"`
	BudgetType      *string `json:"budgetType"`
	Budget          *int64  `json:"budget"`
	Currency        *string `json:"currency"`
	Deadline        *string `json:"deadline"`
	Description     *string `json:"description"`
	CompanyLogo     *string `json:"companyLogo"`
	Status          *string `json:"status"`
}

// AdminUpdate is the moderation edit; admin only (route-gated). Status
// may be forced to Closed here, but the acceptance slot is untouchable.
func (h *JobHandler) AdminUpdate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "job not found")
	}

	var req AdminUpdateJobReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.JobType != nil {
		updates["job_type"] = *req.JobType
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if req.ExperienceLevel != nil {
		updates["experience_level"] = *req.ExperienceLevel
	}
	if req.BudgetType != nil {
		updates["budget_type"] = *req.BudgetType
	}
	if req.Budget != nil {
		updates["budget"] = *req.Budget
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Deadline != nil {
		updates["deadline"] = *req.Deadline
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CompanyLogo != nil {
		updates["company_logo"] = *req.CompanyLogo
	}
	if req.Status != nil {
		s := models.JobStatus(*req.Status)
		if s != models.JobStatusOpen && s != models.JobStatusClosed {
			return fail(c, fiber.StatusBadRequest, "invalid status")
		}
		updates["status"] = s
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&job).Updates(updates).Error; err != nil {
			return fail(c, fiber.StatusInternalServerError, "failed to update job")
		}
	}
	return ok(c, job)
}

// AdminDelete removes a posting; admin moderation only.
func (h *JobHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	res := h.DB.Delete(&models.Job{}, "id = ?", id)
	if res.Error != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to delete job")
	}
	if res.RowsAffected == 0 {
		return fail(c, fiber.StatusNotFound, "job not found")
	}
	return ok(c, fiber.Map{"deleted": id})
}

// Categories lists the distinct categories with open postings.
func (h *JobHandler) Categories(c *fiber.Ctx) error {
	var categories []string
	err := h.DB.
		Table("jobs").
		Where("status = ?", models.JobStatusOpen).
		Distinct("category").
		Pluck("category", &categories).
		Error
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch categories")
	}
	return ok(c, categories)
}

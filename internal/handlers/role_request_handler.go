package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/engagement"
	"github.com/freelancehub/freelancehub_backend/internal/models"
)

type RoleRequestHandler struct {
	DB          *gorm.DB
	Coordinator *engagement.Coordinator
}

func NewRoleRequestHandler(db *gorm.DB, coord *engagement.Coordinator) *RoleRequestHandler {
	return &RoleRequestHandler{DB: db, Coordinator: coord}
}

type RoleRequestReq struct {
	RequestRole string `json:"requestRole"`
}

func (h *RoleRequestHandler) Create(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	var req RoleRequestReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	target := models.Role(strings.ToLower(strings.TrimSpace(req.RequestRole)))

	ctx, cancel := reqCtx(c)
	defer cancel()

	request, err := h.Coordinator.RequestRoleChange(ctx, actor, target)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, request)
}

// List is the admin review queue; pending requests first.
func (h *RoleRequestHandler) List(c *fiber.Ctx) error {
	var requests []models.RoleRequest
	err := h.DB.
		Order("CASE WHEN status = 'pending' THEN 0 ELSE 1 END, created_at DESC").
		Find(&requests).
		Error
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch role requests")
	}
	return ok(c, requests)
}

func (h *RoleRequestHandler) Approve(c *fiber.Ctx) error {
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

	request, err := h.Coordinator.ApproveRoleChange(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, request)
}

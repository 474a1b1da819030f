package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/models"
)

type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// List returns every user; admin only (route-gated).
func (h *UserHandler) List(c *fiber.Ctx) error {
	var users []models.User
	if err := h.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch users")
	}
	return ok(c, users)
}

// GetByEmail returns one user's record. Users may read their own
// record; admins may read anyone's. Profiles of counterparties leak
// through the engagement records instead, which only denormalize the
// public fields.
func (h *UserHandler) GetByEmail(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))

	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "user not found")
	}
	return ok(c, u)
}

type UpdateUserReq struct {
	Name        *string         `json:"name"`
	PhotoURL    *string         `json:"photoUrl"`
	CoverURL    *string         `json:"coverUrl"`
	Title       *string         `json:"title"`
	Skills      *datatypes.JSON `json:"skills"`
	Github      *string         `json:"github"`
	Linkedin    *string         `json:"linkedin"`
	ResumeURL   *string         `json:"resumeUrl"`
	Description *string         `json:"description"`
}

// Update applies a profile update. Role, verification and the role
// request flag are deliberately not settable here; those move only
// through the coordinator or admin actions.
func (h *UserHandler) Update(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var u models.User
	if err := h.DB.First(&u, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "user not found")
	}
	if !actor.IsAdmin() && actor.ID != u.ID {
		return fail(c, fiber.StatusForbidden, "you can only update your own profile")
	}

	var req UpdateUserReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.PhotoURL != nil {
		updates["photo_url"] = *req.PhotoURL
	}
	if req.CoverURL != nil {
		updates["cover_url"] = *req.CoverURL
	}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Skills != nil {
		updates["skills"] = *req.Skills
	}
	if req.Github != nil {
		updates["github"] = *req.Github
	}
	if req.Linkedin != nil {
		updates["linkedin"] = *req.Linkedin
	}
	if req.ResumeURL != nil {
		updates["resume_url"] = *req.ResumeURL
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&u).Updates(updates).Error; err != nil {
			return fail(c, fiber.StatusInternalServerError, "failed to update profile")
		}
	}
	return ok(c, u)
}

// Delete removes a user record; admin moderation only.
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	res := h.DB.Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to delete user")
	}
	if res.RowsAffected == 0 {
		return fail(c, fiber.StatusNotFound, "user not found")
	}
	return ok(c, fiber.Map{"deleted": id})
}

package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/freelancehub/freelancehub_backend/internal/engagement"
	"github.com/freelancehub/freelancehub_backend/internal/models"
)

// opTimeout bounds every persistence-gateway call made on behalf of a
// request so a stuck store surfaces as Unavailable instead of hanging.
const opTimeout = 10 * time.Second

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), opTimeout)
}

func getActor(c *fiber.Ctx) (engagement.Actor, error) {
	rawID, ok := c.Locals("userId").(string)
	if !ok || rawID == "" {
		return engagement.Actor{}, fiber.ErrUnauthorized
	}
	uid, err := uuid.Parse(rawID)
	if err != nil {
		return engagement.Actor{}, fiber.ErrUnauthorized
	}
	email, _ := c.Locals("email").(string)
	role, _ := c.Locals("role").(string)
	if email == "" {
		return engagement.Actor{}, fiber.ErrUnauthorized
	}
	return engagement.NewActor(uid, email, models.Role(role)), nil
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// respondError maps coordinator outcomes onto HTTP statuses. Views
// retry only 503.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, engagement.ErrForbidden):
		return fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, engagement.ErrNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, engagement.ErrDuplicateProposal),
		errors.Is(err, engagement.ErrAlreadyCompleted),
		errors.Is(err, engagement.ErrAlreadyPaid):
		return fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, engagement.ErrInvalidTransition):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, engagement.ErrUnavailable):
		return fail(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/middleware"
	"github.com/freelancehub/freelancehub_backend/internal/models"
	"github.com/freelancehub/freelancehub_backend/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PhotoURL string `json:"photoUrl"`
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": false,
		"message": "Validation error",
		"errors":  errs,
	})
}

func (h *AuthHandler) setSession(c *fiber.Ctx, u *models.User) error {
	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), u.Email, string(u.Role), h.Expires)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
	return nil
}

func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":              u.ID,
		"name":            u.Name,
		"email":           u.Email,
		"role":            u.Role,
		"photoUrl":        u.PhotoURL,
		"isVerified":      u.IsVerified,
		"roleRequestSent": u.RoleRequestSent,
	}
}

// Register creates the account and signs the user in. New accounts
// always start as freelancers; becoming a client goes through the role
// request flow.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	errs := FieldErrors{}
	if name == "" {
		errs.Add("name", "Name is required")
	}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email format")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	} else if len(password) < 6 {
		errs.Add("password", "Password must be at least 6 characters")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		e := FieldErrors{}
		e.Add("email", "Email is already registered")
		return validationFail(c, e)
	} else if err != gorm.ErrRecordNotFound {
		return fail(c, fiber.StatusInternalServerError, "server error")
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to process password")
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Password: pw,
		PhotoURL: strings.TrimSpace(req.PhotoURL),
		Role:     models.RoleFreelancer,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		return fail(c, fiber.StatusBadRequest, "failed to register")
	}

	if err := h.setSession(c, &u); err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to create token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registered successfully",
		"data":    fiber.Map{"user": userPayload(&u)},
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusOK, "Invalid body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	errs := FieldErrors{}
	if email == "" {
		errs.Add("email", "Email is required")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err != nil {
		// keep 200 so the login form handles it inline
		return fail(c, fiber.StatusOK, "Wrong email or password")
	}

	if u.Password == "" || !utils.CheckPassword(u.Password, password) {
		return fail(c, fiber.StatusOK, "Wrong email or password")
	}

	if err := h.setSession(c, &u); err != nil {
		return fail(c, fiber.StatusOK, "failed to create token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged in successfully",
		"data":    fiber.Map{"user": userPayload(&u)},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	middleware.ClearSession(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

type ResetPasswordReq struct {
	Email string `json:"email"`
}

// ResetPassword issues a short-lived reset token. There is no mailer
// wired yet, so the token is logged server-side; the response never
// reveals whether the email exists.
// TODO: deliver the token by email once an SMTP provider is configured.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return fail(c, fiber.StatusBadRequest, "email is required")
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err == nil {
		token, terr := utils.SignJWT(h.JWTSecret, u.ID.String(), u.Email, "reset", 30)
		if terr == nil {
			log.Printf("password reset token for %s: %s", u.Email, token)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "If the account exists, a reset link has been sent",
	})
}

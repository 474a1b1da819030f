package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelancehub/freelancehub_backend/internal/models"
	"github.com/freelancehub/freelancehub_backend/internal/utils"
)

const testSecret = "test-secret"

func newProtectedApp(roles ...models.Role) *fiber.App {
	app := fiber.New()
	chain := []fiber.Handler{JWTFromCookie(testSecret), AttachJWTLocals()}
	if len(roles) > 0 {
		chain = append(chain, RequireRoles(roles...))
	}
	handlers := append(chain, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userId": c.Locals("userId"),
			"email":  c.Locals("email"),
			"role":   c.Locals("role"),
		})
	})
	app.Get("/protected", handlers...)
	return app
}

func signedCookie(t *testing.T, role string) string {
	t.Helper()
	token, err := utils.SignJWT(testSecret, "11111111-1111-1111-1111-111111111111", "frank@freelancer.test", role, 60)
	require.NoError(t, err)
	return SessionCookie + "=" + token
}

func TestMissingCookieIsUnauthorized(t *testing.T) {
	app := newProtectedApp()
	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestInvalidTokenClearsCookie(t *testing.T) {
	app := newProtectedApp()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Cookie", SessionCookie+"=not-a-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// forced sign-out: expired cookie comes back
	cookies := resp.Header.Values("Set-Cookie")
	require.NotEmpty(t, cookies)
	assert.Contains(t, cookies[0], SessionCookie+"=")
}

func TestValidCookiePassesAndAttachesLocals(t *testing.T) {
	app := newProtectedApp()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Cookie", signedCookie(t, "freelancer"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRoles(t *testing.T) {
	app := newProtectedApp(models.RoleAdmin)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Cookie", signedCookie(t, "freelancer"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Cookie", signedCookie(t, "admin"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

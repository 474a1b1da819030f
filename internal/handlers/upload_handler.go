package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freelancehub/freelancehub_backend/internal/services/imagestore"
)

type UploadHandler struct {
	Images *imagestore.Client
}

func NewUploadHandler(images *imagestore.Client) *UploadHandler {
	return &UploadHandler{Images: images}
}

// UploadImage forwards a multipart image (profile photo, cover, company
// logo) to the external image store and returns the hosted URL.
func (h *UploadHandler) UploadImage(c *fiber.Ctx) error {
	if _, err := getActor(c); err != nil {
		return err
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "image file is required")
	}
	if fh.Size > 5*1024*1024 {
		return fail(c, fiber.StatusBadRequest, "image must be under 5MB")
	}

	f, err := fh.Open()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to read upload")
	}
	defer f.Close()

	ctx, cancel := reqCtx(c)
	defer cancel()

	url, err := h.Images.Upload(ctx, fh.Filename, f)
	if err != nil {
		return fail(c, fiber.StatusBadGateway, "image upload failed")
	}
	return ok(c, fiber.Map{"url": url})
}

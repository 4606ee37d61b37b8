package uploads

import (
	"io"
	"mime/multipart"

	uploadsvc "findonlu-backend/internal/application/uploads"
	"findonlu-backend/internal/middleware"
	"findonlu-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// FormField is the multipart field carrying the image.
const FormField = "image"

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

// UploadImage POST /api/v1/uploads/image (multipart "image").
// The returned public_url is what a listing's image_url should be set to.
func (h *Handlers) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile(FormField)
	if err != nil {
		return response.Error(c, "image file is required", fiber.StatusBadRequest, nil)
	}
	data, err := ReadFile(fh)
	if err != nil {
		return response.Error(c, "image file could not be read", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.Upload(c.UserContext(), middleware.CurrentSession(c), data, fh.Filename)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Image uploaded", res, nil)
}

// ReadFile reads a multipart file fully.
func ReadFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

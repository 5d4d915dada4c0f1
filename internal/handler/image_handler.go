package handler

import (
	"io"
	"net/http"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/response"
)

type imageOpener interface {
	Open(name, token string) (*os.File, error)
}

// ImageHandler serves photos kept by the local object store behind signed links.
type ImageHandler struct {
	images imageOpener
}

// NewImageHandler constructs an image handler.
func NewImageHandler(images imageOpener) *ImageHandler {
	return &ImageHandler{images: images}
}

// Serve godoc
// @Summary Download a photo
// @Description Stream a stored photo using the signed token from its link
// @Tags Photos
// @Produce image/jpeg
// @Param name path string true "File name"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /images/{name} [get]
func (h *ImageHandler) Serve(c *gin.Context) {
	name := c.Param("name")
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing image token"))
		return
	}

	file, err := h.images.Open(name, token)
	if err != nil {
		if os.IsNotExist(err) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "image not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid image token"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read image"))
		return
	}
	if mtype, err := mimetype.DetectReader(file); err == nil {
		c.Header("Content-Type", mtype.String())
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read image"))
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

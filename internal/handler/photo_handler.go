package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/dto"
	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/internal/service"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/response"
)

type photoSubmitter interface {
	Submit(ctx context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix) (*models.PhotoRecord, error)
	SubmitReference(ctx context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix) (*models.PhotoRecord, error)
	UploadsEnabled() bool
}

type galleryReader interface {
	List(ctx context.Context, deviceID string) ([]models.GalleryItem, error)
	MapPins(ctx context.Context, deviceID string, platform models.Platform) ([]models.MapPin, error)
	Export(ctx context.Context, deviceID, format string) (*service.ExportFile, error)
}

// PhotoHandler exposes photo submission and gallery endpoints for one device.
type PhotoHandler struct {
	submitter       photoSubmitter
	gallery         galleryReader
	maxUploadBytes  int64
	requireLocation bool
	logger          *zap.Logger
}

// NewPhotoHandler constructs a photo handler.
func NewPhotoHandler(submitter photoSubmitter, gallery galleryReader, maxUploadBytes int64, requireLocation bool, logger *zap.Logger) *PhotoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotoHandler{
		submitter:       submitter,
		gallery:         gallery,
		maxUploadBytes:  maxUploadBytes,
		requireLocation: requireLocation,
		logger:          logger,
	}
}

// Submit godoc
// @Summary Submit a photo
// @Description Persist one geotagged photo record for the authenticated device
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param origin formData string true "camera or gallery"
// @Param latitude formData number false "Latitude"
// @Param longitude formData number false "Longitude"
// @Param fileUri formData string false "Device-local file reference"
// @Param file formData file false "Photo binary"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /photos [post]
func (h *PhotoHandler) Submit(c *gin.Context) {
	if _, ok := currentDevice(c); !ok {
		return
	}
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	var form dto.SubmitPhotoForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, "photo exceeds upload limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid photo form"))
		return
	}

	fix, ok := form.Fix()
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "latitude and longitude must be valid and provided together"))
		return
	}
	if fix == nil && h.requireLocation {
		response.Error(c, appErrors.Clone(appErrors.ErrLocationUnavailable, "Location not available"))
		return
	}

	descriptor := &models.ImageDescriptor{
		Origin:   models.ImageOrigin(form.Origin),
		URI:      strings.TrimSpace(form.FileURI),
		MimeType: form.MimeType,
	}

	submit := h.submitter.Submit
	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		if !h.submitter.UploadsEnabled() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "binary uploads are disabled, send fileUri instead"))
			return
		}
		tmp, err := os.CreateTemp("", "geophoto-*")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer photo"))
			return
		}
		tmpPath := tmp.Name()
		_ = tmp.Close()
		defer os.Remove(tmpPath)

		if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer photo"))
			return
		}
		mtype, err := mimetype.DetectFile(tmpPath)
		if err != nil || !strings.HasPrefix(mtype.String(), "image/") {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "uploaded file is not an image"))
			return
		}
		descriptor.URI = tmpPath
		descriptor.MimeType = mtype.String()
		descriptor.DisplayName = fileHeader.Filename
		descriptor.Size = fileHeader.Size
	case errors.Is(err, http.ErrMissingFile):
		if descriptor.URI == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file or fileUri is required"))
			return
		}
		// fileUri names a file on the device, never one on this host
		submit = h.submitter.SubmitReference
	default:
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid photo upload"))
		return
	}

	record, err := submit(c.Request.Context(), descriptor, fix)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List photos
// @Description List the device's photos newest first
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param platform query string false "android or ios, adds map links"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /photos [get]
func (h *PhotoHandler) List(c *gin.Context) {
	deviceID, ok := currentDevice(c)
	if !ok {
		return
	}
	items, err := h.gallery.List(c.Request.Context(), deviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if platform := c.Query("platform"); platform != "" {
		service.AttachMapLinks(items, models.ParsePlatform(platform))
	}
	response.JSON(c, http.StatusOK, dto.PhotoListResponse{Items: items, Count: len(items)}, nil)
}

// Map godoc
// @Summary Map pins
// @Description Located photos of the device as map markers
// @Tags Photos
// @Produce json
// @Security BearerAuth
// @Param platform query string false "android or ios"
// @Success 200 {object} response.Envelope
// @Router /photos/map [get]
func (h *PhotoHandler) Map(c *gin.Context) {
	deviceID, ok := currentDevice(c)
	if !ok {
		return
	}
	pins, err := h.gallery.MapPins(c.Request.Context(), deviceID, models.ParsePlatform(c.Query("platform")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MapPinsResponse{Pins: pins, Count: len(pins)}, nil)
}

// Export godoc
// @Summary Export photos
// @Description Download the device's photo list as CSV or PDF
// @Tags Photos
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /photos/export [get]
func (h *PhotoHandler) Export(c *gin.Context) {
	deviceID, ok := currentDevice(c)
	if !ok {
		return
	}
	file, err := h.gallery.Export(c.Request.Context(), deviceID, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Name, file.ContentType, file.Data)
}

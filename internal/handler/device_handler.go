package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/response"
)

type deviceTokenIssuer interface {
	IssueDeviceToken(ctx context.Context, req models.DeviceTokenRequest) (*models.DeviceTokenResponse, error)
}

// DeviceHandler registers devices and hands out their bearer tokens.
type DeviceHandler struct {
	auth deviceTokenIssuer
}

// NewDeviceHandler creates a new handler.
func NewDeviceHandler(auth deviceTokenIssuer) *DeviceHandler {
	return &DeviceHandler{auth: auth}
}

// Token godoc
// @Summary Issue device token
// @Description Exchange a stable device identifier for a bearer token scoping requests to that device
// @Tags Devices
// @Accept json
// @Produce json
// @Param payload body models.DeviceTokenRequest true "Device payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /devices/token [post]
func (h *DeviceHandler) Token(c *gin.Context) {
	var req models.DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid device payload"))
		return
	}

	res, err := h.auth.IssueDeviceToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

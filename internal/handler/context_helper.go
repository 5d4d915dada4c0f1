package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/geophoto-api/internal/middleware"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/response"
)

func currentDevice(c *gin.Context) (string, bool) {
	claims := middleware.DeviceClaims(c)
	if claims == nil || claims.DeviceID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.DeviceID, true
}

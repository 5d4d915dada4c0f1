package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/pkg/deviceid"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/response"
)

// ContextDeviceKey is the gin context key storing device claims.
const ContextDeviceKey = "currentDevice"

type tokenValidator interface {
	ValidateToken(token string) (*models.DeviceClaims, error)
}

// DeviceJWT requires a valid device token and scopes the request to its device.
func DeviceJWT(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextDeviceKey, claims)
		c.Request = c.Request.WithContext(deviceid.NewContext(c.Request.Context(), claims.DeviceID))
		c.Next()
	}
}

// DeviceClaims returns the claims set by DeviceJWT.
func DeviceClaims(c *gin.Context) *models.DeviceClaims {
	value, exists := c.Get(ContextDeviceKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.DeviceClaims)
	return claims
}

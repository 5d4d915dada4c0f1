package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceTokenRequest registers a device and asks for an access token.
type DeviceTokenRequest struct {
	DeviceID string `json:"deviceId" binding:"required" validate:"required,min=4,max=128"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios"`
}

// DeviceTokenResponse returns the issued token.
type DeviceTokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// DeviceClaims is the JWT payload identifying the calling device.
type DeviceClaims struct {
	DeviceID string   `json:"device_id"`
	Platform Platform `json:"platform,omitempty"`
	jwt.RegisteredClaims
}

package permission

import (
	"context"

	"github.com/noah-isme/geophoto-api/internal/models"
)

// iOS permission identifiers.
const (
	IOSCamera            = "ios.permission.CAMERA"
	IOSLocationWhenInUse = "ios.permission.LOCATION_WHEN_IN_USE"
	IOSPhotoLibrary      = "ios.permission.PHOTO_LIBRARY"
)

// IOSPermissions is the check/request permission API used on iOS.
type IOSPermissions interface {
	Check(ctx context.Context, permission string) (models.PermissionState, error)
	Request(ctx context.Context, permission string) (models.PermissionState, error)
}

type iosStrategy struct {
	perms IOSPermissions
}

func iosPermissionFor(c models.Capability) string {
	switch c {
	case models.CapabilityCamera:
		return IOSCamera
	case models.CapabilityLocation:
		return IOSLocationWhenInUse
	case models.CapabilityGallery:
		return IOSPhotoLibrary
	}
	return ""
}

// resolve asks capabilities one by one and stops at the first that is not granted.
func (s *iosStrategy) resolve(ctx context.Context, caps []models.Capability) []CapabilityResult {
	results := make([]CapabilityResult, 0, len(caps))
	for _, c := range caps {
		r := s.resolveOne(ctx, c)
		results = append(results, r)
		if !r.State.Usable() {
			break
		}
	}
	return results
}

func (s *iosStrategy) resolveOne(ctx context.Context, c models.Capability) CapabilityResult {
	perm := iosPermissionFor(c)
	r := CapabilityResult{Capability: c, Permission: perm, State: models.PermissionUnknown}

	status, err := s.perms.Check(ctx, perm)
	if err != nil {
		r.Err = err
		return r
	}

	switch status {
	case models.PermissionGranted, models.PermissionLimited:
		r.State = status
	case models.PermissionDenied:
		r.Prompted = true
		answer, err := s.perms.Request(ctx, perm)
		if err != nil {
			r.Err = err
			return r
		}
		// the prompt's answer is final for this call
		if answer.Usable() {
			r.State = answer
		} else {
			r.State = models.PermissionDenied
		}
	case models.PermissionBlocked:
		r.State = models.PermissionBlocked
	default:
		r.State = models.PermissionUnknown
	}
	return r
}

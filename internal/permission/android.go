package permission

import (
	"context"

	"github.com/noah-isme/geophoto-api/internal/models"
)

// Android runtime permission identifiers.
const (
	AndroidCamera              = "android.permission.CAMERA"
	AndroidFineLocation        = "android.permission.ACCESS_FINE_LOCATION"
	AndroidReadMediaImages     = "android.permission.READ_MEDIA_IMAGES"
	AndroidReadExternalStorage = "android.permission.READ_EXTERNAL_STORAGE"
)

// AndroidResult is the answer to one entry of a batched request.
type AndroidResult string

const (
	AndroidGranted       AndroidResult = "granted"
	AndroidDenied        AndroidResult = "denied"
	AndroidNeverAskAgain AndroidResult = "never_ask_again"
)

// mediaImagesAPILevel is the first API level with READ_MEDIA_IMAGES.
const mediaImagesAPILevel = 33

// AndroidPermissions is the Android runtime permission API.
type AndroidPermissions interface {
	Check(ctx context.Context, permission string) (bool, error)
	RequestMultiple(ctx context.Context, permissions []string) (map[string]AndroidResult, error)
	APILevel() int
}

type androidStrategy struct {
	perms AndroidPermissions
}

func (s *androidStrategy) permissionFor(c models.Capability) string {
	switch c {
	case models.CapabilityCamera:
		return AndroidCamera
	case models.CapabilityLocation:
		return AndroidFineLocation
	case models.CapabilityGallery:
		if s.perms.APILevel() >= mediaImagesAPILevel {
			return AndroidReadMediaImages
		}
		return AndroidReadExternalStorage
	}
	return ""
}

// resolve checks every capability, then asks for all missing ones in one batch.
func (s *androidStrategy) resolve(ctx context.Context, caps []models.Capability) []CapabilityResult {
	results := make([]CapabilityResult, len(caps))
	pending := make([]string, 0, len(caps))
	pendingIdx := make(map[string]int, len(caps))

	for i, c := range caps {
		perm := s.permissionFor(c)
		results[i] = CapabilityResult{Capability: c, Permission: perm, State: models.PermissionUnknown}
		ok, err := s.perms.Check(ctx, perm)
		if err != nil {
			results[i].Err = err
			continue
		}
		if ok {
			results[i].State = models.PermissionGranted
			continue
		}
		pending = append(pending, perm)
		pendingIdx[perm] = i
	}

	if len(pending) == 0 {
		return results
	}

	answers, err := s.perms.RequestMultiple(ctx, pending)
	for _, perm := range pending {
		r := &results[pendingIdx[perm]]
		r.Prompted = true
		if err != nil {
			r.Err = err
			continue
		}
		switch answers[perm] {
		case AndroidGranted:
			r.State = models.PermissionGranted
		case AndroidNeverAskAgain:
			r.State = models.PermissionBlocked
		default:
			r.State = models.PermissionDenied
		}
	}
	return results
}

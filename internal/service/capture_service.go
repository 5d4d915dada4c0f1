package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/internal/permission"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

// ErrBusy rejects a capture or upload started while another is in flight.
var ErrBusy = appErrors.New(appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "another capture is in progress")

type permissionGate interface {
	Ensure(ctx context.Context, caps ...models.Capability) permission.Decision
	Platform() models.Platform
}

type locationProvider interface {
	GetFix(ctx context.Context, timeout, maxAge time.Duration) *models.LocationFix
}

type imageAcquirer interface {
	FromCamera(ctx context.Context) models.Acquisition
	FromGallery(ctx context.Context) models.Acquisition
}

type photoSubmitter interface {
	Submit(ctx context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix) (*models.PhotoRecord, error)
}

// CaptureConfig holds the capture policy.
type CaptureConfig struct {
	RequireLocation bool
	LocationTimeout time.Duration
	LocationMaxAge  time.Duration
}

// CaptureResult is the outcome of one capture attempt.
type CaptureResult struct {
	Status       models.AcquisitionStatus
	Descriptor   *models.ImageDescriptor
	Fix          *models.LocationFix
	ErrorCode    string
	ErrorMessage string
}

// CaptureService runs one user action at a time: permissions, location, image, upload.
type CaptureService struct {
	gate     permissionGate
	location locationProvider
	media    imageAcquirer
	uploads  photoSubmitter
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      CaptureConfig
	busy     atomic.Bool
}

// NewCaptureService constructs a CaptureService.
func NewCaptureService(gate permissionGate, location locationProvider, media imageAcquirer, uploads photoSubmitter, metrics *MetricsService, logger *zap.Logger, cfg CaptureConfig) *CaptureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureService{
		gate:     gate,
		location: location,
		media:    media,
		uploads:  uploads,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Busy reports whether an operation is in flight.
func (s *CaptureService) Busy() bool {
	return s.busy.Load()
}

// Capture negotiates permissions, takes one location fix and acquires an image.
// A cancelled picker yields a cancelled result and no error.
func (s *CaptureService) Capture(ctx context.Context, origin models.ImageOrigin) (*CaptureResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)
	return s.capture(ctx, origin)
}

// Upload applies the location policy and submits an acquired capture.
func (s *CaptureService) Upload(ctx context.Context, result *CaptureResult) (*models.PhotoRecord, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)
	return s.upload(ctx, result)
}

// CaptureAndUpload runs both steps under a single busy window. A cancelled
// capture returns the result with a nil record.
func (s *CaptureService) CaptureAndUpload(ctx context.Context, origin models.ImageOrigin) (*CaptureResult, *models.PhotoRecord, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, nil, ErrBusy
	}
	defer s.busy.Store(false)

	result, err := s.capture(ctx, origin)
	if err != nil || result.Status != models.AcquisitionAcquired {
		return result, nil, err
	}
	record, err := s.upload(ctx, result)
	return result, record, err
}

func (s *CaptureService) capture(ctx context.Context, origin models.ImageOrigin) (*CaptureResult, error) {
	imageCap, err := imageCapability(origin)
	if err != nil {
		return nil, err
	}

	decision := s.gate.Ensure(ctx, imageCap, models.CapabilityLocation)
	s.metrics.RecordPermission(string(s.gate.Platform()), decision.Granted)
	locationAllowed := decision.Granted
	if !decision.Granted {
		if !onlyLocationFailed(decision, imageCap) || s.cfg.RequireLocation {
			return nil, decision.Err()
		}
		s.logger.Info("continuing without location permission", zap.String("origin", string(origin)))
	}

	var fix *models.LocationFix
	if locationAllowed {
		fix = s.location.GetFix(ctx, s.cfg.LocationTimeout, s.cfg.LocationMaxAge)
		s.metrics.RecordLocation(fix != nil)
	}

	var acquisition models.Acquisition
	if origin == models.OriginCamera {
		acquisition = s.media.FromCamera(ctx)
	} else {
		acquisition = s.media.FromGallery(ctx)
	}

	result := &CaptureResult{
		Status:       acquisition.Status,
		ErrorCode:    acquisition.ErrorCode,
		ErrorMessage: acquisition.ErrorMessage,
	}
	switch acquisition.Status {
	case models.AcquisitionAcquired:
		result.Descriptor = acquisition.Descriptor
		result.Fix = fix
		return result, nil
	case models.AcquisitionCancelled:
		return result, nil
	default:
		msg := acquisition.ErrorMessage
		if msg == "" {
			msg = acquisition.ErrorCode
		}
		return result, appErrors.Clone(appErrors.ErrPickerFailed, fmt.Sprintf("image acquisition failed: %s", msg))
	}
}

func (s *CaptureService) upload(ctx context.Context, result *CaptureResult) (*models.PhotoRecord, error) {
	if result == nil || result.Status != models.AcquisitionAcquired || result.Descriptor == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing captured to upload")
	}
	if s.cfg.RequireLocation && result.Fix == nil {
		s.metrics.RecordUpload(string(result.Descriptor.Origin), UploadResultNoLocation, 0)
		return nil, appErrors.Clone(appErrors.ErrLocationUnavailable, "Location not available")
	}
	return s.uploads.Submit(ctx, result.Descriptor, result.Fix)
}

func imageCapability(origin models.ImageOrigin) (models.Capability, error) {
	switch origin {
	case models.OriginCamera:
		return models.CapabilityCamera, nil
	case models.OriginGallery:
		return models.CapabilityGallery, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown image origin %q", origin))
	}
}

// onlyLocationFailed reports whether the image capability was granted and
// location alone was rejected.
func onlyLocationFailed(decision permission.Decision, imageCap models.Capability) bool {
	imageGranted := false
	for _, r := range decision.Results {
		switch r.Capability {
		case imageCap:
			imageGranted = r.State.Usable()
		case models.CapabilityLocation:
		default:
			if !r.State.Usable() {
				return false
			}
		}
	}
	return imageGranted
}

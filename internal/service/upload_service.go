package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/pkg/deviceid"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/middleware/requestid"
	"github.com/noah-isme/geophoto-api/pkg/storage"
)

type photoWriter interface {
	Write(ctx context.Context, record *models.PhotoRecord) (string, error)
}

type galleryInvalidator interface {
	Invalidate(ctx context.Context, deviceID string) error
}

// UploadService turns an acquired image and an optional fix into one persisted record.
type UploadService struct {
	store     photoWriter
	identity  deviceid.Source
	uploader  storage.Uploader
	cache     galleryInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUploadService constructs an UploadService. A nil uploader keeps the local
// URI as the record's file reference.
func NewUploadService(store photoWriter, identity deviceid.Source, uploader storage.Uploader, cache galleryInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UploadService{
		store:     store,
		identity:  identity,
		uploader:  uploader,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// UploadsEnabled reports whether binaries are copied to object storage.
func (s *UploadService) UploadsEnabled() bool {
	return s.uploader != nil
}

// FileName builds "<origin>_<unix millis>.jpg".
func FileName(origin models.ImageOrigin, at time.Time) string {
	return fmt.Sprintf("%s_%d.jpg", origin, at.UnixMilli())
}

// Submit writes exactly one record for the descriptor, or none on failure. It
// never retries. With an uploader configured the descriptor's local file is
// copied to object storage first, so URI must name a file this process owns.
func (s *UploadService) Submit(ctx context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix) (*models.PhotoRecord, error) {
	return s.submit(ctx, descriptor, fix, s.uploader != nil)
}

// SubmitReference writes the record with the descriptor's URI stored as given.
// The URI is never opened.
func (s *UploadService) SubmitReference(ctx context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix) (*models.PhotoRecord, error) {
	return s.submit(ctx, descriptor, fix, false)
}

func (s *UploadService) submit(ctx context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix, upload bool) (*models.PhotoRecord, error) {
	start := s.now()
	origin := ""
	if descriptor != nil {
		origin = string(descriptor.Origin)
	}

	if err := validateDescriptor(descriptor, fix); err != nil {
		s.metrics.RecordUpload(origin, UploadResultInvalid, 0)
		return nil, err
	}

	deviceID, err := s.identity.DeviceID(ctx)
	if err != nil {
		s.metrics.RecordUpload(origin, UploadResultStoreFailed, 0)
		return nil, appErrors.WrapAs(appErrors.ErrPersistenceFailed, err, "device identity unavailable")
	}
	log := s.logger.With(zap.String("device_id", deviceID))
	if reqID := requestid.FromContext(ctx); reqID != "" {
		log = log.With(zap.String("request_id", reqID))
	}

	record := &models.PhotoRecord{
		FileName: FileName(descriptor.Origin, start),
		FileURI:  descriptor.URI,
		DeviceID: deviceID,
	}
	if fix != nil {
		loc := *fix
		record.Location = &loc
	}

	if upload {
		link, err := s.uploadBinary(ctx, record.FileName, descriptor)
		if errors.Is(err, appErrors.ErrValidation) {
			s.metrics.RecordUpload(origin, UploadResultInvalid, 0)
			return nil, err
		}
		if err != nil {
			s.metrics.RecordUpload(origin, UploadResultObjectFailed, 0)
			log.Error("photo binary upload failed",
				zap.String("file_name", record.FileName),
				zap.Error(err))
			return nil, appErrors.WrapAs(appErrors.ErrPersistenceFailed, err, "failed to upload photo")
		}
		record.FileURI = link
	}

	if err := s.validator.Struct(record); err != nil {
		s.metrics.RecordUpload(origin, UploadResultInvalid, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid photo record")
	}

	writeStart := time.Now()
	if _, err := s.store.Write(ctx, record); err != nil {
		s.metrics.RecordUpload(origin, UploadResultStoreFailed, 0)
		log.Error("photo metadata write failed",
			zap.String("file_name", record.FileName),
			zap.Error(err))
		if errors.Is(err, appErrors.ErrPersistenceFailed) {
			return nil, err
		}
		return nil, appErrors.WrapAs(appErrors.ErrPersistenceFailed, err, "")
	}
	s.metrics.ObserveStore("write", time.Since(writeStart))

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, deviceID); err != nil {
			log.Warn("gallery cache not invalidated after write",
				zap.String("file_name", record.FileName),
				zap.Error(err))
		}
	}

	s.metrics.RecordUpload(origin, UploadResultSuccess, s.now().Sub(start))
	log.Info("photo persisted",
		zap.String("id", record.ID),
		zap.String("file_name", record.FileName),
		zap.Bool("has_location", record.Location != nil))
	return record, nil
}

func validateDescriptor(descriptor *models.ImageDescriptor, fix *models.LocationFix) error {
	if descriptor == nil || strings.TrimSpace(descriptor.URI) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "image descriptor with uri is required")
	}
	if !descriptor.Origin.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown image origin %q", descriptor.Origin))
	}
	if fix != nil && !fix.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "location coordinates out of range")
	}
	return nil
}

func (s *UploadService) uploadBinary(ctx context.Context, name string, descriptor *models.ImageDescriptor) (string, error) {
	path, err := LocalPath(descriptor.URI)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", appErrors.Clone(appErrors.ErrValidation, "image uri does not name a regular file")
	}
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("detect type of %s: %w", path, err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image uri holds %s, not an image", mtype.String()))
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", path, err)
	}
	return s.uploader.Upload(ctx, name, file, info.Size(), mtype.String())
}

// LocalPath converts a file:// URI or plain path into a filesystem path.
func LocalPath(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return uri, nil
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse image uri: %w", err)
	}
	if parsed.Scheme != "file" {
		return "", fmt.Errorf("image uri scheme %q is not readable", parsed.Scheme)
	}
	return parsed.Path, nil
}

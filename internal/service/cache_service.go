package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

const galleryKeyPrefix = "geophoto:gallery:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService keeps per-device record listings so repeated gallery reads skip the store.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func galleryKey(deviceID string) string {
	return galleryKeyPrefix + deviceID
}

// Records returns the cached listing for deviceID. Failures count as misses.
func (s *CacheService) Records(ctx context.Context, deviceID string) ([]models.PhotoRecord, bool) {
	if !s.Enabled() {
		return nil, false
	}
	var records []models.PhotoRecord
	err := s.repo.Get(ctx, galleryKey(deviceID), &records)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("gallery cache get failed", zap.String("device_id", deviceID), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
		return nil, false
	}
	s.metrics.RecordCacheLookup(true)
	return records, true
}

// StoreRecords caches the listing for deviceID.
func (s *CacheService) StoreRecords(ctx context.Context, deviceID string, records []models.PhotoRecord) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Set(ctx, galleryKey(deviceID), records, s.defaultTTL); err != nil {
		s.logger.Warn("gallery cache set failed", zap.String("device_id", deviceID), zap.Error(err))
	}
}

// Invalidate drops the cached listing for deviceID.
func (s *CacheService) Invalidate(ctx context.Context, deviceID string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, galleryKey(deviceID)); err != nil {
		s.logger.Warn("gallery cache invalidate failed", zap.String("device_id", deviceID), zap.Error(err))
		return err
	}
	return nil
}

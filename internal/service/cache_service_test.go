package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geophoto-api/internal/models"
)

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)
	assert.False(t, svc.Enabled())
	_, ok := svc.Records(context.Background(), "device-1")
	assert.False(t, ok)
	require.NoError(t, svc.Invalidate(context.Background(), "device-1"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	_, ok = nilSvc.Records(context.Background(), "device-1")
	assert.False(t, ok)
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	_, ok := svc.Records(ctx, "device-1")
	assert.False(t, ok)

	records := []models.PhotoRecord{{ID: "p1", FileName: "camera_1.jpg", FileURI: "file:///1.jpg", DeviceID: "device-1", CreatedAt: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)}}
	svc.StoreRecords(ctx, "device-1", records)
	_, stored := repo.entries["geophoto:gallery:device-1"]
	assert.True(t, stored)

	cached, ok := svc.Records(ctx, "device-1")
	require.True(t, ok)
	assert.Equal(t, records, cached)

	require.NoError(t, svc.Invalidate(ctx, "device-1"))
	_, ok = svc.Records(ctx, "device-1")
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type photoReader interface {
	QueryByDevice(ctx context.Context, deviceID string) ([]models.PhotoRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered gallery export.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// GalleryService reads a device's records back out for list, map and export views.
type GalleryService struct {
	store   photoReader
	cache   *CacheService
	csv     csvRenderer
	pdf     pdfRenderer
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewGalleryService constructs a GalleryService. cache may be nil.
func NewGalleryService(store photoReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *GalleryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(2, 3, 5, 1.2, 1.2, 2)
	}
	return &GalleryService{store: store, cache: cache, csv: csv, pdf: pdf, metrics: metrics, logger: logger, now: time.Now}
}

// List returns the device's photos newest first. Ties are ordered by ID.
func (s *GalleryService) List(ctx context.Context, deviceID string) ([]models.GalleryItem, error) {
	records, err := s.records(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	sorted := make([]models.PhotoRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	items := make([]models.GalleryItem, 0, len(sorted))
	for _, rec := range sorted {
		items = append(items, toGalleryItem(rec))
	}
	return items, nil
}

// MapPins returns one pin per located photo, newest first, with deep links for platform.
func (s *GalleryService) MapPins(ctx context.Context, deviceID string, platform models.Platform) ([]models.MapPin, error) {
	items, err := s.List(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	pins := make([]models.MapPin, 0, len(items))
	for _, item := range items {
		if item.Location == nil {
			continue
		}
		pins = append(pins, models.MapPin{
			ID:        item.ID,
			URI:       item.FileURI,
			FileName:  item.FileName,
			Latitude:  item.Location.Latitude,
			Longitude: item.Location.Longitude,
			MapURL:    MapURL(platform, item.Location.Latitude, item.Location.Longitude),
		})
	}
	return pins, nil
}

// Export renders the device's list as CSV or PDF.
func (s *GalleryService) Export(ctx context.Context, deviceID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	items, err := s.List(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Photos of %s", deviceID),
		Headers: []string{"id", "file_name", "file_uri", "latitude", "longitude", "created_at"},
		Rows:    make([][]string, 0, len(items)),
	}
	for _, item := range items {
		lat, lng := "", ""
		if item.Location != nil {
			lat = formatCoordinate(item.Location.Latitude)
			lng = formatCoordinate(item.Location.Longitude)
		}
		data.Rows = append(data.Rows, []string{item.ID, item.FileName, item.FileURI, lat, lng, item.CreatedAt})
	}

	file := &ExportFile{Name: fmt.Sprintf("geophotos_%s.%s", s.now().UTC().Format("20060102_150405"), format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Data, err = s.pdf.Render(data)
	default:
		file.ContentType = "text/csv"
		file.Data, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

func (s *GalleryService) records(ctx context.Context, deviceID string) ([]models.PhotoRecord, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "device id is required")
	}
	if cached, ok := s.cache.Records(ctx, deviceID); ok {
		return cached, nil
	}

	start := time.Now()
	records, err := s.store.QueryByDevice(ctx, deviceID)
	if err != nil {
		s.logger.Error("photo query failed", zap.String("device_id", deviceID), zap.Error(err))
		if appErrors.FromError(err).Code == appErrors.ErrQueryFailed.Code {
			return nil, err
		}
		return nil, appErrors.WrapAs(appErrors.ErrQueryFailed, err, "")
	}
	s.metrics.ObserveStore("query_by_device", time.Since(start))

	s.cache.StoreRecords(ctx, deviceID, records)
	return records, nil
}

func toGalleryItem(rec models.PhotoRecord) models.GalleryItem {
	item := models.GalleryItem{
		ID:       rec.ID,
		FileName: rec.FileName,
		FileURI:  rec.FileURI,
		Location: rec.Location,
	}
	if !rec.CreatedAt.IsZero() {
		item.CreatedAtMillis = rec.CreatedAt.UnixMilli()
		item.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

// AttachMapLinks fills MapURL for every located item.
func AttachMapLinks(items []models.GalleryItem, platform models.Platform) {
	for i := range items {
		if loc := items[i].Location; loc != nil {
			items[i].MapURL = MapURL(platform, loc.Latitude, loc.Longitude)
		}
	}
}

// MapURL builds an external map deep link for the coordinates.
func MapURL(platform models.Platform, lat, lng float64) string {
	q := formatCoordinate(lat) + "," + formatCoordinate(lng)
	switch platform {
	case models.PlatformIOS:
		return "maps:0,0?q=" + q
	case models.PlatformAndroid:
		return "geo:0,0?q=" + q
	default:
		v := url.Values{}
		v.Set("mlat", formatCoordinate(lat))
		v.Set("mlon", formatCoordinate(lng))
		return "https://www.openstreetmap.org/?" + v.Encode() + "#map=16/" + formatCoordinate(lat) + "/" + formatCoordinate(lng)
	}
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

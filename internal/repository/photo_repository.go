package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

const photoSchema = `CREATE TABLE IF NOT EXISTS geo_photos (
        id TEXT PRIMARY KEY,
        file_name TEXT NOT NULL,
        file_uri TEXT NOT NULL,
        latitude DOUBLE PRECISION NULL,
        longitude DOUBLE PRECISION NULL,
        device_id TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`

const photoIndex = `CREATE INDEX IF NOT EXISTS idx_geo_photos_device_id ON geo_photos (device_id)`

// PhotoRepository persists photo metadata in PostgreSQL or SQLite.
type PhotoRepository struct {
	db *sqlx.DB
}

// NewPhotoRepository constructs a PhotoRepository.
func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Migrate creates the photo table and its device index when missing.
func (r *PhotoRepository) Migrate(ctx context.Context) error {
	for _, stmt := range []string{photoSchema, photoIndex} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate geo_photos: %w", err)
		}
	}
	return nil
}

// Write inserts the record and fills in its ID and server-assigned creation time.
func (r *PhotoRepository) Write(ctx context.Context, record *models.PhotoRecord) (string, error) {
	if record == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "photo record is required")
	}
	row := record.ToRow()
	row.ID = uuid.NewString()

	query := r.db.Rebind(`INSERT INTO geo_photos (id, file_name, file_uri, latitude, longitude, device_id, created_at)
        VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP) RETURNING created_at`)

	var created sqlTime
	if err := r.db.QueryRowxContext(ctx, query, row.ID, row.FileName, row.FileURI, row.Latitude, row.Longitude, row.DeviceID).Scan(&created); err != nil {
		return "", appErrors.WrapAs(appErrors.ErrPersistenceFailed, fmt.Errorf("insert photo: %w", err), "")
	}

	record.ID = row.ID
	record.CreatedAt = created.Time
	return record.ID, nil
}

// QueryByDevice returns every record owned by deviceID in no particular order.
func (r *PhotoRepository) QueryByDevice(ctx context.Context, deviceID string) ([]models.PhotoRecord, error) {
	query := r.db.Rebind(`SELECT id, file_name, file_uri, latitude, longitude, device_id, created_at
        FROM geo_photos WHERE device_id = ?`)

	rows, err := r.db.QueryxContext(ctx, query, deviceID)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrQueryFailed, fmt.Errorf("query photos: %w", err), "")
	}
	defer rows.Close()

	records := make([]models.PhotoRecord, 0)
	for rows.Next() {
		var (
			row     models.PhotoRow
			created sqlTime
		)
		if err := rows.Scan(&row.ID, &row.FileName, &row.FileURI, &row.Latitude, &row.Longitude, &row.DeviceID, &created); err != nil {
			return nil, appErrors.WrapAs(appErrors.ErrQueryFailed, fmt.Errorf("scan photo: %w", err), "")
		}
		row.CreatedAt = created.Time
		records = append(records, row.Record())
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrQueryFailed, fmt.Errorf("iterate photos: %w", err), "")
	}
	return records, nil
}

// Ping reports whether the database is reachable.
func (r *PhotoRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// sqlTime scans timestamps that SQLite may hand back as text.
type sqlTime struct {
	time.Time
}

func (t *sqlTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range sqliteTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

func (t sqlTime) Value() (driver.Value, error) {
	return t.Time, nil
}

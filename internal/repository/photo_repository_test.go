package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/pkg/config"
	"github.com/noah-isme/geophoto-api/pkg/database"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

func newPhotoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPhotoRepositoryWrite(t *testing.T) {
	db, mock, cleanup := newPhotoMock(t)
	defer cleanup()
	repo := NewPhotoRepository(db)

	created := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO geo_photos (id, file_name, file_uri, latitude, longitude, device_id, created_at)")).
		WithArgs(sqlmock.AnyArg(), "camera_1718000000000.jpg", "file:///a.jpg", 12.97, 77.59, "device-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	record := &models.PhotoRecord{
		FileName: "camera_1718000000000.jpg",
		FileURI:  "file:///a.jpg",
		Location: &models.GeoPoint{Latitude: 12.97, Longitude: 77.59},
		DeviceID: "device-1",
	}
	id, err := repo.Write(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, created, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoRepositoryWriteFailure(t *testing.T) {
	db, mock, cleanup := newPhotoMock(t)
	defer cleanup()
	repo := NewPhotoRepository(db)

	mock.ExpectQuery("INSERT INTO geo_photos").WillReturnError(errors.New("connection reset"))

	record := &models.PhotoRecord{FileName: "gallery_1.jpg", FileURI: "file:///b.jpg", DeviceID: "device-1"}
	_, err := repo.Write(context.Background(), record)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPersistenceFailed))
	assert.Empty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoRepositoryQueryByDevice(t *testing.T) {
	db, mock, cleanup := newPhotoMock(t)
	defer cleanup()
	repo := NewPhotoRepository(db)

	rows := sqlmock.NewRows([]string{"id", "file_name", "file_uri", "latitude", "longitude", "device_id", "created_at"}).
		AddRow("p1", "camera_1.jpg", "file:///1.jpg", 1.5, 2.5, "device-1", time.Now()).
		AddRow("p2", "gallery_2.jpg", "file:///2.jpg", nil, nil, "device-1", "2024-06-10 08:00:00")
	mock.ExpectQuery(regexp.QuoteMeta("FROM geo_photos WHERE device_id = ?")).
		WithArgs("device-1").
		WillReturnRows(rows)

	records, err := repo.QueryByDevice(context.Background(), "device-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].Location)
	assert.Equal(t, 1.5, records[0].Location.Latitude)
	assert.Nil(t, records[1].Location)
	assert.Equal(t, time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), records[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoRepositoryQueryFailure(t *testing.T) {
	db, mock, cleanup := newPhotoMock(t)
	defer cleanup()
	repo := NewPhotoRepository(db)

	mock.ExpectQuery("FROM geo_photos").WillReturnError(errors.New("timeout"))

	_, err := repo.QueryByDevice(context.Background(), "device-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrQueryFailed))
}

func TestPhotoRepositorySQLiteRoundTrip(t *testing.T) {
	db, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "photos.db")})
	require.NoError(t, err)
	defer db.Close()

	repo := NewPhotoRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx))

	mine := &models.PhotoRecord{FileName: "camera_1.jpg", FileURI: "file:///1.jpg", DeviceID: "device-a", Location: &models.GeoPoint{Latitude: 12.97, Longitude: 77.59}}
	other := &models.PhotoRecord{FileName: "gallery_2.jpg", FileURI: "file:///2.jpg", DeviceID: "device-b"}
	_, err = repo.Write(ctx, mine)
	require.NoError(t, err)
	_, err = repo.Write(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, mine.ID, other.ID)
	assert.False(t, mine.CreatedAt.IsZero())

	records, err := repo.QueryByDevice(ctx, "device-a")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, mine.ID, records[0].ID)
	require.NotNil(t, records[0].Location)
	assert.Equal(t, 77.59, records[0].Location.Longitude)

	records, err = repo.QueryByDevice(ctx, "device-b")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Location)

	records, err = repo.QueryByDevice(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPhotoRepositoryMigrateStoresZonedTimestamps(t *testing.T) {
	db, mock, cleanup := newPhotoMock(t)
	defer cleanup()
	repo := NewPhotoRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_geo_photos_device_id")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTimeNormalizesToUTC(t *testing.T) {
	var ts sqlTime
	require.NoError(t, ts.Scan("2024-06-10 10:00:00+02:00"))
	assert.Equal(t, time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), ts.Time)

	jakarta := time.FixedZone("WIB", 7*3600)
	require.NoError(t, ts.Scan(time.Date(2024, 6, 10, 15, 0, 0, 0, jakarta)))
	assert.Equal(t, time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), ts.Time)
	assert.Equal(t, time.UTC, ts.Time.Location())
}

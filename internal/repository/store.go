package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/pkg/config"
	"github.com/noah-isme/geophoto-api/pkg/database"
)

// PhotoStore is the metadata store shared by every driver.
type PhotoStore interface {
	Write(ctx context.Context, record *models.PhotoRecord) (string, error)
	QueryByDevice(ctx context.Context, deviceID string) ([]models.PhotoRecord, error)
	Ping(ctx context.Context) error
}

// OpenPhotoStore connects the configured driver, migrating SQL schemas, and
// returns the store with a function releasing its connection.
func OpenPhotoStore(ctx context.Context, cfg *config.Config) (PhotoStore, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres, "":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return migrated(ctx, db)
	case config.StoreDriverSQLite:
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		return migrated(ctx, db)
	case config.StoreDriverFirestore:
		client, err := database.NewFirestore(ctx, cfg.Firestore)
		if err != nil {
			return nil, nil, err
		}
		repo := NewFirestorePhotoRepository(client, cfg.Store.Collection)
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func migrated(ctx context.Context, db *sqlx.DB) (PhotoStore, func() error, error) {
	repo := NewPhotoRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}

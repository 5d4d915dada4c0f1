package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

// DefaultPhotoCollection is the document collection holding photo metadata.
const DefaultPhotoCollection = "GeoPhotos"

type photoDocument struct {
	FileName  string           `firestore:"fileName"`
	FileURI   string           `firestore:"fileUri"`
	Location  *models.GeoPoint `firestore:"location"`
	DeviceID  string           `firestore:"deviceId"`
	CreatedAt time.Time        `firestore:"createdAt,serverTimestamp"`
}

func newPhotoDocument(record *models.PhotoRecord) photoDocument {
	return photoDocument{
		FileName: record.FileName,
		FileURI:  record.FileURI,
		Location: record.Location,
		DeviceID: record.DeviceID,
	}
}

func (d photoDocument) record(id string) models.PhotoRecord {
	return models.PhotoRecord{
		ID:        id,
		FileName:  d.FileName,
		FileURI:   d.FileURI,
		Location:  d.Location,
		DeviceID:  d.DeviceID,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// FirestorePhotoRepository persists photo metadata as documents.
type FirestorePhotoRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestorePhotoRepository constructs a repository over collection.
func NewFirestorePhotoRepository(client *firestore.Client, collection string) *FirestorePhotoRepository {
	if collection == "" {
		collection = DefaultPhotoCollection
	}
	return &FirestorePhotoRepository{client: client, collection: collection}
}

// Write creates a document with an auto id and a server timestamp.
func (r *FirestorePhotoRepository) Write(ctx context.Context, record *models.PhotoRecord) (string, error) {
	if record == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "photo record is required")
	}
	doc := r.client.Collection(r.collection).NewDoc()
	result, err := doc.Create(ctx, newPhotoDocument(record))
	if err != nil {
		return "", appErrors.WrapAs(appErrors.ErrPersistenceFailed, fmt.Errorf("create photo document: %w", err), "")
	}
	record.ID = doc.ID
	record.CreatedAt = result.UpdateTime.UTC()
	return record.ID, nil
}

// QueryByDevice returns the documents whose deviceId equals deviceID.
func (r *FirestorePhotoRepository) QueryByDevice(ctx context.Context, deviceID string) ([]models.PhotoRecord, error) {
	iter := r.client.Collection(r.collection).Where("deviceId", "==", deviceID).Documents(ctx)
	defer iter.Stop()

	records := make([]models.PhotoRecord, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, appErrors.WrapAs(appErrors.ErrQueryFailed, fmt.Errorf("query photo documents: %w", err), "")
		}
		var doc photoDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, appErrors.WrapAs(appErrors.ErrQueryFailed, fmt.Errorf("decode photo document %s: %w", snap.Ref.ID, err), "")
		}
		records = append(records, doc.record(snap.Ref.ID))
	}
	return records, nil
}

// Ping issues a cheap read against the collection.
func (r *FirestorePhotoRepository) Ping(ctx context.Context) error {
	iter := r.client.Collection(r.collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *FirestorePhotoRepository) Close() error {
	return r.client.Close()
}

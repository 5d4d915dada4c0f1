package models

import (
	"math"
	"time"
)

// GeoPoint is a latitude/longitude pair attached to a photo record.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" firestore:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" firestore:"longitude" validate:"gte=-180,lte=180"`
}

// Valid reports whether both coordinates are finite and in range.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) || math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// LocationFix is a single position reading. A nil *LocationFix means no fix.
type LocationFix = GeoPoint

// PhotoRecord is one persisted photo with its geotag and owning device.
type PhotoRecord struct {
	ID        string    `db:"id" json:"id"`
	FileName  string    `db:"file_name" json:"fileName" validate:"required"`
	FileURI   string    `db:"file_uri" json:"fileUri" validate:"required"`
	Location  *GeoPoint `db:"-" json:"location" validate:"omitempty"`
	DeviceID  string    `db:"device_id" json:"deviceId" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PhotoRow is the flattened SQL shape of a PhotoRecord.
type PhotoRow struct {
	ID        string    `db:"id"`
	FileName  string    `db:"file_name"`
	FileURI   string    `db:"file_uri"`
	Latitude  *float64  `db:"latitude"`
	Longitude *float64  `db:"longitude"`
	DeviceID  string    `db:"device_id"`
	CreatedAt time.Time `db:"created_at"`
}

// ToRow flattens the record for SQL drivers.
func (r *PhotoRecord) ToRow() PhotoRow {
	row := PhotoRow{
		ID:        r.ID,
		FileName:  r.FileName,
		FileURI:   r.FileURI,
		DeviceID:  r.DeviceID,
		CreatedAt: r.CreatedAt,
	}
	if r.Location != nil {
		lat, lng := r.Location.Latitude, r.Location.Longitude
		row.Latitude = &lat
		row.Longitude = &lng
	}
	return row
}

// Record rebuilds a PhotoRecord. A row with only one coordinate has no location.
func (row PhotoRow) Record() PhotoRecord {
	rec := PhotoRecord{
		ID:        row.ID,
		FileName:  row.FileName,
		FileURI:   row.FileURI,
		DeviceID:  row.DeviceID,
		CreatedAt: row.CreatedAt,
	}
	if row.Latitude != nil && row.Longitude != nil {
		rec.Location = &GeoPoint{Latitude: *row.Latitude, Longitude: *row.Longitude}
	}
	return rec
}

// GalleryItem is the presentation shape of a record for list and map screens.
type GalleryItem struct {
	ID              string    `json:"id"`
	FileName        string    `json:"fileName"`
	FileURI         string    `json:"fileUri"`
	Location        *GeoPoint `json:"location"`
	CreatedAtMillis int64     `json:"createdAtMillis"`
	CreatedAt       string    `json:"createdAt"`
	MapURL          string    `json:"mapUrl,omitempty"`
}

// MapPin is one marker on the map screen.
type MapPin struct {
	ID        string  `json:"id"`
	URI       string  `json:"uri"`
	FileName  string  `json:"fileName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	MapURL    string  `json:"mapUrl"`
}

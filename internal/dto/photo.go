package dto

import (
	"strconv"
	"strings"

	"github.com/noah-isme/geophoto-api/internal/models"
)

// SubmitPhotoForm is the multipart form of POST /photos. Either a file part or
// FileURI (a device-local reference) is required.
type SubmitPhotoForm struct {
	Origin    string `form:"origin" binding:"required,oneof=camera gallery"`
	Latitude  string `form:"latitude"`
	Longitude string `form:"longitude"`
	FileURI   string `form:"fileUri"`
	MimeType  string `form:"mimeType"`
}

// Fix parses the optional coordinate pair. ok is false when only one of the two
// is present or either fails to parse.
func (f SubmitPhotoForm) Fix() (fix *models.LocationFix, ok bool) {
	lat, lng := strings.TrimSpace(f.Latitude), strings.TrimSpace(f.Longitude)
	if lat == "" && lng == "" {
		return nil, true
	}
	if lat == "" || lng == "" {
		return nil, false
	}
	latV, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, false
	}
	lngV, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil, false
	}
	point := &models.LocationFix{Latitude: latV, Longitude: lngV}
	if !point.Valid() {
		return nil, false
	}
	return point, true
}

// PhotoListResponse wraps the gallery listing.
type PhotoListResponse struct {
	Items []models.GalleryItem `json:"items"`
	Count int                  `json:"count"`
}

// MapPinsResponse wraps the map screen markers.
type MapPinsResponse struct {
	Pins  []models.MapPin `json:"pins"`
	Count int             `json:"count"`
}

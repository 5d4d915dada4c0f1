// Package media launches the camera or the photo library and normalizes the
// picker response into a single image descriptor.
package media

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
)

const (
	ErrCodeNoAsset         = "no_asset"
	ErrCodeUnsupportedType = "unsupported_type"
	ErrCodePickerError     = "picker_error"
)

// CameraOptions mirrors the platform camera launch options.
type CameraOptions struct {
	MediaType    string
	Quality      float64
	SaveToPhotos bool
}

// LibraryOptions mirrors the platform library picker options.
type LibraryOptions struct {
	MediaType      string
	Quality        float64
	SelectionLimit int
}

// Asset is one item returned by a picker.
type Asset struct {
	URI      string
	FileName string
	Type     string
	FileSize int64
}

// PickerResponse is the raw picker callback payload.
type PickerResponse struct {
	DidCancel    bool
	ErrorCode    string
	ErrorMessage string
	Assets       []Asset
}

// Picker is the platform camera and library UI.
type Picker interface {
	LaunchCamera(ctx context.Context, opts CameraOptions) (PickerResponse, error)
	LaunchLibrary(ctx context.Context, opts LibraryOptions) (PickerResponse, error)
}

// Acquirer produces one descriptor per successful call and keeps no session state.
type Acquirer struct {
	picker Picker
	logger *zap.Logger
}

// NewAcquirer constructs an acquirer over picker.
func NewAcquirer(picker Picker, logger *zap.Logger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acquirer{picker: picker, logger: logger}
}

// FromCamera captures a full-quality photo that is also saved to the device gallery.
func (a *Acquirer) FromCamera(ctx context.Context) models.Acquisition {
	resp, err := a.picker.LaunchCamera(ctx, CameraOptions{MediaType: "photo", Quality: 1, SaveToPhotos: true})
	return a.normalize(models.OriginCamera, resp, err)
}

// FromGallery lets the user pick a single photo from the library.
func (a *Acquirer) FromGallery(ctx context.Context) models.Acquisition {
	resp, err := a.picker.LaunchLibrary(ctx, LibraryOptions{MediaType: "photo", Quality: 1, SelectionLimit: 1})
	return a.normalize(models.OriginGallery, resp, err)
}

func (a *Acquirer) normalize(origin models.ImageOrigin, resp PickerResponse, err error) models.Acquisition {
	if err != nil {
		a.logger.Error("picker failed", zap.String("origin", string(origin)), zap.Error(err))
		return models.Acquisition{Status: models.AcquisitionFailed, ErrorCode: ErrCodePickerError, ErrorMessage: err.Error()}
	}
	if resp.DidCancel {
		a.logger.Debug("picker cancelled", zap.String("origin", string(origin)))
		return models.Acquisition{Status: models.AcquisitionCancelled}
	}
	if resp.ErrorCode != "" {
		a.logger.Error("picker returned error",
			zap.String("origin", string(origin)),
			zap.String("code", resp.ErrorCode),
			zap.String("message", resp.ErrorMessage))
		return models.Acquisition{Status: models.AcquisitionFailed, ErrorCode: resp.ErrorCode, ErrorMessage: resp.ErrorMessage}
	}
	if len(resp.Assets) == 0 || strings.TrimSpace(resp.Assets[0].URI) == "" {
		return models.Acquisition{Status: models.AcquisitionFailed, ErrorCode: ErrCodeNoAsset, ErrorMessage: "picker returned no image"}
	}

	asset := resp.Assets[0]
	if asset.Type != "" && !strings.HasPrefix(asset.Type, "image/") {
		return models.Acquisition{Status: models.AcquisitionFailed, ErrorCode: ErrCodeUnsupportedType, ErrorMessage: "selected file is not a photo: " + asset.Type}
	}
	name := asset.FileName
	if name == "" {
		name = path.Base(asset.URI)
	}
	return models.Acquisition{
		Status: models.AcquisitionAcquired,
		Descriptor: &models.ImageDescriptor{
			URI:         asset.URI,
			DisplayName: name,
			Origin:      origin,
			MimeType:    asset.Type,
			Size:        asset.FileSize,
		},
	}
}

package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geophoto-api/internal/models"
)

type pickerStub struct {
	cameraResp  PickerResponse
	libraryResp PickerResponse
	err         error
	cameraOpts  *CameraOptions
	libraryOpts *LibraryOptions
}

func (p *pickerStub) LaunchCamera(ctx context.Context, opts CameraOptions) (PickerResponse, error) {
	p.cameraOpts = &opts
	return p.cameraResp, p.err
}

func (p *pickerStub) LaunchLibrary(ctx context.Context, opts LibraryOptions) (PickerResponse, error) {
	p.libraryOpts = &opts
	return p.libraryResp, p.err
}

func TestFromCameraAcquired(t *testing.T) {
	picker := &pickerStub{cameraResp: PickerResponse{Assets: []Asset{{URI: "file:///photos/IMG_1.jpg", Type: "image/jpeg", FileSize: 2048}}}}
	result := NewAcquirer(picker, nil).FromCamera(context.Background())

	require.Equal(t, models.AcquisitionAcquired, result.Status)
	require.NotNil(t, result.Descriptor)
	assert.Equal(t, "file:///photos/IMG_1.jpg", result.Descriptor.URI)
	assert.Equal(t, "IMG_1.jpg", result.Descriptor.DisplayName)
	assert.Equal(t, models.OriginCamera, result.Descriptor.Origin)
	assert.Equal(t, int64(2048), result.Descriptor.Size)

	require.NotNil(t, picker.cameraOpts)
	assert.Equal(t, "photo", picker.cameraOpts.MediaType)
	assert.Equal(t, 1.0, picker.cameraOpts.Quality)
	assert.True(t, picker.cameraOpts.SaveToPhotos)
}

func TestFromGalleryUsesSingleSelection(t *testing.T) {
	picker := &pickerStub{libraryResp: PickerResponse{Assets: []Asset{
		{URI: "content://media/1", FileName: "beach.png", Type: "image/png"},
		{URI: "content://media/2", FileName: "ignored.png", Type: "image/png"},
	}}}
	result := NewAcquirer(picker, nil).FromGallery(context.Background())

	require.Equal(t, models.AcquisitionAcquired, result.Status)
	assert.Equal(t, "beach.png", result.Descriptor.DisplayName)
	assert.Equal(t, models.OriginGallery, result.Descriptor.Origin)
	require.NotNil(t, picker.libraryOpts)
	assert.Equal(t, 1, picker.libraryOpts.SelectionLimit)
	assert.Equal(t, "photo", picker.libraryOpts.MediaType)
}

func TestAcquirerCancelled(t *testing.T) {
	picker := &pickerStub{libraryResp: PickerResponse{DidCancel: true}}
	result := NewAcquirer(picker, nil).FromGallery(context.Background())
	assert.Equal(t, models.AcquisitionCancelled, result.Status)
	assert.Nil(t, result.Descriptor)
}

func TestAcquirerFailures(t *testing.T) {
	tests := []struct {
		name string
		resp PickerResponse
		err  error
		code string
	}{
		{name: "picker error code", resp: PickerResponse{ErrorCode: "camera_unavailable", ErrorMessage: "no camera"}, code: "camera_unavailable"},
		{name: "no assets", resp: PickerResponse{}, code: ErrCodeNoAsset},
		{name: "empty uri", resp: PickerResponse{Assets: []Asset{{Type: "image/jpeg"}}}, code: ErrCodeNoAsset},
		{name: "video asset", resp: PickerResponse{Assets: []Asset{{URI: "file:///a.mp4", Type: "video/mp4"}}}, code: ErrCodeUnsupportedType},
		{name: "launch error", err: errors.New("activity missing"), code: ErrCodePickerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			picker := &pickerStub{cameraResp: tc.resp, err: tc.err}
			result := NewAcquirer(picker, nil).FromCamera(context.Background())
			assert.Equal(t, models.AcquisitionFailed, result.Status)
			assert.Equal(t, tc.code, result.ErrorCode)
			assert.Nil(t, result.Descriptor)
		})
	}
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestFilePickerLibrary(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(img, pngHeader, 0o644))

	picker := &FilePicker{Selection: img}
	resp, err := picker.LaunchLibrary(context.Background(), LibraryOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Assets, 1)
	assert.Equal(t, "image/png", resp.Assets[0].Type)
	assert.Equal(t, "pic.png", resp.Assets[0].FileName)
	assert.Equal(t, int64(len(pngHeader)), resp.Assets[0].FileSize)
	assert.Contains(t, resp.Assets[0].URI, "file://")
}

func TestFilePickerLibraryCancelAndMissing(t *testing.T) {
	resp, err := (&FilePicker{}).LaunchLibrary(context.Background(), LibraryOptions{})
	require.NoError(t, err)
	assert.True(t, resp.DidCancel)

	resp, err = (&FilePicker{Selection: filepath.Join(t.TempDir(), "nope.jpg")}).LaunchLibrary(context.Background(), LibraryOptions{})
	require.NoError(t, err)
	assert.Equal(t, ErrCodeFileNotFound, resp.ErrorCode)
}

func TestFilePickerRejectsNonImageThroughAcquirer(t *testing.T) {
	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o644))

	result := NewAcquirer(&FilePicker{Selection: txt}, nil).FromGallery(context.Background())
	assert.Equal(t, models.AcquisitionFailed, result.Status)
	assert.Equal(t, ErrCodeUnsupportedType, result.ErrorCode)
}

func TestFilePickerCameraUnavailable(t *testing.T) {
	result := NewAcquirer(&FilePicker{}, nil).FromCamera(context.Background())
	assert.Equal(t, models.AcquisitionFailed, result.Status)
	assert.Equal(t, ErrCodeCameraUnavailable, result.ErrorCode)
}

func TestFilePickerCameraCommand(t *testing.T) {
	if _, err := os.Stat("/bin/cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "sensor.png")
	require.NoError(t, os.WriteFile(src, pngHeader, 0o644))

	picker := &FilePicker{CameraCommand: "/bin/cp " + src + " {output}", PhotosDir: filepath.Join(dir, "photos")}
	result := NewAcquirer(picker, nil).FromCamera(context.Background())
	require.Equal(t, models.AcquisitionAcquired, result.Status)
	assert.Equal(t, "image/png", result.Descriptor.MimeType)

	entries, err := os.ReadDir(filepath.Join(dir, "photos"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

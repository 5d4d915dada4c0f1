package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geophoto-api/internal/middleware"
	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/internal/service"
	"github.com/noah-isme/geophoto-api/pkg/deviceid"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
	"github.com/noah-isme/geophoto-api/pkg/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type responseEnvelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

type submitterStub struct {
	enabled     bool
	calls       int
	references  int
	descriptor  *models.ImageDescriptor
	fix         *models.LocationFix
	fileExisted bool
	err         error
}

func (s *submitterStub) Submit(_ context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix) (*models.PhotoRecord, error) {
	s.calls++
	s.descriptor = descriptor
	s.fix = fix
	if _, err := os.Stat(descriptor.URI); err == nil {
		s.fileExisted = true
	}
	if s.err != nil {
		return nil, s.err
	}
	rec := &models.PhotoRecord{ID: "photo-1", FileName: "camera_1.jpg", FileURI: descriptor.URI, DeviceID: "device-1", Location: fix}
	return rec, nil
}

func (s *submitterStub) SubmitReference(ctx context.Context, descriptor *models.ImageDescriptor, fix *models.LocationFix) (*models.PhotoRecord, error) {
	s.references++
	return s.Submit(ctx, descriptor, fix)
}

func (s *submitterStub) UploadsEnabled() bool { return s.enabled }

type galleryStub struct {
	items    []models.GalleryItem
	pins     []models.MapPin
	file     *service.ExportFile
	err      error
	device   string
	platform models.Platform
	format   string
}

func (g *galleryStub) List(_ context.Context, deviceID string) ([]models.GalleryItem, error) {
	g.device = deviceID
	return g.items, g.err
}

func (g *galleryStub) MapPins(_ context.Context, deviceID string, platform models.Platform) ([]models.MapPin, error) {
	g.device = deviceID
	g.platform = platform
	return g.pins, g.err
}

func (g *galleryStub) Export(_ context.Context, deviceID, format string) (*service.ExportFile, error) {
	g.device = deviceID
	g.format = format
	return g.file, g.err
}

type formFile struct {
	name    string
	content []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if file != nil {
		part, err := writer.CreateFormFile("file", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/photos", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newDeviceContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Set(middleware.ContextDeviceKey, &models.DeviceClaims{DeviceID: "device-1"})
	return c, rec
}

func TestPhotoHandlerSubmitRequiresDevice(t *testing.T) {
	gin.SetMode(gin.TestMode)
	submitter := &submitterStub{}
	h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, true, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, map[string]string{"origin": "camera"}, nil)

	h.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, submitter.calls)
}

func TestPhotoHandlerSubmitMetadataOnly(t *testing.T) {
	submitter := &submitterStub{}
	h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, true, nil)
	c, rec := newDeviceContext(multipartRequest(t, map[string]string{
		"origin":    "camera",
		"latitude":  "12.97",
		"longitude": "77.59",
		"fileUri":   "file:///data/IMG_1.jpg",
	}, nil))

	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, submitter.calls)
	assert.Equal(t, 1, submitter.references)
	assert.Equal(t, "file:///data/IMG_1.jpg", submitter.descriptor.URI)
	assert.Equal(t, models.OriginCamera, submitter.descriptor.Origin)
	require.NotNil(t, submitter.fix)
	assert.Equal(t, 12.97, submitter.fix.Latitude)

	env := decodeEnvelope(t, rec.Body.Bytes())
	var record models.PhotoRecord
	require.NoError(t, json.Unmarshal(env.Data, &record))
	assert.Equal(t, "photo-1", record.ID)
}

func TestPhotoHandlerSubmitRejections(t *testing.T) {
	tests := []struct {
		name            string
		fields          map[string]string
		requireLocation bool
		status          int
		code            string
	}{
		{
			name:            "location required",
			fields:          map[string]string{"origin": "gallery", "fileUri": "content://media/1"},
			requireLocation: true,
			status:          http.StatusUnprocessableEntity,
			code:            appErrors.ErrLocationUnavailable.Code,
		},
		{
			name:   "half coordinate",
			fields: map[string]string{"origin": "gallery", "fileUri": "content://media/1", "latitude": "1"},
			status: http.StatusBadRequest,
			code:   appErrors.ErrValidation.Code,
		},
		{
			name:   "unknown origin",
			fields: map[string]string{"origin": "scanner", "fileUri": "content://media/1"},
			status: http.StatusBadRequest,
			code:   appErrors.ErrValidation.Code,
		},
		{
			name:   "no file reference",
			fields: map[string]string{"origin": "camera"},
			status: http.StatusBadRequest,
			code:   appErrors.ErrValidation.Code,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			submitter := &submitterStub{}
			h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, tc.requireLocation, nil)
			c, rec := newDeviceContext(multipartRequest(t, tc.fields, nil))

			h.Submit(c)

			require.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec.Body.Bytes())
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.Zero(t, submitter.calls)
		})
	}
}

func TestPhotoHandlerSubmitWithoutLocationWhenOptional(t *testing.T) {
	submitter := &submitterStub{}
	h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, false, nil)
	c, rec := newDeviceContext(multipartRequest(t, map[string]string{"origin": "gallery", "fileUri": "content://media/1"}, nil))

	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, submitter.fix)
}

func TestPhotoHandlerSubmitBinary(t *testing.T) {
	submitter := &submitterStub{enabled: true}
	h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, true, nil)
	c, rec := newDeviceContext(multipartRequest(t,
		map[string]string{"origin": "camera", "latitude": "1.5", "longitude": "2.5"},
		&formFile{name: "IMG_0001.png", content: pngHeader}))

	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, submitter.calls)
	assert.Zero(t, submitter.references)
	assert.True(t, submitter.fileExisted)
	assert.Equal(t, "image/png", submitter.descriptor.MimeType)
	assert.Equal(t, "IMG_0001.png", submitter.descriptor.DisplayName)

	_, err := os.Stat(submitter.descriptor.URI)
	assert.True(t, os.IsNotExist(err), "temp file should be removed")
}

func TestPhotoHandlerSubmitBinaryRejected(t *testing.T) {
	t.Run("uploads disabled", func(t *testing.T) {
		submitter := &submitterStub{}
		h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, false, nil)
		c, rec := newDeviceContext(multipartRequest(t, map[string]string{"origin": "camera"},
			&formFile{name: "a.png", content: pngHeader}))

		h.Submit(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, submitter.calls)
	})

	t.Run("not an image", func(t *testing.T) {
		submitter := &submitterStub{enabled: true}
		h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, false, nil)
		c, rec := newDeviceContext(multipartRequest(t, map[string]string{"origin": "camera"},
			&formFile{name: "a.jpg", content: []byte("plain text pretending to be a photo")}))

		h.Submit(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, submitter.calls)
	})

	t.Run("too large", func(t *testing.T) {
		submitter := &submitterStub{enabled: true}
		h := NewPhotoHandler(submitter, &galleryStub{}, 64, false, nil)
		big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 4096)...)
		c, rec := newDeviceContext(multipartRequest(t, map[string]string{"origin": "camera"},
			&formFile{name: "a.png", content: big}))

		h.Submit(c)

		assert.NotEqual(t, http.StatusCreated, rec.Code)
		assert.Zero(t, submitter.calls)
	})
}

func TestPhotoHandlerSubmitPropagatesServiceError(t *testing.T) {
	submitter := &submitterStub{err: appErrors.Clone(appErrors.ErrPersistenceFailed, "store down")}
	h := NewPhotoHandler(submitter, &galleryStub{}, 1<<20, false, nil)
	c, rec := newDeviceContext(multipartRequest(t, map[string]string{"origin": "camera", "fileUri": "file:///a.jpg"}, nil))

	h.Submit(c)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	assert.Equal(t, "PERSISTENCE_FAILED", env.Error.Code)
}

func TestPhotoHandlerListAttachesMapLinks(t *testing.T) {
	gallery := &galleryStub{items: []models.GalleryItem{
		{ID: "a", Location: &models.GeoPoint{Latitude: 1, Longitude: 2}},
		{ID: "b"},
	}}
	h := NewPhotoHandler(&submitterStub{}, gallery, 0, true, nil)
	c, rec := newDeviceContext(httptest.NewRequest(http.MethodGet, "/photos?platform=ios", nil))

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "device-1", gallery.device)
	env := decodeEnvelope(t, rec.Body.Bytes())
	var list struct {
		Items []models.GalleryItem `json:"items"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Equal(t, 2, list.Count)
	assert.True(t, strings.HasPrefix(list.Items[0].MapURL, "maps:"))
	assert.Empty(t, list.Items[1].MapURL)
}

func TestPhotoHandlerListError(t *testing.T) {
	gallery := &galleryStub{err: appErrors.Clone(appErrors.ErrQueryFailed, "")}
	h := NewPhotoHandler(&submitterStub{}, gallery, 0, true, nil)
	c, rec := newDeviceContext(httptest.NewRequest(http.MethodGet, "/photos", nil))

	h.List(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPhotoHandlerMap(t *testing.T) {
	gallery := &galleryStub{pins: []models.MapPin{{ID: "a", Latitude: 1, Longitude: 2, MapURL: "geo:0,0?q=1,2"}}}
	h := NewPhotoHandler(&submitterStub{}, gallery, 0, true, nil)
	c, rec := newDeviceContext(httptest.NewRequest(http.MethodGet, "/photos/map?platform=android", nil))

	h.Map(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PlatformAndroid, gallery.platform)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestPhotoHandlerExport(t *testing.T) {
	gallery := &galleryStub{file: &service.ExportFile{
		Name:        "geophotos_" + time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC).Format("20060102_150405") + ".csv",
		ContentType: "text/csv",
		Data:        []byte("id,file_name\n"),
	}}
	h := NewPhotoHandler(&submitterStub{}, gallery, 0, true, nil)
	c, rec := newDeviceContext(httptest.NewRequest(http.MethodGet, "/photos/export", nil))

	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, gallery.format)
	assert.Equal(t, `attachment; filename="geophotos_20240610_000000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id,file_name\n", rec.Body.String())
}

type recordingWriter struct {
	records []models.PhotoRecord
}

func (w *recordingWriter) Write(_ context.Context, record *models.PhotoRecord) (string, error) {
	record.ID = "photo-1"
	record.CreatedAt = time.Now().UTC()
	w.records = append(w.records, *record)
	return record.ID, nil
}

func newUploadingHandler(t *testing.T) (*PhotoHandler, *recordingWriter, string) {
	t.Helper()
	objects := t.TempDir()
	local, err := storage.NewLocalStorage(objects)
	require.NoError(t, err)
	uploader := storage.NewLocalUploader(local, storage.NewSignedURLSigner("secret", time.Hour), "images", "")
	writer := &recordingWriter{}
	uploads := service.NewUploadService(writer, deviceid.ContextSource{}, uploader, nil, nil, nil, nil)
	return NewPhotoHandler(uploads, &galleryStub{}, 1<<20, false, nil), writer, objects
}

func withDevice(c *gin.Context, id string) {
	c.Request = c.Request.WithContext(deviceid.NewContext(c.Request.Context(), id))
}

func TestPhotoHandlerFileURIStaysReferenceWithUploadsEnabled(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "server-secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("DB_PASSWORD=hunter2"), 0o600))

	h, writer, objects := newUploadingHandler(t)
	c, rec := newDeviceContext(multipartRequest(t, map[string]string{
		"origin":   "camera",
		"fileUri":  "file://" + secret,
		"mimeType": "image/jpeg",
	}, nil))
	withDevice(c, "device-1")

	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, writer.records, 1)
	assert.Equal(t, "file://"+secret, writer.records[0].FileURI)
	assert.Equal(t, "device-1", writer.records[0].DeviceID)

	entries, err := os.ReadDir(objects)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestPhotoHandlerBinaryUploadLandsInObjectStore(t *testing.T) {
	h, writer, objects := newUploadingHandler(t)
	c, rec := newDeviceContext(multipartRequest(t, map[string]string{"origin": "gallery"},
		&formFile{name: "IMG_0002.png", content: pngHeader}))
	withDevice(c, "device-1")

	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, writer.records, 1)
	record := writer.records[0]
	assert.True(t, strings.HasPrefix(record.FileURI, "/images/"+record.FileName+"?token="))

	stored, err := os.ReadFile(filepath.Join(objects, "images", record.FileName))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

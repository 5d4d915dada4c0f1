package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

type photoStoreStub struct {
	records  []models.PhotoRecord
	writeErr error
	queryErr error
	writes   int
	queries  int
}

func (s *photoStoreStub) Write(ctx context.Context, record *models.PhotoRecord) (string, error) {
	if s.writeErr != nil {
		return "", s.writeErr
	}
	s.writes++
	record.ID = fmt.Sprintf("photo-%d", s.writes)
	record.CreatedAt = time.Date(2024, 6, 10, 8, 0, s.writes, 0, time.UTC)
	s.records = append(s.records, *record)
	return record.ID, nil
}

func (s *photoStoreStub) QueryByDevice(ctx context.Context, deviceID string) ([]models.PhotoRecord, error) {
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	out := make([]models.PhotoRecord, 0)
	for _, r := range s.records {
		if r.DeviceID == deviceID {
			out = append(out, r)
		}
	}
	return out, nil
}

type identityStub struct {
	id  string
	err error
}

func (i identityStub) DeviceID(ctx context.Context) (string, error) {
	return i.id, i.err
}

type uploaderStub struct {
	link         string
	err          error
	names        []string
	bodies       []string
	contentTypes []string
}

func (u *uploaderStub) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.names = append(u.names, name)
	u.bodies = append(u.bodies, string(data))
	u.contentTypes = append(u.contentTypes, contentType)
	return u.link + name, nil
}

type invalidatorStub struct {
	devices []string
	err     error
}

func (i *invalidatorStub) Invalidate(ctx context.Context, deviceID string) error {
	i.devices = append(i.devices, deviceID)
	return i.err
}

type memoryCacheRepo struct {
	entries map[string][]byte
	deletes int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
		m.deletes++
	}
	return nil
}

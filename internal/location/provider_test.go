package location

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetFixReturnsCoordinates(t *testing.T) {
	var seen Request
	src := SourceFunc(func(ctx context.Context, req Request) (Position, error) {
		seen = req
		return Position{Latitude: 12.97, Longitude: 77.59, Timestamp: time.Now()}, nil
	})
	fix := NewProvider(src, nil).GetFix(context.Background(), 0, 0)
	require.NotNil(t, fix)
	require.InDelta(t, 12.97, fix.Latitude, 1e-9)
	require.InDelta(t, 77.59, fix.Longitude, 1e-9)
	require.True(t, seen.HighAccuracy)
	require.Equal(t, DefaultTimeout, seen.Timeout)
	require.Equal(t, DefaultMaxAge, seen.MaximumAge)
}

func TestGetFixDegradesToNil(t *testing.T) {
	cases := map[string]Source{
		"error": SourceFunc(func(ctx context.Context, req Request) (Position, error) {
			return Position{}, errors.New("gps off")
		}),
		"panic": SourceFunc(func(ctx context.Context, req Request) (Position, error) {
			panic("driver crashed")
		}),
		"stale": SourceFunc(func(ctx context.Context, req Request) (Position, error) {
			return Position{Latitude: 1, Longitude: 2, Timestamp: time.Now().Add(-time.Minute)}, nil
		}),
		"out of range": SourceFunc(func(ctx context.Context, req Request) (Position, error) {
			return Position{Latitude: 91, Longitude: 2, Timestamp: time.Now()}, nil
		}),
		"nan": SourceFunc(func(ctx context.Context, req Request) (Position, error) {
			return Position{Latitude: math.NaN(), Longitude: 2}, nil
		}),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			require.Nil(t, NewProvider(src, nil).GetFix(context.Background(), time.Second, 10*time.Second))
		})
	}
}

func TestGetFixTimesOutOnSlowSource(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	src := SourceFunc(func(ctx context.Context, req Request) (Position, error) {
		<-block
		return Position{Latitude: 1, Longitude: 1}, nil
	})
	start := time.Now()
	fix := NewProvider(src, nil).GetFix(context.Background(), 30*time.Millisecond, time.Second)
	require.Nil(t, fix)
	require.Less(t, time.Since(start), time.Second)
}

func TestGetFixNilProvider(t *testing.T) {
	var p *Provider
	require.Nil(t, p.GetFix(context.Background(), time.Second, time.Second))
}

func TestFixFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"latitude":28.6139,"longitude":77.209}`), 0o600))

	fix := NewProvider(FixFileSource{Path: path}, nil).GetFix(context.Background(), time.Second, time.Minute)
	require.NotNil(t, fix)
	require.InDelta(t, 28.6139, fix.Latitude, 1e-9)

	missing := NewProvider(FixFileSource{Path: filepath.Join(t.TempDir(), "none.json")}, nil)
	require.Nil(t, missing.GetFix(context.Background(), time.Second, time.Minute))
}

func TestStaticSource(t *testing.T) {
	fix := NewProvider(StaticSource{Latitude: -33.86, Longitude: 151.2}, nil).GetFix(context.Background(), time.Second, time.Second)
	require.NotNil(t, fix)
	require.InDelta(t, 151.2, fix.Longitude, 1e-9)
}

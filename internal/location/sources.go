package location

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StaticSource reports a fixed position, for devices without a receiver.
type StaticSource struct {
	Latitude  float64
	Longitude float64
}

// CurrentPosition returns the configured coordinates stamped with the current time.
func (s StaticSource) CurrentPosition(ctx context.Context, req Request) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{Latitude: s.Latitude, Longitude: s.Longitude, Timestamp: time.Now()}, nil
}

// FixFileSource reads the last fix written by a GPS daemon hook as JSON.
// A missing timestamp falls back to the file's modification time.
type FixFileSource struct {
	Path string
}

func (s FixFileSource) CurrentPosition(ctx context.Context, req Request) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return Position{}, fmt.Errorf("stat fix file: %w", err)
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return Position{}, fmt.Errorf("read fix file: %w", err)
	}
	var pos Position
	if err := json.Unmarshal(raw, &pos); err != nil {
		return Position{}, fmt.Errorf("decode fix file: %w", err)
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = info.ModTime()
	}
	return pos, nil
}

// Package location obtains a single best-effort position fix.
package location

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultMaxAge  = 10 * time.Second
)

// Request carries the options passed to the platform location service.
type Request struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Position is a raw reading from a Source.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Source is the platform location service.
type Source interface {
	CurrentPosition(ctx context.Context, req Request) (Position, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (Position, error)

// CurrentPosition calls f.
func (f SourceFunc) CurrentPosition(ctx context.Context, req Request) (Position, error) {
	return f(ctx, req)
}

// Provider turns a Source into a fix-or-nothing lookup.
type Provider struct {
	source Source
	now    func() time.Time
	logger *zap.Logger
}

// NewProvider constructs a provider over source.
func NewProvider(source Source, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{source: source, now: time.Now, logger: logger}
}

type positionResult struct {
	pos Position
	err error
}

// GetFix requests one high-accuracy fix. It returns nil on error, timeout, a stale
// reading or unusable coordinates; it never fails the caller.
func (p *Provider) GetFix(ctx context.Context, timeout, maxAge time.Duration) *models.LocationFix {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if p == nil || p.source == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := Request{HighAccuracy: true, Timeout: timeout, MaximumAge: maxAge}
	done := make(chan positionResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- positionResult{err: fmt.Errorf("location source panic: %v", r)}
			}
		}()
		pos, err := p.source.CurrentPosition(ctx, req)
		done <- positionResult{pos: pos, err: err}
	}()

	var res positionResult
	select {
	case <-ctx.Done():
		p.unavailable("timeout", ctx.Err())
		return nil
	case res = <-done:
	}

	if res.err != nil {
		p.unavailable("provider error", res.err)
		return nil
	}
	if !res.pos.Timestamp.IsZero() && p.now().Sub(res.pos.Timestamp) > maxAge {
		p.unavailable("stale fix", fmt.Errorf("fix is %s old", p.now().Sub(res.pos.Timestamp).Round(time.Second)))
		return nil
	}
	fix := models.LocationFix{Latitude: res.pos.Latitude, Longitude: res.pos.Longitude}
	if !fix.Valid() {
		p.unavailable("invalid coordinates", fmt.Errorf("lat=%v lng=%v", fix.Latitude, fix.Longitude))
		return nil
	}
	return &fix
}

func (p *Provider) unavailable(reason string, err error) {
	p.logger.Warn("location unavailable",
		zap.String("code", appErrors.ErrLocationUnavailable.Code),
		zap.String("reason", reason),
		zap.Error(err))
}

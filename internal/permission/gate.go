// Package permission resolves camera, location and gallery permissions against the
// platform's permission API before a capture starts.
package permission

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
	appErrors "github.com/noah-isme/geophoto-api/pkg/errors"
)

// SettingsPrompter offers the user a redirect to the system settings screen.
type SettingsPrompter interface {
	OfferSettings(ctx context.Context, capability models.Capability, title, message string)
}

// CapabilityResult is the resolution of one requested capability.
type CapabilityResult struct {
	Capability      models.Capability
	Permission      string
	State           models.PermissionState
	Prompted        bool
	SettingsOffered bool
	Err             error
}

// Decision is the composite outcome of Ensure.
type Decision struct {
	Granted bool
	Results []CapabilityResult
}

// Failed lists the capabilities that did not end granted, in request order.
func (d Decision) Failed() []models.Capability {
	failed := make([]models.Capability, 0)
	for _, r := range d.Results {
		if !r.State.Usable() {
			failed = append(failed, r.Capability)
		}
	}
	return failed
}

// Err converts a rejection into a typed error naming the first failed capability.
func (d Decision) Err() error {
	if d.Granted {
		return nil
	}
	for _, r := range d.Results {
		if r.State.Usable() {
			continue
		}
		if r.State == models.PermissionBlocked {
			return appErrors.WrapAs(appErrors.ErrPermissionBlocked, r.Err,
				fmt.Sprintf("%s permission blocked, enable it in settings", r.Capability))
		}
		return appErrors.WrapAs(appErrors.ErrPermissionDenied, r.Err,
			fmt.Sprintf("%s permission denied", r.Capability))
	}
	return appErrors.Clone(appErrors.ErrPermissionDenied, "")
}

type strategy interface {
	resolve(ctx context.Context, caps []models.Capability) []CapabilityResult
}

// Gate checks and requests a set of capabilities through a platform strategy.
type Gate struct {
	platform models.Platform
	strategy strategy
	settings SettingsPrompter
	logger   *zap.Logger
}

// NewAndroidGate builds a gate using Android's check + batched request mechanics.
func NewAndroidGate(perms AndroidPermissions, settings SettingsPrompter, logger *zap.Logger) *Gate {
	return newGate(models.PlatformAndroid, &androidStrategy{perms: perms}, settings, logger)
}

// NewIOSGate builds a gate using the per-capability check-then-request mechanics.
func NewIOSGate(perms IOSPermissions, settings SettingsPrompter, logger *zap.Logger) *Gate {
	return newGate(models.PlatformIOS, &iosStrategy{perms: perms}, settings, logger)
}

// NewGate selects the strategy for the running platform.
func NewGate(platform models.Platform, android AndroidPermissions, ios IOSPermissions, settings SettingsPrompter, logger *zap.Logger) (*Gate, error) {
	switch platform {
	case models.PlatformAndroid:
		if android == nil {
			return nil, fmt.Errorf("android permission api not configured")
		}
		return NewAndroidGate(android, settings, logger), nil
	case models.PlatformIOS:
		if ios == nil {
			return nil, fmt.Errorf("ios permission api not configured")
		}
		return NewIOSGate(ios, settings, logger), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
}

func newGate(platform models.Platform, s strategy, settings SettingsPrompter, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{platform: platform, strategy: s, settings: settings, logger: logger}
}

// Platform reports which mechanics the gate uses.
func (g *Gate) Platform() models.Platform {
	return g.platform
}

// Ensure resolves every requested capability. It succeeds only when all end granted,
// so an empty set is granted without asking the platform. Platform state is
// re-queried on every call.
func (g *Gate) Ensure(ctx context.Context, caps ...models.Capability) Decision {
	requested, invalid := normalize(caps)
	results := make([]CapabilityResult, 0, len(requested)+len(invalid))
	for _, c := range invalid {
		results = append(results, CapabilityResult{
			Capability: c,
			State:      models.PermissionUnknown,
			Err:        appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown capability %q", c)),
		})
	}
	if len(requested) > 0 {
		results = append(results, g.strategy.resolve(ctx, requested)...)
	}

	granted := true
	for i := range results {
		r := &results[i]
		if r.State.Usable() {
			continue
		}
		granted = false
		if r.State == models.PermissionBlocked && g.settings != nil && !r.SettingsOffered {
			label := r.Capability.Label(g.platform)
			g.settings.OfferSettings(ctx, r.Capability,
				fmt.Sprintf("%s Permission", label),
				fmt.Sprintf("This feature requires %s permission. Please enable it in your settings.", strings.ToLower(label)))
			r.SettingsOffered = true
		}
		g.logger.Warn("permission not granted",
			zap.String("platform", string(g.platform)),
			zap.String("capability", string(r.Capability)),
			zap.String("state", string(r.State)),
			zap.Bool("prompted", r.Prompted),
			zap.Error(r.Err))
	}

	return Decision{Granted: granted, Results: results}
}

func normalize(caps []models.Capability) (valid, invalid []models.Capability) {
	seen := make(map[models.Capability]struct{}, len(caps))
	for _, c := range caps {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if c.Valid() {
			valid = append(valid, c)
		} else {
			invalid = append(invalid, c)
		}
	}
	return valid, invalid
}

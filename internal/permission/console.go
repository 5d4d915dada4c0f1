package permission

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/models"
)

// ConsolePlatform stands in for the OS permission store on headless devices.
// Grants are kept in a JSON file, like OS settings, and prompts are answered on
// the console. Every check reads the file again.
type ConsolePlatform struct {
	path     string
	in       *bufio.Reader
	out      io.Writer
	apiLevel int
	mu       sync.Mutex
}

// NewConsolePlatform builds the console-backed permission store.
func NewConsolePlatform(path string, in io.Reader, out io.Writer, apiLevel int) *ConsolePlatform {
	if path == "" {
		path = "./.geophoto-permissions.json"
	}
	return &ConsolePlatform{path: path, in: bufio.NewReader(in), out: out, apiLevel: apiLevel}
}

// Android exposes the store through the Android permission API.
func (p *ConsolePlatform) Android() AndroidPermissions {
	return consoleAndroid{p}
}

// IOS exposes the store through the iOS permission API.
func (p *ConsolePlatform) IOS() IOSPermissions {
	return consoleIOS{p}
}

// Path returns the location of the permission file.
func (p *ConsolePlatform) Path() string {
	return p.path
}

func (p *ConsolePlatform) load() (map[string]models.PermissionState, error) {
	states := make(map[string]models.PermissionState)
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return states, nil
		}
		return nil, fmt.Errorf("read permission store: %w", err)
	}
	if len(raw) == 0 {
		return states, nil
	}
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("decode permission store: %w", err)
	}
	return states, nil
}

func (p *ConsolePlatform) save(states map[string]models.PermissionState) error {
	raw, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("encode permission store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("prepare permission store: %w", err)
	}
	if err := os.WriteFile(p.path, raw, 0o600); err != nil {
		return fmt.Errorf("write permission store: %w", err)
	}
	return nil
}

func (p *ConsolePlatform) state(perm string) (models.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	states, err := p.load()
	if err != nil {
		return models.PermissionUnknown, err
	}
	if s, ok := states[perm]; ok {
		return s, nil
	}
	return models.PermissionDenied, nil
}

// ask prompts once and records the answer. denyAs is stored when the user declines.
func (p *ConsolePlatform) ask(ctx context.Context, perm string, denyAs models.PermissionState) (models.PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return models.PermissionUnknown, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Allow %s? [y]es / [n]o / [never]: ", perm)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return models.PermissionUnknown, fmt.Errorf("read prompt answer: %w", err)
	}

	answer := denyAs
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		answer = models.PermissionGranted
	case "never":
		answer = models.PermissionBlocked
	}

	states, err := p.load()
	if err != nil {
		return models.PermissionUnknown, err
	}
	states[perm] = answer
	if err := p.save(states); err != nil {
		return models.PermissionUnknown, err
	}
	return answer, nil
}

type consoleAndroid struct{ p *ConsolePlatform }

func (a consoleAndroid) Check(ctx context.Context, permission string) (bool, error) {
	s, err := a.p.state(permission)
	if err != nil {
		return false, err
	}
	return s.Usable(), nil
}

func (a consoleAndroid) RequestMultiple(ctx context.Context, permissions []string) (map[string]AndroidResult, error) {
	out := make(map[string]AndroidResult, len(permissions))
	for _, perm := range permissions {
		current, err := a.p.state(perm)
		if err != nil {
			return nil, err
		}
		// the OS ignores requests for permissions the user blocked
		if current == models.PermissionBlocked {
			out[perm] = AndroidNeverAskAgain
			continue
		}
		answer, err := a.p.ask(ctx, perm, models.PermissionDenied)
		if err != nil {
			return nil, err
		}
		switch answer {
		case models.PermissionGranted:
			out[perm] = AndroidGranted
		case models.PermissionBlocked:
			out[perm] = AndroidNeverAskAgain
		default:
			out[perm] = AndroidDenied
		}
	}
	return out, nil
}

func (a consoleAndroid) APILevel() int {
	return a.p.apiLevel
}

type consoleIOS struct{ p *ConsolePlatform }

func (i consoleIOS) Check(ctx context.Context, permission string) (models.PermissionState, error) {
	return i.p.state(permission)
}

// Request follows iOS: a declined prompt cannot be shown again.
func (i consoleIOS) Request(ctx context.Context, permission string) (models.PermissionState, error) {
	current, err := i.p.state(permission)
	if err != nil {
		return models.PermissionUnknown, err
	}
	if current != models.PermissionDenied {
		return current, nil
	}
	return i.p.ask(ctx, permission, models.PermissionBlocked)
}

// ConsoleSettings prints the settings redirect offer.
type ConsoleSettings struct {
	out       io.Writer
	storePath string
	logger    *zap.Logger
}

// NewConsoleSettings builds a settings prompter that points at the permission file.
func NewConsoleSettings(out io.Writer, storePath string, logger *zap.Logger) *ConsoleSettings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSettings{out: out, storePath: storePath, logger: logger}
}

func (s *ConsoleSettings) OfferSettings(ctx context.Context, capability models.Capability, title, message string) {
	fmt.Fprintf(s.out, "%s\n%s\nOpen Settings: edit %s\n", title, message, s.storePath)
	s.logger.Info("settings redirect offered", zap.String("capability", string(capability)))
}

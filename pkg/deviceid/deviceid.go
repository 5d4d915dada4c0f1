// Package deviceid resolves a stable identifier for the running installation.
package deviceid

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMachineIDPath is where systemd hosts keep their machine id.
const DefaultMachineIDPath = "/etc/machine-id"

// Resolver returns the same identifier for the lifetime of the process. Sources
// are tried in order: explicit value, machine id, persisted installation id.
// When none exist a new id is generated and persisted to IDFile.
type Resolver struct {
	Explicit      string
	MachineIDPath string
	IDFile        string

	once sync.Once
	id   string
	err  error
}

// NewResolver builds a resolver for the configured id and id file.
func NewResolver(explicit, idFile string) *Resolver {
	return &Resolver{Explicit: explicit, MachineIDPath: DefaultMachineIDPath, IDFile: idFile}
}

// ID returns the memoized identifier.
func (r *Resolver) ID() (string, error) {
	r.once.Do(func() {
		r.id, r.err = r.resolve()
	})
	return r.id, r.err
}

func (r *Resolver) resolve() (string, error) {
	if id := strings.TrimSpace(r.Explicit); id != "" {
		return id, nil
	}
	if id, err := readID(r.MachineIDPath); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}
	if id, err := readID(r.IDFile); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}
	if r.IDFile == "" {
		return "", errors.New("no device id source available")
	}

	id := uuid.NewString()
	if dir := filepath.Dir(r.IDFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create device id dir: %w", err)
		}
	}
	if err := os.WriteFile(r.IDFile, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}

func readID(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read device id from %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

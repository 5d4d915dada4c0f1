package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	ErrCodeCameraUnavailable = "camera_unavailable"
	ErrCodeFileNotFound      = "file_not_found"
	ErrCodeCaptureFailed     = "capture_failed"
)

// FilePicker serves the picker on headless devices. The library selection is a
// file path chosen up front; the camera runs an external capture command whose
// "{output}" argument is replaced with the destination file.
type FilePicker struct {
	Selection     string
	CameraCommand string
	PhotosDir     string
}

// LaunchLibrary returns the selected file, or a cancellation when nothing was chosen.
func (p *FilePicker) LaunchLibrary(ctx context.Context, opts LibraryOptions) (PickerResponse, error) {
	if strings.TrimSpace(p.Selection) == "" {
		return PickerResponse{DidCancel: true}, nil
	}
	return assetResponse(p.Selection)
}

// LaunchCamera runs the capture command into the photos directory.
func (p *FilePicker) LaunchCamera(ctx context.Context, opts CameraOptions) (PickerResponse, error) {
	args := strings.Fields(p.CameraCommand)
	if len(args) == 0 {
		return PickerResponse{ErrorCode: ErrCodeCameraUnavailable, ErrorMessage: "no camera command configured"}, nil
	}
	dir := p.PhotosDir
	if dir == "" || !opts.SaveToPhotos {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return PickerResponse{}, fmt.Errorf("prepare photos dir: %w", err)
	}
	out := filepath.Join(dir, fmt.Sprintf("IMG_%d.jpg", time.Now().UnixNano()))
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{output}", out)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return PickerResponse{DidCancel: true}, nil
		}
		return PickerResponse{ErrorCode: ErrCodeCaptureFailed, ErrorMessage: strings.TrimSpace(fmt.Sprintf("%v: %s", err, output))}, nil
	}
	return assetResponse(out)
}

func assetResponse(path string) (PickerResponse, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return PickerResponse{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PickerResponse{ErrorCode: ErrCodeFileNotFound, ErrorMessage: abs + " does not exist"}, nil
		}
		return PickerResponse{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return PickerResponse{ErrorCode: ErrCodeFileNotFound, ErrorMessage: abs + " is a directory"}, nil
	}
	mtype, err := mimetype.DetectFile(abs)
	if err != nil {
		return PickerResponse{}, fmt.Errorf("detect type of %s: %w", abs, err)
	}
	return PickerResponse{Assets: []Asset{{
		URI:      "file://" + filepath.ToSlash(abs),
		FileName: info.Name(),
		Type:     mtype.String(),
		FileSize: info.Size(),
	}}}, nil
}

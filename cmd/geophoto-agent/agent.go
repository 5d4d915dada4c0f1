package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/internal/location"
	"github.com/noah-isme/geophoto-api/internal/media"
	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/internal/permission"
	"github.com/noah-isme/geophoto-api/internal/repository"
	"github.com/noah-isme/geophoto-api/internal/service"
	"github.com/noah-isme/geophoto-api/pkg/config"
	"github.com/noah-isme/geophoto-api/pkg/deviceid"
	"github.com/noah-isme/geophoto-api/pkg/storage"
)

var errNoLocationSource = errors.New("no location source configured, set LOCATION_FIX_FILE or LOCATION_LATITUDE/LOCATION_LONGITUDE")

type agent struct {
	cfg    *config.Config
	logger *zap.Logger
	in     io.Reader
	out    io.Writer
}

func (a *agent) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "capture":
		return a.capture(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "map":
		return a.mapPins(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "device-id":
		id, err := deviceid.NewResolver(a.cfg.Device.ID, a.cfg.Device.IDFile).ID()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, id)
		return nil
	case "help", "-h", "--help":
		printUsage(a.out)
		return nil
	default:
		printUsage(a.out)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *agent) capture(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("capture", pflag.ContinueOnError)
	origin := flags.StringP("origin", "o", string(models.OriginCamera), "image source: camera or gallery")
	file := flags.StringP("file", "f", "", "image chosen from the gallery")
	photosDir := flags.String("photos-dir", "./photos", "where camera captures are saved")
	permFile := flags.String("permissions", "", "permission store file")
	if err := flags.Parse(args); err != nil {
		return err
	}
	imageOrigin := models.ImageOrigin(*origin)
	if !imageOrigin.Valid() {
		return fmt.Errorf("unknown origin %q", *origin)
	}

	platform := models.ParsePlatform(a.cfg.Device.Platform)
	console := permission.NewConsolePlatform(*permFile, a.in, a.out, a.cfg.Device.APILevel)
	gate, err := permission.NewGate(platform, console.Android(), console.IOS(),
		permission.NewConsoleSettings(a.out, console.Path(), a.logger), a.logger)
	if err != nil {
		return err
	}

	picker := &media.FilePicker{Selection: *file, CameraCommand: a.cfg.Capture.CameraCommand, PhotosDir: *photosDir}
	uploads, closeStore, err := a.uploadService(ctx)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	captures := service.NewCaptureService(gate, location.NewProvider(a.locationSource(), a.logger),
		media.NewAcquirer(picker, a.logger), uploads, nil, a.logger, service.CaptureConfig{
			RequireLocation: a.cfg.Capture.RequireLocation,
			LocationTimeout: a.cfg.Location.Timeout,
			LocationMaxAge:  a.cfg.Location.MaxAge,
		})

	result, record, err := captures.CaptureAndUpload(ctx, imageOrigin)
	if err != nil {
		return err
	}
	if result.Status == models.AcquisitionCancelled {
		fmt.Fprintln(a.out, "capture cancelled")
		return nil
	}
	return a.printJSON(record)
}

func (a *agent) list(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	platform := flags.String("platform", "", "add map links for android or ios")
	if err := flags.Parse(args); err != nil {
		return err
	}
	gallery, deviceID, closeStore, err := a.galleryService(ctx)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	items, err := gallery.List(ctx, deviceID)
	if err != nil {
		return err
	}
	if *platform != "" {
		service.AttachMapLinks(items, models.ParsePlatform(*platform))
	}
	return a.printJSON(items)
}

func (a *agent) mapPins(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("map", pflag.ContinueOnError)
	platform := flags.String("platform", a.cfg.Device.Platform, "deep link style: android or ios")
	if err := flags.Parse(args); err != nil {
		return err
	}
	gallery, deviceID, closeStore, err := a.galleryService(ctx)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	pins, err := gallery.MapPins(ctx, deviceID, models.ParsePlatform(*platform))
	if err != nil {
		return err
	}
	return a.printJSON(pins)
}

func (a *agent) export(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("export", pflag.ContinueOnError)
	format := flags.String("format", service.ExportFormatCSV, "csv or pdf")
	outDir := flags.String("out", ".", "directory to write the export into")
	if err := flags.Parse(args); err != nil {
		return err
	}
	gallery, deviceID, closeStore, err := a.galleryService(ctx)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	file, err := gallery.Export(ctx, deviceID, *format)
	if err != nil {
		return err
	}
	path := filepath.Join(*outDir, file.Name)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintln(a.out, path)
	return nil
}

func (a *agent) uploadService(ctx context.Context) (*service.UploadService, func() error, error) {
	store, closeStore, err := repository.OpenPhotoStore(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open photo store: %w", err)
	}
	uploader, err := storage.Open(ctx, a.cfg.ObjectStore, a.logger)
	if err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("open object store: %w", err)
	}
	resolver := deviceid.NewResolver(a.cfg.Device.ID, a.cfg.Device.IDFile)
	return service.NewUploadService(store, resolver, uploader, nil, nil, validator.New(), a.logger), closeStore, nil
}

func (a *agent) galleryService(ctx context.Context) (*service.GalleryService, string, func() error, error) {
	deviceID, err := deviceid.NewResolver(a.cfg.Device.ID, a.cfg.Device.IDFile).ID()
	if err != nil {
		return nil, "", nil, err
	}
	store, closeStore, err := repository.OpenPhotoStore(ctx, a.cfg)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open photo store: %w", err)
	}
	return service.NewGalleryService(store, nil, nil, a.logger, nil, nil), deviceID, closeStore, nil
}

func (a *agent) locationSource() location.Source {
	switch {
	case a.cfg.Location.Static:
		return location.StaticSource{Latitude: a.cfg.Location.Latitude, Longitude: a.cfg.Location.Longitude}
	case a.cfg.Location.FixFile != "":
		return location.FixFileSource{Path: a.cfg.Location.FixFile}
	default:
		return location.SourceFunc(func(context.Context, location.Request) (location.Position, error) {
			return location.Position{}, errNoLocationSource
		})
	}
}

func (a *agent) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command geophoto-agent runs the capture workflow on a device: it negotiates
// permissions, takes a location fix, acquires an image and persists a geotagged
// record. It also browses and exports the device's gallery.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/geophoto-api/pkg/config"
	"github.com/noah-isme/geophoto-api/pkg/logger"
)

const usage = `usage: geophoto-agent <command> [flags]

commands:
  capture    take or pick a photo and save it with the current location
  list       print the device's photos, newest first
  map        print map pins for located photos
  export     write the gallery as csv or pdf
  device-id  print this device's identifier
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if _, set := os.LookupEnv("STORE_DRIVER"); !set {
		cfg.Store.Driver = config.StoreDriverSQLite
	}
	if cfg.Log.Format == "" || cfg.Log.Format == "json" {
		cfg.Log.Format = "console"
	}

	logr, err := logger.New(cfg, "geophoto-agent")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &agent{cfg: cfg, logger: logr, in: os.Stdin, out: os.Stdout}
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
}

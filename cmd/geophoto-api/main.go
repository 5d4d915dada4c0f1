package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/geophoto-api/api/swagger"
	"github.com/noah-isme/geophoto-api/internal/handler"
	"github.com/noah-isme/geophoto-api/internal/repository"
	"github.com/noah-isme/geophoto-api/internal/service"
	"github.com/noah-isme/geophoto-api/pkg/cache"
	"github.com/noah-isme/geophoto-api/pkg/config"
	"github.com/noah-isme/geophoto-api/pkg/deviceid"
	"github.com/noah-isme/geophoto-api/pkg/logger"
	"github.com/noah-isme/geophoto-api/pkg/storage"
)

// @title GeoPhoto API
// @version 1.0.0
// @description Geotagged photo capture backend: device tokens, photo records, gallery and map views
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "geophoto-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	store, closeStore, err := repository.OpenPhotoStore(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open photo store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore() //nolint:errcheck

	checks := map[string]handler.Pinger{"store": store}

	var cacheRepo *repository.CacheRepository
	if cfg.Gallery.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("gallery cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client)
			defer cacheRepo.Close() //nolint:errcheck
			checks["cache"] = cacheRepo
		}
	}

	uploader, err := storage.Open(ctx, cfg.ObjectStore, logr)
	if err != nil {
		logr.Fatal("failed to open object store", zap.String("driver", cfg.ObjectStore.Driver), zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Gallery.CacheTTL, logr, cacheRepo != nil)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	uploadSvc := service.NewUploadService(store, deviceid.ContextSource{}, uploader, cacheSvc, metrics, validate, logr)
	gallerySvc := service.NewGalleryService(store, cacheSvc, metrics, logr, nil, nil)

	opts := handler.RouterOptions{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Auth:           authSvc,
		Photos:         handler.NewPhotoHandler(uploadSvc, gallerySvc, cfg.Capture.MaxUploadBytes, cfg.Capture.RequireLocation, logr),
		Devices:        handler.NewDeviceHandler(authSvc),
		Health:         handler.NewMetricsHandler(metrics, checks),
	}
	if local, ok := uploader.(*storage.LocalUploader); ok {
		opts.Images = handler.NewImageHandler(local)
	}

	r := handler.NewRouter(opts)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"store", cfg.Store.Driver,
		"object_store", cfg.ObjectStore.Driver,
		"gallery_cache", cacheRepo != nil)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/geophoto-api/internal/middleware"
	"github.com/noah-isme/geophoto-api/internal/models"
	"github.com/noah-isme/geophoto-api/internal/service"
	"github.com/noah-isme/geophoto-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/geophoto-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/geophoto-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.DeviceClaims, error)
}

// RouterOptions carries everything the HTTP surface is built from. Images may
// be nil when the local object store is not in use.
type RouterOptions struct {
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           tokenValidator
	Photos         *PhotoHandler
	Devices        *DeviceHandler
	Health         *MetricsHandler
	Images         *ImageHandler
}

// NewRouter assembles the gin engine with middleware and routes.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(opts.Metrics, "/metrics"))

	if opts.Health != nil {
		r.GET("/health", opts.Health.Health)
		r.GET("/ready", opts.Health.Ready)
		r.GET("/metrics", opts.Health.Prometheus)
	}
	if opts.Images != nil {
		r.GET("/images/:name", opts.Images.Serve)
	}

	api := r.Group(opts.APIPrefix)
	if opts.Devices != nil {
		api.POST("/devices/token", opts.Devices.Token)
	}

	if opts.Photos != nil {
		photos := api.Group("/photos")
		photos.Use(internalmiddleware.DeviceJWT(opts.Auth))
		photos.POST("", opts.Photos.Submit)
		photos.GET("", opts.Photos.List)
		photos.GET("/map", opts.Photos.Map)
		photos.GET("/export", opts.Photos.Export)
	}

	return r
}

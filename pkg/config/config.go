package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers supported by the metadata store.
const (
	StoreDriverPostgres  = "postgres"
	StoreDriverSQLite    = "sqlite"
	StoreDriverFirestore = "firestore"
)

// Object storage drivers for the optional binary upload step.
const (
	ObjectStoreNone  = "none"
	ObjectStoreS3    = "s3"
	ObjectStoreMinio = "minio"
	ObjectStoreLocal = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store       StoreConfig
	Database    DatabaseConfig
	SQLite      SQLiteConfig
	Firestore   FirestoreConfig
	Redis       RedisConfig
	Gallery     GalleryConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	ObjectStore ObjectStoreConfig
	Location    LocationConfig
	Device      DeviceConfig
	Capture     CaptureConfig
}

// StoreConfig selects the metadata store backend.
type StoreConfig struct {
	Driver     string
	Collection string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig points at the local database file used by the device agent.
type SQLiteConfig struct {
	Path string
}

// FirestoreConfig identifies the document store project.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GalleryConfig governs the per-device gallery cache.
type GalleryConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ObjectStoreConfig configures the optional binary upload step.
type ObjectStoreConfig struct {
	Driver       string
	Bucket       string
	KeyPrefix    string
	PresignTTL   time.Duration
	PublicURL    string
	S3           S3Config
	Minio        MinioConfig
	LocalDir     string
	SignedSecret string
}

// S3Config holds credentials for S3 compatible storage.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// MinioConfig holds MinIO connection settings.
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// LocationConfig tunes the single-shot location request.
type LocationConfig struct {
	Timeout   time.Duration
	MaxAge    time.Duration
	FixFile   string
	Latitude  float64
	Longitude float64
	Static    bool
}

// DeviceConfig controls how the device identity is derived.
type DeviceConfig struct {
	ID       string
	IDFile   string
	Platform string
	APILevel int
}

// CaptureConfig holds product policy for the capture workflow.
type CaptureConfig struct {
	RequireLocation bool
	MaxUploadBytes  int64
	CameraCommand   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver:     strings.ToLower(v.GetString("STORE_DRIVER")),
		Collection: v.GetString("STORE_COLLECTION"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.Firestore = FirestoreConfig{
		ProjectID:       v.GetString("FIRESTORE_PROJECT_ID"),
		CredentialsFile: v.GetString("FIRESTORE_CREDENTIALS_FILE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Gallery = GalleryConfig{
		CacheEnabled: v.GetBool("ENABLE_GALLERY_CACHE"),
		CacheTTL:     parseDuration(v.GetString("GALLERY_CACHE_TTL"), 2*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.ObjectStore = ObjectStoreConfig{
		Driver:     strings.ToLower(v.GetString("OBJECT_STORE_DRIVER")),
		Bucket:     v.GetString("OBJECT_STORE_BUCKET"),
		KeyPrefix:  v.GetString("OBJECT_STORE_KEY_PREFIX"),
		PresignTTL: parseDuration(v.GetString("OBJECT_STORE_PRESIGN_TTL"), 7*24*time.Hour),
		PublicURL:  v.GetString("OBJECT_STORE_PUBLIC_URL"),
		S3: S3Config{
			Endpoint:        v.GetString("S3_ENDPOINT"),
			Region:          v.GetString("S3_REGION"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		},
		Minio: MinioConfig{
			Endpoint:        v.GetString("MINIO_ENDPOINT"),
			AccessKeyID:     v.GetString("MINIO_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("MINIO_SECRET_ACCESS_KEY"),
			UseSSL:          v.GetBool("MINIO_USE_SSL"),
		},
		LocalDir:     v.GetString("LOCAL_STORAGE_DIR"),
		SignedSecret: v.GetString("LOCAL_STORAGE_SIGNED_URL_SECRET"),
	}

	cfg.Location = LocationConfig{
		Timeout:   parseDuration(v.GetString("LOCATION_TIMEOUT"), 15*time.Second),
		MaxAge:    parseDuration(v.GetString("LOCATION_MAX_AGE"), 10*time.Second),
		FixFile:   v.GetString("LOCATION_FIX_FILE"),
		Latitude:  v.GetFloat64("LOCATION_LATITUDE"),
		Longitude: v.GetFloat64("LOCATION_LONGITUDE"),
		Static:    v.IsSet("LOCATION_LATITUDE") && v.IsSet("LOCATION_LONGITUDE"),
	}

	cfg.Device = DeviceConfig{
		ID:       v.GetString("DEVICE_ID"),
		IDFile:   v.GetString("DEVICE_ID_FILE"),
		Platform: strings.ToLower(v.GetString("PLATFORM")),
		APILevel: v.GetInt("PLATFORM_API_LEVEL"),
	}

	maxUpload := v.GetInt64("MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 25 * 1024 * 1024
	}
	cfg.Capture = CaptureConfig{
		RequireLocation: v.GetBool("REQUIRE_LOCATION"),
		MaxUploadBytes:  maxUpload,
		CameraCommand:   v.GetString("CAMERA_COMMAND"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("STORE_COLLECTION", "GeoPhotos")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "geophoto")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("SQLITE_PATH", "./geophoto.db")

	v.SetDefault("FIRESTORE_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_CREDENTIALS_FILE", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_GALLERY_CACHE", false)
	v.SetDefault("GALLERY_CACHE_TTL", "2m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "720h")
	v.SetDefault("JWT_ISSUER", "geophoto-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OBJECT_STORE_DRIVER", ObjectStoreNone)
	v.SetDefault("OBJECT_STORE_BUCKET", "geophotos")
	v.SetDefault("OBJECT_STORE_KEY_PREFIX", "images")
	v.SetDefault("OBJECT_STORE_PRESIGN_TTL", "168h")
	v.SetDefault("OBJECT_STORE_PUBLIC_URL", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_PATH_STYLE", false)
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("LOCAL_STORAGE_DIR", "./uploads")
	v.SetDefault("LOCAL_STORAGE_SIGNED_URL_SECRET", "dev_images_secret")

	v.SetDefault("LOCATION_TIMEOUT", "15s")
	v.SetDefault("LOCATION_MAX_AGE", "10s")
	v.SetDefault("LOCATION_FIX_FILE", "")

	v.SetDefault("DEVICE_ID", "")
	v.SetDefault("DEVICE_ID_FILE", "./.geophoto-device-id")
	v.SetDefault("PLATFORM", "android")
	v.SetDefault("PLATFORM_API_LEVEL", 33)

	v.SetDefault("REQUIRE_LOCATION", true)
	v.SetDefault("MAX_UPLOAD_BYTES", 25*1024*1024)
	v.SetDefault("CAMERA_COMMAND", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

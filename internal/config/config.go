package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	CORS       CORSConfig
	Extraction ExtractionConfig
	Upload     UploadConfig
	Session    SessionConfig
	Export     ExportConfig
	S3         S3Config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// IsDevelopment reports whether the server runs in development mode.
func (s *ServerConfig) IsDevelopment() bool {
	return s.Environment == "development"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ExtractionConfig points at the remote document extraction service.
type ExtractionConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Path        string `mapstructure:"path"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// Endpoint returns the full URL submissions are posted to.
func (e *ExtractionConfig) Endpoint() string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(e.Path, "/")
}

// UploadConfig limits files accepted into slots.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// MaxBytes returns the size limit in bytes.
func (u *UploadConfig) MaxBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// SessionConfig holds settings for the signed session token and idle expiry.
type SessionConfig struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	TokenExpiry   time.Duration `mapstructure:"token_expiry"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	CookieName    string        `mapstructure:"cookie_name"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// ExportConfig holds export naming and archive settings.
type ExportConfig struct {
	BaseFilename    string `mapstructure:"base_filename"`
	ArchiveProvider string `mapstructure:"archive_provider"`
}

// S3Config holds AWS S3 settings for the export archive.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// Load reads configuration from an optional .env file and environment
// variables with the SOFDESK_ prefix.
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SOFDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (the two dev front-end origins)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://localhost:5173")

	// Extraction service defaults
	v.SetDefault("extraction.base_url", "http://localhost:8000")
	v.SetDefault("extraction.path", "/process-documents/")
	v.SetDefault("extraction.timeout_secs", 120)

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 50)

	// Session defaults
	v.SetDefault("session.secret", "change-me-in-production")
	v.SetDefault("session.issuer", "sofdesk")
	v.SetDefault("session.token_expiry", "8h")
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.sweep_interval", "60s")
	v.SetDefault("session.cookie_name", "sofdesk_session")
	v.SetDefault("session.cookie_secure", false)

	// Export defaults
	v.SetDefault("export.base_filename", "processed_data")
	v.SetDefault("export.archive_provider", "noop")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "sofdesk-exports")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "SOFDESK_SERVER_PORT",
		"server.read_timeout":     "SOFDESK_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "SOFDESK_SERVER_WRITE_TIMEOUT",
		"server.environment":      "SOFDESK_SERVER_ENVIRONMENT",
		"log.level":               "SOFDESK_LOG_LEVEL",
		"log.format":              "SOFDESK_LOG_FORMAT",
		"cors.allowed_origins":    "SOFDESK_CORS_ALLOWED_ORIGINS",
		"extraction.base_url":     "SOFDESK_EXTRACTION_BASE_URL",
		"extraction.path":         "SOFDESK_EXTRACTION_PATH",
		"extraction.timeout_secs": "SOFDESK_EXTRACTION_TIMEOUT_SECS",
		"upload.max_file_size_mb": "SOFDESK_UPLOAD_MAX_FILE_SIZE_MB",
		"session.secret":          "SOFDESK_SESSION_SECRET",
		"session.issuer":          "SOFDESK_SESSION_ISSUER",
		"session.token_expiry":    "SOFDESK_SESSION_TOKEN_EXPIRY",
		"session.idle_ttl":        "SOFDESK_SESSION_IDLE_TTL",
		"session.sweep_interval":  "SOFDESK_SESSION_SWEEP_INTERVAL",
		"session.cookie_name":     "SOFDESK_SESSION_COOKIE_NAME",
		"session.cookie_secure":   "SOFDESK_SESSION_COOKIE_SECURE",
		"export.base_filename":    "SOFDESK_EXPORT_BASE_FILENAME",
		"export.archive_provider": "SOFDESK_EXPORT_ARCHIVE_PROVIDER",
		"s3.region":               "SOFDESK_S3_REGION",
		"s3.bucket":               "SOFDESK_S3_BUCKET",
		"s3.endpoint":             "SOFDESK_S3_ENDPOINT",
		"s3.access_key":           "SOFDESK_S3_ACCESS_KEY",
		"s3.secret_key":           "SOFDESK_S3_SECRET_KEY",
		"s3.presign_expiry":       "SOFDESK_S3_PRESIGN_EXPIRY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if SOFDESK_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SOFDESK_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Extraction = ExtractionConfig{
		BaseURL:     v.GetString("extraction.base_url"),
		Path:        v.GetString("extraction.path"),
		TimeoutSecs: v.GetInt("extraction.timeout_secs"),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}
	cfg.Session = SessionConfig{
		Secret:        v.GetString("session.secret"),
		Issuer:        v.GetString("session.issuer"),
		TokenExpiry:   v.GetDuration("session.token_expiry"),
		IdleTTL:       v.GetDuration("session.idle_ttl"),
		SweepInterval: v.GetDuration("session.sweep_interval"),
		CookieName:    v.GetString("session.cookie_name"),
		CookieSecure:  v.GetBool("session.cookie_secure"),
	}
	cfg.Export = ExportConfig{
		BaseFilename:    v.GetString("export.base_filename"),
		ArchiveProvider: v.GetString("export.archive_provider"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Extraction.BaseURL) == "" {
		errs = append(errs, errors.New("extraction.base_url must be set"))
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("upload.max_file_size_mb must be positive"))
	}
	if !c.Server.IsDevelopment() && (c.Session.Secret == "" || c.Session.Secret == "change-me-in-production") {
		errs = append(errs, errors.New("session.secret must be set outside development"))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, errors.New("log.format must be console or json"))
	}
	switch c.Export.ArchiveProvider {
	case "", "noop", "s3":
	default:
		errs = append(errs, errors.New("export.archive_provider must be noop or s3"))
	}
	return errors.Join(errs...)
}

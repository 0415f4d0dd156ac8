package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Uploads     UploadsConfig
	Mail        MailConfig
	Complaints  ComplaintsConfig
	Maintenance MaintenanceConfig
	Exports     ExportsConfig
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

	ConnectRetries    int
	ConnectBackoff    time.Duration
	ConnectMaxBackoff time.Duration
	HealthInterval    time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig controls where attachments and profile pictures live.
type UploadsConfig struct {
	Dir                 string
	MaxFileSizeBytes    int64
	ProfilePicMIMETypes []string
}

// MailConfig configures the SMTP notification sink. An empty Host selects the log-only sink.
type MailConfig struct {
	Host                 string
	Port                 int
	User                 string
	Password             string
	From                 string
	FromName             string
	Timeout              time.Duration
	AdminDashboardURL    string
	ResolverDashboardURL string
	StudentDashboardURL  string
}

// ComplaintsConfig tunes lifecycle validation.
type ComplaintsConfig struct {
	EnforceResolverRole  bool
	TitleMaxLength       int
	DescriptionMinLength int
	DescriptionMaxLength int
}

// MaintenanceConfig schedules the periodic retention job.
type MaintenanceConfig struct {
	Enabled               bool
	Interval              time.Duration
	NotificationRetention time.Duration
}

// ExportsConfig controls report export storage and signed download links.
type ExportsConfig struct {
	Dir             string
	SignedURLSecret string
	SignedURLTTL    time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:              v.GetString("DB_HOST"),
		Port:              v.GetInt("DB_PORT"),
		User:              v.GetString("DB_USER"),
		Password:          v.GetString("DB_PASSWORD"),
		Name:              v.GetString("DB_NAME"),
		SSLMode:           v.GetString("DB_SSL_MODE"),
		MaxOpenConns:      v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:      v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectRetries:    v.GetInt("DB_CONNECT_RETRIES"),
		ConnectBackoff:    parseDuration(v.GetString("DB_CONNECT_BACKOFF"), time.Second),
		ConnectMaxBackoff: parseDuration(v.GetString("DB_CONNECT_MAX_BACKOFF"), 30*time.Second),
		HealthInterval:    parseDuration(v.GetString("DB_HEALTH_INTERVAL"), 30*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 2*time.Hour),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		MaxAge:         parseDuration(v.GetString("CORS_MAX_AGE"), 10*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:                 v.GetString("UPLOADS_DIR"),
		MaxFileSizeBytes:    maxUpload,
		ProfilePicMIMETypes: splitAndTrim(v.GetString("PROFILE_PIC_MIME_TYPES")),
	}

	cfg.Mail = MailConfig{
		Host:                 v.GetString("SMTP_HOST"),
		Port:                 v.GetInt("SMTP_PORT"),
		User:                 v.GetString("SMTP_USER"),
		Password:             v.GetString("SMTP_PASSWORD"),
		From:                 v.GetString("MAIL_FROM"),
		FromName:             v.GetString("MAIL_FROM_NAME"),
		Timeout:              parseDuration(v.GetString("SMTP_TIMEOUT"), 15*time.Second),
		AdminDashboardURL:    v.GetString("ADMIN_DASHBOARD_URL"),
		ResolverDashboardURL: v.GetString("RESOLVER_DASHBOARD_URL"),
		StudentDashboardURL:  v.GetString("STUDENT_DASHBOARD_URL"),
	}

	cfg.Complaints = ComplaintsConfig{
		EnforceResolverRole:  v.GetBool("ENFORCE_RESOLVER_ROLE"),
		TitleMaxLength:       v.GetInt("TITLE_MAX_LENGTH"),
		DescriptionMinLength: v.GetInt("DESCRIPTION_MIN_LENGTH"),
		DescriptionMaxLength: v.GetInt("DESCRIPTION_MAX_LENGTH"),
	}

	cfg.Maintenance = MaintenanceConfig{
		Enabled:               v.GetBool("ENABLE_MAINTENANCE"),
		Interval:              parseDuration(v.GetString("MAINTENANCE_INTERVAL"), 24*time.Hour),
		NotificationRetention: parseDuration(v.GetString("NOTIFICATION_RETENTION"), 30*24*time.Hour),
	}

	cfg.Exports = ExportsConfig{
		Dir:             v.GetString("EXPORTS_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "complaint_desk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_CONNECT_BACKOFF", "1s")
	v.SetDefault("DB_CONNECT_MAX_BACKOFF", "30s")
	v.SetDefault("DB_HEALTH_INTERVAL", "30s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "2h")

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CORS_MAX_AGE", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_DIR", "./uploads")
	v.SetDefault("UPLOAD_MAX_SIZE", 5*1024*1024)
	v.SetDefault("PROFILE_PIC_MIME_TYPES", "image/jpeg,image/png,image/gif,image/webp")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_FROM_NAME", "Complaint Desk")
	v.SetDefault("SMTP_TIMEOUT", "15s")
	v.SetDefault("ADMIN_DASHBOARD_URL", "http://localhost:3000/admin-dashboard/complaints")
	v.SetDefault("RESOLVER_DASHBOARD_URL", "http://localhost:3000/resolver-dashboard/complaints")
	v.SetDefault("STUDENT_DASHBOARD_URL", "http://localhost:3000/student-dashboard")

	v.SetDefault("ENFORCE_RESOLVER_ROLE", true)
	v.SetDefault("TITLE_MAX_LENGTH", 100)
	v.SetDefault("DESCRIPTION_MIN_LENGTH", 20)
	v.SetDefault("DESCRIPTION_MAX_LENGTH", 1000)

	v.SetDefault("ENABLE_MAINTENANCE", true)
	v.SetDefault("MAINTENANCE_INTERVAL", "24h")
	v.SetDefault("NOTIFICATION_RETENTION", "720h")

	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
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

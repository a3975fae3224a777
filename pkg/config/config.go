package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StorageDriverR2    = "r2"
	StorageDriverLocal = "local"

	devJWTSecret = "dev_secret"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	Org       OrgConfig
	Storage   StorageConfig
	Uploads   UploadConfig
	Chat      ChatConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectRetries int
	ConnectBackoff time.Duration
	AutoMigrate    bool
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL renders the connection string in URL form for the migration driver.
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
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

// AnalyticsConfig governs caching of the dashboard report.
type AnalyticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// OrgConfig describes the organization the deployment serves.
type OrgConfig struct {
	Name     string
	Timezone string
	Location *time.Location
}

// StorageConfig selects and configures the object store for uploads.
type StorageConfig struct {
	Driver          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
	PublicURL       string
	LocalDir        string
	LocalPublicURL  string
}

// UploadConfig bounds user supplied files.
type UploadConfig struct {
	MaxFileSizeBytes  int64
	ImageMaxDimension int
}

// ChatConfig configures the hosted language model used by the assistant.
type ChatConfig struct {
	Enabled       bool
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	RatePerMinute int
	Burst         int
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

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = strings.TrimRight(v.GetString("API_PREFIX"), "/")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectRetries: v.GetInt("DB_CONNECT_RETRIES"),
		ConnectBackoff: parseDuration(v.GetString("DB_CONNECT_BACKOFF"), 5*time.Second),
		AutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*time.Minute),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheEnabled: v.GetBool("ANALYTICS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Org = OrgConfig{
		Name:     v.GetString("ORG_NAME"),
		Timezone: v.GetString("ORG_TIMEZONE"),
	}

	cfg.Storage = StorageConfig{
		Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Endpoint:        v.GetString("R2_ENDPOINT"),
		AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
		SecretAccessKey: v.GetString("R2_SECRET_ACCESS_KEY"),
		Bucket:          v.GetString("R2_BUCKET"),
		Region:          v.GetString("R2_REGION"),
		UseSSL:          v.GetBool("R2_USE_SSL"),
		PublicURL:       strings.TrimRight(v.GetString("R2_PUBLIC_URL"), "/"),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		LocalPublicURL:  strings.TrimRight(v.GetString("STORAGE_LOCAL_PUBLIC_URL"), "/"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadConfig{
		MaxFileSizeBytes:  maxUpload,
		ImageMaxDimension: v.GetInt("UPLOAD_IMAGE_MAX_DIMENSION"),
	}

	cfg.Chat = ChatConfig{
		Enabled:       v.GetBool("CHAT_ENABLED"),
		APIKey:        v.GetString("HF_API_KEY"),
		BaseURL:       strings.TrimRight(v.GetString("HF_BASE_URL"), "/"),
		Model:         v.GetString("HF_MODEL"),
		MaxTokens:     v.GetInt("CHAT_MAX_TOKENS"),
		Temperature:   v.GetFloat64("CHAT_TEMPERATURE"),
		Timeout:       parseDuration(v.GetString("CHAT_TIMEOUT"), 30*time.Second),
		RatePerMinute: v.GetInt("CHAT_RATE_PER_MINUTE"),
		Burst:         v.GetInt("CHAT_BURST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings and resolves derived values. It is the
// startup gate: the process must not serve traffic with missing credentials.
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Driver {
	case StorageDriverR2:
		required := map[string]string{
			"R2_ENDPOINT":          c.Storage.Endpoint,
			"R2_ACCESS_KEY_ID":     c.Storage.AccessKeyID,
			"R2_SECRET_ACCESS_KEY": c.Storage.SecretAccessKey,
			"R2_BUCKET":            c.Storage.Bucket,
			"R2_PUBLIC_URL":        c.Storage.PublicURL,
		}
		for _, key := range []string{"R2_ENDPOINT", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET", "R2_PUBLIC_URL"} {
			if strings.TrimSpace(required[key]) == "" {
				problems = append(problems, key+" is required")
			}
		}
	case StorageDriverLocal:
		if c.Storage.LocalDir == "" {
			problems = append(problems, "STORAGE_LOCAL_DIR is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.Chat.Enabled && strings.TrimSpace(c.Chat.APIKey) == "" {
		problems = append(problems, "HF_API_KEY is required when CHAT_ENABLED is true")
	}

	if c.JWT.Secret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if c.Env == EnvProduction && c.JWT.Secret == devJWTSecret {
		problems = append(problems, "JWT_SECRET must be changed in production")
	}

	if c.Org.Timezone == "" {
		c.Org.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(c.Org.Timezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("invalid ORG_TIMEZONE %q", c.Org.Timezone))
	} else {
		c.Org.Location = loc
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "specs_nexus")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_CONNECT_BACKOFF", "5s")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "specs-nexus")

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "30m")
	v.SetDefault("JWT_ISSUER", "specs-nexus-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ANALYTICS_CACHE_ENABLED", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "5m")

	v.SetDefault("ORG_NAME", "SPECS")
	v.SetDefault("ORG_TIMEZONE", "Asia/Manila")

	v.SetDefault("STORAGE_DRIVER", StorageDriverR2)
	v.SetDefault("R2_REGION", "auto")
	v.SetDefault("R2_USE_SSL", true)
	v.SetDefault("STORAGE_LOCAL_DIR", "./static")
	v.SetDefault("STORAGE_LOCAL_PUBLIC_URL", "/static")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOAD_IMAGE_MAX_DIMENSION", 1600)

	v.SetDefault("CHAT_ENABLED", true)
	v.SetDefault("HF_BASE_URL", "https://router.huggingface.co/v1")
	v.SetDefault("HF_MODEL", "mistralai/Mixtral-8x7B-Instruct-v0.1")
	v.SetDefault("CHAT_MAX_TOKENS", 512)
	v.SetDefault("CHAT_TEMPERATURE", 0.7)
	v.SetDefault("CHAT_TIMEOUT", "30s")
	v.SetDefault("CHAT_RATE_PER_MINUTE", 10)
	v.SetDefault("CHAT_BURST", 3)
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

// internal/common/config/config.go
package config

import (
	"fmt"
	"strings"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	AWS           AWSConfig               `mapstructure:"aws"`
	Bedrock       BedrockConfig           `mapstructure:"bedrock"`
	Interpret     InterpretConfig         `mapstructure:"interpret"`
	Assets        AssetsConfig            `mapstructure:"assets"`
	Listing       ListingConfig           `mapstructure:"listing"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Stage       string `mapstructure:"stage"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// AWSConfig holds region, bucket and table names for the managed services.
type AWSConfig struct {
	Region     string `mapstructure:"region"`
	AccountID  string `mapstructure:"account_id"`
	PresignTTL int    `mapstructure:"presign_ttl"` // seconds

	Buckets struct {
		Uploads string `mapstructure:"uploads"`
		Assets  string `mapstructure:"assets"`
		Public  string `mapstructure:"public"`
	} `mapstructure:"buckets"`

	Tables struct {
		Products      string `mapstructure:"products"`
		Listings      string `mapstructure:"listings"`
		Conversations string `mapstructure:"conversations"`
		Messages      string `mapstructure:"messages"`
	} `mapstructure:"tables"`
}

// BedrockConfig configures the text and image models.
type BedrockConfig struct {
	TextModelID      string   `mapstructure:"text_model_id"`
	TextFallbackIDs  []string `mapstructure:"text_fallback_ids"`
	ImageModelID     string   `mapstructure:"image_model_id"`
	Temperature      float64  `mapstructure:"temperature"`
	TopP             float64  `mapstructure:"top_p"`
	MaxTokens        int      `mapstructure:"max_tokens"`
	ConnectTimeout   int      `mapstructure:"connect_timeout"` // milliseconds
	ReadTimeout      int      `mapstructure:"read_timeout"`    // milliseconds
	ClientMaxRetries int      `mapstructure:"client_max_retries"`

	// ImageProvider is derived from ImageModelID at load time and never read from file.
	ImageProvider ImageProvider `mapstructure:"-"`
}

// InterpretConfig holds the retry budget handed to the brief interpreter.
type InterpretConfig struct {
	Attempts int `mapstructure:"attempts"`
	DelayMS  int `mapstructure:"delay_ms"`
	CacheTTL int `mapstructure:"cache_ttl"` // seconds, 0 disables the cache
}

// AssetsConfig selects the document policy and optional capabilities.
type AssetsConfig struct {
	DocumentPolicy string `mapstructure:"document_policy"` // "triple" or "real_book"
	VideoEnabled   bool   `mapstructure:"video_enabled"`
}

type ListingConfig struct {
	DefaultPriceCents int    `mapstructure:"default_price_cents"`
	Currency          string `mapstructure:"currency"`
}

type DatabaseConfig struct {
	RecordStore string         `mapstructure:"record_store"` // "dynamodb" or "postgres"
	Postgres    PostgresConfig `mapstructure:"postgres"`
	Redis       RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// NotificationConfig holds settings for listing notifications.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ImageProvider is the image-generation vendor behind the configured model id.
type ImageProvider int

const (
	ProviderUnknown ImageProvider = iota
	ProviderTitanImage
	ProviderStableDiffusion
	ProviderTextOnly
)

func (p ImageProvider) String() string {
	switch p {
	case ProviderTitanImage:
		return "titan"
	case ProviderStableDiffusion:
		return "sdxl"
	case ProviderTextOnly:
		return "text_only"
	default:
		return "unknown"
	}
}

// GeneratesImages reports whether the provider can be asked for raster output.
func (p ImageProvider) GeneratesImages() bool {
	return p == ProviderTitanImage || p == ProviderStableDiffusion
}

// ResolveImageProvider maps a bedrock model id onto its vendor. Cross-region inference
// prefixes such as "us." or "eu." are ignored.
func ResolveImageProvider(modelID string) ImageProvider {
	mid := strings.ToLower(strings.TrimSpace(modelID))
	if i := strings.Index(mid, "."); i > 0 && i <= 4 {
		mid = mid[i+1:]
	}
	switch {
	case strings.HasPrefix(mid, "amazon.titan-image"):
		return ProviderTitanImage
	case strings.HasPrefix(mid, "stability.stable-diffusion"):
		return ProviderStableDiffusion
	case strings.Contains(mid, "anthropic"), strings.Contains(mid, "claude"):
		return ProviderTextOnly
	default:
		return ProviderUnknown
	}
}

// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	RecordStoreDynamo   = "dynamodb"
	RecordStorePostgres = "postgres"

	DocumentPolicyTriple   = "triple"
	DocumentPolicyRealBook = "real_book"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay is optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)
	cfg.Bedrock.ImageProvider = ResolveImageProvider(cfg.Bedrock.ImageModelID)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the flat environment variable names used by the deployment scripts.
func overrideEmptyConfig(cfg *Config) {
	envString := func(dst *string, name string) {
		if *dst == "" {
			if val := os.Getenv(name); val != "" {
				*dst = val
			}
		}
	}

	envString(&cfg.AWS.Region, "AWS_REGION")
	envString(&cfg.AWS.AccountID, "AWS_ACCOUNT_ID")
	envString(&cfg.App.Stage, "STAGE")
	envString(&cfg.Bedrock.TextModelID, "BEDROCK_TEXT_MODEL_ID")
	envString(&cfg.Bedrock.ImageModelID, "BEDROCK_IMAGE_MODEL_ID")
	envString(&cfg.AWS.Buckets.Uploads, "S3_BUCKET_UPLOADS")
	envString(&cfg.AWS.Buckets.Assets, "S3_BUCKET_ASSETS")
	envString(&cfg.AWS.Buckets.Public, "S3_BUCKET_PUBLIC")
	envString(&cfg.AWS.Tables.Products, "DDB_TABLE_PRODUCTS")
	envString(&cfg.AWS.Tables.Listings, "DDB_TABLE_LISTINGS")
	envString(&cfg.AWS.Tables.Conversations, "DDB_TABLE_CONVERSATIONS")
	envString(&cfg.AWS.Tables.Messages, "DDB_TABLE_MESSAGES")
	envString(&cfg.Database.Postgres.User, "DB_USER")
	envString(&cfg.Database.Postgres.Password, "DB_PASSWORD")

	if len(cfg.Bedrock.TextFallbackIDs) == 0 {
		if val := os.Getenv("BEDROCK_TEXT_FALLBACK_IDS"); val != "" {
			for _, id := range strings.Split(val, ",") {
				if id = strings.TrimSpace(id); id != "" {
					cfg.Bedrock.TextFallbackIDs = append(cfg.Bedrock.TextFallbackIDs, id)
				}
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "dreamforge-workers"
	}
	if cfg.App.Stage == "" {
		cfg.App.Stage = "dev"
	}
	if cfg.App.MetricsAddr == "" {
		cfg.App.MetricsAddr = ":9090"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-west-2"
	}
	if cfg.AWS.PresignTTL == 0 {
		cfg.AWS.PresignTTL = 300
	}
	stage := cfg.App.Stage
	setDefault := func(dst *string, value string) {
		if *dst == "" {
			*dst = value
		}
	}
	setDefault(&cfg.AWS.Buckets.Uploads, "kkt-uploads-"+stage)
	setDefault(&cfg.AWS.Buckets.Assets, "kkt-assets-"+stage)
	setDefault(&cfg.AWS.Buckets.Public, "kkt-public-"+stage)
	setDefault(&cfg.AWS.Tables.Products, "kkt_products_"+stage)
	setDefault(&cfg.AWS.Tables.Listings, "kkt_listings_"+stage)
	setDefault(&cfg.AWS.Tables.Conversations, "kkt_conversations_"+stage)
	setDefault(&cfg.AWS.Tables.Messages, "kkt_messages_"+stage)

	setDefault(&cfg.Bedrock.TextModelID, "us.anthropic.claude-sonnet-4-20250514-v1:0")
	setDefault(&cfg.Bedrock.ImageModelID, "us.amazon.titan-image-generator-v2:0")
	if cfg.Bedrock.Temperature == 0 {
		cfg.Bedrock.Temperature = 0.3
	}
	if cfg.Bedrock.TopP == 0 {
		cfg.Bedrock.TopP = 0.8
	}
	if cfg.Bedrock.ConnectTimeout == 0 {
		cfg.Bedrock.ConnectTimeout = 5000
	}
	if cfg.Bedrock.ReadTimeout == 0 {
		cfg.Bedrock.ReadTimeout = 90000
	}
	if cfg.Bedrock.ClientMaxRetries == 0 {
		cfg.Bedrock.ClientMaxRetries = 4
	}

	if cfg.Interpret.Attempts == 0 {
		cfg.Interpret.Attempts = 2
	}
	if cfg.Interpret.DelayMS == 0 {
		cfg.Interpret.DelayMS = 800
	}

	if cfg.Assets.DocumentPolicy == "" {
		cfg.Assets.DocumentPolicy = DocumentPolicyTriple
	}

	if cfg.Listing.DefaultPriceCents == 0 {
		cfg.Listing.DefaultPriceCents = 1500
	}
	if cfg.Listing.Currency == "" {
		cfg.Listing.Currency = "USD"
	}

	if cfg.Database.RecordStore == "" {
		cfg.Database.RecordStore = RecordStoreDynamo
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 120000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if cfg.Interpret.Attempts < 1 {
		return fmt.Errorf("interpret.attempts must be at least 1")
	}
	if cfg.Interpret.DelayMS < 0 {
		return fmt.Errorf("interpret.delay_ms must not be negative")
	}

	switch cfg.Assets.DocumentPolicy {
	case DocumentPolicyTriple, DocumentPolicyRealBook:
	default:
		return fmt.Errorf("assets.document_policy %q is not one of %q, %q",
			cfg.Assets.DocumentPolicy, DocumentPolicyTriple, DocumentPolicyRealBook)
	}

	switch cfg.Database.RecordStore {
	case RecordStoreDynamo:
	case RecordStorePostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	default:
		return fmt.Errorf("database.record_store %q is not supported", cfg.Database.RecordStore)
	}

	if cfg.Interpret.CacheTTL > 0 && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when interpret.cache_ttl is set")
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Notifications.SES.Enabled && cfg.Notifications.SES.FromEmail == "" {
		return fmt.Errorf("notifications.ses.from_email is required when ses is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       120000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}

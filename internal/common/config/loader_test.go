package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, name := range []string{
		"AWS_REGION", "STAGE", "BEDROCK_TEXT_MODEL_ID", "BEDROCK_IMAGE_MODEL_ID",
		"BEDROCK_TEXT_FALLBACK_IDS", "S3_BUCKET_ASSETS", "DDB_TABLE_PRODUCTS",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadFromFile_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
app:
  stage: prod
workers:
  interpret-brief:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "kkt-assets-prod", cfg.AWS.Buckets.Assets)
	assert.Equal(t, "kkt_products_prod", cfg.AWS.Tables.Products)
	assert.Equal(t, 2, cfg.Interpret.Attempts)
	assert.Equal(t, 800, cfg.Interpret.DelayMS)
	assert.Equal(t, DocumentPolicyTriple, cfg.Assets.DocumentPolicy)
	assert.Equal(t, RecordStoreDynamo, cfg.Database.RecordStore)
	assert.Equal(t, 1500, cfg.Listing.DefaultPriceCents)
	assert.Equal(t, "USD", cfg.Listing.Currency)
	assert.Equal(t, ProviderTitanImage, cfg.Bedrock.ImageProvider)

	w := GetWorkerConfig(cfg, "interpret-brief")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("DREAM_IMAGE_MODEL", "stability.stable-diffusion-xl-v1")
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
bedrock:
  image_model_id: ${DREAM_IMAGE_MODEL}
assets:
  document_policy: real_book
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderStableDiffusion, cfg.Bedrock.ImageProvider)
	assert.Equal(t, DocumentPolicyRealBook, cfg.Assets.DocumentPolicy)
}

func TestLoadFromFile_FallbackIDsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEDROCK_TEXT_FALLBACK_IDS", "model-a, model-b,,")
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"model-a", "model-b"}, cfg.Bedrock.TextFallbackIDs)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing broker",
			mutate:  func(c *Config) { c.Camunda.BrokerAddress = "" },
			wantErr: "camunda.broker_address",
		},
		{
			name:    "unknown document policy",
			mutate:  func(c *Config) { c.Assets.DocumentPolicy = "pdf_only" },
			wantErr: "assets.document_policy",
		},
		{
			name:    "postgres without host",
			mutate:  func(c *Config) { c.Database.RecordStore = RecordStorePostgres },
			wantErr: "database.postgres.host",
		},
		{
			name:    "cache without redis",
			mutate:  func(c *Config) { c.Interpret.CacheTTL = 60 },
			wantErr: "database.redis.address",
		},
		{
			name: "sns without topic",
			mutate: func(c *Config) {
				c.Notifications.SNS.Enabled = true
			},
			wantErr: "topic_arn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Camunda: CamundaConfig{BrokerAddress: "localhost:26500"}}
			applyDefaults(cfg)
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveImageProvider(t *testing.T) {
	tests := map[string]ImageProvider{
		"amazon.titan-image-generator-v1":            ProviderTitanImage,
		"us.amazon.titan-image-generator-v2:0":       ProviderTitanImage,
		"stability.stable-diffusion-xl-v1":           ProviderStableDiffusion,
		"us.anthropic.claude-sonnet-4-20250514-v1:0": ProviderTextOnly,
		"claude-instant":                             ProviderTextOnly,
		"meta.llama3":                                ProviderUnknown,
		"":                                           ProviderUnknown,
	}
	for id, want := range tests {
		assert.Equal(t, want, ResolveImageProvider(id), id)
	}
	assert.True(t, ProviderTitanImage.GeneratesImages())
	assert.False(t, ProviderTextOnly.GeneratesImages())
	assert.Equal(t, "sdxl", ProviderStableDiffusion.String())
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env: EnvDevelopment,
		JWT: JWTConfig{Secret: "secret"},
		Org: OrgConfig{Timezone: "Asia/Manila"},
		Storage: StorageConfig{
			Driver:          StorageDriverR2,
			Endpoint:        "account.r2.cloudflarestorage.com",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			Bucket:          "specs-nexus",
			PublicURL:       "https://cdn.example.com",
		},
		Chat: ChatConfig{Enabled: true, APIKey: "hf_key"},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	require.NotNil(t, cfg.Org.Location)
	assert.Equal(t, "Asia/Manila", cfg.Org.Location.String())
}

func TestValidateRejectsMissingStorageCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Bucket = ""
	cfg.Storage.SecretAccessKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "R2_BUCKET is required")
	assert.Contains(t, err.Error(), "R2_SECRET_ACCESS_KEY is required")
}

func TestValidateLocalDriverSkipsR2Credentials(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = StorageConfig{Driver: StorageDriverLocal, LocalDir: t.TempDir()}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresChatKeyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Chat.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg.Chat.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsDevSecretInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.Env = EnvProduction
	cfg.JWT.Secret = devJWTSecret
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Org.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/quickshift",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
		EmailProvider:      EmailProviderNoop,
		Platform:           DefaultPlatform(),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "production without secrets", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.RefreshTokenTTL = time.Minute }, wantErr: true},
		{name: "sendgrid without key", mutate: func(c *Config) { c.EmailProvider = EmailProviderSendGrid }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.EmailProvider = "pigeon" }, wantErr: true},
		{name: "fee rate out of range", mutate: func(c *Config) { c.Platform.Pricing.ServiceFeeRate = 1.5 }, wantErr: true},
		{name: "radius inverted", mutate: func(c *Config) { c.Platform.Notifications.MaxRadiusKm = 1 }, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadPlatformOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "platform.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pricing:\n  taxRate: 0.08\ninstantApply:\n  rule: \"ctx.userRating >= 4.0\"\n"), 0o600))

	platform, err := LoadPlatform(path)
	require.NoError(t, err)
	assert.Equal(t, 0.08, platform.Pricing.TaxRate)
	assert.Equal(t, 0.10, platform.Pricing.ServiceFeeRate)
	assert.Equal(t, "ctx.userRating >= 4.0", platform.InstantApply.Rule)
	assert.Equal(t, 25.0, platform.Notifications.DefaultRadiusKm)
}

func TestLoadPlatformMissingFile(t *testing.T) {
	platform, err := LoadPlatform(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlatform(), platform)
}

func TestLoadPlatformInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pricing: [oops"), 0o600))
	_, err := LoadPlatform(path)
	assert.Error(t, err)
}

func TestDefaultEmailProvider(t *testing.T) {
	assert.Equal(t, EmailProviderSendGrid, defaultEmailProvider(Config{SendGridAPIKey: "key"}))
	assert.Equal(t, EmailProviderSMTP, defaultEmailProvider(Config{SMTPHost: "smtp.local"}))
	assert.Equal(t, EmailProviderNoop, defaultEmailProvider(Config{}))
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("QS_TEST_RATE", "0.125")
	assert.Equal(t, 0.125, getEnvFloat("QS_TEST_RATE", 1))
	t.Setenv("QS_TEST_RATE", "abc")
	assert.Equal(t, 1.0, getEnvFloat("QS_TEST_RATE", 1))
	assert.Equal(t, 2.0, getEnvFloat("QS_TEST_UNSET", 2))
}

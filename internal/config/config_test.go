package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "MAX_UPLOAD_MB", "RECON_TOLERANCE", "AWS_REGION", "LEDGER_TABLE_NAME", "STATIC_DIR"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 32, cfg.MaxUploadMB)
	assert.Equal(t, "0.01", cfg.Tolerance.String())
	assert.Equal(t, "ap-south-1", cfg.AWSRegion)
	assert.False(t, cfg.LedgerEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("MAX_UPLOAD_MB", "8")
	t.Setenv("RECON_TOLERANCE", "1")
	t.Setenv("LEDGER_TABLE_NAME", "zenithbooks-ledger")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 8, cfg.MaxUploadMB)
	assert.Equal(t, "1", cfg.Tolerance.String())
	assert.True(t, cfg.LedgerEnabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFromEnvInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"MAX_UPLOAD_MB", "lots"},
		{"MAX_UPLOAD_MB", "0"},
		{"RECON_TOLERANCE", "-0.5"},
		{"RECON_TOLERANCE", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

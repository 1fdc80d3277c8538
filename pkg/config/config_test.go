package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "DB_DSN", "DB_AUTO_MIGRATE", "JWT_SECRET", "SESSION_IDLE_MINUTES", "FRAME_RATE_LIMIT", "FRAME_RATE_BURST", "OCR_LANG", "UPLOAD_BASE"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "uploads", cfg.Server.UploadBase)
	assert.False(t, cfg.Database.Enabled())
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 10*time.Minute, cfg.Scan.SessionIdle)
	assert.Equal(t, []string{"eng"}, cfg.Scan.Languages)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DSN", "postgres://localhost/ibanscan")
	t.Setenv("DB_AUTO_MIGRATE", "no")
	t.Setenv("SESSION_IDLE_MINUTES", "2")
	t.Setenv("OCR_LANG", "eng+tur")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Database.Enabled())
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 2*time.Minute, cfg.Scan.SessionIdle)
	assert.Equal(t, []string{"eng", "tur"}, cfg.Scan.Languages)
}

func TestLoadRejectsNonPositive(t *testing.T) {
	t.Setenv("SESSION_IDLE_MINUTES", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvAsBool(t *testing.T) {
	cases := map[string]bool{"true": true, "1": true, "yes": true, "0": false, "false": false, "NO": false}
	for in, want := range cases {
		t.Setenv("FLAG_UNDER_TEST", in)
		assert.Equal(t, want, getEnvAsBool("FLAG_UNDER_TEST", !want), in)
	}
	t.Setenv("FLAG_UNDER_TEST", "maybe")
	assert.True(t, getEnvAsBool("FLAG_UNDER_TEST", true))
}

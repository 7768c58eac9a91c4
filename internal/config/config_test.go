package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 60*time.Second, cfg.Reminders.ScanInterval)
	assert.Equal(t, 5*time.Minute, cfg.Reminders.GraceWindow)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	content := `
reminders:
  scaninterval: 30s
  gracewindow: 10m
email:
  provider: smtp
  host: smtp.example.com
  port: 2525
messaging:
  linkbase: https://example.com/send/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Reminders.ScanInterval)
	assert.Equal(t, 10*time.Minute, cfg.Reminders.GraceWindow)
	assert.Equal(t, 10000, cfg.Reminders.MaxExpansionIterations)
	assert.Equal(t, EmailProviderSMTP, cfg.Email.Provider)
	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
	assert.Equal(t, 2525, cfg.Email.Port)
	assert.Equal(t, "https://example.com/send/", cfg.Messaging.LinkBase)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db:\n  host: db.internal\n"), 0644))
	t.Setenv("AGENDLY_DB_HOST", "db.from.env")
	t.Setenv("AGENDLY_REMINDERS_GRACEWINDOW", "2m")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "db.from.env", cfg.Database.Host)
	assert.Equal(t, 2*time.Minute, cfg.Reminders.GraceWindow)
}

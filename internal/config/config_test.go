package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, int64(5242880), cfg.MaxSourceBytes)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, 30*time.Second, cfg.RenderTimeout)
	assert.Equal(t, "bodies", cfg.SectionMode)
	assert.Equal(t, "pdf", cfg.DefaultFormat)
	assert.Equal(t, "A4", cfg.PDFPaper)
	assert.Equal(t, 56.0, cfg.PDFMargin)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TEXPAD_PORT", "9000")
	t.Setenv("TEXPAD_API_KEY", "secret")
	t.Setenv("TEXPAD_WORKER_COUNT", "8")
	t.Setenv("TEXPAD_JOB_TTL", "10m")
	t.Setenv("TEXPAD_SECTION_MODE", "TITLES")
	t.Setenv("TEXPAD_PDF_PAPER", "Letter")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 10*time.Minute, cfg.JobTTL)
	assert.Equal(t, "titles", cfg.SectionMode)
	assert.Equal(t, "Letter", cfg.PDFPaper)
}

func TestLoad_NonPositiveFallsBack(t *testing.T) {
	t.Setenv("TEXPAD_WORKER_COUNT", "0")
	t.Setenv("TEXPAD_MAX_QUEUE_SIZE", "-1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxQueueSize)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texpad.yaml")
	yaml := "port: \"7000\"\ndefault_format: docx\npdf:\n  paper: A5\n  margin: 40\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("TEXPAD_PORT", "7100")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Port, "env wins over file")
	assert.Equal(t, "docx", cfg.DefaultFormat)
	assert.Equal(t, "A5", cfg.PDFPaper)
	assert.Equal(t, 40.0, cfg.PDFMargin)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"bad section mode", func(c *Config) { c.SectionMode = "chapters" }},
		{"bad format", func(c *Config) { c.DefaultFormat = "ps" }},
		{"negative margin", func(c *Config) { c.PDFMargin = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	// Auth. Empty disables bearer auth.
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxSourceBytes int64

	// Job state
	JobTTL        time.Duration
	RenderTimeout time.Duration

	// Extraction and output
	SectionMode   string
	DefaultFormat string

	// PDF
	PDFPaper  string
	PDFMargin float64

	LogLevel string
}

// Load reads configuration from an optional YAML file and TEXPAD_-prefixed
// environment variables, env taking precedence.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TEXPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8090")
	v.SetDefault("api_key", "")
	v.SetDefault("worker_count", 4)
	v.SetDefault("max_queue_size", 100)
	v.SetDefault("max_source_bytes", 5242880) // 5MB
	v.SetDefault("job_ttl", "1h")
	v.SetDefault("render_timeout", "30s")
	v.SetDefault("section_mode", "bodies")
	v.SetDefault("default_format", "pdf")
	v.SetDefault("pdf.paper", "A4")
	v.SetDefault("pdf.margin", 56.0)
	v.SetDefault("log.level", "info")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Port:           v.GetString("port"),
		APIKey:         v.GetString("api_key"),
		WorkerCount:    v.GetInt("worker_count"),
		MaxQueueSize:   v.GetInt("max_queue_size"),
		MaxSourceBytes: v.GetInt64("max_source_bytes"),
		JobTTL:         v.GetDuration("job_ttl"),
		RenderTimeout:  v.GetDuration("render_timeout"),
		SectionMode:    strings.ToLower(v.GetString("section_mode")),
		DefaultFormat:  strings.ToLower(v.GetString("default_format")),
		PDFPaper:       v.GetString("pdf.paper"),
		PDFMargin:      v.GetFloat64("pdf.margin"),
		LogLevel:       v.GetString("log.level"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = 5242880
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	switch c.SectionMode {
	case "titles", "bodies":
	default:
		return fmt.Errorf("section_mode must be titles or bodies, got %q", c.SectionMode)
	}
	switch c.DefaultFormat {
	case "pdf", "docx", "html":
	default:
		return fmt.Errorf("default_format must be pdf, docx or html, got %q", c.DefaultFormat)
	}
	if c.PDFMargin < 0 {
		return fmt.Errorf("pdf.margin must not be negative, got %v", c.PDFMargin)
	}
	return nil
}

package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/texpad/internal/config"
	"github.com/dgallion1/texpad/internal/parser"
	"github.com/dgallion1/texpad/internal/render"
	"github.com/dgallion1/texpad/internal/render/pdf"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "texpad",
	Short: "LaTeX fragment extraction and document preview",
	Long: `texpad recognises the structure of a LaTeX source (title, author, date,
headings, display math and lists) and assembles it into a previewable
PDF, DOCX or HTML document.

It runs as an HTTP editor backend (serve) or as a command line tool
(compile, parse, watch).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		pdf.DisableConfigDir()

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (YAML); TEXPAD_* env vars override it",
	)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

func newExtractor(mode string) (*parser.Extractor, error) {
	m, err := parser.ParseSectionMode(mode)
	if err != nil {
		return nil, err
	}
	return parser.New(parser.Options{SectionMode: m}), nil
}

func newRegistry(c config.Config) *render.Registry {
	return render.Default(pdf.Config{Paper: c.PDFPaper, Margin: c.PDFMargin}, c.DefaultFormat)
}

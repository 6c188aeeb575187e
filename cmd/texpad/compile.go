package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/texpad/internal/assemble"
	"github.com/dgallion1/texpad/internal/parser"
	"github.com/dgallion1/texpad/internal/pipeline"
)

var (
	compileFormat string
	compileOutDir string
)

var compileCmd = &cobra.Command{
	Use:   "compile FILE...",
	Short: "Compile LaTeX files to PDF, DOCX or HTML",
	Long: `Compile one or more .tex files concurrently. Each output is written next
to its source (or into --out-dir) as <stem>.<format>.

Examples:
  texpad compile main.tex
  texpad compile --format docx --out-dir build ch1.tex ch2.tex`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(os.Stderr, cfg.LogLevel)
		extractor, err := newExtractor(cfg.SectionMode)
		if err != nil {
			return err
		}
		renderer, err := newRegistry(cfg).Get(compileFormat)
		if err != nil {
			return err
		}
		c := compiler{
			extractor:     extractor,
			assembler:     assemble.New(renderer),
			maxBytes:      cfg.MaxSourceBytes,
			renderTimeout: cfg.RenderTimeout,
		}

		outputs, err := c.compileAll(cmd.Context(), args, compileOutDir, cfg.WorkerCount)
		for _, out := range outputs {
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
		}
		if err != nil {
			log.Error("compile failed", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileFormat, "format", "f", "", "output format: pdf, docx or html (default from config)")
	compileCmd.Flags().StringVar(&compileOutDir, "out-dir", "", "directory for outputs (default: next to each source)")

	rootCmd.AddCommand(compileCmd)
}

type compiler struct {
	extractor     *parser.Extractor
	assembler     *assemble.Assembler
	maxBytes      int64
	renderTimeout time.Duration
}

// compileAll compiles files concurrently, at most limit at a time. The
// returned slice holds output paths in argument order; failed entries are
// empty. The first error cancels files not yet started.
func (c compiler) compileAll(ctx context.Context, files []string, outDir string, limit int) ([]string, error) {
	outputs := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, path := range files {
		g.Go(func() error {
			out, err := c.compileFile(ctx, path, outDir)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			outputs[i] = out
			return nil
		})
	}
	return outputs, g.Wait()
}

func (c compiler) compileFile(ctx context.Context, path, outDir string) (string, error) {
	if err := parser.CheckCompilable(path); err != nil {
		return "", err
	}
	src, err := readSource(path, c.maxBytes)
	if err != nil {
		return "", err
	}

	if c.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.renderTimeout)
		defer cancel()
	}
	data, err := c.assembler.Assemble(ctx, c.extractor.Extract(src))
	if err != nil {
		return "", err
	}

	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return writeOutput(dir, pipeline.OutputName(path, c.assembler.Renderer().Ext()), data)
}

func readSource(path string, maxBytes int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", fmt.Errorf("source exceeds max size (%d bytes)", maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeOutput atomically replaces dir/name with data.
func writeOutput(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	out := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", err
	}
	return out, nil
}

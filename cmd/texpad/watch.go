package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgallion1/texpad/internal/pipeline"
)

var (
	watchFormat string
	watchOutDir string
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Recompile a LaTeX file whenever it changes",
	Long: `Compile FILE once, then again on every write. When edits arrive faster
than compiles finish, only the newest result is written.

Examples:
  texpad watch main.tex
  texpad watch --format html --out-dir preview main.tex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger(os.Stderr, cfg.LogLevel)

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		orch, err := pipeline.NewOrchestrator(cfg, newRegistry(cfg), log)
		if err != nil {
			return err
		}
		orch.Start(context.WithoutCancel(ctx))
		defer orch.Stop()

		w := &watcher{
			orch:     orch,
			path:     path,
			outDir:   watchOutDir,
			format:   watchFormat,
			maxBytes: cfg.MaxSourceBytes,
			log:      log.With("file", path),
			out:      cmd.OutOrStdout(),
		}
		return w.run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "", "output format: pdf, docx or html (default from config)")
	watchCmd.Flags().StringVar(&watchOutDir, "out-dir", "", "directory for the output (default: next to the source)")

	rootCmd.AddCommand(watchCmd)
}

type watcher struct {
	orch     *pipeline.Orchestrator
	path     string
	outDir   string
	format   string
	maxBytes int64
	log      *slog.Logger
	out      io.Writer

	wg      sync.WaitGroup
	mu      sync.Mutex
	written uint64
}

// run compiles once and then on every write until ctx ends. The parent
// directory is watched so editors that replace the file are followed.
func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	defer w.wg.Wait()

	w.trigger(ctx)
	w.log.Info("watching")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.trigger(ctx)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// trigger snapshots the file and queues a compile.
func (w *watcher) trigger(ctx context.Context) {
	src, err := readSource(w.path, w.maxBytes)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn("read failed", "error", err)
		}
		return
	}
	job, err := w.orch.Compile("", w.path, filepath.Base(w.path), src, w.format)
	if err != nil {
		w.log.Warn("compile not queued", "error", err)
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.collect(ctx, job)
	}()
}

// collect writes the job's output unless a newer invocation already won.
func (w *watcher) collect(ctx context.Context, job *pipeline.Job) {
	if err := job.Wait(ctx); err != nil {
		return
	}
	snap := job.Snapshot()
	log := w.log.With("seq", snap.Seq)
	switch {
	case snap.Status == pipeline.StatusFailed:
		log.Error("compile failed", "errors", snap.Errors)
		return
	case snap.Stale:
		log.Debug("superseded result ignored")
		return
	}

	res, err := w.orch.Latest(w.path, snap.Format)
	if err != nil {
		log.Error("no output", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if res.Seq <= w.written {
		return
	}
	dir := w.outDir
	if dir == "" {
		dir = filepath.Dir(w.path)
	}
	out, err := writeOutput(dir, res.Filename, res.Data)
	if err != nil {
		log.Error("write failed", "error", err)
		return
	}
	w.written = res.Seq
	log.Info("compiled", "output", out, "bytes", len(res.Data))
	fmt.Fprintln(w.out, out)
}

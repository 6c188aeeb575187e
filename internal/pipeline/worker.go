package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/texpad/internal/assemble"
	"github.com/dgallion1/texpad/internal/parser"
	"github.com/dgallion1/texpad/internal/render"
)

// Worker compiles a single job: extract, then assemble.
type Worker struct {
	extractor     *parser.Extractor
	renderers     *render.Registry
	results       *ResultStore
	stats         *RenderStats
	log           *slog.Logger
	renderTimeout time.Duration
}

func NewWorker(extractor *parser.Extractor, renderers *render.Registry, results *ResultStore, stats *RenderStats, log *slog.Logger, renderTimeout time.Duration) *Worker {
	return &Worker{
		extractor:     extractor,
		renderers:     renderers,
		results:       results,
		stats:         stats,
		log:           log,
		renderTimeout: renderTimeout,
	}
}

// Process runs the compile pipeline for a job and records its result.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file_id", job.FileID, "format", job.Format, "seq", job.Seq)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	if err := parser.CheckCompilable(job.Filename); err != nil {
		log.Warn("not compilable", "error", err)
		job.Fail("parsing", err)
		return
	}
	summary := w.extractor.Extract(job.Source())
	log.Debug("extracted summary",
		"sections", len(summary.Sections),
		"math", len(summary.MathExpressions),
		"lists", len(summary.Lists))

	// Phase 2: Assemble
	job.SetStatus(StatusAssembling, "assembling")
	renderer, err := w.renderers.Get(job.Format)
	if err != nil {
		log.Error("no renderer", "error", err)
		job.Fail("assembling", err)
		return
	}

	renderCtx := ctx
	if w.renderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, w.renderTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := assemble.New(renderer).Assemble(renderCtx, summary)
	w.stats.Record(renderer.Format(), time.Since(start), err != nil)
	if err != nil {
		log.Error("assemble failed", "error", err)
		job.Fail("assembling", fmt.Errorf("assemble: %w", err))
		return
	}

	res := Result{
		FileID:      job.FileID,
		Format:      renderer.Format(),
		Seq:         job.Seq,
		Filename:    OutputName(job.Filename, renderer.Ext()),
		ContentType: renderer.ContentType(),
		Data:        data,
		ETag:        ContentHashHex(data),
		CreatedAt:   time.Now(),
	}
	job.setContentHash(res.ETag)
	if !w.results.Put(res) {
		job.markStale()
		log.Info("stale result ignored")
	} else {
		log.Info("compile complete", "bytes", len(data), "duration", time.Since(start))
	}
	job.SetStatus(StatusCompleted, "done")
}

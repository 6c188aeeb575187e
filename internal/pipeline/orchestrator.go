package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/texpad/internal/config"
	"github.com/dgallion1/texpad/internal/parser"
	"github.com/dgallion1/texpad/internal/render"
)

// Orchestrator manages the compile queue and its workers.
type Orchestrator struct {
	jobs      *JobStore
	results   *ResultStore
	stats     *RenderStats
	seq       *Sequencer
	queue     chan *Job
	extractor *parser.Extractor
	renderers *render.Registry
	log       *slog.Logger
	cfg       config.Config

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex // guards stopped and sends on queue
	stopped bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, renderers *render.Registry, log *slog.Logger) (*Orchestrator, error) {
	mode, err := parser.ParseSectionMode(cfg.SectionMode)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		results:   NewResultStore(),
		stats:     NewRenderStats(cfg.JobTTL),
		seq:       NewSequencer(),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		extractor: parser.New(parser.Options{SectionMode: mode}),
		renderers: renderers,
		log:       log,
		cfg:       cfg,
	}, nil
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.extractor, o.renderers, o.results, o.stats, o.log, o.cfg.RenderTimeout)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop shuts down the pipeline. Jobs still queued are failed.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		o.wg.Wait()
		o.mu.Lock()
		o.stopped = true
		close(o.queue)
		o.mu.Unlock()
		for job := range o.queue {
			job.Fail("queued", context.Canceled)
		}
	})
}

// Compile snapshots source and queues a compile of fileID. An empty format
// selects the configured default.
func (o *Orchestrator) Compile(projectID, fileID, filename, source, format string) (*Job, error) {
	r, err := o.renderers.Get(format)
	if err != nil {
		return nil, err
	}
	job := NewJob(projectID, fileID, filename, r.Format(), source, o.seq.Next(fileID))
	if err := o.Submit(job); err != nil {
		return job, err
	}
	return job, nil
}

// Submit queues a new job for processing. After Stop it fails the job
// with context.Canceled.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.Fail("queued", context.Canceled)
		return fmt.Errorf("orchestrator stopped: %w", context.Canceled)
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.Fail("queue_full", ErrQueueFull)
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Latest returns the newest compiled output for fileID in format.
func (o *Orchestrator) Latest(fileID, format string) (Result, error) {
	r, err := o.renderers.Get(format)
	if err != nil {
		return Result{}, err
	}
	return o.results.Latest(fileID, r.Format())
}

// Forget drops stored outputs for a deleted file.
func (o *Orchestrator) Forget(fileID string) {
	o.results.Drop(fileID)
}

// Extractor returns the configured fragment extractor.
func (o *Orchestrator) Extractor() *parser.Extractor {
	return o.extractor
}

// Renderers returns the renderer registry.
func (o *Orchestrator) Renderers() *render.Registry {
	return o.renderers
}

// Stats returns render latency aggregates per format.
func (o *Orchestrator) Stats() map[string]StatsSnapshot {
	return o.stats.Snapshot()
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

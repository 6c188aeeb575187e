package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a compile job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusAssembling JobStatus = "assembling"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks the state of a single compile invocation.
type Job struct {
	mu sync.Mutex

	ID        string `json:"job_id"`
	ProjectID string `json:"project_id"`
	FileID    string `json:"file_id"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	Seq       uint64 `json:"seq"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	source string
	errors []string
	stale  bool
	done   chan struct{}
}

// NewJob snapshots source for one compile of fileID. seq orders invocations
// for the same file; see Sequencer.
func NewJob(projectID, fileID, filename, format, source string, seq uint64) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		FileID:    fileID,
		Filename:  filename,
		Format:    format,
		Seq:       seq,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		source:    source,
		done:      make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired finished jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Source returns the source snapshot the job compiles.
func (j *Job) Source() string {
	return j.source
}

// SetStatus updates job status atomically. A terminal status releases Wait.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Terminal() && j.done != nil {
		close(j.done)
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed during phase.
func (j *Job) Fail(phase string, err error) {
	j.AddError(err.Error())
	j.SetStatus(StatusFailed, phase)
}

func (j *Job) setContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

func (j *Job) markStale() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stale = true
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	ProjectID   string    `json:"project_id"`
	FileID      string    `json:"file_id"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	Seq         uint64    `json:"seq"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Stale       bool      `json:"stale"`
	ContentHash string    `json:"content_hash,omitempty"`
	Errors      []string  `json:"errors"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	return JobSnapshot{
		ID:          j.ID,
		ProjectID:   j.ProjectID,
		FileID:      j.FileID,
		Filename:    j.Filename,
		Format:      j.Format,
		Seq:         j.Seq,
		Status:      j.Status,
		Phase:       j.Phase,
		Stale:       j.stale,
		ContentHash: j.ContentHash,
		Errors:      errs,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotCompiled = errors.New("document has not been compiled")
	ErrQueueFull   = errors.New("job queue is full")
)

// Sequencer hands out a monotonically increasing invocation number per file.
type Sequencer struct {
	mu   sync.Mutex
	next map[string]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{next: make(map[string]uint64)}
}

// Next returns the next sequence number for fileID, starting at 1.
func (s *Sequencer) Next(fileID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[fileID]++
	return s.next[fileID]
}

// Result is a finished document buffer.
type Result struct {
	FileID      string
	Format      string
	Seq         uint64
	Filename    string
	ContentType string
	Data        []byte
	ETag        string
	CreatedAt   time.Time
}

type resultKey struct {
	fileID string
	format string
}

// ResultStore keeps the newest result per (file, format).
type ResultStore struct {
	mu      sync.Mutex
	results map[resultKey]Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[resultKey]Result)}
}

// Put stores r unless a result with a higher sequence number is already
// stored for the same file and format. It reports whether r was kept.
func (s *ResultStore) Put(r Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := resultKey{r.FileID, r.Format}
	if cur, ok := s.results[k]; ok && cur.Seq > r.Seq {
		return false
	}
	if r.ETag == "" {
		r.ETag = ContentHashHex(r.Data)
	}
	s.results[k] = r
	return true
}

// Latest returns the newest result for fileID in format.
func (s *ResultStore) Latest(fileID, format string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[resultKey{fileID, format}]
	if !ok {
		return Result{}, fmt.Errorf("%s (%s): %w", fileID, format, ErrNotCompiled)
	}
	return r, nil
}

// Drop forgets every result for fileID.
func (s *ResultStore) Drop(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.results {
		if k.fileID == fileID {
			delete(s.results, k)
		}
	}
}

// OutputName derives the download name for a compiled source:
// "main.tex" with ".pdf" gives "main.pdf".
func OutputName(sourceName, ext string) string {
	base := filepath.Base(strings.TrimSpace(sourceName))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "document"
	}
	return stem + ext
}

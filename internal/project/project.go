package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidName = errors.New("invalid name")
)

// FileType is the kind of a project file, taken from its extension.
type FileType string

const (
	TypeTex FileType = "tex"
	TypeBib FileType = "bib"
	TypeCls FileType = "cls"
	TypeSty FileType = "sty"
)

// File is one editable source file.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      FileType  `json:"type"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is a named set of files with one active file.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Files        []File    `json:"files"`
	ActiveFileID string    `json:"active_file_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActiveFile returns the active file, if any.
func (p Project) ActiveFile() (File, bool) {
	return p.File(p.ActiveFileID)
}

// File returns the file with the given id.
func (p Project) File(id string) (File, bool) {
	for _, f := range p.Files {
		if f.ID == id {
			return f, true
		}
	}
	return File{}, false
}

func (p Project) clone() Project {
	p.Files = slices.Clone(p.Files)
	return p
}

// TypeFor maps a file name to its FileType. Unknown extensions are tex.
func TypeFor(name string) FileType {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "bib":
		return TypeBib
	case "cls":
		return TypeCls
	case "sty":
		return TypeSty
	default:
		return TypeTex
	}
}

// SanitizeName strips path components from a file name.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidName)
	}
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "_" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// Store is a thread-safe in-memory project registry. All reads return copies.
type Store struct {
	mu       sync.Mutex
	projects map[string]*Project
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		projects: make(map[string]*Project),
		now:      time.Now,
	}
}

// Create adds a project seeded with the sample article and bibliography.
func (s *Store) Create(name string) Project {
	if strings.TrimSpace(name) == "" {
		name = DefaultProjectName
	}
	now := s.now()
	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
	}
	for _, seed := range seedFiles {
		p.Files = append(p.Files, File{
			ID:        uuid.NewString(),
			Name:      seed.name,
			Type:      TypeFor(seed.name),
			Content:   seed.content,
			UpdatedAt: now,
		})
	}
	p.ActiveFileID = p.Files[0].ID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return p.clone()
}

func (s *Store) Get(id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p.clone(), nil
}

// List returns all projects ordered by creation time.
func (s *Store) List() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p.clone())
	}
	slices.SortFunc(out, func(a, b Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Delete removes a project.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	delete(s.projects, id)
	return nil
}

// GetFile returns one file of a project.
func (s *Store) GetFile(projectID, fileID string) (File, error) {
	p, err := s.Get(projectID)
	if err != nil {
		return File{}, err
	}
	f, ok := p.File(fileID)
	if !ok {
		return File{}, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	return f, nil
}

// AddFile creates a file whose type follows its extension. New tex files
// start with an empty article skeleton; other types start empty.
func (s *Store) AddFile(projectID, name string) (File, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return File{}, err
	}
	f := File{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      TypeFor(name),
		UpdatedAt: s.now(),
	}
	if f.Type == TypeTex {
		f.Content = NewTexSkeleton
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return File{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	p.Files = append(p.Files, f)
	return f, nil
}

// UpdateContent replaces a file's content.
func (s *Store) UpdateContent(projectID, fileID, content string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.fileLocked(projectID, fileID)
	if err != nil {
		return File{}, err
	}
	f.Content = content
	f.UpdatedAt = s.now()
	return *f, nil
}

// SetActive marks a file as the project's active file.
func (s *Store) SetActive(projectID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.fileLocked(projectID, fileID); err != nil {
		return err
	}
	s.projects[projectID].ActiveFileID = fileID
	return nil
}

// DeleteFile removes a file. If it was active, the first remaining file
// becomes active, or none if the project is now empty.
func (s *Store) DeleteFile(projectID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	idx := slices.IndexFunc(p.Files, func(f File) bool { return f.ID == fileID })
	if idx < 0 {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	p.Files = slices.Delete(p.Files, idx, idx+1)
	if p.ActiveFileID == fileID {
		p.ActiveFileID = ""
		if len(p.Files) > 0 {
			p.ActiveFileID = p.Files[0].ID
		}
	}
	return nil
}

func (s *Store) fileLocked(projectID, fileID string) (*File, error) {
	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	for i := range p.Files {
		if p.Files[i].ID == fileID {
			return &p.Files[i], nil
		}
	}
	return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
}

package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/texpad/internal/doctree"
)

// ErrNotCompilable is returned for project files that are not LaTeX documents.
var ErrNotCompilable = errors.New("file is not a compilable LaTeX document")

// SectionMode selects how headings are extracted.
type SectionMode string

const (
	// SectionTitles captures heading title and level only.
	SectionTitles SectionMode = "titles"
	// SectionBodies also captures the text between a heading and the next one.
	SectionBodies SectionMode = "bodies"
)

// ParseSectionMode maps a config value to a SectionMode.
func ParseSectionMode(s string) (SectionMode, error) {
	switch SectionMode(strings.ToLower(strings.TrimSpace(s))) {
	case SectionTitles:
		return SectionTitles, nil
	case SectionBodies, "":
		return SectionBodies, nil
	default:
		return "", fmt.Errorf("unknown section mode: %q", s)
	}
}

// Options configures an Extractor.
type Options struct {
	SectionMode SectionMode
}

// Extractor pulls a doctree.Summary out of LaTeX source. It is stateless and
// safe for concurrent use.
type Extractor struct {
	mode SectionMode
}

// New returns an Extractor. An empty mode means SectionBodies.
func New(opts Options) *Extractor {
	mode := opts.SectionMode
	if mode != SectionTitles {
		mode = SectionBodies
	}
	return &Extractor{mode: mode}
}

// Mode returns the section extraction mode in effect.
func (e *Extractor) Mode() SectionMode {
	return e.mode
}

// Extract is a shorthand for New(Options{}).Extract(src).
func Extract(src string) doctree.Summary {
	return New(Options{}).Extract(src)
}

// supportExtensions are project files that are included by a document but
// never compiled on their own. Any other name is treated as LaTeX source.
var supportExtensions = map[string]bool{
	".bib": true,
	".cls": true,
	".sty": true,
}

// CheckCompilable returns ErrNotCompilable for bibliography, class and style
// files.
func CheckCompilable(filename string) error {
	if supportExtensions[strings.ToLower(filepath.Ext(filename))] {
		return fmt.Errorf("%s: %w", filename, ErrNotCompilable)
	}
	return nil
}

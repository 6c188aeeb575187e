// Package render maps output format names to layout renderers.
package render

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/texpad/internal/layout"
	"github.com/dgallion1/texpad/internal/render/docx"
	"github.com/dgallion1/texpad/internal/render/html"
	"github.com/dgallion1/texpad/internal/render/pdf"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Registry holds one renderer per format. It is read-only after construction.
type Registry struct {
	renderers map[string]layout.Renderer
	fallback  string
}

// NewRegistry builds a registry from renderers; the first is the default.
func NewRegistry(renderers ...layout.Renderer) *Registry {
	r := &Registry{renderers: make(map[string]layout.Renderer, len(renderers))}
	for _, rr := range renderers {
		if r.fallback == "" {
			r.fallback = rr.Format()
		}
		r.renderers[rr.Format()] = rr
	}
	return r
}

// Default returns the pdf, docx and html renderers, with defaultFormat
// chosen for empty format requests.
func Default(pdfCfg pdf.Config, defaultFormat string) *Registry {
	r := NewRegistry(pdf.New(pdfCfg), docx.New(), html.New())
	if _, ok := r.renderers[defaultFormat]; ok {
		r.fallback = defaultFormat
	}
	return r
}

// Get returns the renderer for format. An empty format selects the default.
func (r *Registry) Get(format string) (layout.Renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = r.fallback
	}
	rr, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return rr, nil
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.renderers))
	for f := range r.renderers {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

package assemble

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/dgallion1/texpad/internal/doctree"
	"github.com/dgallion1/texpad/internal/layout"
)

// ErrGenerationFailed wraps every renderer failure.
var ErrGenerationFailed = errors.New("document generation failed")

var headingStyles = map[int]layout.Style{
	1: layout.StyleHeading1,
	2: layout.StyleHeading2,
	3: layout.StyleHeading3,
}

// Describe lays out a summary as title, author and date, then one heading
// per section, one block per math expression and one block per list.
func Describe(s doctree.Summary) layout.Document {
	doc := layout.Document{
		Blocks: make([]layout.Block, 0, 3+len(s.Sections)+len(s.MathExpressions)+len(s.Lists)),
		Styles: maps.Clone(layout.DefaultStyles),
	}

	if s.Title != nil {
		doc.Blocks = append(doc.Blocks, layout.Block{Style: layout.StyleTitle, Text: *s.Title})
	}
	if s.Author != nil {
		doc.Blocks = append(doc.Blocks, layout.Block{Style: layout.StyleAuthor, Text: *s.Author})
	}
	if s.Date != nil {
		doc.Blocks = append(doc.Blocks, layout.Block{Style: layout.StyleDate, Text: *s.Date})
	}

	for _, sec := range s.Sections {
		style, ok := headingStyles[sec.Level]
		if !ok {
			style = layout.StyleHeading3
		}
		doc.Blocks = append(doc.Blocks, layout.Block{Style: style, Text: sec.Title})
	}

	for _, m := range s.MathExpressions {
		doc.Blocks = append(doc.Blocks, layout.Block{Style: layout.StyleMath, Text: m})
	}

	for _, l := range s.Lists {
		style := layout.StyleBulleted
		if l.Kind == doctree.Enumerate {
			style = layout.StyleNumbered
		}
		doc.Blocks = append(doc.Blocks, layout.Block{Style: style, Items: append([]string(nil), l.Items...)})
	}

	return doc
}

// Assembler renders summaries through a single renderer. It holds no
// mutable state and may be shared between goroutines.
type Assembler struct {
	renderer layout.Renderer
}

// New returns an Assembler bound to r.
func New(r layout.Renderer) *Assembler {
	return &Assembler{renderer: r}
}

// Renderer returns the bound renderer.
func (a *Assembler) Renderer() layout.Renderer {
	return a.renderer
}

// Assemble describes s and renders it once. Renderer errors and empty output
// are reported as ErrGenerationFailed; no partial buffer is returned.
func (a *Assembler) Assemble(ctx context.Context, s doctree.Summary) ([]byte, error) {
	doc := Describe(s)

	out, err := a.renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, a.renderer.Format(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s: empty output", ErrGenerationFailed, a.renderer.Format())
	}
	return out, nil
}

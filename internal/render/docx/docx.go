// Package docx renders layout documents to Word documents with go-docx.
package docx

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/texpad/internal/layout"
)

// Paragraph styles written for headings. Word and LibreOffice both map
// these ids to their built-in heading styles.
var headingStyleIDs = map[layout.Style]string{
	layout.StyleTitle:    "Title",
	layout.StyleHeading1: "Heading1",
	layout.StyleHeading2: "Heading2",
	layout.StyleHeading3: "Heading3",
}

// Renderer renders layout documents to .docx.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Format() string { return "docx" }
func (r *Renderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}
func (r *Renderer) Ext() string { return ".docx" }

// Render writes doc as one paragraph per block, or per item for lists.
// ctx is checked between blocks.
func (r *Renderer) Render(ctx context.Context, doc layout.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := docx.New().WithDefaultTheme()

	for _, b := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts := doc.StyleFor(b.Style)

		if b.IsList() {
			for i, item := range b.Items {
				marker := "• "
				if b.Style == layout.StyleNumbered {
					marker = strconv.Itoa(i+1) + ". "
				}
				para := w.AddParagraph()
				styleRun(para.AddText(marker+item), ts)
			}
			continue
		}

		para := w.AddParagraph()
		if id, ok := headingStyleIDs[b.Style]; ok {
			para.Properties = &docx.ParagraphProperties{Style: &docx.Style{Val: id}}
		}
		if ts.Align == layout.AlignCenter {
			para.Justification("center")
		}
		styleRun(para.AddText(b.Text), ts)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

// styleRun applies size (in half-points), weight and the monospace face.
func styleRun(run *docx.Run, ts layout.TextStyle) {
	if ts.Size > 0 {
		run.Size(strconv.Itoa(ts.Size * 2))
	}
	if ts.Bold {
		run.Bold()
	}
	if ts.Mono {
		run.Font("Courier New", "Courier New", "Courier New", "default")
	}
}

// Package pdf renders layout documents to PDF with pdfcpu.
//
// Blocks are set into pdfcpu's JSON page description (one text box per
// line, positioned from the lower-left origin) and realised with api.Create.
// Line breaking uses the core font metrics shipped with pdfcpu.
package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/dgallion1/texpad/internal/layout"
)

const (
	defaultPaper  = "A4"
	defaultMargin = 56.0
	lineSpacing   = 1.35
	listIndent    = 18.0
)

// Config controls page geometry.
type Config struct {
	Paper  string  // pdfcpu paper name, e.g. "A4" or "Letter"
	Margin float64 // page margin in points
}

// Renderer renders layout documents to PDF.
type Renderer struct {
	paper  string
	width  float64
	height float64
	margin float64
}

// New returns a Renderer. Unknown paper names fall back to A4.
func New(cfg Config) *Renderer {
	paper := cfg.Paper
	dim, ok := types.PaperSize[paper]
	if !ok {
		paper = defaultPaper
		dim = types.PaperSize[paper]
	}
	margin := cfg.Margin
	if margin <= 0 || margin*2 >= dim.Width {
		margin = defaultMargin
	}
	return &Renderer{paper: paper, width: dim.Width, height: dim.Height, margin: margin}
}

func (r *Renderer) Format() string      { return "pdf" }
func (r *Renderer) ContentType() string { return "application/pdf" }
func (r *Renderer) Ext() string         { return ".pdf" }

// Render sets doc into pages and writes a PDF. ctx is checked before
// pagination and again before pdfcpu writes the file.
func (r *Renderer) Render(ctx context.Context, doc layout.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desc, err := r.Layout(doc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(desc), &buf, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu create: %w", err)
	}
	return buf.Bytes(), nil
}

// Layout returns the pdfcpu JSON page description for doc. The output
// depends only on doc and the renderer's geometry.
func (r *Renderer) Layout(doc layout.Document) ([]byte, error) {
	pages := r.paginate(doc)

	desc := pageDescription{
		Paper:  r.paper + "P",
		Origin: "LowerLeft",
		Pages:  make(map[string]*page, len(pages)),
	}
	for i, boxes := range pages {
		desc.Pages[strconv.Itoa(i+1)] = &page{Content: content{Text: boxes}}
	}

	data, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("marshal page description: %w", err)
	}
	return data, nil
}

// pdfcpu create description, see pdfcpu's create command.
type pageDescription struct {
	Paper  string           `json:"paper"`
	Origin string           `json:"origin"`
	Pages  map[string]*page `json:"pages"`
}

type page struct {
	Content content `json:"content"`
}

type content struct {
	Text []textBox `json:"text"`
}

type textBox struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Align string     `json:"align"`
	Font  textFont   `json:"font"`
}

type textFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// paginate places every line of every block and returns the text boxes of
// each page. There is always at least one page.
func (r *Renderer) paginate(doc layout.Document) [][]textBox {
	pages := [][]textBox{{}}
	top := r.height - r.margin
	y := top
	usable := r.width - 2*r.margin

	place := func(line string, ts layout.TextStyle, indent float64) {
		fontName := coreFont(ts)
		lh := float64(ts.Size) * lineSpacing
		if y-lh < r.margin && len(pages[len(pages)-1]) > 0 {
			pages = append(pages, []textBox{})
			y = top
		}
		x := r.margin + indent
		if ts.Align == layout.AlignCenter {
			w := font.TextWidth(line, fontName, ts.Size)
			x = r.margin + (usable-w)/2
			if x < r.margin {
				x = r.margin
			}
		}
		cur := len(pages) - 1
		pages[cur] = append(pages[cur], textBox{
			Value: line,
			Pos:   [2]float64{round(x), round(y - float64(ts.Size))},
			Align: "Left",
			Font:  textFont{Name: fontName, Size: ts.Size},
		})
		y -= lh
	}

	for _, b := range doc.Blocks {
		ts := doc.StyleFor(b.Style)
		fontName := coreFont(ts)

		if b.IsList() {
			for i, item := range b.Items {
				marker := "• "
				if b.Style == layout.StyleNumbered {
					marker = strconv.Itoa(i+1) + ". "
				}
				markerW := font.TextWidth(marker, fontName, ts.Size)
				lines := wrap(item, fontName, ts.Size, usable-listIndent-markerW)
				for j, line := range lines {
					if j == 0 {
						place(marker+line, ts, listIndent)
						continue
					}
					place(line, ts, listIndent+markerW)
				}
			}
		} else {
			for _, line := range wrap(b.Text, fontName, ts.Size, usable) {
				place(line, ts, 0)
			}
		}
		y -= ts.Space
	}
	return pages
}

// wrap breaks text into lines no wider than width. Existing line breaks are
// kept, blank lines are dropped, and a single word wider than width gets a
// line of its own.
func wrap(text, fontName string, size int, width float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			next := cur + " " + w
			if font.TextWidth(next, fontName, size) > width {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur = next
		}
		lines = append(lines, cur)
	}
	return lines
}

// coreFont maps a text style to one of the 14 standard PDF fonts.
func coreFont(ts layout.TextStyle) string {
	base := ts.Font
	if ts.Mono {
		base = "Courier"
	}
	switch base {
	case "Courier", "Helvetica":
		if ts.Bold {
			return base + "-Bold"
		}
		return base
	case "Times", "Times-Roman":
		if ts.Bold {
			return "Times-Bold"
		}
		return "Times-Roman"
	default:
		if font.IsCoreFont(base) {
			return base
		}
		if ts.Bold {
			return "Helvetica-Bold"
		}
		return "Helvetica"
	}
}

func round(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// DisableConfigDir stops pdfcpu from creating its user configuration
// directory. Call once at startup.
func DisableConfigDir() {
	api.DisableConfigDir()
}

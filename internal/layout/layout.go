// Package layout defines the document description handed to renderers.
package layout

import (
	"context"
	"slices"
)

// Style tags a block with its visual role.
type Style string

const (
	StyleTitle    Style = "title"
	StyleAuthor   Style = "author"
	StyleDate     Style = "date"
	StyleHeading1 Style = "heading1"
	StyleHeading2 Style = "heading2"
	StyleHeading3 Style = "heading3"
	StyleMath     Style = "math"
	StyleBulleted Style = "bulleted"
	StyleNumbered Style = "numbered"
)

// Align is the horizontal alignment of a block.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
)

// TextStyle describes how text tagged with a Style is set.
type TextStyle struct {
	Font  string  `json:"font"`
	Bold  bool    `json:"bold,omitempty"`
	Size  int     `json:"size"`
	Align Align   `json:"align"`
	Mono  bool    `json:"mono,omitempty"`
	Space float64 `json:"space"` // gap below the block, in points
}

// Block is one unit of content. List blocks carry Items; all others carry Text.
type Block struct {
	Style Style    `json:"style"`
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// IsList reports whether the block is a list.
func (b Block) IsList() bool {
	return b.Style == StyleBulleted || b.Style == StyleNumbered
}

// Document is an ordered block list plus the stylesheet to set it with.
type Document struct {
	Blocks []Block             `json:"blocks"`
	Styles map[Style]TextStyle `json:"styles"`
}

// StyleFor returns the style for s, falling back to DefaultStyles and then
// to body text.
func (d Document) StyleFor(s Style) TextStyle {
	if ts, ok := d.Styles[s]; ok {
		return ts
	}
	if ts, ok := DefaultStyles[s]; ok {
		return ts
	}
	return BodyStyle
}

// Equal compares two documents block by block and style by style.
func (d Document) Equal(o Document) bool {
	if !slices.EqualFunc(d.Blocks, o.Blocks, func(a, b Block) bool {
		return a.Style == b.Style && a.Text == b.Text && slices.Equal(a.Items, b.Items)
	}) {
		return false
	}
	if len(d.Styles) != len(o.Styles) {
		return false
	}
	for k, v := range d.Styles {
		if ov, ok := o.Styles[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// BodyStyle is used for list items and any style without an entry.
var BodyStyle = TextStyle{Font: "Helvetica", Size: 12, Align: AlignLeft, Space: 6}

// DefaultStyles gives headings decreasing weight by level and sets math
// monospaced and centered.
var DefaultStyles = map[Style]TextStyle{
	StyleTitle:    {Font: "Helvetica", Bold: true, Size: 24, Align: AlignCenter, Space: 12},
	StyleAuthor:   {Font: "Helvetica", Size: 14, Align: AlignCenter, Space: 6},
	StyleDate:     {Font: "Helvetica", Size: 11, Align: AlignCenter, Space: 18},
	StyleHeading1: {Font: "Helvetica", Bold: true, Size: 18, Align: AlignLeft, Space: 10},
	StyleHeading2: {Font: "Helvetica", Bold: true, Size: 15, Align: AlignLeft, Space: 8},
	StyleHeading3: {Font: "Helvetica", Bold: true, Size: 13, Align: AlignLeft, Space: 6},
	StyleMath:     {Font: "Courier", Size: 12, Align: AlignCenter, Mono: true, Space: 10},
	StyleBulleted: BodyStyle,
	StyleNumbered: BodyStyle,
}

// Renderer turns a Document into a standalone binary document.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
	// Format is the short name used in URLs and flags, e.g. "pdf".
	Format() string
	ContentType() string
	// Ext is the file extension including the dot.
	Ext() string
}

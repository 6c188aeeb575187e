// Package html renders layout documents to a standalone HTML preview page.
//
// Blocks are written as Markdown and converted with goldmark; the result is
// placed in a page shell built with golang.org/x/net/html.
package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/texpad/internal/layout"
)

const pageCSS = `body{font-family:Helvetica,Arial,sans-serif;max-width:42rem;margin:2rem auto;padding:3rem;background:#fff;color:#1f2937}
.title,.author,.date{text-align:center}
.title{font-size:2rem;font-weight:700;margin-bottom:1rem}
.author{font-size:1.1rem}
.date{font-size:.85rem;color:#4b5563;margin-bottom:2rem}
pre.math{text-align:center;background:#f9fafb;border:1px solid #e5e7eb;padding:1rem;font-family:Courier,monospace}`

// Renderer renders layout documents to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New returns a Renderer. Raw HTML in block text is escaped, never passed
// through.
func New() *Renderer {
	return &Renderer{md: goldmark.New()}
}

func (r *Renderer) Format() string      { return "html" }
func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }
func (r *Renderer) Ext() string         { return ".html" }

// Render converts doc to a full HTML page.
func (r *Renderer) Render(ctx context.Context, doc layout.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := r.md.Convert([]byte(Markdown(doc)), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title := "Preview"
	for _, b := range doc.Blocks {
		if b.Style == layout.StyleTitle {
			title = b.Text
			break
		}
	}

	page, err := shell(title, body.Bytes())
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n")
	if err := nethtml.Render(&out, page); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return out.Bytes(), nil
}

// Markdown writes doc as Markdown. Headings start at level two, math is a
// fenced "math" block, and title, author and date are paragraphs carrying a
// marker prefix that shell turns into classed divs. Every list block is
// closed by an HTML comment line so adjacent lists stay separate.
func Markdown(doc layout.Document) string {
	var sb strings.Builder
	for _, b := range doc.Blocks {
		switch b.Style {
		case layout.StyleTitle, layout.StyleAuthor, layout.StyleDate:
			fmt.Fprintf(&sb, "%s%s\n\n", markerPrefix(b.Style), escape(b.Text))
		case layout.StyleHeading1:
			fmt.Fprintf(&sb, "## %s\n\n", escape(b.Text))
		case layout.StyleHeading2:
			fmt.Fprintf(&sb, "### %s\n\n", escape(b.Text))
		case layout.StyleHeading3:
			fmt.Fprintf(&sb, "#### %s\n\n", escape(b.Text))
		case layout.StyleMath:
			fence := "```"
			for strings.Contains(b.Text, fence) {
				fence += "`"
			}
			fmt.Fprintf(&sb, "%smath\n%s\n%s\n\n", fence, b.Text, fence)
		case layout.StyleBulleted:
			for _, item := range b.Items {
				fmt.Fprintf(&sb, "- %s\n", escape(item))
			}
			sb.WriteString(listBreak)
		case layout.StyleNumbered:
			for i, item := range b.Items {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, escape(item))
			}
			sb.WriteString(listBreak)
		default:
			fmt.Fprintf(&sb, "%s\n\n", escape(b.Text))
		}
	}
	return sb.String()
}

const (
	markerBase = "texpad-block-"
	listBreak  = "\n<!-- -->\n\n"
)

func markerPrefix(s layout.Style) string {
	return markerBase + string(s) + ": "
}

var mdSpecial = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"#", `\#`, "<", `\<`, ">", `\>`, "|", `\|`, "!", `\!`, "&", `\&`,
)

// escape backslash-escapes Markdown punctuation so text renders literally.
// A leading list marker is escaped too.
func escape(s string) string {
	s = mdSpecial.Replace(strings.Join(strings.Fields(s), " "))
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return `\` + s
	}
	digits := len(s) - len(strings.TrimLeft(s, "0123456789"))
	if digits > 0 && digits < len(s) && (s[digits] == '.' || s[digits] == ')') {
		return s[:digits] + `\` + s[digits:]
	}
	return s
}

// shell wraps the converted body in html/head/body and turns the
// title/author/date marker paragraphs into classed divs.
func shell(title string, body []byte) (*nethtml.Node, error) {
	bodyNode := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(bytes.NewReader(body), bodyNode)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Type == nethtml.CommentNode {
			continue
		}
		classifyMarker(n)
		if n.Type == nethtml.ElementNode && n.DataAtom == atom.Pre {
			if code := n.FirstChild; code != nil && hasClass(code, "language-math") {
				n.Attr = append(n.Attr, nethtml.Attribute{Key: "class", Val: "math"})
			}
		}
		bodyNode.AppendChild(n)
	}

	head := element(atom.Head)
	meta := element(atom.Meta)
	meta.Attr = []nethtml.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	titleNode := element(atom.Title)
	titleNode.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: title})
	head.AppendChild(titleNode)
	style := element(atom.Style)
	style.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: pageCSS})
	head.AppendChild(style)

	root := element(atom.Html)
	root.AppendChild(head)
	root.AppendChild(bodyNode)

	doc := &nethtml.Node{Type: nethtml.DocumentNode}
	doc.AppendChild(root)
	return doc, nil
}

func classifyMarker(n *nethtml.Node) {
	if n.Type != nethtml.ElementNode || n.DataAtom != atom.P {
		return
	}
	text := n.FirstChild
	if text == nil || text.Type != nethtml.TextNode || !strings.HasPrefix(text.Data, markerBase) {
		return
	}
	rest := strings.TrimPrefix(text.Data, markerBase)
	style, value, ok := strings.Cut(rest, ": ")
	if !ok {
		return
	}
	n.Data, n.DataAtom = "div", atom.Div
	n.Attr = append(n.Attr, nethtml.Attribute{Key: "class", Val: style})
	text.Data = value
}

func hasClass(n *nethtml.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func element(a atom.Atom) *nethtml.Node {
	return &nethtml.Node{Type: nethtml.ElementNode, Data: a.String(), DataAtom: a}
}

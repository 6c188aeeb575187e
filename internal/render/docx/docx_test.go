package docx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/texpad/internal/layout"
)

type parsedPara struct {
	style string
	text  string
}

// readBack parses rendered bytes and returns each paragraph's style id and text.
func readBack(t *testing.T, data []byte) []parsedPara {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var out []parsedPara
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var p parsedPara
		if para.Properties != nil && para.Properties.Style != nil {
			p.style = para.Properties.Style.Val
		}
		var buf strings.Builder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if tx, ok := rc.(*docx.Text); ok {
					buf.WriteString(tx.Text)
				}
			}
		}
		p.text = buf.String()
		out = append(out, p)
	}
	return out
}

func TestRender_Paragraphs(t *testing.T) {
	doc := layout.Document{
		Styles: layout.DefaultStyles,
		Blocks: []layout.Block{
			{Style: layout.StyleTitle, Text: "Report"},
			{Style: layout.StyleAuthor, Text: "Ada"},
			{Style: layout.StyleHeading1, Text: "Intro"},
			{Style: layout.StyleHeading3, Text: "Detail"},
			{Style: layout.StyleMath, Text: "x^2"},
			{Style: layout.StyleNumbered, Items: []string{"first", "second"}},
			{Style: layout.StyleBulleted, Items: []string{"dot"}},
		},
	}

	out, err := New().Render(context.Background(), doc)
	require.NoError(t, err)

	paras := readBack(t, out)
	require.Len(t, paras, 8)
	assert.Equal(t, parsedPara{"Title", "Report"}, paras[0])
	assert.Equal(t, "Ada", paras[1].text)
	assert.Equal(t, parsedPara{"Heading1", "Intro"}, paras[2])
	assert.Equal(t, parsedPara{"Heading3", "Detail"}, paras[3])
	assert.Equal(t, "x^2", paras[4].text)
	assert.Equal(t, "1. first", paras[5].text)
	assert.Equal(t, "2. second", paras[6].text)
	assert.Equal(t, "• dot", paras[7].text)
}

func TestRender_Metadata(t *testing.T) {
	r := New()
	assert.Equal(t, "docx", r.Format())
	assert.Equal(t, ".docx", r.Ext())
	assert.Contains(t, r.ContentType(), "wordprocessingml")
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Render(ctx, layout.Document{})
	assert.ErrorIs(t, err, context.Canceled)
}

// expiringContext reports DeadlineExceeded once Err has been called more
// than live times.
type expiringContext struct {
	context.Context
	live  int
	calls int
}

func (c *expiringContext) Err() error {
	c.calls++
	if c.calls > c.live {
		return context.DeadlineExceeded
	}
	return nil
}

func TestRender_DeadlineBetweenBlocks(t *testing.T) {
	doc := layout.Document{Blocks: []layout.Block{
		{Style: layout.StyleTitle, Text: "T"},
		{Style: layout.StyleHeading1, Text: "A"},
		{Style: layout.StyleHeading1, Text: "B"},
	}}
	ctx := &expiringContext{Context: context.Background(), live: 2}
	_, err := New().Render(ctx, doc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, ctx.calls)
}

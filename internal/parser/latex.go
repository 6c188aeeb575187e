package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/texpad/internal/doctree"
)

// Single-argument declarations. The argument stops at the first closing
// brace; nested braces are not balanced.
var (
	titleRe  = regexp.MustCompile(`\\title\{([^}]+)\}`)
	authorRe = regexp.MustCompile(`\\author\{([^}]+)\}`)
	dateRe   = regexp.MustCompile(`\\date\{([^}]+)\}`)
)

var headingRe = regexp.MustCompile(`\\(section|subsection|subsubsection)\{([^}]+)\}`)

var headingLevels = map[string]int{
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
}

// mathPasses run in this order, each over the whole input. The result is
// ordered by pass first and by position second.
var mathPasses = []*regexp.Regexp{
	regexp.MustCompile(`\\\[([^\]]+)\\\]`),                              // \[ ... \]
	regexp.MustCompile(`\$\$([^$]+)\$\$`),                               // $$ ... $$
	regexp.MustCompile(`\$([^$]+)\$`),                                   // $ ... $
	regexp.MustCompile(`(?s)\\begin\{equation\}(.*?)\\end\{equation\}`), // equation
	regexp.MustCompile(`(?s)\\begin\{align\*?\}(.*?)\\end\{align\*?\}`), // align, align*
}

// listPasses run in this order: every itemize block precedes every
// enumerate block in the output.
var listPasses = []struct {
	kind doctree.ListKind
	re   *regexp.Regexp
}{
	{doctree.Itemize, regexp.MustCompile(`(?s)\\begin\{itemize\}(.*?)\\end\{itemize\}`)},
	{doctree.Enumerate, regexp.MustCompile(`(?s)\\begin\{enumerate\}(.*?)\\end\{enumerate\}`)},
}

var itemRe = regexp.MustCompile(`\\item\b`)

// Extract builds a Summary from src. It never fails: text that matches no
// recognized construct is ignored.
func (e *Extractor) Extract(src string) doctree.Summary {
	s := doctree.New()

	s.Title = firstArg(titleRe, src)
	s.Author = firstArg(authorRe, src)
	s.Date = firstArg(dateRe, src)

	s.Sections = e.sections(src)
	s.MathExpressions = mathExpressions(src)
	s.Lists = lists(src)

	return s
}

func firstArg(re *regexp.Regexp, src string) *string {
	m := re.FindStringSubmatch(src)
	if m == nil {
		return nil
	}
	v := m[1]
	return &v
}

func (e *Extractor) sections(src string) []doctree.Section {
	matches := headingRe.FindAllStringSubmatchIndex(src, -1)
	out := make([]doctree.Section, 0, len(matches))

	for i, m := range matches {
		sec := doctree.Section{
			Title:    src[m[4]:m[5]],
			Level:    headingLevels[src[m[2]:m[3]]],
			MathRefs: []string{},
		}
		if e.mode == SectionBodies {
			end := len(src)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}
			sec.Content = strings.TrimSpace(src[m[1]:end])
			sec.MathRefs = mathExpressions(sec.Content)
		}
		out = append(out, sec)
	}
	return out
}

func mathExpressions(src string) []string {
	out := []string{}
	for _, re := range mathPasses {
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

func lists(src string) []doctree.List {
	out := []doctree.List{}
	for _, pass := range listPasses {
		for _, m := range pass.re.FindAllStringSubmatch(src, -1) {
			out = append(out, doctree.List{Kind: pass.kind, Items: splitItems(m[1])})
		}
	}
	return out
}

// splitItems splits a list body on \item. Text before the first marker is
// dropped, as are segments that are empty after trimming.
func splitItems(body string) []string {
	parts := itemRe.Split(body, -1)
	items := make([]string, 0, len(parts))
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}

package doctree

import "slices"

// ListKind distinguishes bulleted from numbered list environments.
type ListKind string

const (
	Itemize   ListKind = "itemize"
	Enumerate ListKind = "enumerate"
)

// Summary is the structural outline extracted from one LaTeX source.
// It holds no reference back to the source text.
type Summary struct {
	Title           *string   `json:"title,omitempty" yaml:"title,omitempty"`
	Author          *string   `json:"author,omitempty" yaml:"author,omitempty"`
	Date            *string   `json:"date,omitempty" yaml:"date,omitempty"`
	Sections        []Section `json:"sections" yaml:"sections"`
	MathExpressions []string  `json:"math_expressions" yaml:"math_expressions"`
	Lists           []List    `json:"lists" yaml:"lists"`
}

// Section is one heading in document order.
type Section struct {
	Title    string   `json:"title" yaml:"title"`
	Level    int      `json:"level" yaml:"level"` // 1 section, 2 subsection, 3 subsubsection
	Content  string   `json:"content" yaml:"content"`
	MathRefs []string `json:"math_refs" yaml:"math_refs"`
}

// List is one itemize or enumerate block.
type List struct {
	Kind  ListKind `json:"kind" yaml:"kind"`
	Items []string `json:"items" yaml:"items"`
}

// New returns an empty summary with non-nil sequences.
func New() Summary {
	return Summary{
		Sections:        []Section{},
		MathExpressions: []string{},
		Lists:           []List{},
	}
}

// IsEmpty reports whether nothing was recognized.
func (s Summary) IsEmpty() bool {
	return s.Title == nil && s.Author == nil && s.Date == nil &&
		len(s.Sections) == 0 && len(s.MathExpressions) == 0 && len(s.Lists) == 0
}

// Equal compares two summaries field by field. Nil and empty sequences are equal.
func (s Summary) Equal(o Summary) bool {
	if !eqOpt(s.Title, o.Title) || !eqOpt(s.Author, o.Author) || !eqOpt(s.Date, o.Date) {
		return false
	}
	if !slices.Equal(s.MathExpressions, o.MathExpressions) {
		return false
	}
	if !slices.EqualFunc(s.Sections, o.Sections, func(a, b Section) bool {
		return a.Title == b.Title && a.Level == b.Level && a.Content == b.Content &&
			slices.Equal(a.MathRefs, b.MathRefs)
	}) {
		return false
	}
	return slices.EqualFunc(s.Lists, o.Lists, func(a, b List) bool {
		return a.Kind == b.Kind && slices.Equal(a.Items, b.Items)
	})
}

func eqOpt(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

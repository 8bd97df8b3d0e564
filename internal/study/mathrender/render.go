// Package mathrender prepares note text for the page's math typesetter.
// Plain text is escaped; math runs keep their delimiters and are wrapped in
// spans the typesetter picks up.
package mathrender

import (
	"html"
	"html/template"
	"strings"
	"sync"
)

type Kind int

const (
	Text Kind = iota
	Inline
	Display
)

type Segment struct {
	Kind Kind
	// Body excludes the delimiters.
	Body  string
	Open  string
	Close string
}

type delimiter struct {
	open, close string
	kind        Kind
}

var delimiters = []delimiter{
	{`\(`, `\)`, Inline},
	{`\[`, `\]`, Display},
	{`$$`, `$$`, Display},
}

// Tokenize splits s into text and math segments. An opener with no closer
// is plain text.
func Tokenize(s string) []Segment {
	var out []Segment
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			out = append(out, Segment{Kind: Text, Body: text.String()})
			text.Reset()
		}
	}

	for len(s) > 0 {
		at, d := nextOpener(s)
		if at < 0 {
			text.WriteString(s)
			break
		}
		text.WriteString(s[:at])
		rest := s[at+len(d.open):]
		end := strings.Index(rest, d.close)
		if end < 0 {
			text.WriteString(d.open)
			s = rest
			continue
		}
		flush()
		out = append(out, Segment{Kind: d.kind, Body: rest[:end], Open: d.open, Close: d.close})
		s = rest[end+len(d.close):]
	}
	flush()
	return out
}

func nextOpener(s string) (int, delimiter) {
	best := -1
	var found delimiter
	for _, d := range delimiters {
		if i := strings.Index(s, d.open); i >= 0 && (best < 0 || i < best) {
			best, found = i, d
		}
	}
	return best, found
}

// HasMath reports whether s contains at least one complete math run.
func HasMath(s string) bool {
	for _, seg := range Tokenize(s) {
		if seg.Kind != Text {
			return true
		}
	}
	return false
}

// Render returns s as HTML ready for typesetting.
func Render(s string) template.HTML {
	if !HasMath(s) {
		return template.HTML(html.EscapeString(s))
	}
	var b strings.Builder
	for _, seg := range Tokenize(s) {
		switch seg.Kind {
		case Text:
			b.WriteString(html.EscapeString(seg.Body))
		case Inline:
			b.WriteString(`<span class="math inline">`)
			b.WriteString(html.EscapeString(seg.Open + seg.Body + seg.Close))
			b.WriteString(`</span>`)
		case Display:
			b.WriteString(`<span class="math display">`)
			b.WriteString(html.EscapeString(seg.Open + seg.Body + seg.Close))
			b.WriteString(`</span>`)
		}
	}
	return template.HTML(b.String())
}

// Target is one rendered block. Typeset re-renders only when the text
// differs from the last call, so output always matches the current text.
type Target struct {
	mu       sync.Mutex
	text     string
	out      template.HTML
	rendered bool
	renders  int
}

// Typeset returns the rendered HTML and whether it was re-rendered.
func (t *Target) Typeset(text string) (template.HTML, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rendered && t.text == text {
		return t.out, false
	}
	t.text = text
	t.out = Render(text)
	t.rendered = true
	t.renders++
	return t.out, true
}

func (t *Target) renderCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renders
}

// Cache keeps one Target per key, e.g. a section id.
type Cache struct {
	mu      sync.Mutex
	targets map[string]*Target
}

func NewCache() *Cache {
	return &Cache{targets: make(map[string]*Target)}
}

func (c *Cache) Target(key string) *Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.targets[key]
	if !ok {
		t = &Target{}
		c.targets[key] = t
	}
	return t
}

// Render typesets text into the target for key.
func (c *Cache) Render(key, text string) template.HTML {
	out, _ := c.Target(key).Typeset(text)
	return out
}

// Retain drops targets whose key is not in keep.
func (c *Cache) Retain(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.targets {
		if !keep[k] {
			delete(c.targets, k)
		}
	}
}

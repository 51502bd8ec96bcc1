package requirements

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// headings returns the text of every Markdown heading in source, in
// document order.
func headings(source []byte) []string {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var titles []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			var buf bytes.Buffer
			inlineText(h, source, &buf)
			titles = append(titles, strings.TrimSpace(buf.String()))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return titles
}

func inlineText(n ast.Node, source []byte, buf *bytes.Buffer) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			inlineText(c, source, buf)
		}
	}
}

// missingSections returns the required sections without a matching
// heading. Matching ignores case and surrounding space.
func missingSections(source []byte, required []string) []string {
	present := make(map[string]bool)
	for _, h := range headings(source) {
		present[strings.ToUpper(h)] = true
	}
	var missing []string
	for _, section := range required {
		if !present[strings.ToUpper(strings.TrimSpace(section))] {
			missing = append(missing, section)
		}
	}
	return missing
}

// appendSections returns source followed by an empty level-two heading for
// each section.
func appendSections(source []byte, sections []string) string {
	var b strings.Builder
	b.Write(source)
	if len(source) > 0 && !bytes.HasSuffix(source, []byte("\n")) {
		b.WriteByte('\n')
	}
	for _, section := range sections {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("## ")
		b.WriteString(section)
		b.WriteString("\n")
	}
	return b.String()
}

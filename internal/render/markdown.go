// ABOUTME: Markdown-to-ANSI rendering via a goldmark AST walk.
// ABOUTME: Handles headings, emphasis, code, lists, quotes, and links.

package render

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Renderer converts markdown to ANSI-styled terminal text.
type Renderer struct {
	md      goldmark.Markdown
	heading *color.Color
	emph    *color.Color
	strong  *color.Color
	code    *color.Color
	link    *color.Color
	userTag *color.Color
	botTag  *color.Color
}

// NewRenderer creates a renderer with the default palette.
func NewRenderer() *Renderer {
	return &Renderer{
		md:      goldmark.New(),
		heading: color.New(color.FgCyan, color.Bold),
		emph:    color.New(color.Italic),
		strong:  color.New(color.Bold),
		code:    color.New(color.FgYellow),
		link:    color.New(color.FgBlue, color.Underline),
		userTag: color.New(color.FgCyan, color.Bold),
		botTag:  color.New(color.FgGreen, color.Bold),
	}
}

// Markdown renders a markdown document as ANSI terminal text. The result
// carries no trailing newline.
func (r *Renderer) Markdown(src string) string {
	source := []byte(src)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		r.renderBlock(&b, n, source, "")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) renderBlock(b *strings.Builder, node ast.Node, source []byte, indent string) {
	switch n := node.(type) {
	case *ast.Heading:
		b.WriteString(indent)
		b.WriteString(r.heading.Sprint(r.inline(n, source)))
		b.WriteString("\n\n")
	case *ast.Paragraph:
		writeIndented(b, r.inline(n, source), indent)
		b.WriteString("\n")
	case *ast.TextBlock:
		writeIndented(b, r.inline(n, source), indent)
	case *ast.Blockquote:
		var inner strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.renderBlock(&inner, c, source, "")
		}
		writeIndented(b, strings.TrimRight(inner.String(), "\n"), indent+"> ")
		b.WriteString("\n")
	case *ast.FencedCodeBlock:
		r.renderCodeLines(b, n.Lines(), source, indent)
		b.WriteString("\n")
	case *ast.CodeBlock:
		r.renderCodeLines(b, n.Lines(), source, indent)
		b.WriteString("\n")
	case *ast.List:
		r.renderList(b, n, source, indent)
		b.WriteString("\n")
	case *ast.ThematicBreak:
		b.WriteString(indent + strings.Repeat("-", 4) + "\n\n")
	default:
		writeIndented(b, r.inline(n, source), indent)
		b.WriteString("\n")
	}
}

func (r *Renderer) renderCodeLines(b *strings.Builder, lines *text.Segments, source []byte, indent string) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		b.WriteString(indent + "    " + r.code.Sprint(line) + "\n")
	}
}

func (r *Renderer) renderList(b *strings.Builder, list *ast.List, source []byte, indent string) {
	i := list.Start
	if i == 0 {
		i = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if list.IsOrdered() {
			marker = strconv.Itoa(i) + ". "
			i++
		}
		var inner strings.Builder
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			r.renderBlock(&inner, c, source, "")
		}
		body := strings.TrimRight(inner.String(), "\n")
		first := true
		for _, line := range strings.Split(body, "\n") {
			if first {
				b.WriteString(indent + marker + line + "\n")
				first = false
			} else {
				b.WriteString(indent + strings.Repeat(" ", len(marker)) + line + "\n")
			}
		}
	}
}

func (r *Renderer) inline(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.renderInline(&b, c, source)
	}
	return b.String()
}

func (r *Renderer) renderInline(b *strings.Builder, node ast.Node, source []byte) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			b.WriteByte('\n')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.Emphasis:
		inner := r.inline(n, source)
		if n.Level >= 2 {
			b.WriteString(r.strong.Sprint(inner))
		} else {
			b.WriteString(r.emph.Sprint(inner))
		}
	case *ast.CodeSpan:
		b.WriteString(r.code.Sprint(r.inline(n, source)))
	case *ast.Link:
		label := r.inline(n, source)
		b.WriteString(r.link.Sprint(label))
		if dest := string(n.Destination); dest != "" && dest != label {
			b.WriteString(" <" + dest + ">")
		}
	case *ast.AutoLink:
		b.WriteString(r.link.Sprint(string(n.URL(source))))
	case *ast.Image:
		b.WriteString("[image: " + r.inline(n, source) + "]")
	default:
		b.WriteString(r.inline(n, source))
	}
}

// writeIndented writes a possibly multi-line string with every line
// prefixed by indent, followed by a newline.
func writeIndented(b *strings.Builder, s, indent string) {
	for _, line := range strings.Split(s, "\n") {
		b.WriteString(indent + line + "\n")
	}
}

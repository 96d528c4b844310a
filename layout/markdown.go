package layout

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// RenderMarkdown adds the blocks of a CommonMark document. Emphasis maps
// to the italic face, strong emphasis to the bold face and links to link
// annotations.
func (e *Engine) RenderMarkdown(source string) error {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	return e.markdownBlocks(doc, src, 0)
}

func (e *Engine) markdownBlocks(n ast.Node, src []byte, indent float64) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		var err error
		switch b := c.(type) {
		case *ast.Heading:
			err = e.Add(Paragraph{Runs: e.markdownRuns(b, src, e.heading(b.Level)), Indent: indent})
		case *ast.Paragraph, *ast.TextBlock:
			err = e.Add(Paragraph{Runs: e.markdownRuns(b, src, style{size: e.size}), Align: e.align, Indent: indent})
		case *ast.List:
			err = e.markdownList(b, src, indent)
		case *ast.Blockquote:
			err = e.markdownBlocks(b, src, indent+listIndent)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := b.Lines()
			for i := 0; i < lines.Len() && err == nil; i++ {
				line := lines.At(i)
				s := strings.TrimRight(string(line.Value(src)), "\r\n")
				err = e.Add(Paragraph{Runs: []Run{e.run(s, style{size: e.size})}, Indent: indent + listIndent})
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) markdownList(l *ast.List, src []byte, indent float64) error {
	n := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = strconv.Itoa(n) + ". "
			n++
		}
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			var err error
			switch b := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				st := style{size: e.size}
				runs := e.markdownRuns(b, src, st)
				if first {
					runs = append([]Run{e.run(marker, st)}, runs...)
				}
				err = e.Add(Paragraph{Runs: runs, Align: e.align, Indent: indent + listIndent})
			case *ast.List:
				err = e.markdownList(b, src, indent+listIndent)
			}
			if err != nil {
				return err
			}
			first = false
		}
	}
	return nil
}

func (e *Engine) markdownRuns(n ast.Node, src []byte, st style) []Run {
	var out []Run
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			s := string(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				s += " "
			}
			out = append(out, e.run(s, st))
		case *ast.String:
			out = append(out, e.run(string(v.Value), st))
		case *ast.Emphasis:
			inner := st
			if v.Level >= 2 {
				inner.bold = true
			} else {
				inner.italic = true
			}
			out = append(out, e.markdownRuns(v, src, inner)...)
		case *ast.Link:
			inner := st
			inner.link = string(v.Destination)
			out = append(out, e.markdownRuns(v, src, inner)...)
		case *ast.AutoLink:
			inner := st
			inner.link = string(v.URL(src))
			out = append(out, e.run(string(v.Label(src)), inner))
		default:
			out = append(out, e.markdownRuns(c, src, st)...)
		}
	}
	return out
}

package layout

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderHTML adds the block elements of an HTML fragment: headings,
// paragraphs, lists and block quotes. Inline b, strong, i, em, sup, sub
// and a elements style their text.
func (e *Engine) RenderHTML(source string) error {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return err
	}
	return e.htmlBlocks(doc, 0)
}

func (e *Engine) htmlBlocks(n *html.Node, indent float64) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if s := collapseSpace(c.Data); strings.TrimSpace(s) != "" {
				if err := e.Add(Paragraph{Runs: []Run{e.run(s, style{size: e.size})}, Align: e.align, Indent: indent}); err != nil {
					return err
				}
			}
			continue
		}
		if c.Type != html.ElementNode && c.Type != html.DocumentNode {
			continue
		}
		var err error
		switch c.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			level := int(c.Data[1] - '0')
			err = e.Add(Paragraph{Runs: e.htmlRuns(c, e.heading(level)), Indent: indent})
		case atom.P:
			err = e.Add(Paragraph{Runs: e.htmlRuns(c, style{size: e.size}), Align: e.align, Indent: indent})
		case atom.Ul, atom.Ol:
			err = e.htmlList(c, indent)
		case atom.Blockquote:
			err = e.htmlBlocks(c, indent+listIndent)
		case atom.Head, atom.Script, atom.Style:
		default:
			err = e.htmlBlocks(c, indent)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) htmlList(l *html.Node, indent float64) error {
	n := 1
	if s, ok := attr(l, "start"); ok {
		if v, err := strconv.Atoi(s); err == nil {
			n = v
		}
	}
	for li := l.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		marker := "• "
		if l.DataAtom == atom.Ol {
			marker = strconv.Itoa(n) + ". "
			n++
		}
		st := style{size: e.size}
		runs := append([]Run{e.run(marker, st)}, e.htmlRuns(li, st)...)
		if err := e.Add(Paragraph{Runs: runs, Align: e.align, Indent: indent + listIndent}); err != nil {
			return err
		}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom == atom.Ul || c.DataAtom == atom.Ol {
				if err := e.htmlList(c, indent+listIndent); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// htmlRuns collects the inline text of n. Nested lists are left to
// htmlList.
func (e *Engine) htmlRuns(n *html.Node, st style) []Run {
	var out []Run
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			out = append(out, e.run(collapseSpace(c.Data), st))
		case html.ElementNode:
			inner := st
			switch c.DataAtom {
			case atom.Ul, atom.Ol, atom.Script, atom.Style:
				continue
			case atom.Br:
				out = append(out, e.run(" ", st))
				continue
			case atom.B, atom.Strong:
				inner.bold = true
			case atom.I, atom.Em:
				inner.italic = true
			case atom.Sup:
				inner.rise += st.size * 0.33
				inner.size = st.size * 0.6
			case atom.Sub:
				inner.rise -= st.size * 0.2
				inner.size = st.size * 0.6
			case atom.A:
				if href, ok := attr(c, "href"); ok {
					inner.link = href
				}
			}
			out = append(out, e.htmlRuns(c, inner)...)
		}
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// collapseSpace replaces each run of whitespace with a single space.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

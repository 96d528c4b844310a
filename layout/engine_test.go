package layout

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfcore/builder"
	"github.com/wudi/pdfcore/compliance"
)

func newEngine(t *testing.T, opts ...Option) (*builder.Document, *Engine) {
	t.Helper()
	doc, err := builder.New(&bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(doc, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return doc, e
}

func allContent(doc *builder.Document) string {
	var b strings.Builder
	for _, p := range doc.Pages() {
		b.Write(p.Bytes())
	}
	return b.String()
}

func allLinks(doc *builder.Document) []string {
	var out []string
	for _, p := range doc.Pages() {
		for _, a := range p.Annotations() {
			out = append(out, a.URI)
		}
	}
	return out
}

func TestPageBreaks(t *testing.T) {
	courier := standard(t, "Courier", 10)
	doc, e := newEngine(t,
		WithFont(courier),
		WithFontSize(10),
		WithLeading(12),
		WithParagraphSpacing(0),
		WithPageSize(builder.Size{Width: 200, Height: 100}),
		WithMargins(Margins{10, 10, 10, 10}),
	)
	// 80pt of column holds six 12pt lines.
	for i := range 20 {
		if err := e.Text(fmt.Sprintf("line %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	pages := doc.Pages()
	if len(pages) != 4 {
		t.Fatalf("got %d pages, want 4", len(pages))
	}
	var perPage []int
	for _, p := range pages {
		perPage = append(perPage, strings.Count(string(p.Bytes()), "BT "))
	}
	if diff := cmp.Diff([]int{6, 6, 6, 2}, perPage); diff != "" {
		t.Errorf("lines per page (-want +got):\n%s", diff)
	}
	if e.Page() != pages[3] {
		t.Error("engine is not on the last page")
	}
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	doc, e := newEngine(t)
	src := "# Title\n\nSome **strong** and *em* text with a [link](https://example.com).\n\n" +
		"- one\n- two\n\n1. first\n"
	if err := e.RenderMarkdown(src); err != nil {
		t.Fatal(err)
	}
	content := allContent(doc)
	// Regular, bold, italic and bold italic Helvetica are objects 1 to 4.
	for _, want := range []string{
		"/F2 24.000 Tf",
		"<5469746C65>",
		"/F2 12.000 Tf",
		"/F3 12.000 Tf",
		"<95206F6E65>",
		"<312E206669727374>",
		"0.000 0.000 0.800 rg",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("content lacks %q", want)
		}
	}
	if diff := cmp.Diff([]string{"https://example.com"}, allLinks(doc)); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRenderHTML(t *testing.T) {
	doc, e := newEngine(t)
	src := `<html><head><title>ignored</title></head><body>
<h2>Water</h2>
<p>H<sub>2</sub>O and x<sup>2</sup>, <b>bold</b> and <a href="https://example.com/a">a link</a>.</p>
<ol start="3"><li>three</li><li>four<ul><li>nested</li></ul></li></ol>
</body></html>`
	if err := e.RenderHTML(src); err != nil {
		t.Fatal(err)
	}
	content := allContent(doc)
	for _, want := range []string{
		"/F2 18.000 Tf",
		"/F1 7.200 Tf -2.400 Ts",
		"/F1 7.200 Tf 3.960 Ts",
		"<332E207468726565>",
		"<342E20666F7572>",
		"<9520",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("content lacks %q", want)
		}
	}
	if strings.Contains(content, "<69676E6F726564>") {
		t.Error("head text was rendered")
	}
	if diff := cmp.Diff([]string{"https://example.com/a"}, allLinks(doc)); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
}

func TestEngineArchivalNeedsEmbeddedFonts(t *testing.T) {
	doc, err := builder.New(&bytes.Buffer{}, builder.WithCompliance(compliance.PDFA))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(doc); err == nil {
		t.Fatal("NewEngine with standard fonts succeeded in archival mode")
	}
}

func TestNewEngineMargins(t *testing.T) {
	doc, err := builder.New(&bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewEngine(doc, WithPageSize(builder.Size{Width: 100, Height: 100}), WithMargins(Margins{Left: 60, Right: 60}))
	if err == nil {
		t.Fatal("NewEngine accepted margins wider than the page")
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := map[string]string{
		"a  b":       "a b",
		"\n a\tb \n": " a b ",
		"":           "",
	}
	for in, want := range tests {
		if got := collapseSpace(in); got != want {
			t.Errorf("collapseSpace(%q) = %q, want %q", in, got, want)
		}
	}
}

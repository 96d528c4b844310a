package layout

import (
	"fmt"

	"github.com/wudi/pdfcore/builder"
	"github.com/wudi/pdfcore/fonts"
)

// listIndent is how far list items and block quotes are indented per level.
const listIndent = 18

// Margins are page margins in points.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Family holds the faces used for plain, bold and italic text. Missing
// faces fall back to Regular.
type Family struct {
	Regular, Bold, Italic, BoldItalic *fonts.Font
}

func (f Family) pick(bold, italic bool) *fonts.Font {
	var face *fonts.Font
	switch {
	case bold && italic:
		face = f.BoldItalic
	case bold:
		face = f.Bold
	case italic:
		face = f.Italic
	}
	if face == nil {
		return f.Regular
	}
	return face
}

func (f Family) faces() []*fonts.Font {
	var out []*fonts.Font
	for _, face := range []*fonts.Font{f.Regular, f.Bold, f.Italic, f.BoldItalic} {
		if face != nil {
			out = append(out, face)
		}
	}
	return out
}

// Engine flows paragraphs down the pages of a document, starting a new
// page when the next line does not fit above the bottom margin.
type Engine struct {
	doc      *builder.Document
	family   Family
	fallback *fonts.Font
	size     float64
	leading  float64
	spacing  float64
	margins  Margins
	pageSize builder.Size
	align    Align

	page *builder.Page
	y    float64
}

type Option func(*Engine)

// WithFont uses one face for all text styles.
func WithFont(f *fonts.Font) Option {
	return func(e *Engine) { e.family = Family{Regular: f} }
}

func WithFontFamily(f Family) Option {
	return func(e *Engine) { e.family = f }
}

// WithFallback sets the font for runes the family does not cover.
func WithFallback(f *fonts.Font) Option {
	return func(e *Engine) { e.fallback = f }
}

func WithFontSize(size float64) Option {
	return func(e *Engine) { e.size = size }
}

// WithLeading sets the minimum baseline-to-baseline distance. The default
// is 1.2 times the font size.
func WithLeading(l float64) Option {
	return func(e *Engine) { e.leading = l }
}

// WithParagraphSpacing sets the gap after each paragraph. The default is
// half the font size.
func WithParagraphSpacing(s float64) Option {
	return func(e *Engine) { e.spacing = s }
}

func WithMargins(m Margins) Option {
	return func(e *Engine) { e.margins = m }
}

func WithPageSize(s builder.Size) Option {
	return func(e *Engine) { e.pageSize = s }
}

func WithAlignment(a Align) Option {
	return func(e *Engine) { e.align = a }
}

// NewEngine adds the engine's fonts to doc. Without a font option the
// Helvetica family is used.
func NewEngine(doc *builder.Document, opts ...Option) (*Engine, error) {
	e := &Engine{
		doc:      doc,
		size:     12,
		spacing:  -1,
		margins:  Margins{72, 72, 72, 72},
		pageSize: builder.Letter,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.family.Regular == nil {
		fam, err := helvetica()
		if err != nil {
			return nil, err
		}
		e.family = fam
	}
	if e.leading == 0 {
		e.leading = e.size * 1.2
	}
	if e.spacing < 0 {
		e.spacing = e.size / 2
	}
	if e.contentWidth() <= 0 {
		return nil, fmt.Errorf("margins leave no room on a %gx%g page", e.pageSize.Width, e.pageSize.Height)
	}
	faces := e.family.faces()
	if e.fallback != nil {
		faces = append(faces, e.fallback)
	}
	for _, f := range faces {
		if err := doc.AddFont(f); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func helvetica() (Family, error) {
	var fam Family
	for _, face := range []struct {
		dst  **fonts.Font
		name string
	}{
		{&fam.Regular, "Helvetica"},
		{&fam.Bold, "Helvetica-Bold"},
		{&fam.Italic, "Helvetica-Oblique"},
		{&fam.BoldItalic, "Helvetica-BoldOblique"},
	} {
		f, err := fonts.NewStandardFont(face.name)
		if err != nil {
			return Family{}, err
		}
		*face.dst = f
	}
	return fam, nil
}

func (e *Engine) contentWidth() float64 {
	return e.pageSize.Width - e.margins.Left - e.margins.Right
}

// Page returns the page being filled, or nil before anything was added.
func (e *Engine) Page() *builder.Page { return e.page }

func (e *Engine) newPage() error {
	p, err := e.doc.AddPage(e.pageSize)
	if err != nil {
		return err
	}
	e.page = p
	e.y = e.margins.Top
	return nil
}

// Add lays out p below the previous paragraph, breaking pages between
// lines.
func (e *Engine) Add(p Paragraph) error {
	if e.page == nil {
		if err := e.newPage(); err != nil {
			return err
		}
	}
	for _, l := range breakLines(p, e.contentWidth()-p.Indent) {
		h := l.Height(e.leading)
		if e.y+h > e.pageSize.Height-e.margins.Bottom && e.y > e.margins.Top {
			if err := e.newPage(); err != nil {
				return err
			}
		}
		if err := drawLine(e.page, e.margins.Left, e.y, e.contentWidth(), e.leading, l); err != nil {
			return err
		}
		e.y += h
	}
	e.y += e.spacing
	return nil
}

// Text adds a paragraph of plain text in the regular face.
func (e *Engine) Text(s string) error {
	return e.Add(Paragraph{Runs: []Run{e.run(s, style{size: e.size})}, Align: e.align})
}

type style struct {
	bold, italic bool
	size, rise   float64
	link         string
}

var linkColor = Color{0, 0, 0.8}

func (e *Engine) run(text string, st style) Run {
	r := Run{
		Text:     text,
		Font:     e.family.pick(st.bold, st.italic),
		Fallback: e.fallback,
		Size:     st.size,
		Rise:     st.rise,
		Link:     st.link,
	}
	if st.link != "" {
		r.Color = linkColor
	}
	return r
}

var headingScale = [...]float64{2, 1.5, 1.25, 1.1, 1, 1}

func (e *Engine) heading(level int) style {
	level = min(max(level, 1), len(headingScale))
	return style{bold: true, size: e.size * headingScale[level-1]}
}

// Package layout breaks styled text into lines and flows it over pages.
package layout

import (
	"unicode"

	"github.com/wudi/pdfcore/builder"
	"github.com/wudi/pdfcore/fonts"
)

type Align int

const (
	Left Align = iota
	Right
	Center
	Justify
)

// Color is an RGB fill color with components in 0..1.
type Color struct {
	R, G, B float64
}

// Run is text in one style. Rise raises the run above the baseline of its
// line, or lowers it when negative. A zero Size means the font's size.
type Run struct {
	Text     string
	Font     *fonts.Font
	Fallback *fonts.Font
	Size     float64
	Color    Color
	Rise     float64
	Link     string
}

// Paragraph is a sequence of runs laid out together. Indent narrows the
// paragraph from the left.
type Paragraph struct {
	Runs   []Run
	Align  Align
	Indent float64
}

// Fragment is a positioned piece of a line drawn with a single font.
type Fragment struct {
	X     float64
	Width float64
	Text  string
	Font  *fonts.Font
	Size  float64
	Rise  float64
	Color Color
	Link  string

	gap int // word gaps before this fragment
}

// Line is one laid-out line of a paragraph.
type Line struct {
	Fragments []Fragment
	Ascent    float64
	Descent   float64
	Width     float64
	Align     Align
	Indent    float64
	Last      bool

	gaps int
}

// Height is the vertical space the line takes with the given leading.
func (l Line) Height(leading float64) float64 {
	return max(leading, l.Ascent+l.Descent)
}

// measure is the width of text in run's font at run's size.
func measure(r Run, text string) float64 {
	if r.Font.Size() == 0 {
		return 0
	}
	return r.Font.StringWidth(text) * r.Size / r.Font.Size()
}

// splitFallback resolves sizes and gives runes the primary font lacks to
// the fallback font, so every run has a single font.
func splitFallback(runs []Run) []Run {
	var out []Run
	for _, r := range runs {
		if r.Font == nil || r.Text == "" {
			continue
		}
		if r.Size == 0 {
			r.Size = r.Font.Size()
		}
		if r.Fallback == nil {
			out = append(out, r)
			continue
		}
		for _, fr := range fonts.Runs(r.Font, r.Fallback, r.Text) {
			sub := r
			sub.Text = fr.Text
			sub.Font = fr.Font
			sub.Fallback = nil
			out = append(out, sub)
		}
	}
	return out
}

type segment struct {
	run  int
	text string
}

type word struct {
	segs  []segment
	space float64 // width of the space before the word
	width float64
}

func words(runs []Run) []word {
	var out []word
	var cur word
	pending := false
	spaceRun := 0
	for i, r := range runs {
		for _, c := range r.Text {
			if unicode.IsSpace(c) {
				pending = true
				spaceRun = i
				continue
			}
			if pending && len(cur.segs) > 0 {
				out = append(out, cur)
				cur = word{space: measure(runs[spaceRun], " ")}
			}
			pending = false
			if n := len(cur.segs); n > 0 && cur.segs[n-1].run == i {
				cur.segs[n-1].text += string(c)
			} else {
				cur.segs = append(cur.segs, segment{run: i, text: string(c)})
			}
		}
	}
	if len(cur.segs) > 0 {
		out = append(out, cur)
	}
	for i := range out {
		for _, s := range out[i].segs {
			out[i].width += measure(runs[s.run], s.text)
		}
	}
	return out
}

// breakLines fills lines greedily, breaking only at spaces. A word wider
// than width gets a line of its own and overflows it.
func breakLines(p Paragraph, width float64) []Line {
	runs := splitFallback(p.Runs)
	ws := words(runs)

	var lines []Line
	start, lineWidth := 0, 0.0
	for i, w := range ws {
		if i > start && lineWidth+w.space+w.width > width {
			lines = append(lines, layoutLine(p, runs, ws[start:i]))
			start, lineWidth = i, 0
		}
		if i > start {
			lineWidth += w.space
		}
		lineWidth += w.width
	}
	if start < len(ws) {
		lines = append(lines, layoutLine(p, runs, ws[start:]))
	}
	if len(lines) > 0 {
		lines[len(lines)-1].Last = true
	}
	return lines
}

// layoutLine positions the words of one line. Outside justified text,
// neighbouring pieces of the same run are merged with their spaces.
func layoutLine(p Paragraph, runs []Run, ws []word) Line {
	l := Line{Align: p.Align, Indent: p.Indent}
	merge := p.Align != Justify
	x := 0.0
	for i, w := range ws {
		for j, s := range w.segs {
			r := runs[s.run]
			gapBefore := i > 0 && j == 0
			if n := len(l.Fragments); merge && n > 0 && l.Fragments[n-1].Font == r.Font &&
				l.Fragments[n-1].Size == r.Size && l.Fragments[n-1].Rise == r.Rise &&
				l.Fragments[n-1].Color == r.Color && l.Fragments[n-1].Link == r.Link {
				last := &l.Fragments[n-1]
				if gapBefore {
					last.Text += " "
				}
				last.Text += s.text
				last.Width = measure(r, last.Text)
				x = last.X + last.Width
				continue
			}
			if gapBefore {
				x += w.space
				l.gaps++
			}
			f := Fragment{
				X: x, Width: measure(r, s.text), Text: s.text,
				Font: r.Font, Size: r.Size, Rise: r.Rise, Color: r.Color, Link: r.Link,
				gap: l.gaps,
			}
			x += f.Width
			l.Fragments = append(l.Fragments, f)

			scale := r.Size / r.Font.Size()
			l.Ascent = max(l.Ascent, r.Font.Ascent()*scale+r.Rise)
			l.Descent = max(l.Descent, r.Font.Descent()*scale-r.Rise)
		}
	}
	l.Width = x
	return l
}

// TextBox lays paragraphs out in a column of fixed width.
type TextBox struct {
	Width            float64
	Leading          float64
	ParagraphSpacing float64
}

func (b TextBox) lines(ps []Paragraph) ([][]Line, float64) {
	out := make([][]Line, len(ps))
	height := 0.0
	for i, p := range ps {
		out[i] = breakLines(p, b.Width-p.Indent)
		for _, l := range out[i] {
			height += l.Height(b.Leading)
		}
		if i < len(ps)-1 {
			height += b.ParagraphSpacing
		}
	}
	return out, height
}

// Measure returns the height the paragraphs take and their lines.
func (b TextBox) Measure(ps []Paragraph) (float64, []Line) {
	byParagraph, height := b.lines(ps)
	var all []Line
	for _, ls := range byParagraph {
		all = append(all, ls...)
	}
	return height, all
}

// Draw draws the paragraphs with the box's top-left corner at (x, y) and
// returns the height used, which equals what Measure reports.
func (b TextBox) Draw(page *builder.Page, x, y float64, ps []Paragraph) (float64, error) {
	byParagraph, height := b.lines(ps)
	top := y
	for i, ls := range byParagraph {
		for _, l := range ls {
			if err := drawLine(page, x, top, b.Width, b.Leading, l); err != nil {
				return 0, err
			}
			top += l.Height(b.Leading)
		}
		if i < len(byParagraph)-1 {
			top += b.ParagraphSpacing
		}
	}
	return height, nil
}

// drawLine draws l with its top at y in a column of the given width.
func drawLine(page *builder.Page, x, y, width, leading float64, l Line) error {
	baseline := y + l.Height(leading) - l.Descent
	avail := width - l.Indent
	shift, extra := 0.0, 0.0
	switch l.Align {
	case Right:
		shift = avail - l.Width
	case Center:
		shift = (avail - l.Width) / 2
	case Justify:
		if !l.Last && l.gaps > 0 {
			extra = (avail - l.Width) / float64(l.gaps)
		}
	}

	color, saved := Color{}, false
	for _, f := range l.Fragments {
		fx := x + l.Indent + shift + f.X + float64(f.gap)*extra
		if f.Color != color {
			if !saved {
				page.Save()
				saved = true
			}
			page.SetColor(f.Color.R, f.Color.G, f.Color.B)
			color = f.Color
		}
		size := f.Font.Size()
		f.Font.SetSize(f.Size)
		err := page.DrawStringRise(f.Font, f.Text, fx, baseline, f.Rise)
		f.Font.SetSize(size)
		if err != nil {
			return err
		}
		if f.Link != "" {
			scale := f.Size / size
			asc := f.Font.Ascent()*scale + f.Rise
			desc := f.Font.Descent()*scale - f.Rise
			box := builder.Box{X: fx, Y: baseline - asc, W: f.Width, H: asc + desc}
			if err := page.AddLink(box, f.Link); err != nil {
				return err
			}
		}
	}
	if saved {
		page.Restore()
	}
	return page.Err
}

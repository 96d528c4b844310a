package builder

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/pdfcore/coords"
	"github.com/wudi/pdfcore/fonts"
)

// Content is the operator stream of one page. Coordinates are given with
// the origin at the top-left of the page; y is flipped as each operator is
// written.
//
// Path and state operators do not return errors. The first failure is kept
// in Err and later operators become no-ops.
type Content struct {
	buf  bytes.Buffer
	page *Page
	Err  error
}

// num formats v with three decimals and no negative zero.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

func (c *Content) flip(y float64) float64 { return c.page.height - y }

func (c *Content) ok() bool {
	if c.Err == nil && c.page.finished {
		c.Err = ErrPageFinished
	}
	return c.Err == nil
}

func (c *Content) op(operands ...string) {
	c.buf.WriteString(strings.Join(operands, " "))
	c.buf.WriteByte('\n')
}

// Bytes returns the operators written so far.
func (c *Content) Bytes() []byte { return c.buf.Bytes() }

func (c *Content) MoveTo(x, y float64) {
	if c.ok() {
		c.op(num(x), num(c.flip(y)), "m")
	}
}

func (c *Content) LineTo(x, y float64) {
	if c.ok() {
		c.op(num(x), num(c.flip(y)), "l")
	}
}

// CurveTo appends a cubic Bézier segment with control points (x1, y1) and
// (x2, y2) ending at (x3, y3).
func (c *Content) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	if c.ok() {
		c.op(num(x1), num(c.flip(y1)), num(x2), num(c.flip(y2)), num(x3), num(c.flip(y3)), "c")
	}
}

// Rect appends a rectangle whose top-left corner is (x, y).
func (c *Content) Rect(x, y, w, h float64) {
	if c.ok() {
		c.op(num(x), num(c.flip(y+h)), num(w), num(h), "re")
	}
}

func (c *Content) ClosePath() {
	if c.ok() {
		c.op("h")
	}
}

func (c *Content) Stroke() {
	if c.ok() {
		c.op("S")
	}
}

func (c *Content) Fill() {
	if c.ok() {
		c.op("f")
	}
}

func (c *Content) FillStroke() {
	if c.ok() {
		c.op("B")
	}
}

func (c *Content) SetPenWidth(w float64) {
	if c.ok() {
		c.op(num(w), "w")
	}
}

// SetLineDash sets the dash array and phase. An empty pattern draws solid
// lines.
func (c *Content) SetLineDash(pattern []float64, phase float64) {
	if !c.ok() {
		return
	}
	parts := make([]string, len(pattern))
	for i, v := range pattern {
		parts[i] = num(v)
	}
	c.op("["+strings.Join(parts, " ")+"]", num(phase), "d")
}

type LineCap int

const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

type LineJoin int

const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

func (c *Content) SetLineCap(lc LineCap) {
	if c.ok() {
		c.op(strconv.Itoa(int(lc)), "J")
	}
}

func (c *Content) SetLineJoin(lj LineJoin) {
	if c.ok() {
		c.op(strconv.Itoa(int(lj)), "j")
	}
}

// SetColor sets the fill color. Components are in 0..1.
func (c *Content) SetColor(r, g, b float64) {
	if c.ok() {
		c.op(num(r), num(g), num(b), "rg")
	}
}

func (c *Content) SetStrokeColor(r, g, b float64) {
	if c.ok() {
		c.op(num(r), num(g), num(b), "RG")
	}
}

func (c *Content) Save() {
	if c.ok() {
		c.op("q")
	}
}

func (c *Content) Restore() {
	if c.ok() {
		c.op("Q")
	}
}

// Transform concatenates m to the current transformation matrix. m is in
// PDF user space; no flip is applied.
func (c *Content) Transform(m coords.Matrix) {
	if c.ok() {
		c.op(num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]), "cm")
	}
}

func (c *Content) BeginText() {
	if c.ok() {
		c.op("BT")
	}
}

func (c *Content) EndText() {
	if c.ok() {
		c.op("ET")
	}
}

// BeginMarked opens a marked-content sequence tagged with an MCID.
func (c *Content) BeginMarked(tag string, mcid int) {
	if c.ok() {
		c.op("/"+tag, "<</MCID "+strconv.Itoa(mcid)+">>", "BDC")
	}
}

func (c *Content) EndMarked() {
	if c.ok() {
		c.op("EMC")
	}
}

// DrawString shows text with its baseline starting at (x, y). The font must
// have been added to the document.
func (c *Content) DrawString(f *fonts.Font, text string, x, y float64) error {
	return c.DrawStringRise(f, text, x, y, 0)
}

// DrawStringRise is DrawString with the baseline raised by rise points,
// for superscripts (positive) and subscripts (negative).
func (c *Content) DrawStringRise(f *fonts.Font, text string, x, y, rise float64) error {
	if !c.ok() {
		return c.Err
	}
	name, err := c.page.doc.fontName(f)
	if err != nil {
		return err
	}
	c.buf.WriteString("BT /" + name + " " + num(f.Size()) + " Tf ")
	if rise != 0 {
		c.buf.WriteString(num(rise) + " Ts ")
	}
	c.buf.WriteString(num(x) + " " + num(c.flip(y)) + " Td [")
	for i, p := range f.Pieces(text) {
		if i > 0 {
			c.buf.WriteByte(' ')
		}
		fmt.Fprintf(&c.buf, "<%X>", p.Codes)
		if p.Adjust != 0 {
			c.buf.WriteString(" " + strconv.Itoa(p.Adjust))
		}
	}
	c.buf.WriteString("] TJ ")
	if rise != 0 {
		// Ts outlives ET
		c.buf.WriteString("0 Ts ")
	}
	c.buf.WriteString("ET\n")
	return nil
}

// DrawStringWithFallback draws the runes font lacks with fallback. Each
// run advances x by its own width, measured the same way as
// fonts.StringWidthWithFallback.
func (c *Content) DrawStringWithFallback(f, fallback *fonts.Font, text string, x, y float64) error {
	for _, run := range fonts.Runs(f, fallback, text) {
		if err := c.DrawString(run.Font, run.Text, x, y); err != nil {
			return err
		}
		x += run.Font.StringWidth(run.Text)
	}
	return nil
}

// DrawImage paints img into the w by h box whose top-left corner is (x, y).
func (c *Content) DrawImage(img *Image, x, y, w, h float64) error {
	if !c.ok() {
		return c.Err
	}
	name, err := c.page.doc.imageName(img)
	if err != nil {
		return err
	}
	c.op("q")
	c.op(num(w), "0", "0", num(h), num(x), num(c.flip(y+h)), "cm")
	c.op("/"+name, "Do")
	c.op("Q")
	c.page.imageDrawn(name)
	return nil
}

// SetGraphicsState sets fill and stroke opacity through an ExtGState
// resource.
func (c *Content) SetGraphicsState(alpha float64) error {
	if !c.ok() {
		return c.Err
	}
	name, err := c.page.doc.extGState(alpha)
	if err != nil {
		return err
	}
	c.op("/"+name, "gs")
	return nil
}

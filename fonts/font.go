// Package fonts measures and encodes text for the standard 14 fonts,
// embedded TrueType fonts and the predefined CJK fonts.
package fonts

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrUnknownFont    = errors.New("fonts: unknown standard font")
	ErrUnsupportedCJK = errors.New("fonts: unsupported CJK font")
	ErrAlreadyBound   = errors.New("fonts: font already has an object number")
)

type Kind int

const (
	Standard Kind = iota
	Embedded
	CJK
)

func (k Kind) String() string {
	switch k {
	case Standard:
		return "standard"
	case Embedded:
		return "embedded"
	case CJK:
		return "cjk"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const defaultSize = 12

// Font is a face at a size. Widths are kept in font units and scaled by
// size/unitsPerEm when measuring.
type Font struct {
	kind    Kind
	name    string
	size    float64
	kerning bool
	objNum  int

	unitsPerEm         int
	ascent             int
	descent            int // negative
	capHeight          int
	bbox               [4]int
	italicAngle        float64
	stemV              int
	flags              int
	underlinePosition  int
	underlineThickness int

	std *standardMetrics
	tt  *trueType
	cjk *cjkInfo
}

func (f *Font) Kind() Kind    { return f.kind }
func (f *Font) Name() string  { return f.name }
func (f *Font) Size() float64 { return f.size }

func (f *Font) SetSize(s float64) { f.size = s }

// SetKerning turns pair kerning on or off. Only standard fonts carry
// kerning data; the flag is ignored for the others.
func (f *Font) SetKerning(on bool) { f.kerning = on }
func (f *Font) Kerning() bool      { return f.kerning && f.kind == Standard }

// ObjectNumber is the number assigned when the font was registered with a
// document, or 0.
func (f *Font) ObjectNumber() int { return f.objNum }

// Bind fixes the font's object number. It can be called once.
func (f *Font) Bind(num int) error {
	if f.objNum != 0 && f.objNum != num {
		return fmt.Errorf("%w: %d", ErrAlreadyBound, f.objNum)
	}
	f.objNum = num
	return nil
}

// IsEmbedded reports whether the font program travels with the document.
func (f *Font) IsEmbedded() bool { return f.kind == Embedded }

func (f *Font) scale() float64 { return f.size / float64(f.unitsPerEm) }

// Ascent is the height above the baseline at the current size.
func (f *Font) Ascent() float64 { return float64(f.ascent) * f.scale() }

// Descent is the depth below the baseline at the current size, as a
// positive number.
func (f *Font) Descent() float64 { return -float64(f.descent) * f.scale() }

func (f *Font) CapHeight() float64 { return float64(f.capHeight) * f.scale() }

// BodyHeight is ascent plus descent.
func (f *Font) BodyHeight() float64 { return f.Ascent() + f.Descent() }

func (f *Font) UnderlinePosition() float64  { return float64(f.underlinePosition) * f.scale() }
func (f *Font) UnderlineThickness() float64 { return float64(f.underlineThickness) * f.scale() }

// Metrics are the descriptor values in glyph space (1/1000 em).
type Metrics struct {
	Ascent      int
	Descent     int
	CapHeight   int
	BBox        [4]int
	ItalicAngle float64
	StemV       int
	Flags       int
}

func (f *Font) Metrics() Metrics {
	toGlyph := func(v int) int { return v * 1000 / f.unitsPerEm }
	return Metrics{
		Ascent:      toGlyph(f.ascent),
		Descent:     toGlyph(f.descent),
		CapHeight:   toGlyph(f.capHeight),
		BBox:        [4]int{toGlyph(f.bbox[0]), toGlyph(f.bbox[1]), toGlyph(f.bbox[2]), toGlyph(f.bbox[3])},
		ItalicAngle: f.italicAngle,
		StemV:       f.stemV,
		Flags:       f.flags,
	}
}

// Covers reports whether the font has a glyph for r.
func (f *Font) Covers(r rune) bool {
	switch f.kind {
	case Standard:
		_, ok := f.stdCode(r)
		return ok
	case Embedded:
		return f.tt.glyph(r) != 0
	default:
		return r <= 0xFFFF
	}
}

// advances calls fn for each rune of text with its advance in font units
// and the kerning between it and the previous rune. StringWidth, FitChars
// and Pieces all walk text through here so they agree to the last unit.
func (f *Font) advances(text string, fn func(r rune, units int, kern int) bool) {
	kerning := f.Kerning()
	var prev byte
	havePrev := false
	for _, r := range text {
		var units, kern int
		switch f.kind {
		case Standard:
			code, _ := f.stdCode(r)
			units = f.stdWidth(code)
			if kerning && havePrev {
				kern = f.stdKern(prev, code)
			}
			prev, havePrev = code, true
		case Embedded:
			units = f.tt.width(f.tt.glyph(r))
		case CJK:
			units = f.ascent
		}
		if !fn(r, units, kern) {
			return
		}
	}
}

// StringWidth is the advance of text at the current size.
func (f *Font) StringWidth(text string) float64 {
	total := 0
	f.advances(text, func(_ rune, units, kern int) bool {
		total += units + kern
		return true
	})
	return float64(total) * f.scale()
}

// FitChars returns how many leading characters of text fit in width.
func (f *Font) FitChars(text string, width float64) int {
	limit := width / f.scale()
	total, n := 0, 0
	f.advances(text, func(_ rune, units, kern int) bool {
		if float64(total+units+kern) > limit {
			return false
		}
		total += units + kern
		n++
		return true
	})
	return n
}

// Piece is a run of character codes followed by a TJ position adjustment
// in 1/1000 em. A positive Adjust moves the next piece left.
type Piece struct {
	Codes  []byte
	Adjust int
}

// Pieces encodes text for a TJ array. Kerned standard text is split at
// every kerned pair with Adjust set to the negated kerning value; other
// fonts yield a single piece. Glyphs of embedded fonts are recorded for
// subsetting.
func (f *Font) Pieces(text string) []Piece {
	var out []Piece
	cur := Piece{}
	f.advances(text, func(r rune, _ int, kern int) bool {
		if kern != 0 && len(cur.Codes) > 0 {
			cur.Adjust = -kern
			out = append(out, cur)
			cur = Piece{}
		}
		cur.Codes = f.appendCode(cur.Codes, r)
		return true
	})
	if len(cur.Codes) > 0 || len(out) == 0 {
		out = append(out, cur)
	}
	return out
}

// Encode returns the character codes for text without kerning.
func (f *Font) Encode(text string) []byte {
	out := make([]byte, 0, len(text)*2)
	for _, r := range text {
		out = f.appendCode(out, r)
	}
	return out
}

func (f *Font) appendCode(dst []byte, r rune) []byte {
	switch f.kind {
	case Standard:
		code, _ := f.stdCode(r)
		return append(dst, code)
	case Embedded:
		gid := f.tt.glyph(r)
		f.tt.markUsed(gid, r)
		return append(dst, byte(gid>>8), byte(gid))
	default:
		if r > 0xFFFF {
			r = utf8.RuneError
		}
		return append(dst, byte(r>>8), byte(r))
	}
}

// Run is a maximal stretch of text drawn with one font.
type Run struct {
	Font *Font
	Text string
}

// Runs splits text into runs by whether primary covers each rune. Runes
// primary lacks go to fallback. A nil fallback yields a single run.
func Runs(primary, fallback *Font, text string) []Run {
	if fallback == nil || text == "" {
		return []Run{{Font: primary, Text: text}}
	}
	var out []Run
	start := 0
	var curFont *Font
	for i, r := range text {
		want := primary
		if !primary.Covers(r) {
			want = fallback
		}
		if curFont != nil && want != curFont {
			out = append(out, Run{Font: curFont, Text: text[start:i]})
			start = i
		}
		curFont = want
	}
	out = append(out, Run{Font: curFont, Text: text[start:]})
	return out
}

// StringWidthWithFallback sums the widths of Runs(primary, fallback, text).
// Both fonts are measured at their own sizes.
func StringWidthWithFallback(primary, fallback *Font, text string) float64 {
	w := 0.0
	for _, run := range Runs(primary, fallback, text) {
		w += run.Font.StringWidth(run.Text)
	}
	return w
}

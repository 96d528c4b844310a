package fonts

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdfcore/ir/raw"
)

type standardMetrics struct {
	widths      *[224]int16 // nil for the fixed-pitch Courier faces
	kern        *kernPairs
	ascent      int
	descent     int
	capHeight   int
	bbox        [4]int
	italicAngle float64
	stemV       int
	flags       int
	symbolic    bool
}

const (
	flagFixedPitch = 1 << 0
	flagSerif      = 1 << 1
	flagSymbolic   = 1 << 2
	flagNonSymbol  = 1 << 5
	flagItalic     = 1 << 6
)

var standardFonts = map[string]standardMetrics{
	"Helvetica":             {widths: &helveticaWidths, kern: helveticaKern, ascent: 718, descent: -207, capHeight: 718, bbox: [4]int{-166, -225, 1000, 931}, stemV: 88, flags: flagNonSymbol},
	"Helvetica-Bold":        {widths: &helveticaBoldWidths, kern: helveticaKern, ascent: 718, descent: -207, capHeight: 718, bbox: [4]int{-170, -228, 1003, 962}, stemV: 140, flags: flagNonSymbol},
	"Helvetica-Oblique":     {widths: &helveticaWidths, kern: helveticaKern, ascent: 718, descent: -207, capHeight: 718, bbox: [4]int{-170, -225, 1116, 931}, italicAngle: -12, stemV: 88, flags: flagNonSymbol | flagItalic},
	"Helvetica-BoldOblique": {widths: &helveticaBoldWidths, kern: helveticaKern, ascent: 718, descent: -207, capHeight: 718, bbox: [4]int{-174, -228, 1114, 962}, italicAngle: -12, stemV: 140, flags: flagNonSymbol | flagItalic},
	"Times-Roman":           {widths: &timesRomanWidths, kern: timesKern, ascent: 683, descent: -217, capHeight: 662, bbox: [4]int{-168, -218, 1000, 898}, stemV: 85, flags: flagNonSymbol | flagSerif},
	"Times-Bold":            {widths: &timesBoldWidths, kern: timesKern, ascent: 683, descent: -217, capHeight: 676, bbox: [4]int{-168, -218, 1000, 935}, stemV: 139, flags: flagNonSymbol | flagSerif},
	"Times-Italic":          {widths: &timesItalicWidths, kern: timesKern, ascent: 683, descent: -217, capHeight: 653, bbox: [4]int{-169, -217, 1010, 883}, italicAngle: -15.5, stemV: 76, flags: flagNonSymbol | flagSerif | flagItalic},
	"Times-BoldItalic":      {widths: &timesBoldItalicWidths, kern: timesKern, ascent: 683, descent: -217, capHeight: 669, bbox: [4]int{-200, -218, 996, 921}, italicAngle: -15, stemV: 121, flags: flagNonSymbol | flagSerif | flagItalic},
	"Courier":               {ascent: 629, descent: -157, capHeight: 562, bbox: [4]int{-23, -250, 715, 805}, stemV: 51, flags: flagNonSymbol | flagFixedPitch | flagSerif},
	"Courier-Bold":          {ascent: 629, descent: -157, capHeight: 562, bbox: [4]int{-113, -250, 749, 801}, stemV: 106, flags: flagNonSymbol | flagFixedPitch | flagSerif},
	"Courier-Oblique":       {ascent: 629, descent: -157, capHeight: 562, bbox: [4]int{-27, -250, 849, 805}, italicAngle: -12, stemV: 51, flags: flagNonSymbol | flagFixedPitch | flagSerif | flagItalic},
	"Courier-BoldOblique":   {ascent: 629, descent: -157, capHeight: 562, bbox: [4]int{-57, -250, 869, 801}, italicAngle: -12, stemV: 106, flags: flagNonSymbol | flagFixedPitch | flagSerif | flagItalic},
	"Symbol":                {widths: &symbolWidths, ascent: 1010, descent: -293, capHeight: 673, bbox: [4]int{-180, -293, 1090, 1010}, stemV: 85, flags: flagSymbolic, symbolic: true},
	"ZapfDingbats":          {widths: &zapfDingbatsWidths, ascent: 820, descent: -143, capHeight: 820, bbox: [4]int{-1, -143, 981, 820}, stemV: 90, flags: flagSymbolic, symbolic: true},
}

// StandardFontNames lists the 14 built-in base fonts.
var StandardFontNames = []string{
	"Courier", "Courier-Bold", "Courier-BoldOblique", "Courier-Oblique",
	"Helvetica", "Helvetica-Bold", "Helvetica-BoldOblique", "Helvetica-Oblique",
	"Symbol",
	"Times-Bold", "Times-BoldItalic", "Times-Italic", "Times-Roman",
	"ZapfDingbats",
}

// NewStandardFont returns one of the 14 built-in fonts at 12pt.
func NewStandardFont(name string) (*Font, error) {
	m, ok := standardFonts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFont, name)
	}
	f := &Font{
		kind:               Standard,
		name:               name,
		size:               defaultSize,
		unitsPerEm:         1000,
		ascent:             m.ascent,
		descent:            m.descent,
		capHeight:          m.capHeight,
		bbox:               m.bbox,
		italicAngle:        m.italicAngle,
		stemV:              m.stemV,
		flags:              m.flags,
		underlinePosition:  -100,
		underlineThickness: 50,
		std:                &m,
	}
	return f, nil
}

// stdCode maps r to its single-byte code. Latin fonts use WinAnsi; the two
// symbolic fonts take the low byte of codes below 256.
func (f *Font) stdCode(r rune) (byte, bool) {
	if f.std.symbolic {
		if r < 256 {
			return byte(r), true
		}
		return '?', false
	}
	if r < 0x80 {
		return byte(r), true
	}
	if b, ok := charmap.Windows1252.EncodeRune(r); ok {
		return b, true
	}
	return '?', false
}

// stdWidth is the advance of code in 1/1000 em.
func (f *Font) stdWidth(code byte) int {
	if code < 32 {
		return 0
	}
	if f.std.widths == nil {
		return 600
	}
	return int(f.std.widths[code-32])
}

type kernPair struct {
	second byte
	value  int16
}

// kernPairs holds, for each code from 32, the pairs that start with it.
type kernPairs [224][]kernPair

// stdKern is the kerning adjustment between two codes, negative when the
// pair moves closer. The first code's pair list is scanned in order.
func (f *Font) stdKern(first, second byte) int {
	if f.std.kern == nil || first < 32 {
		return 0
	}
	for _, p := range f.std.kern[first-32] {
		if p.second == second {
			return int(p.value)
		}
	}
	return 0
}

func kernTable(pairs string, values ...int16) *kernPairs {
	var t kernPairs
	for i, v := range values {
		first := pairs[2*i] - 32
		t[first] = append(t[first], kernPair{second: pairs[2*i+1], value: v})
	}
	return &t
}

// helveticaKern and timesKern carry the regular faces' AFM pairs. The bold
// and italic faces of each family reuse them, so their kerning approximates
// their own AFM pairs.
var helveticaKern = kernTable(
	"ATAVAWAYAvAwAyF,F.FALTLVLWLYLyP,P.PARTRVRWRYTAT,T.ToTaTeTrTuTyTwT:T-VAV,V.VaVeVoWAW,W.WaWeWoYAY,Y.YaYeYor,r.v,v.w,w.y,y.",
	-120, -70, -50, -100, -40, -40, -40, -150, -150, -80, -110, -110, -70, -140, -30, -180, -180, -120, -30, -50, -30, -50,
	-120, -120, -120, -120, -120, -120, -120, -120, -120, -120, -20, -140, -80, -125, -125, -70, -80, -80, -50, -80, -80, -40, -30, -30,
	-110, -140, -140, -140, -140, -140, -50, -50, -80, -80, -60, -60, -100, -100,
)

var timesKern = kernTable(
	"ATAVAWAYAvAwAyF,F.FALTLVLWLYLyP,P.PARTRVRWRYTAT,T.ToTaTeTrTuTyTwT-VAV,V.VaVeVoWAW,W.WaWeWoYAY,Y.YaYeYo",
	-111, -135, -90, -105, -74, -92, -92, -80, -80, -74, -92, -100, -74, -100, -55, -111, -111, -92, -60, -80, -55, -65,
	-93, -74, -74, -80, -80, -70, -35, -45, -80, -80, -92, -135, -129, -129, -111, -111, -129, -120, -92, -92, -80, -80, -80,
	-120, -129, -129, -100, -100, -110,
)

// StandardDict is the Type1 font dictionary for a standard font. The two
// symbolic fonts keep their built-in encoding.
func StandardDict(base string) *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Font"))
	d.Set("Subtype", raw.NameLiteral("Type1"))
	d.Set("BaseFont", raw.NameLiteral(base))
	if m, ok := standardFonts[base]; !ok || !m.symbolic {
		d.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	}
	return d
}

package fonts

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf16"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdfcore/ir/raw"
)

type trueType struct {
	data   []byte
	sf     *sfnt.Font
	buf    sfnt.Buffer
	widths []int // advance per glyph index, font units
	cmap   map[rune]uint16
	used   map[uint16]rune
}

// LoadTrueType parses a TrueType font for embedding with Identity-H
// encoding. Text is encoded as 2-byte glyph indices.
func LoadTrueType(data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("parse truetype: empty font data")
	}
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	upem := int(sf.UnitsPerEm())
	if upem <= 0 {
		return nil, fmt.Errorf("parse truetype: invalid unitsPerEm %d", upem)
	}
	tt := &trueType{
		data: data,
		sf:   sf,
		cmap: make(map[rune]uint16),
		used: make(map[uint16]rune),
	}
	ppem := fixed.Int26_6(upem << 6)

	name, _ := sf.Name(&tt.buf, sfnt.NameIDPostScript)
	name = strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' || strings.ContainsRune("()<>[]{}/%", r) {
			return -1
		}
		return r
	}, name)
	if name == "" {
		name = "EmbeddedFont"
	}

	tt.widths = make([]int, sf.NumGlyphs())
	for i := range tt.widths {
		adv, err := sf.GlyphAdvance(&tt.buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		tt.widths[i] = fromFixed(adv)
	}
	if len(tt.widths) == 0 {
		return nil, fmt.Errorf("parse truetype: font has no glyphs")
	}

	f := &Font{
		kind:       Embedded,
		name:       name,
		size:       defaultSize,
		unitsPerEm: upem,
		stemV:      80,
		flags:      flagNonSymbol,
		tt:         tt,
	}
	if m, err := sf.Metrics(&tt.buf, ppem, xfont.HintingNone); err == nil {
		f.ascent = fromFixed(m.Ascent)
		f.descent = -fromFixed(m.Descent)
		f.capHeight = fromFixed(m.CapHeight)
	}
	if f.capHeight == 0 {
		f.capHeight = f.ascent
	}
	if b, err := sf.Bounds(&tt.buf, ppem, xfont.HintingNone); err == nil {
		// sfnt bounds grow downwards
		f.bbox = [4]int{fromFixed(b.Min.X), -fromFixed(b.Max.Y), fromFixed(b.Max.X), -fromFixed(b.Min.Y)}
	}
	if post := sf.PostTable(); post != nil {
		f.italicAngle = post.ItalicAngle
		f.underlinePosition = int(post.UnderlinePosition)
		f.underlineThickness = int(post.UnderlineThickness)
		if post.IsFixedPitch {
			f.flags |= flagFixedPitch
		}
	}
	if f.italicAngle != 0 {
		f.flags |= flagItalic
	}
	if f.underlineThickness == 0 {
		f.underlinePosition, f.underlineThickness = -upem/10, upem/20
	}
	return f, nil
}

func fromFixed(v fixed.Int26_6) int { return int(math.Round(float64(v) / 64)) }

func (t *trueType) glyph(r rune) uint16 {
	if gid, ok := t.cmap[r]; ok {
		return gid
	}
	gid, err := t.sf.GlyphIndex(&t.buf, r)
	if err != nil {
		gid = 0
	}
	t.cmap[r] = uint16(gid)
	return uint16(gid)
}

func (t *trueType) width(gid uint16) int {
	if int(gid) < len(t.widths) {
		return t.widths[gid]
	}
	return t.widths[0]
}

func (t *trueType) markUsed(gid uint16, r rune) {
	if _, ok := t.used[gid]; !ok {
		t.used[gid] = r
	}
}

// UsedGlyphs lists the glyph indices encoded so far, ascending. Glyph 0 is
// always included.
func (f *Font) UsedGlyphs() []uint16 {
	if f.tt == nil {
		return nil
	}
	out := []uint16{0}
	for gid := range f.tt.used {
		if gid != 0 {
			out = append(out, gid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *Font) glyphWidth1000(gid uint16) int {
	return int(math.Round(float64(f.tt.width(gid)) * 1000 / float64(f.unitsPerEm)))
}

// DefaultWidth is glyph 0's advance in 1/1000 em, the CIDFont /DW.
func (f *Font) DefaultWidth() int {
	switch f.kind {
	case Embedded:
		return f.glyphWidth1000(0)
	case CJK:
		return 1000
	}
	return 0
}

// WidthsArray builds the CIDFont /W array for the used glyphs. Runs of
// consecutive glyphs with one width become "first last w"; other runs of
// consecutive glyphs become "first [w1 w2 ...]".
func (f *Font) WidthsArray() *raw.ArrayObj {
	w := raw.NewArray()
	gids := f.UsedGlyphs()
	for i := 0; i < len(gids); {
		j := i + 1
		for j < len(gids) && gids[j] == gids[j-1]+1 {
			j++
		}
		run := gids[i:j]
		same := len(run) > 1
		first := f.glyphWidth1000(run[0])
		for _, g := range run[1:] {
			if f.glyphWidth1000(g) != first {
				same = false
				break
			}
		}
		if same {
			w.Append(raw.NumberInt(int64(run[0])))
			w.Append(raw.NumberInt(int64(run[len(run)-1])))
			w.Append(raw.NumberInt(int64(first)))
		} else {
			list := raw.NewArray()
			for _, g := range run {
				list.Append(raw.NumberInt(int64(f.glyphWidth1000(g))))
			}
			w.Append(raw.NumberInt(int64(run[0])))
			w.Append(list)
		}
		i = j
	}
	return w
}

// ToUnicodeCMap maps every used glyph back to the text it was encoded from.
func (f *Font) ToUnicodeCMap() []byte {
	var b bytes.Buffer
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")

	var gids []uint16
	if f.tt != nil {
		for _, g := range f.UsedGlyphs() {
			if _, ok := f.tt.used[g]; ok {
				gids = append(gids, g)
			}
		}
	}
	for start := 0; start < len(gids); start += 100 {
		end := min(start+100, len(gids))
		fmt.Fprintf(&b, "%d beginbfchar\n", end-start)
		for _, g := range gids[start:end] {
			fmt.Fprintf(&b, "<%04X> <", g)
			for _, u := range utf16.Encode([]rune{f.tt.used[g]}) {
				fmt.Fprintf(&b, "%04X", u)
			}
			b.WriteString(">\n")
		}
		b.WriteString("endbfchar\n")
	}
	b.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
	return b.Bytes()
}

// SubsetTag is the six-letter prefix of the subset font name. It depends
// only on the glyph set, so the same text gives the same name.
func (f *Font) SubsetTag() string {
	h := sha256.New()
	for _, g := range f.UsedGlyphs() {
		h.Write([]byte{byte(g >> 8), byte(g)})
	}
	sum := h.Sum(nil)
	tag := make([]byte, 6)
	for i := range tag {
		tag[i] = 'A' + sum[i]%26
	}
	return string(tag)
}

// FontProgram returns the font file cut down to the used glyphs and the
// glyphs GSUB can reach from them. Glyph indices are unchanged.
func (f *Font) FontProgram() ([]byte, error) {
	if f.tt == nil {
		return nil, fmt.Errorf("font %s has no font program", f.name)
	}
	keep := make(map[int]bool)
	for _, g := range f.UsedGlyphs() {
		keep[int(g)] = true
	}
	if closure, err := ComputeClosureGSUB(f.tt.data, keep); err == nil {
		keep = closure
	}
	return SubsetTrueType(f.tt.data, keep)
}

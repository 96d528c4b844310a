// Package extractor recovers the text of parsed pages.
package extractor

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdfcore/contentstream"
	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/parser"
)

// Span is the text of one text-showing operation, positioned in default
// user space.
type Span struct {
	Text string
	Font string
	Size float64
	X, Y float64
}

// decoder turns the bytes of a shown string into text for one font. A
// composite font with neither a ToUnicode map nor a Unicode CMap decodes to
// replacement characters.
type decoder struct {
	cmap   *toUnicode
	utf16  bool
	simple *charmap.Charmap
}

func (d *decoder) decode(b []byte) string {
	switch {
	case d.cmap != nil:
		return d.cmap.decode(b)
	case d.utf16:
		return utf16BE(b)
	case d.simple == nil:
		return strings.Repeat("\uFFFD", len(b)/2)
	}
	s, err := d.simple.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// PageSpans returns the spans of page in content order.
func PageSpans(f *parser.File, page *parser.Object) ([]Span, error) {
	content, err := f.Contents(page)
	if err != nil {
		return nil, fmt.Errorf("page %d contents: %w", page.Num, err)
	}
	ops, err := contentstream.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("page %d contents: %w", page.Num, err)
	}
	shows, _, err := contentstream.Trace(ops)
	if err != nil {
		return nil, fmt.Errorf("page %d contents: %w", page.Num, err)
	}

	fonts := pageFonts(f, page)
	spans := make([]Span, 0, len(shows))
	for _, s := range shows {
		d, ok := fonts[s.Font]
		if !ok {
			d = &decoder{simple: charmap.Windows1252}
		}
		spans = append(spans, Span{Text: d.decode(s.Text), Font: s.Font, Size: s.Size, X: s.Origin.X, Y: s.Origin.Y})
	}
	return spans, nil
}

// PageText joins the spans of page: spans on one baseline are separated
// by a space and a change of baseline starts a new line.
func PageText(f *parser.File, page *parser.Object) (string, error) {
	spans, err := PageSpans(f, page)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, s := range spans {
		if i > 0 {
			prev := spans[i-1]
			if math.Abs(s.Y-prev.Y) > max(prev.Size, 1)/2 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(s.Text)
	}
	return b.String(), nil
}

func pageFonts(f *parser.File, page *parser.Object) map[string]*decoder {
	out := make(map[string]*decoder)
	res, ok := f.PageResources(page)
	if !ok {
		return out
	}
	v, _ := res.Get("Font")
	fonts, ok := f.ResolveDict(v)
	if !ok {
		return out
	}
	for _, name := range fonts.Keys() {
		v, _ := fonts.Get(name)
		if fd, ok := f.ResolveDict(v); ok {
			out[name] = fontDecoder(f, fd)
		}
	}
	return out
}

func fontDecoder(f *parser.File, font *raw.DictObj) *decoder {
	if v, ok := font.Get("ToUnicode"); ok {
		if s, ok := f.Resolve(v).(*raw.StreamObj); ok {
			if data, err := filters.DefaultPipeline().DecodeStream(s); err == nil {
				if m, err := parseToUnicode(data); err == nil && len(m.entries) > 0 {
					return &decoder{cmap: m}
				}
			}
		}
	}
	enc := encodingName(f, font)
	if sub, _ := font.Name("Subtype"); sub == "Type0" {
		return &decoder{utf16: strings.Contains(enc, "UCS2") || strings.Contains(enc, "UTF16")}
	}
	switch enc {
	case "MacRomanEncoding":
		return &decoder{simple: charmap.Macintosh}
	default:
		return &decoder{simple: charmap.Windows1252}
	}
}

// encodingName is the /Encoding name, or the /BaseEncoding of an encoding
// dictionary. Differences arrays are not applied.
func encodingName(f *parser.File, font *raw.DictObj) string {
	v, ok := font.Get("Encoding")
	if !ok {
		return ""
	}
	switch e := f.Resolve(v).(type) {
	case raw.NameObj:
		return e.Val
	case *raw.DictObj:
		name, _ := e.Name("BaseEncoding")
		return name
	}
	return ""
}

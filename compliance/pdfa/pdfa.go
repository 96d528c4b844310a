// Package pdfa produces the pieces an archival document needs (XMP
// metadata and an sRGB output intent) and validates the result.
package pdfa

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"seehuhn.de/go/icc"
	"seehuhn.de/go/xmp"

	"github.com/wudi/pdfcore/compliance"
	"github.com/wudi/pdfcore/fonts"
)

var ErrFontNotEmbedded = errors.New("pdfa: font is not embedded")

// Level is a PDF/A conformance level.
type Level int

const (
	PDFA1B Level = iota
	PDFA2B
)

func (l Level) String() string {
	switch l {
	case PDFA1B:
		return "PDF/A-1b"
	case PDFA2B:
		return "PDF/A-2b"
	default:
		return "Unknown"
	}
}

// Part is the pdfaid:part value.
func (l Level) Part() string {
	if l == PDFA2B {
		return "2"
	}
	return "1"
}

// Conformance is the pdfaid:conformance value.
func (l Level) Conformance() string { return "B" }

// Info is the document information mirrored into the XMP packet.
type Info struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	Producer string
	Language string
	Level    Level
}

// PDF is the Adobe PDF XMP namespace.
type PDF struct {
	_        xmp.Namespace `xmp:"http://ns.adobe.com/pdf/1.3/"`
	_        xmp.Prefix    `xmp:"pdf"`
	Keywords xmp.Text
	Producer xmp.AgentName
}

// ID is the PDF/A identification schema.
type ID struct {
	_           xmp.Namespace `xmp:"http://www.aiim.org/pdfa/ns/id/"`
	_           xmp.Prefix    `xmp:"pdfaid"`
	Part        xmp.Text      `xmp:"part"`
	Conformance xmp.Text      `xmp:"conformance"`
}

// Metadata serializes info as an XMP packet for the catalog /Metadata
// stream.
func Metadata(info Info) ([]byte, error) {
	dc := &xmp.DublinCore{}
	if info.Title != "" {
		dc.Title.Set(language.MustParse("x-default"), info.Title)
		if info.Language != "" {
			tag, err := language.Parse(info.Language)
			if err != nil {
				return nil, fmt.Errorf("document language %q: %w", info.Language, err)
			}
			dc.Title.Set(tag, info.Title)
		}
	}
	if info.Author != "" {
		dc.Creator.Append(xmp.NewProperName(info.Author))
	}
	if info.Subject != "" {
		dc.Description.Set(language.MustParse("x-default"), info.Subject)
	}

	pdf := &PDF{}
	if info.Keywords != "" {
		pdf.Keywords = xmp.NewText(info.Keywords)
	}
	if info.Producer != "" {
		pdf.Producer = xmp.NewAgentName(info.Producer)
	}
	id := &ID{
		Part:        xmp.NewText(info.Level.Part()),
		Conformance: xmp.NewText(info.Level.Conformance()),
	}

	packet := xmp.NewPacket()
	if err := packet.Set(dc, pdf, id); err != nil {
		return nil, fmt.Errorf("build xmp packet: %w", err)
	}
	var buf bytes.Buffer
	if err := packet.Write(&buf, &xmp.PacketOptions{Pretty: true}); err != nil {
		return nil, fmt.Errorf("write xmp packet: %w", err)
	}
	return buf.Bytes(), nil
}

// OutputCondition identifies the sRGB output intent.
const OutputCondition = "sRGB IEC61966-2.1"

// Intent is an ICC profile with the component count for its /N entry.
type Intent struct {
	Profile    []byte
	Components int
	Identifier string
}

// OutputIntent returns the sRGB profile every archival document embeds.
func OutputIntent() (Intent, error) {
	p, err := icc.Decode(icc.SRGBv2Profile)
	if err != nil {
		return Intent{}, fmt.Errorf("decode sRGB profile: %w", err)
	}
	if p.ColorSpace != icc.RGBSpace {
		return Intent{}, fmt.Errorf("sRGB profile has color space %v", p.ColorSpace)
	}
	return Intent{
		Profile:    icc.SRGBv2Profile,
		Components: p.ColorSpace.NumComponents(),
		Identifier: OutputCondition,
	}, nil
}

// CheckFont rejects fonts whose program would not be in the file.
func CheckFont(f *fonts.Font) error {
	if f.IsEmbedded() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrFontNotEmbedded, f.Name())
}

type validator struct{ level Level }

// NewValidator returns a validator for level.
func NewValidator(level Level) compliance.Validator { return validator{level: level} }

func (v validator) Validate(s compliance.Summary) *compliance.Report {
	r := compliance.NewReport(v.level.String())
	for _, f := range s.Fonts {
		if !f.Embedded {
			r.Add("PDFA001", "Font must be embedded", "Font "+f.Name)
		}
	}
	if !s.HasMetadata {
		r.Add("PDFA002", "XMP metadata stream is required", "Catalog")
	}
	if !s.HasOutputIntent {
		r.Add("PDFA003", "Output intent is required", "Catalog")
	}
	return r
}

// Validate checks s against PDF/A-1b.
func Validate(s compliance.Summary) *compliance.Report {
	return NewValidator(PDFA1B).Validate(s)
}

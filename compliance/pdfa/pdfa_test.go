package pdfa

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"
	"seehuhn.de/go/xmp"

	"github.com/wudi/pdfcore/compliance"
	"github.com/wudi/pdfcore/fonts"
)

func TestMetadataRoundTrip(t *testing.T) {
	data, err := Metadata(Info{
		Title:    "Annual Report",
		Author:   "A. Writer",
		Keywords: "report, pdf",
		Producer: "pdfcore",
		Language: "en-US",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"pdfaid", "Annual Report", "A. Writer"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("packet is missing %q", want)
		}
	}

	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	id := &ID{}
	packet.Get(id)
	if id.Part.V != "1" || id.Conformance.V != "B" {
		t.Fatalf("pdfaid = %q/%q", id.Part.V, id.Conformance.V)
	}
	pdf := &PDF{}
	packet.Get(pdf)
	if pdf.Keywords.V != "report, pdf" {
		t.Fatalf("keywords = %q", pdf.Keywords.V)
	}
}

func TestMetadataRejectsBadLanguage(t *testing.T) {
	if _, err := Metadata(Info{Title: "x", Language: "not a language!"}); err == nil {
		t.Fatal("expected an error for an invalid language tag")
	}
}

func TestOutputIntent(t *testing.T) {
	intent, err := OutputIntent()
	if err != nil {
		t.Fatal(err)
	}
	if intent.Components != 3 || intent.Identifier != "sRGB IEC61966-2.1" || len(intent.Profile) == 0 {
		t.Fatalf("intent = %d %q %d bytes", intent.Components, intent.Identifier, len(intent.Profile))
	}
}

func TestCheckFont(t *testing.T) {
	std, err := fonts.NewStandardFont("Helvetica")
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckFont(std); !errors.Is(err, ErrFontNotEmbedded) {
		t.Fatalf("standard font error = %v", err)
	}
	tt, err := fonts.LoadTrueType(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckFont(tt); err != nil {
		t.Fatalf("embedded font error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		summary compliance.Summary
		want    []string
	}{
		{
			name:    "compliant",
			summary: compliance.Summary{HasMetadata: true, HasOutputIntent: true, Fonts: []compliance.FontUse{{Name: "Go", Embedded: true}}},
			want:    []string{},
		},
		{
			name:    "everything missing",
			summary: compliance.Summary{Fonts: []compliance.FontUse{{Name: "Helvetica"}}},
			want:    []string{"PDFA001", "PDFA002", "PDFA003"},
		},
		{
			name:    "no output intent",
			summary: compliance.Summary{HasMetadata: true},
			want:    []string{"PDFA003"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Validate(tc.summary)
			if diff := cmp.Diff(tc.want, r.Codes()); diff != "" {
				t.Fatalf("codes mismatch (-want +got):\n%s", diff)
			}
			if r.Compliant != (len(tc.want) == 0) || r.Standard != "PDF/A-1b" {
				t.Fatalf("report = %+v", r)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	if PDFA1B.Part() != "1" || PDFA2B.Part() != "2" || PDFA2B.String() != "PDF/A-2b" {
		t.Fatal("level values wrong")
	}
}

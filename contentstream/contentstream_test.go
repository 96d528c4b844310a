package contentstream_test

import (
	"bytes"
	"errors"
	"image"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfcore/builder"
	"github.com/wudi/pdfcore/contentstream"
	"github.com/wudi/pdfcore/coords"
	"github.com/wudi/pdfcore/fonts"
	"github.com/wudi/pdfcore/ir/raw"
)

func operators(ops []contentstream.Operation) []string {
	var out []string
	for _, op := range ops {
		out = append(out, op.Operator)
	}
	return out
}

func TestParse(t *testing.T) {
	src := "q 1 0 0 RG /P <</MCID 0>> BDC\n" +
		"BT /F1 12 Tf 50 742 Td [<4142> -20 (C\\)D)] TJ ET EMC Q 0 0 1 rg"
	ops, err := contentstream.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"q", "RG", "BDC", "BT", "Tf", "Td", "TJ", "ET", "EMC", "Q", "rg"}
	if diff := cmp.Diff(want, operators(ops)); diff != "" {
		t.Fatalf("operators (-want +got):\n%s", diff)
	}
	if n := len(ops[1].Operands); n != 3 {
		t.Errorf("RG has %d operands, want 3", n)
	}
	props, ok := ops[2].Operands[1].(*raw.DictObj)
	if !ok {
		t.Fatalf("BDC properties = %T", ops[2].Operands[1])
	}
	if mcid, _ := props.Int("MCID"); mcid != 0 {
		t.Errorf("MCID = %d", mcid)
	}
	arr, ok := ops[6].Operands[0].(*raw.ArrayObj)
	if !ok || arr.Len() != 3 {
		t.Fatalf("TJ operand = %#v", ops[6].Operands[0])
	}
	if s := arr.Items[2].(raw.StringObj); string(s.Bytes) != "C)D" {
		t.Errorf("literal string = %q", s.Bytes)
	}
}

func TestParseInlineImage(t *testing.T) {
	src := []byte("q BI /W 2 /H 1 /BPC 8 /CS /G ID \x00EI\xff EI Q")
	ops, err := contentstream.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"q", "BI", "Q"}, operators(ops)); diff != "" {
		t.Fatalf("operators (-want +got):\n%s", diff)
	}
	img := ops[1].Operands[0].(*raw.StreamObj)
	if !bytes.Equal(img.Data, []byte("\x00EI\xff")) {
		t.Errorf("data = %q", img.Data)
	}
	if w, _ := img.Dict.Int("W"); w != 2 {
		t.Errorf("W = %d", w)
	}

	if _, err := contentstream.Parse([]byte("BI /W 1 ID abc")); !errors.Is(err, contentstream.ErrInlineData) {
		t.Errorf("unterminated image: err = %v", err)
	}
}

func TestParseTruncated(t *testing.T) {
	for _, src := range []string{"[1 2", "<</A 1", "<</A"} {
		if _, err := contentstream.Parse([]byte(src)); !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("Parse(%q) err = %v, want unexpected EOF", src, err)
		}
	}
}

func TestDepth(t *testing.T) {
	tests := []struct {
		src     string
		want    int
		wantErr bool
	}{
		{"q Q", 0, false},
		{"q q 1 w Q", 1, false},
		{"q cm q", 2, false},
		{"Q q", 0, true},
	}
	for _, tt := range tests {
		ops, err := contentstream.Parse([]byte(tt.src))
		if err != nil {
			t.Fatal(err)
		}
		got, err := contentstream.Depth(ops)
		if (err != nil) != tt.wantErr {
			t.Errorf("Depth(%q) err = %v", tt.src, err)
		}
		if got != tt.want {
			t.Errorf("Depth(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}

func TestTraceBuilderOutput(t *testing.T) {
	doc, err := builder.New(&bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	f, err := fonts.NewStandardFont("Helvetica")
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.AddFont(f); err != nil {
		t.Fatal(err)
	}
	img := builder.FromImage(solid())
	if err := doc.AddImage(img); err != nil {
		t.Fatal(err)
	}
	page, err := doc.AddPage(builder.Letter)
	if err != nil {
		t.Fatal(err)
	}
	if err := page.DrawStringRise(f, "x", 100, 200, 4); err != nil {
		t.Fatal(err)
	}
	page.Save()
	page.Transform(coords.Translate(10, 20))
	if err := page.DrawString(f, "y", 0, 100); err != nil {
		t.Fatal(err)
	}
	page.Restore()
	if err := page.DrawImage(img, 50, 60, 30, 40); err != nil {
		t.Fatal(err)
	}

	ops, err := contentstream.Parse(page.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	shows, placed, err := contentstream.Trace(ops)
	if err != nil {
		t.Fatal(err)
	}
	type show struct {
		Font string
		Size float64
		X, Y float64
		Text string
	}
	var got []show
	for _, s := range shows {
		got = append(got, show{s.Font, s.Size, s.Origin.X, s.Origin.Y, string(s.Text)})
	}
	want := []show{
		{"F1", 12, 100, 596, "x"},
		{"F1", 12, 10, 712, "y"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("shows (-want +got):\n%s", diff)
	}
	if len(placed) != 1 {
		t.Fatalf("got %d placements, want 1", len(placed))
	}
	p := placed[0]
	if p.LLX != 50 || p.URX != 80 || p.LLY != 692 || p.URY != 732 {
		t.Errorf("placement = %+v", p)
	}
}

func solid() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

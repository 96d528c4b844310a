package layout

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdfcore/builder"
	"github.com/wudi/pdfcore/contentstream"
	"github.com/wudi/pdfcore/fonts"
)

func standard(t *testing.T, name string, size float64) *fonts.Font {
	t.Helper()
	f, err := fonts.NewStandardFont(name)
	if err != nil {
		t.Fatal(err)
	}
	f.SetSize(size)
	return f
}

func lineTexts(lines []Line) [][]string {
	var out [][]string
	for _, l := range lines {
		var frags []string
		for _, f := range l.Fragments {
			frags = append(frags, f.Text)
		}
		out = append(out, frags)
	}
	return out
}

func TestBreakLines(t *testing.T) {
	// Courier at 10pt is 6pt per character.
	courier := standard(t, "Courier", 10)
	tests := []struct {
		name  string
		text  string
		width float64
		align Align
		want  [][]string
	}{
		{"fits", "aaa bbb", 100, Left, [][]string{{"aaa bbb"}}},
		{"wraps at space", "aaa bbb ccc", 45, Left, [][]string{{"aaa bbb"}, {"ccc"}}},
		{"collapses spaces", "  aaa \n\t bbb  ", 100, Left, [][]string{{"aaa bbb"}}},
		{"long word alone", "a verylongword b", 30, Left, [][]string{{"a"}, {"verylongword"}, {"b"}}},
		{"justify keeps words apart", "aa bb cc dd", 50, Justify, [][]string{{"aa", "bb", "cc"}, {"dd"}}},
		{"empty", "   ", 50, Left, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paragraph{Runs: []Run{{Text: tt.text, Font: courier}}, Align: tt.align}
			lines := breakLines(p, tt.width)
			if diff := cmp.Diff(tt.want, lineTexts(lines)); diff != "" {
				t.Errorf("lines (-want +got):\n%s", diff)
			}
			if n := len(lines); n > 0 && !lines[n-1].Last {
				t.Error("last line not marked")
			}
		})
	}
}

func TestBreakLinesMetrics(t *testing.T) {
	courier := standard(t, "Courier", 10)
	p := Paragraph{Runs: []Run{
		{Text: "ab ", Font: courier},
		{Text: "cd", Font: courier, Size: 20, Rise: 2},
	}}
	lines := breakLines(p, 200)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	l := lines[0]
	// 12 + 6 (space) + 24
	if !near(l.Width, 42) {
		t.Errorf("Width = %v, want 42", l.Width)
	}
	if got := l.Fragments[1].X; !near(got, 18) {
		t.Errorf("second fragment at %v, want 18", got)
	}
	if want := 12.58 + 2; !near(l.Ascent, want) {
		t.Errorf("Ascent = %v, want %v", l.Ascent, want)
	}
	// The raised run sits above the 10pt descent.
	if want := courier.Descent(); !near(l.Descent, want) {
		t.Errorf("Descent = %v, want %v", l.Descent, want)
	}
	if courier.Size() != 10 {
		t.Errorf("font size changed to %v", courier.Size())
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWordSpanningRuns(t *testing.T) {
	courier := standard(t, "Courier", 10)
	bold := standard(t, "Courier-Bold", 10)
	p := Paragraph{Runs: []Run{
		{Text: "aaaa bb", Font: courier},
		{Text: "cc", Font: bold},
	}}
	// "bbcc" is one word and moves to the next line as a whole.
	got := lineTexts(breakLines(p, 40))
	want := [][]string{{"aaaa"}, {"bb", "cc"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}

func TestFallbackRuns(t *testing.T) {
	helv := standard(t, "Helvetica", 12)
	goFont, err := fonts.LoadTrueType(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	p := Paragraph{Runs: []Run{{Text: "Hi Ωmega", Font: helv, Fallback: goFont}}}
	lines := breakLines(p, 500)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	var got []string
	for _, f := range lines[0].Fragments {
		got = append(got, f.Font.Name()+":"+f.Text)
	}
	want := []string{"Helvetica:Hi", goFont.Name() + ":Ω", "Helvetica:mega"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fragments (-want +got):\n%s", diff)
	}
}

func drawDoc(t *testing.T) (*builder.Document, *builder.Page, *fonts.Font) {
	t.Helper()
	doc, err := builder.New(&bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	courier := standard(t, "Courier", 10)
	if err := doc.AddFont(courier); err != nil {
		t.Fatal(err)
	}
	page, err := doc.AddPage(builder.Letter)
	if err != nil {
		t.Fatal(err)
	}
	return doc, page, courier
}

func TestDrawAlignment(t *testing.T) {
	// Baseline of the first line: 12 - 1.57 below the top, 781.57 from
	// the bottom of a Letter page.
	tests := []struct {
		name  string
		text  string
		align Align
		want  []string
	}{
		{"left", "ab", Left, []string{"BT /F1 10.000 Tf 0.000 781.570 Td [<6162>] TJ ET"}},
		{"right", "ab", Right, []string{"BT /F1 10.000 Tf 38.000 781.570 Td [<6162>] TJ ET"}},
		{"center", "ab", Center, []string{"BT /F1 10.000 Tf 19.000 781.570 Td [<6162>] TJ ET"}},
		{"justify", "aa bb cc dd", Justify, []string{
			"BT /F1 10.000 Tf 0.000 781.570 Td [<6161>] TJ ET",
			"BT /F1 10.000 Tf 19.000 781.570 Td [<6262>] TJ ET",
			"BT /F1 10.000 Tf 38.000 781.570 Td [<6363>] TJ ET",
			"BT /F1 10.000 Tf 0.000 769.570 Td [<6464>] TJ ET",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, page, courier := drawDoc(t)
			box := TextBox{Width: 50, Leading: 12}
			p := Paragraph{Runs: []Run{{Text: tt.text, Font: courier}}, Align: tt.align}
			if _, err := box.Draw(page, 0, 0, []Paragraph{p}); err != nil {
				t.Fatal(err)
			}
			got := strings.Split(strings.TrimSuffix(string(page.Bytes()), "\n"), "\n")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("content (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMeasureMatchesDraw(t *testing.T) {
	doc, page, courier := drawDoc(t)
	big := standard(t, "Courier-Bold", 30)
	if err := doc.AddFont(big); err != nil {
		t.Fatal(err)
	}
	box := TextBox{Width: 120, Leading: 12, ParagraphSpacing: 7}
	ps := []Paragraph{
		{Runs: []Run{{Text: "a heading that wraps", Font: big}}},
		{Runs: []Run{{Text: "body text over several lines of the box", Font: courier}}, Align: Justify},
		{Runs: []Run{{Text: "x", Font: courier}, {Text: "2", Font: courier, Size: 6, Rise: 4}}},
	}
	measured, lines := box.Measure(ps)
	drawn, err := box.Draw(page, 10, 10, ps)
	if err != nil {
		t.Fatal(err)
	}
	if measured != drawn {
		t.Errorf("Measure = %v, Draw = %v", measured, drawn)
	}
	sum := 2 * box.ParagraphSpacing
	for _, l := range lines {
		sum += l.Height(box.Leading)
	}
	if !near(sum, measured) {
		t.Errorf("line heights sum to %v, Measure = %v", sum, measured)
	}
	ops, err := contentstream.Parse(page.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	shows, _, err := contentstream.Trace(ops)
	if err != nil {
		t.Fatal(err)
	}
	var want, got []string
	for _, frags := range lineTexts(lines) {
		want = append(want, frags...)
	}
	for _, s := range shows {
		got = append(got, string(s.Text))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("drawn fragments differ from measured lines (-measured +drawn):\n%s", diff)
	}
}

func TestDrawColorAndLink(t *testing.T) {
	_, page, courier := drawDoc(t)
	p := Paragraph{Runs: []Run{
		{Text: "see ", Font: courier},
		{Text: "here", Font: courier, Color: Color{0, 0, 1}, Link: "https://example.com"},
	}}
	if _, err := (TextBox{Width: 200, Leading: 12}).Draw(page, 0, 0, []Paragraph{p}); err != nil {
		t.Fatal(err)
	}
	content := string(page.Bytes())
	for _, want := range []string{"q\n", "0.000 0.000 1.000 rg\n", "Q\n"} {
		if !strings.Contains(content, want) {
			t.Errorf("content lacks %q:\n%s", want, content)
		}
	}
	annots := page.Annotations()
	if len(annots) != 1 {
		t.Fatalf("got %d annotations, want 1", len(annots))
	}
	a := annots[0]
	if a.URI != "https://example.com" || !near(a.X, 24) || !near(a.W, 24) {
		t.Errorf("annotation = %+v", a)
	}
}

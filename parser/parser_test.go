package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/recovery"
	"github.com/wudi/pdfcore/writer"
	"github.com/wudi/pdfcore/xref"
)

// buildPDF numbers bodies from 1 and writes a classic xref table. The
// trailer's /Root is object 1.
func buildPDF(version string, bodies ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-" + version + "\n")
	table := xref.NewTable()
	for i, body := range bodies {
		table.Set(i+1, int64(buf.Len()), 0)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	start := buf.Len()
	table.WriteTo(&buf)
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(bodies)+1, start)
	return buf.Bytes()
}

func simpleDoc() []byte {
	return buildPDF("1.7",
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
}

func TestParse_ClassicXRef(t *testing.T) {
	f, err := Parse(simpleDoc(), DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Version != "1.7" {
		t.Fatalf("version = %q", f.Version)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, f.Numbers()); diff != "" {
		t.Fatalf("objects (-want +got):\n%s", diff)
	}
	if f.Repaired {
		t.Fatalf("intact xref reported as repaired")
	}
	cat, ok := f.Catalog()
	if !ok {
		t.Fatalf("catalog missing")
	}
	if typ, _ := cat.Name("Type"); typ != "Catalog" {
		t.Fatalf("catalog type = %q", typ)
	}
	if got := f.MaxObjectNumber(); got != 4 {
		t.Fatalf("max object = %d", got)
	}
}

func TestObjectAccessors(t *testing.T) {
	f, err := Parse(simpleDoc(), DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	page, _ := f.Object(3)

	if name, ok := page.Name("Type"); !ok || name != "Page" {
		t.Fatalf("Name(Type) = %q, %v", name, ok)
	}
	if ref, ok := page.Ref("Parent"); !ok || ref != (raw.ObjectRef{Num: 2}) {
		t.Fatalf("Ref(Parent) = %v, %v", ref, ok)
	}
	if _, ok := page.Value("Annots"); ok {
		t.Fatalf("missing key reported present")
	}
	if _, ok := page.Int("Type"); ok {
		t.Fatalf("Int on a name reported ok")
	}
	pages, _ := f.Object(2)
	if n, ok := pages.Int("Count"); !ok || n != 1 {
		t.Fatalf("Int(Count) = %d, %v", n, ok)
	}
	if text, ok := page.Text("Resources"); !ok || text != "<</Font <</F1 4 0 R>>>>" {
		t.Fatalf("Text(Resources) = %q", text)
	}
	if text, ok := page.Text("MediaBox"); !ok || text != "[0 0 612 792]" {
		t.Fatalf("Text(MediaBox) = %q", text)
	}
}

func TestParse_IndirectStreamLength(t *testing.T) {
	payload := "BT endstream ET"
	data := buildPDF("1.4",
		"<< /Type /Catalog >>",
		"<< /Length 3 0 R >>\nstream\n"+payload+"\nendstream",
		fmt.Sprint(len(payload)),
	)
	f, err := Parse(data, DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	obj, _ := f.Object(2)
	s, ok := obj.Stream()
	if !ok {
		t.Fatalf("object 2 is %T, want stream", obj.Body)
	}
	if string(s.Data) != payload {
		t.Fatalf("payload = %q", s.Data)
	}
}

func TestParse_StreamWithoutLength(t *testing.T) {
	data := buildPDF("1.4",
		"<< /Type /Catalog >>",
		"<< >>\nstream\r\n0 0 m 10 10 l S\r\nendstream",
	)
	f, err := Parse(data, DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	obj, _ := f.Object(2)
	s, ok := obj.Stream()
	if !ok || string(s.Data) != "0 0 m 10 10 l S" {
		t.Fatalf("stream = %#v", obj.Body)
	}
}

func TestParse_RepairsBrokenStartXRef(t *testing.T) {
	data := simpleDoc()
	idx := bytes.LastIndex(data, []byte("startxref\n"))
	broken := append(append([]byte{}, data[:idx]...), []byte("startxref\n99999\n%%EOF\n")...)

	f, err := Parse(broken, DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.Repaired {
		t.Fatalf("expected repaired file")
	}
	if len(f.Objects) != 4 {
		t.Fatalf("objects = %d", len(f.Objects))
	}
	if root, ok := f.Trailer.Ref("Root"); !ok || root.Num != 1 {
		t.Fatalf("trailer root = %v, %v", root, ok)
	}
}

func TestParse_WrongXRefOffsetFallsBackToScan(t *testing.T) {
	data := simpleDoc()
	// shift object 4's entry by one byte
	f0, _ := Parse(data, DefaultConfig())
	off := f0.Objects[4].Offset
	good := fmt.Sprintf("%010d 00000 n", off)
	bad := fmt.Sprintf("%010d 00000 n", off+1)
	data = bytes.Replace(data, []byte(good), []byte(bad), 1)

	f, err := Parse(data, DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := f.Object(4); !ok {
		t.Fatalf("object 4 not recovered")
	}
}

func TestParse_MalformedObjectSkipped(t *testing.T) {
	data := buildPDF("1.4",
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /A ] >>",
		"<< /Type /Page >>",
	)

	lenient := recovery.NewLenientStrategy()
	f, err := Parse(data, Config{Recovery: lenient})
	if err != nil {
		t.Fatalf("lenient parse: %v", err)
	}
	if _, ok := f.Object(2); ok {
		t.Fatalf("malformed object kept")
	}
	if _, ok := f.Object(3); !ok {
		t.Fatalf("object after the malformed one lost")
	}
	if len(lenient.Errors) == 0 {
		t.Fatalf("no error recorded")
	}

	if _, err := Parse(data, Config{Recovery: recovery.NewStrictStrategy()}); err == nil {
		t.Fatalf("strict parse succeeded")
	}
}

func TestParse_MissingDictCloseRecovered(t *testing.T) {
	data := buildPDF("1.4",
		"<< /Type /Catalog /Pages 2 0 R",
		"<< /Type /Pages /Kids [] /Count 0 >>",
	)
	f, err := Parse(data, DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	obj, ok := f.Object(1)
	if !ok {
		t.Fatalf("object 1 dropped")
	}
	if ref, ok := obj.Ref("Pages"); !ok || ref.Num != 2 {
		t.Fatalf("Pages = %v, %v", ref, ok)
	}
}

func TestParse_GarbageDoesNotPanic(t *testing.T) {
	inputs := map[string]string{
		"empty":         "",
		"text":          "hello world, this is not a pdf",
		"header only":   "%PDF-1.4\n",
		"open object":   "1 0 obj <<",
		"deep arrays":   "1 0 obj " + strings.Repeat("[", 10000),
		"bad startxref": "%PDF-1.4\nstartxref\nabc\n%%EOF",
		"binary":        "\x00\x01\x02\xff\xfe<<>>[]()",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			f, err := Parse([]byte(in), DefaultConfig())
			if err != nil {
				t.Fatalf("lenient parse returned %v", err)
			}
			if len(f.Objects) != 0 {
				t.Fatalf("objects = %d, want 0", len(f.Objects))
			}
			if pages := f.Pages(); len(pages) != 0 {
				t.Fatalf("pages = %d", len(pages))
			}
		})
	}
}

func TestParse_MaxObjects(t *testing.T) {
	_, err := Parse(simpleDoc(), Config{MaxObjects: 2})
	if !errors.Is(err, ErrTooManyObjects) {
		t.Fatalf("err = %v", err)
	}
}

func TestParse_ObjectStream(t *testing.T) {
	first := "<< /Type /Pages /Kids [3 0 R] /Count 1 >>"
	second := "<< /Type /Page /Parent 2 0 R >>"
	header := fmt.Sprintf("2 0 3 %d ", len(first)+1)
	body := header + first + " " + second
	packed, err := filters.FlateEncode([]byte(body), -1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	stm := fmt.Sprintf("<< /Type /ObjStm /N 2 /First %d /Filter /FlateDecode /Length %d >>\nstream\n%s\nendstream",
		len(header), len(packed), packed)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	table := xref.NewTable()
	table.Set(1, int64(buf.Len()), 0)
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	table.Set(4, int64(buf.Len()), 0)
	buf.WriteString("4 0 obj\n" + stm + "\nendobj\n")
	start := buf.Len()
	table.WriteTo(&buf)
	fmt.Fprintf(&buf, "trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", start)

	f, err := Parse(buf.Bytes(), DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pages := f.Pages()
	if len(pages) != 1 || pages[0].Num != 3 {
		t.Fatalf("pages = %v", pages)
	}
	if pages[0].Offset != -1 {
		t.Fatalf("offset = %d, want -1", pages[0].Offset)
	}
}

func TestParse_WriterOutputRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := writer.New(&buf)
	if err := w.Header("1.4"); err != nil {
		t.Fatal(err)
	}
	alloc := writer.NewAllocator(w)
	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.Ref(2, 0))
	pagesDict := raw.Dict()
	pagesDict.Set("Type", raw.NameLiteral("Pages"))
	pagesDict.Set("Kids", raw.NewArray())
	pagesDict.Set("Count", raw.NumberInt(0))
	content := raw.NewStream(raw.Dict(), []byte("q 1 0 0 1 0 0 cm Q"))
	for _, o := range []raw.Object{catalog, pagesDict, content} {
		if _, err := alloc.Put(o); err != nil {
			t.Fatal(err)
		}
	}
	trailer := raw.Dict()
	trailer.Set("Root", raw.Ref(1, 0))
	if err := alloc.Finish(trailer); err != nil {
		t.Fatal(err)
	}

	f, err := Parse(buf.Bytes(), Config{Recovery: recovery.NewStrictStrategy()})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, _ := f.Object(1)
	if diff := cmp.Diff(writer.Serialize(catalog), writer.Serialize(got.Body)); diff != "" {
		t.Fatalf("catalog (-want +got):\n%s", diff)
	}
	s, _ := f.Objects[3].Stream()
	if string(s.Data) != "q 1 0 0 1 0 0 cm Q" {
		t.Fatalf("stream = %q", s.Data)
	}
	if size, _ := f.Trailer.Int("Size"); size != 4 {
		t.Fatalf("size = %d", size)
	}
}

package optimize_test

import (
	"bytes"
	"image"
	"testing"

	"github.com/wudi/pdfcore/builder"
	"github.com/wudi/pdfcore/editor"
	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/optimize"
	"github.com/wudi/pdfcore/parser"
)

func gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 16)
	}
	return img
}

// twoImages is a one-page file holding the same image twice, as objects 1
// and 2.
func twoImages(t *testing.T) *parser.File {
	t.Helper()
	var buf bytes.Buffer
	doc, err := builder.New(&buf)
	if err != nil {
		t.Fatal(err)
	}
	a, b := builder.FromImage(gray()), builder.FromImage(gray())
	for _, img := range []*builder.Image{a, b} {
		if err := doc.AddImage(img); err != nil {
			t.Fatal(err)
		}
	}
	page, err := doc.AddPage(builder.Letter)
	if err != nil {
		t.Fatal(err)
	}
	if err := page.DrawImage(a, 0, 0, 10, 10); err != nil {
		t.Fatal(err)
	}
	if err := page.DrawImage(b, 20, 0, 10, 10); err != nil {
		t.Fatal(err)
	}
	if err := doc.Close(); err != nil {
		t.Fatal(err)
	}
	f, err := parser.Parse(buf.Bytes(), parser.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func xobjects(t *testing.T, f *parser.File) *raw.DictObj {
	t.Helper()
	res, ok := f.PageResources(f.Pages()[0])
	if !ok {
		t.Fatal("page has no resources")
	}
	v, _ := res.Get("XObject")
	d, ok := f.ResolveDict(v)
	if !ok {
		t.Fatal("resources have no /XObject")
	}
	return d
}

func TestDeduplicate(t *testing.T) {
	f := twoImages(t)
	if n := optimize.Deduplicate(f); n != 1 {
		t.Fatalf("merged %d objects, want 1", n)
	}
	if _, ok := f.Objects[2]; ok {
		t.Error("duplicate image still present")
	}
	xo := xobjects(t, f)
	for _, name := range []string{"Im1", "Im2"} {
		ref, ok := xo.Ref(name)
		if !ok || ref.Num != 1 {
			t.Errorf("/%s = %v, want 1 0 R", name, ref)
		}
	}
	if n := optimize.Deduplicate(f); n != 0 {
		t.Errorf("second pass merged %d", n)
	}
}

func TestPrune(t *testing.T) {
	f := twoImages(t)
	orphan := f.MaxObjectNumber() + 1
	f.Objects[orphan] = &parser.Object{Num: orphan, Body: raw.NumberInt(42), Offset: -1}
	before := len(f.Objects)

	if n := optimize.Prune(f); n != 1 {
		t.Errorf("pruned %d objects, want 1", n)
	}
	if _, ok := f.Objects[orphan]; ok {
		t.Error("orphan survived")
	}
	if len(f.Objects) != before-1 {
		t.Errorf("%d objects left, want %d", len(f.Objects), before-1)
	}
	if len(f.Pages()) != 1 {
		t.Error("page tree damaged")
	}
}

func TestCompressStreams(t *testing.T) {
	f := twoImages(t)
	plain := bytes.Repeat([]byte("0 0 m 10 10 l S\n"), 50)
	num := f.MaxObjectNumber() + 1
	f.Objects[num] = &parser.Object{Num: num, Body: raw.NewStream(raw.Dict(), append([]byte(nil), plain...))}
	meta := raw.Dict()
	meta.Set("Type", raw.NameLiteral("Metadata"))
	f.Objects[num+1] = &parser.Object{Num: num + 1, Body: raw.NewStream(meta, append([]byte(nil), plain...))}

	n, err := optimize.CompressStreams(f, 9)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("compressed %d streams, want 1", n)
	}
	s := f.Objects[num].Body.(*raw.StreamObj)
	if name, _ := s.Dict.Name("Filter"); name != "FlateDecode" {
		t.Fatalf("Filter = %q", name)
	}
	got, err := filters.DefaultPipeline().DecodeStream(s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plain) {
		t.Error("stream does not decode to its original data")
	}
	if _, ok := f.Objects[num+1].Body.(*raw.StreamObj).Dict.Get("Filter"); ok {
		t.Error("metadata stream was compressed")
	}
}

func TestEditorWriteOptimized(t *testing.T) {
	f := twoImages(t)
	var plain, small bytes.Buffer
	if _, err := editor.New(twoImages(t)).WriteTo(&plain); err != nil {
		t.Fatal(err)
	}
	if _, err := editor.New(f, editor.WithOptimize(optimize.DefaultConfig())).WriteTo(&small); err != nil {
		t.Fatal(err)
	}
	if small.Len() >= plain.Len() {
		t.Errorf("optimized file is %d bytes, plain %d", small.Len(), plain.Len())
	}
	out, err := parser.Parse(small.Bytes(), parser.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Pages()) != 1 {
		t.Errorf("got %d pages", len(out.Pages()))
	}
	if out.Repaired {
		t.Error("optimized output needed repair")
	}
}

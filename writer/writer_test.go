package writer

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/xref"
)

func TestSerializePrimitives(t *testing.T) {
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("Page"))
	dict.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NumberFloat(595.5), raw.NumberInt(842)))
	dict.Set("Title", raw.Str([]byte("a (b) \\c")))
	dict.Set("ID", raw.HexStr([]byte{0xAB, 0x01}))
	dict.Set("Odd Name", raw.Bool(true))
	dict.Set("Parent", raw.Ref(2, 0))
	dict.Set("Nothing", raw.NullObj{})

	got := string(Serialize(dict))
	want := `<</Type /Page/MediaBox [0 0 595.5 842]/Title (a \(b\) \\c)/ID <AB01>/Odd#20Name true/Parent 2 0 R/Nothing null>>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("serialize mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeStreamSetsLength(t *testing.T) {
	s := raw.NewStream(raw.Dict(), []byte("q Q"))
	got := string(Serialize(s))
	want := "<</Length 3>>\nstream\nq Q\nendstream"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatReal(t *testing.T) {
	tests := map[float64]string{0: "0", 1.5: "1.5", 100: "100", 0.001: "0.001", 1e21: "1000000000000000000000"}
	for in, want := range tests {
		if got := FormatReal(in); got != want {
			t.Errorf("FormatReal(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestAllocatorSequentialOffsets(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	if err := w.Header(""); err != nil {
		t.Fatal(err)
	}
	a := NewAllocator(w)
	for i := 0; i < 3; i++ {
		num, err := a.Put(raw.NumberInt(int64(i)))
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		if num != i+1 {
			t.Fatalf("object %d got number %d", i, num)
		}
	}
	trailer := raw.Dict()
	trailer.Set("Root", raw.Ref(1, 0))
	if err := a.Finish(trailer); err != nil {
		t.Fatalf("finish: %v", err)
	}

	data := buf.Bytes()
	if !bytes.HasPrefix(data, []byte("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")) {
		t.Fatalf("bad header: %q", data[:20])
	}
	table, err := xref.Resolve(data)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, num := range []int{1, 2, 3} {
		off, _, ok := table.Lookup(num)
		if !ok {
			t.Fatalf("object %d missing from xref", num)
		}
		prefix := strconv.Itoa(num) + " 0 obj"
		if !bytes.HasPrefix(data[off:], []byte(prefix)) {
			t.Fatalf("object %d offset %d points at %q", num, off, data[off:off+10])
		}
	}
	if !strings.Contains(string(data), "/Size 4") {
		t.Fatalf("trailer missing /Size 4:\n%s", data)
	}
	if !bytes.HasSuffix(data, []byte("%%EOF\n")) {
		t.Fatalf("missing EOF marker")
	}
}

func TestReservationClaims(t *testing.T) {
	var buf bytes.Buffer
	a := NewAllocator(New(&buf))

	first, _ := a.Put(raw.NullObj{})
	res := a.Reserve(3)
	if res.First() != first+1 || res.Len() != 3 {
		t.Fatalf("reservation = %d+%d", res.First(), res.Len())
	}
	after, _ := a.Put(raw.NullObj{})
	if after != res.First()+3 {
		t.Fatalf("object after reservation got %d", after)
	}

	if err := a.PutAt(res, 1, raw.NullObj{}); !errors.Is(err, ErrSlotMismatch) {
		t.Fatalf("out-of-order claim: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := a.PutAt(res, i, raw.NumberInt(int64(i))); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	if err := a.PutAt(res, 3, raw.NullObj{}); !errors.Is(err, ErrSlotMismatch) {
		t.Fatalf("claim past end: %v", err)
	}
	if a.Remaining(res) != 0 {
		t.Fatalf("remaining = %d", a.Remaining(res))
	}
	if err := a.Finish(raw.Dict()); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestUnclaimedReservationFailsFinish(t *testing.T) {
	var buf bytes.Buffer
	a := NewAllocator(New(&buf))
	res := a.Reserve(2)
	if err := a.PutAt(res, 0, raw.NullObj{}); err != nil {
		t.Fatal(err)
	}
	if err := a.Finish(raw.Dict()); !errors.Is(err, ErrUnclaimedSlot) {
		t.Fatalf("expected unclaimed slot error, got %v", err)
	}
}

func TestWriterMisuse(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	if err := w.End(); !errors.Is(err, ErrNoObjectOpen) {
		t.Fatalf("End without Begin: %v", err)
	}
	if err := w.Begin(1, 0); err != nil {
		t.Fatal(err)
	}
	if err := w.Begin(2, 0); !errors.Is(err, ErrObjectOpen) {
		t.Fatalf("nested Begin: %v", err)
	}
	w.End()
	if err := w.WriteObject(1, 0, raw.NullObj{}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate: %v", err)
	}
	if err := w.Finish(raw.Dict()); err != nil {
		t.Fatal(err)
	}
	if err := w.Finish(raw.Dict()); !errors.Is(err, ErrFinished) {
		t.Fatalf("second finish: %v", err)
	}
}

type closeCounter struct {
	bytes.Buffer
	closed int
}

func (c *closeCounter) Close() error { c.closed++; return nil }

func TestCloseClosesSink(t *testing.T) {
	sink := &closeCounter{}
	w := New(sink)
	w.WriteString("x")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if sink.closed != 1 || sink.String() != "x" {
		t.Fatalf("closed=%d content=%q", sink.closed, sink.String())
	}
}

func TestFileIDPairIsIdentical(t *testing.T) {
	id, err := FileID([]byte("seed"))
	if err != nil {
		t.Fatal(err)
	}
	a := id.Items[0].(raw.StringObj)
	b := id.Items[1].(raw.StringObj)
	if !bytes.Equal(a.Bytes, b.Bytes) || len(a.Bytes) != 16 || !a.Hex {
		t.Fatalf("bad ID pair: %x %x", a.Bytes, b.Bytes)
	}
	again, err := FileID([]byte("seed"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes, again.Items[0].(raw.StringObj).Bytes) {
		t.Fatalf("seeded ID not reproducible")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestFileIDRandomFailure(t *testing.T) {
	saved := random
	defer func() { random = saved }()

	random = strings.NewReader("0123456789abcdef")
	id, err := FileID(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(id.Items[0].(raw.StringObj).Bytes); got != "0123456789abcdef" {
		t.Errorf("unseeded ID = %q", got)
	}

	random = failingReader{}
	if _, err := FileID(nil); err == nil {
		t.Fatal("FileID succeeded without randomness")
	}
}

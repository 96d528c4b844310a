package writer

import (
	"bufio"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/xref"
)

// DefaultVersion is the header version written unless configured otherwise.
const DefaultVersion = "1.4"

var (
	ErrObjectOpen   = errors.New("writer: object already open")
	ErrNoObjectOpen = errors.New("writer: no object open")
	ErrDuplicate    = errors.New("writer: object number written twice")
	ErrFinished     = errors.New("writer: file already finished")
)

// Writer is a byte-counting sink that remembers where each indirect object
// starts so the cross-reference table can be written at the end.
type Writer struct {
	buf      *bufio.Writer
	sink     io.Writer
	offset   int64
	table    *xref.Table
	open     bool
	finished bool
}

func New(sink io.Writer) *Writer {
	return &Writer{buf: bufio.NewWriter(sink), sink: sink, table: xref.NewTable()}
}

// Offset is the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.offset }

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.offset += int64(n)
	return n, err
}

func (w *Writer) WriteString(s string) (int, error) {
	n, err := w.buf.WriteString(s)
	w.offset += int64(n)
	return n, err
}

// Header writes the version line followed by a comment of high-bit bytes
// that marks the file as binary.
func (w *Writer) Header(version string) error {
	if version == "" {
		version = DefaultVersion
	}
	_, err := w.WriteString("%PDF-" + version + "\n%\xE2\xE3\xCF\xD3\n")
	return err
}

// Begin opens object num, recording its offset.
func (w *Writer) Begin(num, gen int) error {
	if w.finished {
		return ErrFinished
	}
	if w.open {
		return ErrObjectOpen
	}
	if _, _, dup := w.table.Lookup(num); dup {
		return fmt.Errorf("%w: %d", ErrDuplicate, num)
	}
	w.table.Set(num, w.offset, gen)
	w.open = true
	_, err := w.WriteString(strconv.Itoa(num) + " " + strconv.Itoa(gen) + " obj\n")
	return err
}

// End closes the open object.
func (w *Writer) End() error {
	if !w.open {
		return ErrNoObjectOpen
	}
	w.open = false
	_, err := w.WriteString("\nendobj\n")
	return err
}

// WriteValue serializes o into the open object.
func (w *Writer) WriteValue(o raw.Object) error {
	if !w.open {
		return ErrNoObjectOpen
	}
	_, err := w.Write(Serialize(o))
	return err
}

// WriteObject writes a complete indirect object at num.
func (w *Writer) WriteObject(num, gen int, o raw.Object) error {
	if err := w.Begin(num, gen); err != nil {
		return err
	}
	if err := w.WriteValue(o); err != nil {
		return err
	}
	return w.End()
}

// Written reports whether num already has an offset.
func (w *Writer) Written(num int) bool {
	_, _, ok := w.table.Lookup(num)
	return ok
}

// Table exposes the offsets recorded so far.
func (w *Writer) Table() *xref.Table { return w.table }

// Finish writes the xref table, the trailer and startxref, then flushes.
// /Size is set from the table.
func (w *Writer) Finish(trailer *raw.DictObj) error {
	if w.finished {
		return ErrFinished
	}
	if w.open {
		return ErrObjectOpen
	}
	w.finished = true
	startxref := w.offset
	if _, err := w.table.WriteTo(w); err != nil {
		return err
	}
	trailer.Set("Size", raw.NumberInt(int64(w.table.Size())))
	if _, err := w.WriteString("trailer\n"); err != nil {
		return err
	}
	if _, err := w.Write(Serialize(trailer)); err != nil {
		return err
	}
	if _, err := w.WriteString("\nstartxref\n" + strconv.FormatInt(startxref, 10) + "\n%%EOF\n"); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes buffered bytes and closes the sink when it is an io.Closer.
func (w *Writer) Close() error {
	err := w.buf.Flush()
	if c, ok := w.sink.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// random supplies unseeded file identifiers.
var random io.Reader = rand.Reader

// FileID returns the two identical /ID strings. A non-empty seed makes the
// value reproducible.
func FileID(seed []byte) (*raw.ArrayObj, error) {
	id := make([]byte, 16)
	if len(seed) > 0 {
		sum := sha256.Sum256(seed)
		copy(id, sum[:16])
	} else if _, err := io.ReadFull(random, id); err != nil {
		return nil, fmt.Errorf("file id: %w", err)
	}
	second := make([]byte, len(id))
	copy(second, id)
	return raw.NewArray(raw.HexStr(id), raw.HexStr(second)), nil
}

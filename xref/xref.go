package xref

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNoStartXRef = errors.New("startxref not found")
	ErrNoTable     = errors.New("xref keyword not found at offset")
)

// Entry is one in-use object location.
type Entry struct {
	Offset int64
	Gen    int
}

// Table holds object offsets for a classic xref table.
type Table struct {
	entries map[int]Entry
	// TrailerOffset is the byte offset of the trailer dictionary, or -1.
	TrailerOffset int64
}

func NewTable() *Table {
	return &Table{entries: make(map[int]Entry), TrailerOffset: -1}
}

func (t *Table) Set(objNum int, offset int64, gen int) {
	t.entries[objNum] = Entry{Offset: offset, Gen: gen}
}

func (t *Table) Lookup(objNum int) (offset int64, gen int, found bool) {
	e, ok := t.entries[objNum]
	if !ok {
		return 0, 0, false
	}
	return e.Offset, e.Gen, true
}

// Objects returns the in-use object numbers in ascending order.
func (t *Table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (t *Table) Len() int { return len(t.entries) }

// Size is one past the highest object number, the trailer's /Size.
func (t *Table) Size() int {
	max := 0
	for k := range t.entries {
		if k > max {
			max = k
		}
	}
	return max + 1
}

// WriteTo writes a single-subsection table starting at object 0. Numbers
// without an entry are written as free entries, chained from entry 0 in
// ascending order with the last one pointing back to 0.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	size := t.Size()
	var free []int
	for i := 1; i < size; i++ {
		if _, ok := t.entries[i]; !ok {
			free = append(free, i)
		}
	}
	next := func(k int) int {
		if k < len(free) {
			return free[k]
		}
		return 0
	}
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	fmt.Fprintf(&buf, "%010d 65535 f \n", next(0))
	nfree := 0
	for i := 1; i < size; i++ {
		e, ok := t.entries[i]
		if !ok {
			nfree++
			fmt.Fprintf(&buf, "%010d 00000 f \n", next(nfree))
			continue
		}
		fmt.Fprintf(&buf, "%010d %05d n \n", e.Offset, e.Gen)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Resolve reads the table referenced by the last startxref keyword.
func Resolve(data []byte) (*Table, error) {
	startxref := bytes.LastIndex(data, []byte("startxref"))
	if startxref < 0 {
		return nil, ErrNoStartXRef
	}
	rest := data[startxref+len("startxref"):]
	lines := bufio.NewScanner(bytes.NewReader(rest))
	var offset int64 = -1
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse startxref: %w", err)
		}
		offset = val
		break
	}

	if offset <= 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("xref offset out of range: %d", offset)
	}

	tableData := data[offset:]
	sc := bufio.NewScanner(bytes.NewReader(tableData))
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "xref" {
		return nil, ErrNoTable
	}

	t := NewTable()
	if idx := bytes.Index(tableData, []byte("trailer")); idx >= 0 {
		t.TrailerOffset = offset + int64(idx+len("trailer"))
	}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "trailer") {
			break
		}
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid xref subsection header: %q", line)
		}
		startObj, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("parse xref start: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parse xref count: %w", err)
		}

		for i := 0; i < count; i++ {
			if !sc.Scan() {
				return nil, errors.New("unexpected end of xref section")
			}
			fields := strings.Fields(sc.Text())
			if len(fields) < 3 {
				return nil, fmt.Errorf("invalid xref entry: %q", sc.Text())
			}
			off, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse xref offset: %w", err)
			}
			gen, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("parse xref gen: %w", err)
			}
			if fields[2] != "n" {
				continue // free entry
			}
			t.Set(startObj+i, off, gen)
		}
	}
	return t, nil
}

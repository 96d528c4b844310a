// Package parser reads PDF files into a mutable tree of indirect objects.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/observability"
	"github.com/wudi/pdfcore/recovery"
	"github.com/wudi/pdfcore/scanner"
	"github.com/wudi/pdfcore/xref"
)

// ErrTooManyObjects is returned when a file declares more objects than
// Config.MaxObjects allows.
var ErrTooManyObjects = errors.New("parser: object limit exceeded")

type Config struct {
	// Recovery decides what happens to malformed objects. Nil means a
	// lenient strategy.
	Recovery recovery.Strategy
	Logger   observability.Logger
	// MaxObjects caps the number of indirect objects loaded. Zero means
	// no limit.
	MaxObjects int
	Scanner    scanner.Config
}

// DefaultConfig skips malformed objects and keeps going.
func DefaultConfig() Config {
	return Config{
		Recovery: recovery.NewLenientStrategy(),
		Logger:   observability.NopLogger{},
		Scanner:  scanner.Config{MaxStringLength: 64 << 20, MaxStreamLength: 1 << 30},
	}
}

// File is a parsed PDF: every indirect object by number, plus the trailer.
type File struct {
	Objects map[int]*Object
	Trailer *raw.DictObj
	Version string
	// Repaired is set when the cross-reference table had to be rebuilt by
	// scanning the file.
	Repaired bool
}

type parseState struct {
	data  []byte
	cfg   Config
	table *xref.Table
	log   observability.Logger
}

// Parse reads data. Malformed objects are passed to cfg.Recovery; with the
// lenient default they are dropped and the rest of the file still loads.
func Parse(data []byte, cfg Config) (*File, error) {
	if cfg.Recovery == nil {
		lenient := recovery.NewLenientStrategy()
		if cfg.Logger != nil {
			lenient.Logger = cfg.Logger
		}
		cfg.Recovery = lenient
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	st := &parseState{data: data, cfg: cfg, log: cfg.Logger.With(observability.String(observability.KeyComponent, "parser"))}
	f := &File{Objects: make(map[int]*Object), Version: headerVersion(data)}

	table, err := xref.Resolve(data)
	if err != nil {
		if st.cfg.Recovery.OnError(fmt.Errorf("read xref: %w", err), recovery.Location{Component: "xref"}) == recovery.ActionFail {
			return nil, err
		}
		table, err = xref.Repair(data)
		if err != nil {
			if st.cfg.Recovery.OnError(err, recovery.Location{Component: "xref"}) == recovery.ActionFail {
				return nil, err
			}
			return f, nil
		}
		f.Repaired = true
	}
	st.table = table
	if cfg.MaxObjects > 0 && table.Len() > cfg.MaxObjects {
		return nil, fmt.Errorf("%w: %d objects, limit %d", ErrTooManyObjects, table.Len(), cfg.MaxObjects)
	}

	var repaired *xref.Table
	for _, num := range table.Objects() {
		offset, _, _ := table.Lookup(num)
		obj, err := st.load(num, offset)
		if err != nil && !f.Repaired {
			// the xref may simply be off; try where a scan finds the header
			if repaired == nil {
				repaired, _ = xref.Repair(data)
			}
			if repaired != nil {
				if alt, _, ok := repaired.Lookup(num); ok && alt != offset {
					obj, err = st.load(num, alt)
				}
			}
		}
		if err != nil {
			if st.cfg.Recovery.OnError(err, recovery.Location{ByteOffset: offset, ObjectNum: num, Component: "parser"}) == recovery.ActionFail {
				return nil, fmt.Errorf("object %d: %w", num, err)
			}
			continue
		}
		f.Objects[num] = obj
	}

	if err := st.expandObjectStreams(f); err != nil {
		return nil, err
	}

	f.Trailer = st.trailer(f)
	st.log.Debug("parsed file",
		observability.Int("objects", len(f.Objects)),
		observability.Int(observability.KeyBytes, len(data)))
	return f, nil
}

func (st *parseState) load(num int, offset int64) (*Object, error) {
	obj, err := readIndirect(st.data, st.cfg.Scanner, st.cfg.Recovery, offset, st.streamLength)
	if err != nil {
		return nil, err
	}
	if obj.Num != num {
		return nil, fmt.Errorf("%w: expected %d, found %d", errHeaderMismatch, num, obj.Num)
	}
	return obj, nil
}

// streamLength resolves /Length, following one level of indirection.
func (st *parseState) streamLength(v raw.Object) (int64, bool) {
	switch n := v.(type) {
	case raw.NumberObj:
		return n.Int(), n.Int() >= 0
	case raw.RefObj:
		offset, _, ok := st.table.Lookup(n.R.Num)
		if !ok {
			return 0, false
		}
		obj, err := readIndirect(st.data, st.cfg.Scanner, st.cfg.Recovery, offset, func(raw.Object) (int64, bool) { return 0, false })
		if err != nil {
			return 0, false
		}
		if num, ok := obj.Body.(raw.NumberObj); ok && num.Int() >= 0 {
			return num.Int(), true
		}
	}
	return 0, false
}

// trailer reads the dictionary after the last trailer keyword. Files that
// use cross-reference streams carry the trailer entries on the XRef stream.
func (st *parseState) trailer(f *File) *raw.DictObj {
	if st.table.TrailerOffset >= 0 {
		v, err := parseBare(st.data, st.cfg.Scanner, st.cfg.Recovery, 0, st.table.TrailerOffset)
		if d, ok := v.(*raw.DictObj); ok && err == nil {
			return d
		}
		st.cfg.Recovery.OnError(errors.New("unreadable trailer"), recovery.Location{ByteOffset: st.table.TrailerOffset, Component: "trailer"})
	}
	nums := f.Numbers()
	for i := len(nums) - 1; i >= 0; i-- {
		if s, ok := f.Objects[nums[i]].Stream(); ok {
			if t, _ := s.Dict.Name("Type"); t == "XRef" {
				d := raw.Dict()
				for _, key := range []string{"Root", "Info", "ID"} {
					if v, ok := s.Dict.Get(key); ok {
						d.Set(key, v)
					}
				}
				return d
			}
		}
	}
	// no trailer at all: point /Root at the first catalog found
	d := raw.Dict()
	for _, num := range nums {
		if t, _ := f.Objects[num].Name("Type"); t == "Catalog" {
			d.Set("Root", raw.Ref(num, f.Objects[num].Gen))
			break
		}
	}
	return d
}

// expandObjectStreams lifts objects stored inside /Type /ObjStm streams
// into the object map. Objects already present at top level win.
func (st *parseState) expandObjectStreams(f *File) error {
	pipeline := filters.DefaultPipeline()
	for _, num := range f.Numbers() {
		s, ok := f.Objects[num].Stream()
		if !ok {
			continue
		}
		if t, _ := s.Dict.Name("Type"); t != "ObjStm" {
			continue
		}
		loc := recovery.Location{ObjectNum: num, Component: "objstm"}
		data, err := pipeline.DecodeStream(s)
		if err != nil {
			if st.cfg.Recovery.OnError(err, loc) == recovery.ActionFail {
				return err
			}
			continue
		}
		n, _ := s.Dict.Int("N")
		first, _ := s.Dict.Int("First")
		if first < 0 || first > int64(len(data)) {
			if st.cfg.Recovery.OnError(errors.New("object stream /First out of range"), loc) == recovery.ActionFail {
				return fmt.Errorf("object %d: /First out of range", num)
			}
			continue
		}
		pairs := readIntPairs(data[:first], int(n))
		for _, pr := range pairs {
			if _, exists := f.Objects[pr[0]]; exists {
				continue
			}
			off := first + int64(pr[1])
			if off >= int64(len(data)) {
				continue
			}
			body, err := parseBare(data, st.cfg.Scanner, st.cfg.Recovery, pr[0], off)
			if err != nil {
				if st.cfg.Recovery.OnError(err, recovery.Location{ObjectNum: pr[0], Component: "objstm"}) == recovery.ActionFail {
					return fmt.Errorf("object %d in stream %d: %w", pr[0], num, err)
				}
				continue
			}
			f.Objects[pr[0]] = &Object{Num: pr[0], Body: body, Offset: -1}
		}
	}
	return nil
}

func readIntPairs(header []byte, n int) [][2]int {
	s := scanner.New(header, scanner.Config{})
	var ints []int
	for len(ints) < 2*n {
		tok, err := s.Next()
		if err != nil {
			break
		}
		if tok.Type == scanner.TokenNumber && tok.IsInt {
			ints = append(ints, int(tok.Int))
		}
	}
	out := make([][2]int, 0, len(ints)/2)
	for i := 0; i+1 < len(ints); i += 2 {
		out = append(out, [2]int{ints[i], ints[i+1]})
	}
	return out
}

func headerVersion(data []byte) string {
	idx := bytes.Index(data, []byte("%PDF-"))
	if idx < 0 || idx > 1024 {
		return ""
	}
	rest := data[idx+5:]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	return string(rest[:end])
}

// Numbers returns the object numbers in ascending order.
func (f *File) Numbers() []int {
	out := make([]int, 0, len(f.Objects))
	for n := range f.Objects {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// MaxObjectNumber is the highest number in use, or 0 for an empty file.
func (f *File) MaxObjectNumber() int {
	max := 0
	for n := range f.Objects {
		if n > max {
			max = n
		}
	}
	return max
}

// Object returns the indirect object num.
func (f *File) Object(num int) (*Object, bool) {
	o, ok := f.Objects[num]
	return o, ok
}

const maxRefChain = 32

// Resolve follows references until a direct value is reached. A dangling
// reference resolves to null, as PDF readers treat it.
func (f *File) Resolve(o raw.Object) raw.Object {
	for i := 0; i < maxRefChain; i++ {
		ref, ok := o.(raw.RefObj)
		if !ok {
			return o
		}
		target, ok := f.Objects[ref.R.Num]
		if !ok {
			return raw.NullObj{}
		}
		o = target.Body
	}
	return raw.NullObj{}
}

// ResolveDict resolves o and returns its dictionary, including a stream's.
func (f *File) ResolveDict(o raw.Object) (*raw.DictObj, bool) {
	switch v := f.Resolve(o).(type) {
	case *raw.DictObj:
		return v, true
	case *raw.StreamObj:
		return v.Dict, v.Dict != nil
	}
	return nil, false
}

// Catalog returns the document catalog named by the trailer's /Root.
func (f *File) Catalog() (*raw.DictObj, bool) {
	if f.Trailer == nil {
		return nil, false
	}
	root, ok := f.Trailer.Get("Root")
	if !ok {
		return nil, false
	}
	return f.ResolveDict(root)
}

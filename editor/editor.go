// Package editor patches a parsed PDF: new objects, resources and content
// streams, then writes the whole file out again.
package editor

import (
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/fonts"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/observability"
	"github.com/wudi/pdfcore/optimize"
	"github.com/wudi/pdfcore/parser"
	"github.com/wudi/pdfcore/resources"
	"github.com/wudi/pdfcore/writer"
)

var (
	ErrNotPage         = errors.New("editor: object is not a page dictionary")
	ErrNotDictionary   = errors.New("editor: value is not a dictionary")
	ErrUnsupportedFont = errors.New("editor: only standard fonts can be added")
)

type Option func(*Editor)

func WithLogger(l observability.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// WithOptimize runs the optimize passes on the file before WriteTo writes
// it.
func WithOptimize(cfg optimize.Config) Option {
	return func(e *Editor) { e.optimize = &cfg }
}

// WithCompression sets the zlib level for new content streams.
func WithCompression(level int) Option {
	return func(e *Editor) { e.level = level }
}

// Editor mutates the objects of a parsed file in place. It is not safe for
// concurrent use.
type Editor struct {
	file  *parser.File
	log   observability.Logger
	level int
	next  int
	fonts map[string]int

	optimize *optimize.Config
}

func New(f *parser.File, opts ...Option) *Editor {
	e := &Editor{
		file:  f,
		log:   observability.NopLogger{},
		level: zlib.DefaultCompression,
		next:  f.MaxObjectNumber() + 1,
		fonts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	if f.Objects == nil {
		f.Objects = make(map[int]*parser.Object)
	}
	return e
}

func (e *Editor) File() *parser.File { return e.file }

// Pages lists the file's pages in document order.
func (e *Editor) Pages() []*parser.Object { return e.file.Pages() }

// AddObject stores value under the next free object number.
func (e *Editor) AddObject(value raw.Object) int {
	num := e.next
	e.next++
	e.file.Objects[num] = &parser.Object{Num: num, Body: value, Offset: -1}
	e.log.Debug("object added", observability.Int(observability.KeyObject, num))
	return num
}

func pageDict(page *parser.Object) (*raw.DictObj, error) {
	d, ok := page.Body.(*raw.DictObj)
	if !ok {
		return nil, fmt.Errorf("%w: object %d", ErrNotPage, page.Num)
	}
	return d, nil
}

// AddResource sets name in the kind sub-dictionary of the page's resources.
// A referenced resources dictionary is changed where it lives and the page
// is left alone. A page without its own /Resources gets a direct copy of
// the inherited one first.
func (e *Editor) AddResource(page *parser.Object, kind resources.Category, name string, value raw.Object) error {
	d, err := pageDict(page)
	if err != nil {
		return err
	}
	res, err := e.ownResources(page, d)
	if err != nil {
		return err
	}
	sub, err := e.subDict(res, string(kind))
	if err != nil {
		return fmt.Errorf("page %d /Resources /%s: %w", page.Num, kind, err)
	}
	sub.Set(name, value)
	e.log.Debug("resource added",
		observability.Int(observability.KeyPage, page.Num),
		observability.String("kind", string(kind)),
		observability.String("name", name))
	return nil
}

func (e *Editor) ownResources(page *parser.Object, d *raw.DictObj) (*raw.DictObj, error) {
	if v, ok := d.Get("Resources"); ok {
		res, ok := e.file.ResolveDict(v)
		if !ok {
			return nil, fmt.Errorf("page %d /Resources: %w", page.Num, ErrNotDictionary)
		}
		return res, nil
	}
	res := raw.Dict()
	if inherited, ok := e.file.PageResources(page); ok {
		res = inherited.Clone()
	}
	d.Set("Resources", res)
	return res, nil
}

func (e *Editor) subDict(res *raw.DictObj, key string) (*raw.DictObj, error) {
	v, ok := res.Get(key)
	if !ok {
		sub := raw.Dict()
		res.Set(key, sub)
		return sub, nil
	}
	sub, ok := e.file.ResolveDict(v)
	if !ok {
		return nil, ErrNotDictionary
	}
	return sub, nil
}

// SetGraphicsState registers gs under /ExtGState name for page.
func (e *Editor) SetGraphicsState(page *parser.Object, name string, gs *raw.DictObj) error {
	return e.AddResource(page, resources.CategoryExtGState, name, gs)
}

// AddFont writes a font dictionary for f, once per base font, and adds it
// to the page's resources. The font is bound to the new object number and
// the resource name F<num> is returned.
func (e *Editor) AddFont(page *parser.Object, f *fonts.Font) (string, error) {
	if f.Kind() != fonts.Standard {
		return "", fmt.Errorf("%w: %s is %s", ErrUnsupportedFont, f.Name(), f.Kind())
	}
	num, ok := e.fonts[f.Name()]
	if !ok {
		num = e.AddObject(fonts.StandardDict(f.Name()))
		e.fonts[f.Name()] = num
	}
	if err := f.Bind(num); err != nil {
		return "", err
	}
	name := fmt.Sprintf("F%d", num)
	if err := e.AddResource(page, resources.CategoryFont, name, raw.Ref(num, 0)); err != nil {
		return "", err
	}
	return name, nil
}

// AddStandardFont adds one of the 14 standard fonts to page.
func (e *Editor) AddStandardFont(page *parser.Object, base string) (string, error) {
	f, err := fonts.NewStandardFont(base)
	if err != nil {
		return "", err
	}
	return e.AddFont(page, f)
}

// AddContent appends a content stream to the page: it is drawn after the
// existing content.
func (e *Editor) AddContent(page *parser.Object, data []byte) (int, error) {
	return e.addContent(page, data, false)
}

// AddPrefixContent inserts a content stream before the existing content.
func (e *Editor) AddPrefixContent(page *parser.Object, data []byte) (int, error) {
	return e.addContent(page, data, true)
}

func (e *Editor) addContent(page *parser.Object, data []byte, prefix bool) (int, error) {
	d, err := pageDict(page)
	if err != nil {
		return 0, err
	}
	packed, err := filters.FlateEncode(data, e.level)
	if err != nil {
		return 0, fmt.Errorf("compress content: %w", err)
	}
	sd := raw.Dict()
	sd.Set("Filter", raw.NameLiteral("FlateDecode"))
	num := e.AddObject(raw.NewStream(sd, packed))
	ref := raw.Ref(num, 0)

	old, ok := d.Get("Contents")
	switch {
	case !ok:
		d.Set("Contents", ref)
	case isArray(e.file.Resolve(old)):
		arr := e.file.Resolve(old).(*raw.ArrayObj)
		if prefix {
			arr.Insert(0, ref)
		} else {
			arr.Append(ref)
		}
	case prefix:
		d.Set("Contents", raw.NewArray(ref, old))
	default:
		d.Set("Contents", raw.NewArray(old, ref))
	}
	e.log.Debug("content added",
		observability.Int(observability.KeyPage, page.Num),
		observability.Int(observability.KeyObject, num),
		observability.Int(observability.KeyBytes, len(data)))
	return num, nil
}

func isArray(o raw.Object) bool {
	_, ok := o.(*raw.ArrayObj)
	return ok
}

// WriteTo writes every object at its number, then a fresh cross-reference
// table and a trailer carrying the original /Root, /Info and /ID. Object
// and xref streams are not copied; the objects they held are written
// directly.
func (e *Editor) WriteTo(w io.Writer) (int64, error) {
	if e.optimize != nil {
		cfg := *e.optimize
		if cfg.Logger == nil {
			cfg.Logger = e.log
		}
		if _, err := optimize.Optimize(e.file, cfg); err != nil {
			return 0, err
		}
	}
	out := writer.New(w)
	if err := out.Header(e.file.Version); err != nil {
		return out.Offset(), err
	}
	for _, num := range e.file.Numbers() {
		obj := e.file.Objects[num]
		if t, _ := obj.Name("Type"); t == "ObjStm" || t == "XRef" {
			continue
		}
		if err := out.WriteObject(obj.Num, obj.Gen, obj.Body); err != nil {
			return out.Offset(), fmt.Errorf("write object %d: %w", num, err)
		}
	}
	trailer := raw.Dict()
	if e.file.Trailer != nil {
		for _, key := range []string{"Root", "Info", "ID"} {
			if v, ok := e.file.Trailer.Get(key); ok {
				trailer.Set(key, v)
			}
		}
	}
	if err := out.Finish(trailer); err != nil {
		return out.Offset(), err
	}
	e.log.Info("file written",
		observability.Int("objects", len(e.file.Objects)),
		observability.Int64(observability.KeyBytes, out.Offset()))
	return out.Offset(), nil
}

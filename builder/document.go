// Package builder writes PDF documents page by page. Fonts and images are
// written as they are added; pages, resources and the document catalog are
// written by Close.
package builder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"

	"github.com/wudi/pdfcore/compliance"
	"github.com/wudi/pdfcore/compliance/pdfa"
	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/fonts"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/observability"
	"github.com/wudi/pdfcore/resources"
	"github.com/wudi/pdfcore/writer"
)

var (
	ErrClosed       = errors.New("builder: document closed")
	ErrPageFinished = errors.New("builder: page finished")
	ErrTransparency = errors.New("builder: transparency is not allowed in archival mode")
	ErrNotAdded     = errors.New("builder: resource not added to this document")
)

type state int

const (
	stateOpen state = iota
	stateClosing
	stateClosed
)

type destination struct {
	page *Page
	y    float64
}

// Document is a PDF being written to a sink. It is not safe for concurrent
// use.
type Document struct {
	w     *writer.Writer
	alloc *writer.Allocator
	log   observability.Logger

	mode     compliance.Mode
	level    int
	version  string
	seed     []byte
	lang     string
	info     pdfa.Info
	now      func() time.Time
	registry *resources.Registry

	fonts    []*fonts.Font
	embedded map[*fonts.Font]writer.Reservation
	images   []*Image
	pages    []*Page
	dests    map[string]destination
	destList []string

	metadata     writer.Reservation
	outputIntent int

	state state
}

// Option configures a Document.
type Option func(*Document)

// WithCompliance selects archival or accessible output.
func WithCompliance(m compliance.Mode) Option {
	return func(d *Document) { d.mode = m }
}

func WithLogger(l observability.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.log = l
		}
	}
}

// WithCompression sets the zlib level used for content streams, images and
// font programs.
func WithCompression(level int) Option {
	return func(d *Document) { d.level = level }
}

// WithDeterministicID derives the file /ID from seed instead of random
// bytes.
func WithDeterministicID(seed []byte) Option {
	return func(d *Document) { d.seed = append([]byte(nil), seed...) }
}

// WithVersion sets the header version, "1.4" by default.
func WithVersion(v string) Option {
	return func(d *Document) { d.version = v }
}

// WithLanguage sets the catalog /Lang, a BCP 47 tag.
func WithLanguage(lang string) Option {
	return func(d *Document) { d.lang = lang }
}

// New writes the file header to w and returns an open document. In archival
// mode the output intent is written and an object number is set aside for
// the XMP metadata, which is filled in by Close.
func New(w io.Writer, opts ...Option) (*Document, error) {
	d := &Document{
		log:      observability.NopLogger{},
		level:    -1,
		version:  writer.DefaultVersion,
		now:      time.Now,
		registry: resources.NewRegistry(),
		embedded: make(map[*fonts.Font]writer.Reservation),
		dests:    make(map[string]destination),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.mode.Validate(); err != nil {
		return nil, err
	}
	if d.lang != "" {
		tag, err := language.Parse(d.lang)
		if err != nil {
			return nil, fmt.Errorf("document language %q: %w", d.lang, err)
		}
		d.lang = tag.String()
	}
	d.info.Language = d.lang
	d.info.Producer = "pdfcore"

	d.w = writer.New(w)
	d.alloc = writer.NewAllocator(d.w)
	if err := d.w.Header(d.version); err != nil {
		return nil, err
	}
	if d.mode == compliance.PDFA {
		if err := d.writeOutputIntent(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Document) writeOutputIntent() error {
	intent, err := pdfa.OutputIntent()
	if err != nil {
		return err
	}
	d.metadata = d.alloc.Reserve(1)

	data, err := filters.FlateEncode(intent.Profile, d.level)
	if err != nil {
		return err
	}
	sd := raw.Dict()
	sd.Set("N", raw.NumberInt(int64(intent.Components)))
	sd.Set("Filter", raw.NameLiteral("FlateDecode"))
	profile, err := d.alloc.Put(raw.NewStream(sd, data))
	if err != nil {
		return err
	}

	oi := raw.Dict()
	oi.Set("Type", raw.NameLiteral("OutputIntent"))
	oi.Set("S", raw.NameLiteral("GTS_PDFA1"))
	oi.Set("OutputCondition", raw.Str([]byte(intent.Identifier)))
	oi.Set("OutputConditionIdentifier", raw.Str([]byte(intent.Identifier)))
	oi.Set("Info", raw.Str([]byte(intent.Identifier)))
	oi.Set("DestOutputProfile", raw.Ref(profile, 0))
	if d.outputIntent, err = d.alloc.Put(oi); err != nil {
		return err
	}
	d.log.Debug("output intent written", observability.Int(observability.KeyObject, d.outputIntent))
	return nil
}

func (d *Document) SetTitle(s string)    { d.info.Title = s }
func (d *Document) SetAuthor(s string)   { d.info.Author = s }
func (d *Document) SetSubject(s string)  { d.info.Subject = s }
func (d *Document) SetKeywords(s string) { d.info.Keywords = s }
func (d *Document) SetCreator(s string)  { d.info.Creator = s }
func (d *Document) SetProducer(s string) { d.info.Producer = s }

// Mode is the compliance mode the document is written in.
func (d *Document) Mode() compliance.Mode { return d.mode }

// Pages returns the pages in order.
func (d *Document) Pages() []*Page { return append([]*Page(nil), d.pages...) }

// NewPage starts a page of the given size. The previous page is finished.
func (d *Document) NewPage(width, height float64) (*Page, error) {
	if d.state != stateOpen {
		return nil, ErrClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("page size %gx%g must be positive", width, height)
	}
	if n := len(d.pages); n > 0 {
		d.pages[n-1].finish()
	}
	p := newPage(d, len(d.pages), Size{width, height})
	d.pages = append(d.pages, p)
	return p, nil
}

// AddPage starts a page of a standard size.
func (d *Document) AddPage(size Size) (*Page, error) {
	return d.NewPage(size.Width, size.Height)
}

// AddFont writes the font and binds it to its object number. Embedded fonts
// only reserve their objects here; the subset is written by Close. Adding a
// font twice is a no-op.
func (d *Document) AddFont(f *fonts.Font) error {
	if d.state != stateOpen {
		return ErrClosed
	}
	if d.hasFont(f) {
		return nil
	}
	if d.mode == compliance.PDFA {
		if err := pdfa.CheckFont(f); err != nil {
			return fmt.Errorf("add font: %w", err)
		}
	}

	var num int
	var err error
	switch f.Kind() {
	case fonts.Standard:
		num, err = d.alloc.Put(fonts.StandardDict(f.Name()))
	case fonts.CJK:
		num, err = d.writeCJKFont(f)
	case fonts.Embedded:
		res := d.alloc.Reserve(5)
		d.embedded[f] = res
		num = res.Number(0)
	}
	if err != nil {
		return fmt.Errorf("add font %s: %w", f.Name(), err)
	}
	if err := f.Bind(num); err != nil {
		return err
	}
	d.fonts = append(d.fonts, f)
	d.registry.Font(num)
	d.log.Debug("font added",
		observability.String("font", f.Name()),
		observability.String("kind", f.Kind().String()),
		observability.Int(observability.KeyObject, num))
	return nil
}

func (d *Document) hasFont(f *fonts.Font) bool {
	for _, g := range d.fonts {
		if g == f {
			return true
		}
	}
	return false
}

func (d *Document) fontName(f *fonts.Font) (string, error) {
	if f == nil || !d.hasFont(f) {
		name := "<nil>"
		if f != nil {
			name = f.Name()
		}
		return "", fmt.Errorf("%w: font %s", ErrNotAdded, name)
	}
	return d.registry.Font(f.ObjectNumber()), nil
}

// AddImage writes img, and its soft mask before it.
func (d *Document) AddImage(img *Image) error {
	if d.state != stateOpen {
		return ErrClosed
	}
	if img.objNum != 0 {
		return nil
	}
	if img.SMask != nil && d.mode == compliance.PDFA {
		return fmt.Errorf("add image: soft mask: %w", ErrTransparency)
	}
	var smask int
	if img.SMask != nil {
		n, err := d.writeImage(img.SMask, 0)
		if err != nil {
			return fmt.Errorf("add image mask: %w", err)
		}
		smask = n
	}
	num, err := d.writeImage(img, smask)
	if err != nil {
		return fmt.Errorf("add image: %w", err)
	}
	img.objNum = num
	d.images = append(d.images, img)
	d.registry.XObject(num)
	d.log.Debug("image added",
		observability.Int(observability.KeyObject, num),
		observability.Int("width", img.Width),
		observability.Int("height", img.Height))
	return nil
}

func (d *Document) writeImage(img *Image, smask int) (int, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return 0, fmt.Errorf("image size %dx%d must be positive", img.Width, img.Height)
	}
	bpc := img.BitsPerComponent
	if bpc == 0 {
		bpc = 8
	}
	cs := img.ColorSpace
	if cs == "" {
		cs = "DeviceRGB"
	}
	sd := raw.Dict()
	sd.Set("Type", raw.NameLiteral("XObject"))
	sd.Set("Subtype", raw.NameLiteral("Image"))
	sd.Set("Width", raw.NumberInt(int64(img.Width)))
	sd.Set("Height", raw.NumberInt(int64(img.Height)))
	sd.Set("ColorSpace", raw.NameLiteral(cs))
	sd.Set("BitsPerComponent", raw.NumberInt(int64(bpc)))
	if smask != 0 {
		sd.Set("SMask", raw.Ref(smask, 0))
	}
	data := img.Data
	switch img.Filter {
	case "":
		enc, err := filters.FlateEncode(img.Data, d.level)
		if err != nil {
			return 0, err
		}
		data = enc
		sd.Set("Filter", raw.NameLiteral("FlateDecode"))
	default:
		sd.Set("Filter", raw.NameLiteral(img.Filter))
	}
	return d.alloc.Put(raw.NewStream(sd, data))
}

func (d *Document) imageName(img *Image) (string, error) {
	if img == nil || img.objNum == 0 {
		return "", fmt.Errorf("%w: image", ErrNotAdded)
	}
	for _, i := range d.images {
		if i == img {
			return d.registry.XObject(img.objNum), nil
		}
	}
	return "", fmt.Errorf("%w: image %d", ErrNotAdded, img.objNum)
}

func (d *Document) extGState(alpha float64) (string, error) {
	if alpha < 0 || alpha > 1 {
		return "", fmt.Errorf("opacity %g out of range", alpha)
	}
	if alpha < 1 && d.mode == compliance.PDFA {
		return "", ErrTransparency
	}
	gs := raw.Dict()
	gs.Set("Type", raw.NameLiteral("ExtGState"))
	gs.Set("CA", raw.NumberFloat(alpha))
	gs.Set("ca", raw.NumberFloat(alpha))
	return d.registry.ExtGState("alpha:"+num(alpha), gs), nil
}

// AddDestination names a position on page. y is measured from the top.
func (d *Document) AddDestination(name string, page *Page, y float64) error {
	if d.state != stateOpen {
		return ErrClosed
	}
	if page == nil || page.doc != d {
		return fmt.Errorf("destination %q: page does not belong to this document", name)
	}
	if _, ok := d.dests[name]; !ok {
		d.destList = append(d.destList, name)
	}
	d.dests[name] = destination{page: page, y: y}
	return nil
}

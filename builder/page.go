package builder

import (
	"fmt"

	"github.com/wudi/pdfcore/compliance"
)

// Size is a page size in points.
type Size struct {
	Width, Height float64
}

var (
	Letter = Size{612, 792}
	Legal  = Size{612, 1008}
	A3     = Size{841.89, 1190.55}
	A4     = Size{595.28, 841.89}
	A5     = Size{419.53, 595.28}
)

// Landscape swaps width and height.
func (s Size) Landscape() Size { return Size{s.Height, s.Width} }

type BoxKind string

const (
	CropBox  BoxKind = "CropBox"
	BleedBox BoxKind = "BleedBox"
	TrimBox  BoxKind = "TrimBox"
	ArtBox   BoxKind = "ArtBox"
)

var boxOrder = []BoxKind{CropBox, BleedBox, TrimBox, ArtBox}

// Box is a rectangle with its top-left corner at (X, Y).
type Box struct {
	X, Y, W, H float64
}

// Annotation is a link rectangle. Exactly one of URI and Dest is set.
type Annotation struct {
	Box
	URI         string
	Dest        string
	Description string
}

// Structure describes one tagged piece of page content.
type Structure struct {
	Tag        string
	Alt        string
	ActualText string
	Language   string

	mcid   int
	parent int // index of the enclosing structure on the page, or -1
}

// Page is one page of a Document. Drawing goes through the embedded
// Content; the page is finished when the next page is started or the
// document is closed.
type Page struct {
	*Content

	doc      *Document
	index    int
	width    float64
	height   float64
	rotate   int
	boxes    map[BoxKind]Box
	annots   []Annotation
	structs  []Structure
	open     []int // indices into structs of unclosed structures
	images   []compliance.ImageUse
	finished bool
}

func newPage(doc *Document, index int, size Size) *Page {
	p := &Page{doc: doc, index: index, width: size.Width, height: size.Height, boxes: make(map[BoxKind]Box)}
	p.Content = &Content{page: p}
	return p
}

func (p *Page) Width() float64  { return p.width }
func (p *Page) Height() float64 { return p.height }

// Index is the zero-based position of the page in the document.
func (p *Page) Index() int { return p.index }

// SetBox sets one of the optional page boxes.
func (p *Page) SetBox(kind BoxKind, b Box) {
	p.boxes[kind] = b
}

// SetRotation sets the /Rotate entry. degrees must be a multiple of 90.
func (p *Page) SetRotation(degrees int) error {
	if degrees%90 != 0 {
		return fmt.Errorf("page rotation %d is not a multiple of 90", degrees)
	}
	p.rotate = (degrees%360 + 360) % 360
	return nil
}

// rect converts a top-left box into a PDF rectangle array.
func (p *Page) rect(b Box) []float64 {
	return []float64{b.X, p.height - b.Y - b.H, b.X + b.W, p.height - b.Y}
}

// AddLink adds a URI link annotation over the box.
func (p *Page) AddLink(b Box, uri string) error {
	return p.addAnnotation(Annotation{Box: b, URI: uri})
}

// AddGoTo adds a link to the named destination dest. The name is resolved
// when the document is closed.
func (p *Page) AddGoTo(b Box, dest string) error {
	return p.addAnnotation(Annotation{Box: b, Dest: dest})
}

// AddAnnotation adds a link annotation.
func (p *Page) AddAnnotation(a Annotation) error {
	return p.addAnnotation(a)
}

func (p *Page) addAnnotation(a Annotation) error {
	if p.doc.state != stateOpen {
		return ErrClosed
	}
	if (a.URI == "") == (a.Dest == "") {
		return fmt.Errorf("annotation needs exactly one of URI and Dest")
	}
	p.annots = append(p.annots, a)
	return nil
}

// Annotations returns the page's annotations in order.
func (p *Page) Annotations() []Annotation { return append([]Annotation(nil), p.annots...) }

// BeginStructure opens a tagged marked-content sequence and returns its
// MCID. Structures may nest; each must be closed with EndStructure.
func (p *Page) BeginStructure(s Structure) (int, error) {
	if !p.ok() {
		return 0, p.Err
	}
	if s.Tag == "" {
		s.Tag = "Span"
	}
	s.mcid = len(p.structs)
	s.parent = -1
	if n := len(p.open); n > 0 {
		s.parent = p.open[n-1]
	}
	p.structs = append(p.structs, s)
	p.open = append(p.open, s.mcid)
	p.BeginMarked(s.Tag, s.mcid)
	return s.mcid, nil
}

func (p *Page) EndStructure() error {
	if !p.ok() {
		return p.Err
	}
	if len(p.open) == 0 {
		return fmt.Errorf("EndStructure without BeginStructure")
	}
	p.open = p.open[:len(p.open)-1]
	p.EndMarked()
	return nil
}

// Structures returns the structure records of the page in MCID order.
func (p *Page) Structures() []Structure { return append([]Structure(nil), p.structs...) }

func (p *Page) imageDrawn(name string) {
	use := compliance.ImageUse{Name: name, Page: p.index + 1}
	for i := len(p.open) - 1; i >= 0; i-- {
		if alt := p.structs[p.open[i]].Alt; alt != "" {
			use.Alt = alt
			break
		}
	}
	p.images = append(p.images, use)
}

// slots is the number of object numbers the page takes: the page, its
// content stream and one per annotation.
func (p *Page) slots() int { return 2 + len(p.annots) }

// finish closes the page for drawing. Structures left open are recorded
// in Err.
func (p *Page) finish() {
	if p.finished {
		return
	}
	p.finished = true
	if p.Err == nil && len(p.open) > 0 {
		p.Err = fmt.Errorf("page %d: %d structure(s) not ended", p.index+1, len(p.open))
	}
}

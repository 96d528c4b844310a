package builder

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/wudi/pdfcore/compliance"
	"github.com/wudi/pdfcore/compliance/pdfa"
	"github.com/wudi/pdfcore/compliance/pdfua"
	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/fonts"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/observability"
	"github.com/wudi/pdfcore/writer"
)

// Close writes the embedded fonts, resources, page tree, document
// catalog and cross-reference table, then flushes the sink and closes it
// if it is an io.Closer. The sink is closed even when writing fails.
func (d *Document) Close() (err error) {
	if d.state != stateOpen {
		return ErrClosed
	}
	d.state = stateClosing
	defer func() {
		d.state = stateClosed
		if cerr := d.w.Close(); err == nil {
			err = cerr
		}
	}()

	for _, p := range d.pages {
		p.finish()
		if p.Err != nil {
			return fmt.Errorf("page %d: %w", p.index+1, p.Err)
		}
	}
	if err := d.checkDestinations(); err != nil {
		return err
	}
	if err := d.validate(); err != nil {
		return err
	}

	for _, f := range d.fonts {
		if res, ok := d.embedded[f]; ok {
			if err := d.writeEmbeddedFont(f, res); err != nil {
				return fmt.Errorf("font %s: %w", f.Name(), err)
			}
		}
	}
	resourcesNum, err := d.alloc.Put(d.registry.Dict())
	if err != nil {
		return err
	}
	tree, err := d.writePageTree(raw.Ref(resourcesNum, 0))
	if err != nil {
		return err
	}
	var structRoot raw.RefObj
	if d.mode == compliance.PDFUA {
		if structRoot, err = d.writeStructTree(tree); err != nil {
			return err
		}
	}
	if d.mode == compliance.PDFA {
		if err := d.writeMetadata(); err != nil {
			return err
		}
	}
	infoNum, err := d.alloc.Put(d.infoDict())
	if err != nil {
		return err
	}
	catalogNum, err := d.alloc.Put(d.catalog(tree, structRoot))
	if err != nil {
		return err
	}

	trailer := raw.Dict()
	trailer.Set("Root", raw.Ref(catalogNum, 0))
	trailer.Set("Info", raw.Ref(infoNum, 0))
	id, err := writer.FileID(d.seed)
	if err != nil {
		return err
	}
	trailer.Set("ID", id)
	if err := d.alloc.Finish(trailer); err != nil {
		return err
	}
	d.log.Info("document written",
		observability.Int("pages", len(d.pages)),
		observability.Int("objects", d.w.Table().Size()-1),
		observability.Int64(observability.KeyBytes, d.w.Offset()))
	return nil
}

func (d *Document) checkDestinations() error {
	for _, p := range d.pages {
		for _, a := range p.annots {
			if a.Dest == "" {
				continue
			}
			if _, ok := d.dests[a.Dest]; !ok {
				return fmt.Errorf("page %d: unresolved destination %q", p.index+1, a.Dest)
			}
		}
	}
	return nil
}

// Summary describes the document for the compliance validators.
func (d *Document) Summary() compliance.Summary {
	s := compliance.Summary{
		Title:           d.info.Title,
		Language:        d.lang,
		HasMetadata:     d.mode == compliance.PDFA,
		HasOutputIntent: d.outputIntent != 0,
	}
	for _, f := range d.fonts {
		s.Fonts = append(s.Fonts, compliance.FontUse{Name: f.Name(), Embedded: f.IsEmbedded()})
	}
	for _, p := range d.pages {
		if len(p.structs) > 0 {
			s.HasStructTree = d.mode == compliance.PDFUA
		}
		s.Images = append(s.Images, p.images...)
	}
	return s
}

func (d *Document) validate() error {
	var report *compliance.Report
	switch d.mode {
	case compliance.PDFA:
		report = pdfa.Validate(d.Summary())
	case compliance.PDFUA:
		report = pdfua.Validate(d.Summary())
	default:
		return nil
	}
	for _, v := range report.Violations {
		d.log.Warn("compliance violation",
			observability.String("code", v.Code),
			observability.String("location", v.Location))
	}
	return report.Err()
}

// writeEmbeddedFont fills the five reserved slots: Type0 font, CIDFont,
// descriptor, font program and ToUnicode map.
func (d *Document) writeEmbeddedFont(f *fonts.Font, res writer.Reservation) error {
	program, err := f.FontProgram()
	if err != nil {
		return err
	}
	baseName := f.SubsetTag() + "+" + f.Name()
	m := f.Metrics()

	type0 := raw.Dict()
	type0.Set("Type", raw.NameLiteral("Font"))
	type0.Set("Subtype", raw.NameLiteral("Type0"))
	type0.Set("BaseFont", raw.NameLiteral(baseName))
	type0.Set("Encoding", raw.NameLiteral("Identity-H"))
	type0.Set("DescendantFonts", raw.NewArray(res.Ref(1)))
	type0.Set("ToUnicode", res.Ref(4))
	if err := d.alloc.PutAt(res, 0, type0); err != nil {
		return err
	}

	cid := raw.Dict()
	cid.Set("Type", raw.NameLiteral("Font"))
	cid.Set("Subtype", raw.NameLiteral("CIDFontType2"))
	cid.Set("BaseFont", raw.NameLiteral(baseName))
	cid.Set("CIDSystemInfo", systemInfo(f))
	cid.Set("FontDescriptor", res.Ref(2))
	cid.Set("DW", raw.NumberInt(int64(f.DefaultWidth())))
	cid.Set("W", f.WidthsArray())
	cid.Set("CIDToGIDMap", raw.NameLiteral("Identity"))
	if err := d.alloc.PutAt(res, 1, cid); err != nil {
		return err
	}

	desc := descriptor(baseName, m)
	desc.Set("FontFile2", res.Ref(3))
	if err := d.alloc.PutAt(res, 2, desc); err != nil {
		return err
	}

	data, err := filters.FlateEncode(program, d.level)
	if err != nil {
		return err
	}
	fd := raw.Dict()
	fd.Set("Length1", raw.NumberInt(int64(len(program))))
	fd.Set("Filter", raw.NameLiteral("FlateDecode"))
	if err := d.alloc.PutAt(res, 3, raw.NewStream(fd, data)); err != nil {
		return err
	}

	cmap, err := filters.FlateEncode(f.ToUnicodeCMap(), d.level)
	if err != nil {
		return err
	}
	cd := raw.Dict()
	cd.Set("Filter", raw.NameLiteral("FlateDecode"))
	if err := d.alloc.PutAt(res, 4, raw.NewStream(cd, cmap)); err != nil {
		return err
	}
	d.log.Debug("embedded font written",
		observability.String("font", baseName),
		observability.Int("glyphs", len(f.UsedGlyphs())),
		observability.Int(observability.KeyBytes, len(program)))
	return nil
}

// writeCJKFont writes descriptor, CIDFont and Type0 font in that order and
// returns the Type0 number.
func (d *Document) writeCJKFont(f *fonts.Font) (int, error) {
	descNum, err := d.alloc.Put(descriptor(f.Name(), f.Metrics()))
	if err != nil {
		return 0, err
	}
	cid := raw.Dict()
	cid.Set("Type", raw.NameLiteral("Font"))
	cid.Set("Subtype", raw.NameLiteral("CIDFontType0"))
	cid.Set("BaseFont", raw.NameLiteral(f.Name()))
	cid.Set("CIDSystemInfo", systemInfo(f))
	cid.Set("FontDescriptor", raw.Ref(descNum, 0))
	cid.Set("DW", raw.NumberInt(int64(f.DefaultWidth())))
	cidNum, err := d.alloc.Put(cid)
	if err != nil {
		return 0, err
	}
	type0 := raw.Dict()
	type0.Set("Type", raw.NameLiteral("Font"))
	type0.Set("Subtype", raw.NameLiteral("Type0"))
	type0.Set("BaseFont", raw.NameLiteral(f.Name()))
	type0.Set("Encoding", raw.NameLiteral(f.Encoding()))
	type0.Set("DescendantFonts", raw.NewArray(raw.Ref(cidNum, 0)))
	return d.alloc.Put(type0)
}

func systemInfo(f *fonts.Font) *raw.DictObj {
	registry, ordering, supplement := f.CIDSystemInfo()
	si := raw.Dict()
	si.Set("Registry", raw.Str([]byte(registry)))
	si.Set("Ordering", raw.Str([]byte(ordering)))
	si.Set("Supplement", raw.NumberInt(int64(supplement)))
	return si
}

func descriptor(name string, m fonts.Metrics) *raw.DictObj {
	desc := raw.Dict()
	desc.Set("Type", raw.NameLiteral("FontDescriptor"))
	desc.Set("FontName", raw.NameLiteral(name))
	desc.Set("Flags", raw.NumberInt(int64(m.Flags)))
	desc.Set("FontBBox", raw.Ints(m.BBox[0], m.BBox[1], m.BBox[2], m.BBox[3]))
	desc.Set("ItalicAngle", raw.NumberFloat(m.ItalicAngle))
	desc.Set("Ascent", raw.NumberInt(int64(m.Ascent)))
	desc.Set("Descent", raw.NumberInt(int64(m.Descent)))
	desc.Set("CapHeight", raw.NumberInt(int64(m.CapHeight)))
	desc.Set("StemV", raw.NumberInt(int64(m.StemV)))
	return desc
}

// pageTree records where each page landed.
type pageTree struct {
	res   writer.Reservation
	first []int // slot of each page within res
}

func (t pageTree) root() raw.RefObj          { return t.res.Ref(0) }
func (t pageTree) page(i int) raw.RefObj     { return t.res.Ref(t.first[i]) }
func (t pageTree) pageNumber(i int) int      { return t.res.Number(t.first[i]) }
func (t pageTree) annot(i, j int) raw.RefObj { return t.res.Ref(t.first[i] + 2 + j) }
func (t pageTree) content(i int) raw.RefObj  { return t.res.Ref(t.first[i] + 1) }

// writePageTree reserves the pages object and every page's slots, writes
// the pages object with the predicted /Kids, then each page in turn.
func (d *Document) writePageTree(resources raw.RefObj) (pageTree, error) {
	total := 1
	first := make([]int, len(d.pages))
	for i, p := range d.pages {
		first[i] = total
		total += p.slots()
	}
	t := pageTree{res: d.alloc.Reserve(total), first: first}

	kids := raw.NewArray()
	for i := range d.pages {
		kids.Append(t.page(i))
	}
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", kids)
	pages.Set("Count", raw.NumberInt(int64(len(d.pages))))
	if err := d.alloc.PutAt(t.res, 0, pages); err != nil {
		return t, err
	}

	for i, p := range d.pages {
		if err := d.writePage(t, i, p, resources); err != nil {
			return t, fmt.Errorf("page %d: %w", i+1, err)
		}
	}
	return t, nil
}

func (d *Document) writePage(t pageTree, i int, p *Page, resources raw.RefObj) error {
	pd := raw.Dict()
	pd.Set("Type", raw.NameLiteral("Page"))
	pd.Set("Parent", t.root())
	pd.Set("MediaBox", raw.Floats(0, 0, p.width, p.height))
	for _, kind := range boxOrder {
		if b, ok := p.boxes[kind]; ok {
			pd.Set(string(kind), raw.Floats(p.rect(b)...))
		}
	}
	if p.rotate != 0 {
		pd.Set("Rotate", raw.NumberInt(int64(p.rotate)))
	}
	pd.Set("Resources", resources)
	pd.Set("Contents", t.content(i))
	if len(p.annots) > 0 {
		annots := raw.NewArray()
		for j := range p.annots {
			annots.Append(t.annot(i, j))
		}
		pd.Set("Annots", annots)
	}
	if d.mode == compliance.PDFUA {
		pd.Set("StructParents", raw.NumberInt(int64(i)))
		pd.Set("Tabs", raw.NameLiteral("S"))
	}
	slot := t.first[i]
	if err := d.alloc.PutAt(t.res, slot, pd); err != nil {
		return err
	}

	data, err := filters.FlateEncode(p.Bytes(), d.level)
	if err != nil {
		return err
	}
	sd := raw.Dict()
	sd.Set("Filter", raw.NameLiteral("FlateDecode"))
	if err := d.alloc.PutAt(t.res, slot+1, raw.NewStream(sd, data)); err != nil {
		return err
	}

	for j, a := range p.annots {
		if err := d.alloc.PutAt(t.res, slot+2+j, d.annotation(t, p, a)); err != nil {
			return err
		}
	}
	d.log.Debug("page written",
		observability.Int(observability.KeyPage, i+1),
		observability.Int(observability.KeyObject, t.pageNumber(i)),
		observability.Int("annotations", len(p.annots)))
	return nil
}

func (d *Document) annotation(t pageTree, p *Page, a Annotation) *raw.DictObj {
	ad := raw.Dict()
	ad.Set("Type", raw.NameLiteral("Annot"))
	ad.Set("Subtype", raw.NameLiteral("Link"))
	ad.Set("Rect", raw.Floats(p.rect(a.Box)...))
	ad.Set("Border", raw.Ints(0, 0, 0))
	if a.Description != "" {
		ad.Set("Contents", textString(a.Description))
	}
	if a.URI != "" {
		action := raw.Dict()
		action.Set("S", raw.NameLiteral("URI"))
		action.Set("URI", raw.Str([]byte(a.URI)))
		ad.Set("A", action)
	} else {
		ad.Set("Dest", d.destArray(t, d.dests[a.Dest]))
	}
	return ad
}

func (d *Document) destArray(t pageTree, dest destination) *raw.ArrayObj {
	return raw.NewArray(
		t.page(dest.page.index),
		raw.NameLiteral("XYZ"),
		raw.NumberInt(0),
		raw.NumberFloat(dest.page.height-dest.y),
		raw.NumberInt(0),
	)
}

func (d *Document) writeMetadata() error {
	xmp, err := pdfa.Metadata(d.info)
	if err != nil {
		return err
	}
	md := raw.Dict()
	md.Set("Type", raw.NameLiteral("Metadata"))
	md.Set("Subtype", raw.NameLiteral("XML"))
	return d.alloc.PutAt(d.metadata, 0, raw.NewStream(md, xmp))
}

func (d *Document) infoDict() *raw.DictObj {
	info := raw.Dict()
	for _, kv := range []struct{ key, val string }{
		{"Title", d.info.Title},
		{"Author", d.info.Author},
		{"Subject", d.info.Subject},
		{"Keywords", d.info.Keywords},
		{"Creator", d.info.Creator},
		{"Producer", d.info.Producer},
	} {
		if kv.val != "" {
			info.Set(kv.key, textString(kv.val))
		}
	}
	if d.mode != compliance.PDFA {
		info.Set("CreationDate", raw.Str([]byte(d.now().UTC().Format("D:20060102150405Z"))))
	}
	return info
}

func (d *Document) catalog(t pageTree, structRoot raw.RefObj) *raw.DictObj {
	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", t.root())
	if len(d.destList) > 0 {
		dests := raw.Dict()
		for _, name := range d.destList {
			dests.Set(name, d.destArray(t, d.dests[name]))
		}
		cat.Set("Dests", dests)
	}
	if d.mode == compliance.PDFA {
		cat.Set("Metadata", d.metadata.Ref(0))
		cat.Set("OutputIntents", raw.NewArray(raw.Ref(d.outputIntent, 0)))
	}
	if d.mode == compliance.PDFUA {
		mark := raw.Dict()
		mark.Set("Marked", raw.Bool(true))
		cat.Set("MarkInfo", mark)
		cat.Set("StructTreeRoot", structRoot)
		prefs := raw.Dict()
		prefs.Set("DisplayDocTitle", raw.Bool(true))
		cat.Set("ViewerPreferences", prefs)
	}
	if d.lang != "" {
		cat.Set("Lang", raw.Str([]byte(d.lang)))
	}
	return cat
}

// textString encodes s as PDFDocEncoding when it is ASCII and as UTF-16BE
// with a byte order mark otherwise.
func textString(s string) raw.StringObj {
	ascii := !strings.ContainsFunc(s, func(r rune) bool { return r >= 0x80 })
	if ascii {
		return raw.Str([]byte(s))
	}
	b := []byte{0xFE, 0xFF}
	for _, u := range utf16.Encode([]rune(s)) {
		b = append(b, byte(u>>8), byte(u))
	}
	return raw.Str(b)
}

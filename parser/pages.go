package parser

import (
	"bytes"
	"fmt"

	"github.com/wudi/pdfcore/filters"
	"github.com/wudi/pdfcore/ir/raw"
)

// Pages returns the page objects in document order by walking
// /Root /Pages /Kids. When the tree is missing or yields nothing, every
// /Type /Page object is returned in object-number order.
func (f *File) Pages() []*Object {
	var pages []*Object
	if cat, ok := f.Catalog(); ok {
		if root, ok := cat.Get("Pages"); ok {
			seen := make(map[int]bool)
			f.walkPages(root, seen, &pages)
		}
	}
	if len(pages) > 0 {
		return pages
	}
	for _, num := range f.Numbers() {
		if t, _ := f.Objects[num].Name("Type"); t == "Page" {
			pages = append(pages, f.Objects[num])
		}
	}
	return pages
}

func (f *File) walkPages(node raw.Object, seen map[int]bool, out *[]*Object) {
	ref, ok := node.(raw.RefObj)
	if !ok {
		return
	}
	if seen[ref.R.Num] {
		return
	}
	seen[ref.R.Num] = true
	obj, ok := f.Objects[ref.R.Num]
	if !ok {
		return
	}
	kind, _ := obj.Name("Type")
	kidsVal, hasKids := obj.Value("Kids")
	if kind == "Page" || (kind == "" && !hasKids) {
		*out = append(*out, obj)
		return
	}
	kids, ok := f.Resolve(kidsVal).(*raw.ArrayObj)
	if !ok {
		return
	}
	for _, kid := range kids.Items {
		f.walkPages(kid, seen, out)
	}
}

// Inherited looks key up on page and then on its /Parent chain.
func (f *File) Inherited(page *Object, key string) (raw.Object, bool) {
	d, ok := page.Dict()
	for depth := 0; ok && depth < maxRefChain; depth++ {
		if v, found := d.Get(key); found {
			return v, true
		}
		parent, found := d.Get("Parent")
		if !found {
			break
		}
		d, ok = f.ResolveDict(parent)
	}
	return nil, false
}

// PageResources returns the resources dictionary in effect for page: its
// own, a referenced one, or one inherited from an ancestor.
func (f *File) PageResources(page *Object) (*raw.DictObj, bool) {
	v, ok := f.Inherited(page, "Resources")
	if !ok {
		return nil, false
	}
	return f.ResolveDict(v)
}

// Contents returns the page's content streams decoded and joined with a
// newline, in drawing order.
func (f *File) Contents(page *Object) ([]byte, error) {
	v, ok := page.Value("Contents")
	if !ok {
		return nil, nil
	}
	var refs []raw.Object
	switch c := f.Resolve(v).(type) {
	case *raw.StreamObj:
		refs = []raw.Object{v}
	case *raw.ArrayObj:
		refs = c.Items
	default:
		return nil, fmt.Errorf("page %d: /Contents is %s", page.Num, c.Type())
	}
	pipeline := filters.DefaultPipeline()
	var out bytes.Buffer
	for i, r := range refs {
		s, ok := f.Resolve(r).(*raw.StreamObj)
		if !ok {
			continue
		}
		data, err := pipeline.DecodeStream(s)
		if err != nil {
			return nil, fmt.Errorf("page %d content %d: %w", page.Num, i, err)
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.Write(data)
	}
	return out.Bytes(), nil
}

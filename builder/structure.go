package builder

import (
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/observability"
)

// writeStructTree writes one structure element per recorded structure, a
// Document element, the parent tree and the StructTreeRoot, in that order.
// Structures begun inside another one become its kids; the rest are kids
// of the Document element. It returns the root reference.
func (d *Document) writeStructTree(t pageTree) (raw.RefObj, error) {
	n := 0
	for _, p := range d.pages {
		n += len(p.structs)
	}
	res := d.alloc.Reserve(n + 3)
	docElem, parentTree, root := res.Ref(n), res.Ref(n+1), res.Ref(n+2)

	nums := raw.NewArray()
	kids := raw.NewArray()
	slot := 0
	for i, p := range d.pages {
		base := slot
		children := make([][]raw.Object, len(p.structs))
		for j, s := range p.structs {
			if s.parent >= 0 {
				children[s.parent] = append(children[s.parent], res.Ref(base+j))
			} else {
				kids.Append(res.Ref(base + j))
			}
		}
		marked := raw.NewArray()
		for j, s := range p.structs {
			elem := raw.Dict()
			elem.Set("Type", raw.NameLiteral("StructElem"))
			elem.Set("S", raw.NameLiteral(s.Tag))
			if s.parent >= 0 {
				elem.Set("P", res.Ref(base+s.parent))
			} else {
				elem.Set("P", docElem)
			}
			elem.Set("Pg", t.page(i))
			if len(children[j]) == 0 {
				elem.Set("K", raw.NumberInt(int64(s.mcid)))
			} else {
				elem.Set("K", raw.NewArray(append([]raw.Object{raw.NumberInt(int64(s.mcid))}, children[j]...)...))
			}
			if s.Alt != "" {
				elem.Set("Alt", textString(s.Alt))
			}
			if s.ActualText != "" {
				elem.Set("ActualText", textString(s.ActualText))
			}
			if s.Language != "" {
				elem.Set("Lang", raw.Str([]byte(s.Language)))
			}
			if err := d.alloc.PutAt(res, slot, elem); err != nil {
				return raw.RefObj{}, err
			}
			marked.Append(res.Ref(slot))
			slot++
		}
		nums.Append(raw.NumberInt(int64(i)))
		nums.Append(marked)
	}

	de := raw.Dict()
	de.Set("Type", raw.NameLiteral("StructElem"))
	de.Set("S", raw.NameLiteral("Document"))
	de.Set("P", root)
	de.Set("K", kids)
	if err := d.alloc.PutAt(res, n, de); err != nil {
		return raw.RefObj{}, err
	}

	pt := raw.Dict()
	pt.Set("Nums", nums)
	if err := d.alloc.PutAt(res, n+1, pt); err != nil {
		return raw.RefObj{}, err
	}

	rd := raw.Dict()
	rd.Set("Type", raw.NameLiteral("StructTreeRoot"))
	rd.Set("K", docElem)
	rd.Set("ParentTree", parentTree)
	rd.Set("ParentTreeNextKey", raw.NumberInt(int64(len(d.pages))))
	if err := d.alloc.PutAt(res, n+2, rd); err != nil {
		return raw.RefObj{}, err
	}
	d.log.Debug("structure tree written",
		observability.Int("elements", n),
		observability.Int(observability.KeyObject, res.Number(n+2)))
	return root, nil
}

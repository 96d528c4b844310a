// Package resources keeps the resources a document's pages draw with and
// builds the shared /Resources dictionary from them.
package resources

import (
	"fmt"
	"strconv"

	"github.com/wudi/pdfcore/ir/raw"
)

type Category string

const (
	CategoryFont      Category = "Font"
	CategoryXObject   Category = "XObject"
	CategoryExtGState Category = "ExtGState"
)

// ProcSet is the procedure set array every page advertises.
var ProcSet = []string{"PDF", "Text", "ImageB", "ImageC", "ImageI"}

// Entry is one registered resource. Fonts and images point at their object;
// graphics states are stored inline.
type Entry struct {
	Category Category
	Name     string
	Ref      raw.RefObj
	Value    raw.Object
}

// Registry maps object ids to resource names. Registering the same id twice
// returns the first name. Entries are never removed.
type Registry struct {
	entries []Entry
	byID    map[int]int
	byKey   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[int]int), byKey: make(map[string]int)}
}

// Font registers the font object id and returns its name, F<id>.
func (r *Registry) Font(id int) string {
	return r.byObject(CategoryFont, "F", id)
}

// XObject registers the image object id and returns its name, Im<id>.
func (r *Registry) XObject(id int) string {
	return r.byObject(CategoryXObject, "Im", id)
}

func (r *Registry) byObject(cat Category, prefix string, id int) string {
	if i, ok := r.byID[id]; ok {
		return r.entries[i].Name
	}
	r.byID[id] = len(r.entries)
	name := prefix + strconv.Itoa(id)
	r.entries = append(r.entries, Entry{Category: cat, Name: name, Ref: raw.Ref(id, 0)})
	return name
}

// ExtGState registers gs under key and returns its name, GS<n>. A key seen
// before returns the earlier name and gs is ignored.
func (r *Registry) ExtGState(key string, gs *raw.DictObj) string {
	if i, ok := r.byKey[key]; ok {
		return r.entries[i].Name
	}
	name := fmt.Sprintf("GS%d", len(r.byKey))
	r.byKey[key] = len(r.entries)
	r.entries = append(r.entries, Entry{Category: CategoryExtGState, Name: name, Value: gs})
	return name
}

// Lookup finds a registered resource by category and name.
func (r *Registry) Lookup(cat Category, name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Category == cat && e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns the registered resources in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

func (r *Registry) Len() int { return len(r.entries) }

// Dict builds the /Resources dictionary. Category sub-dictionaries appear
// only when they have entries.
func (r *Registry) Dict() *raw.DictObj {
	d := raw.Dict()
	for _, cat := range []Category{CategoryFont, CategoryXObject, CategoryExtGState} {
		sub := raw.Dict()
		for _, e := range r.entries {
			if e.Category != cat {
				continue
			}
			if e.Value != nil {
				sub.Set(e.Name, e.Value)
			} else {
				sub.Set(e.Name, e.Ref)
			}
		}
		if sub.Len() > 0 {
			d.Set(string(cat), sub)
		}
	}
	procs := raw.NewArray()
	for _, p := range ProcSet {
		procs.Append(raw.NameLiteral(p))
	}
	d.Set("ProcSet", procs)
	return d
}

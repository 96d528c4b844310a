package raw

// Name object
type NameObj struct{ Val string }

func (n NameObj) Type() string     { return "name" }
func (n NameObj) IsIndirect() bool { return false }
func (n NameObj) Value() string    { return n.Val }

// Number object
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string     { return "number" }
func (n NumberObj) IsIndirect() bool { return false }
func (n NumberObj) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(n.F)
}
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }

// Boolean object
type BoolObj struct{ V bool }

func (b BoolObj) Type() string     { return "boolean" }
func (b BoolObj) IsIndirect() bool { return false }
func (b BoolObj) Value() bool      { return b.V }

// Null object
type NullObj struct{}

func (n NullObj) Type() string     { return "null" }
func (n NullObj) IsIndirect() bool { return false }

// String object. Hex records the source form so it round-trips.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string     { return "string" }
func (s StringObj) IsIndirect() bool { return false }
func (s StringObj) Value() []byte    { return s.Bytes }
func (s StringObj) IsHex() bool      { return s.Hex }

// Array object
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string     { return "array" }
func (a *ArrayObj) IsIndirect() bool { return false }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// Insert places o before index i. An index past the end appends.
func (a *ArrayObj) Insert(i int, o Object) {
	if i < 0 {
		i = 0
	}
	if i >= len(a.Items) {
		a.Items = append(a.Items, o)
		return
	}
	a.Items = append(a.Items, nil)
	copy(a.Items[i+1:], a.Items[i:])
	a.Items[i] = o
}

// Dictionary object. Keys keep their insertion order so a parsed
// dictionary serializes back in its original order.
type DictObj struct {
	keys []string
	kv   map[string]Object
}

func (d *DictObj) Type() string     { return "dict" }
func (d *DictObj) IsIndirect() bool { return false }

func (d *DictObj) Get(key string) (Object, bool) {
	if d == nil || d.kv == nil {
		return nil, false
	}
	o, ok := d.kv[key]
	return o, ok
}

// Set stores value under key. A new key goes to the end; an existing key
// keeps its position.
func (d *DictObj) Set(key string, value Object) {
	if d.kv == nil {
		d.kv = make(map[string]Object)
	}
	if _, ok := d.kv[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.kv[key] = value
}

func (d *DictObj) Delete(key string) {
	if _, ok := d.kv[key]; !ok {
		return
	}
	delete(d.kv, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *DictObj) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d *DictObj) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Name returns the name stored under key.
func (d *DictObj) Name(key string) (string, bool) {
	o, ok := d.Get(key)
	if !ok {
		return "", false
	}
	n, ok := o.(NameObj)
	return n.Val, ok
}

// Int returns the integer stored under key.
func (d *DictObj) Int(key string) (int64, bool) {
	o, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := o.(NumberObj)
	return n.Int(), ok
}

// Float returns the number stored under key.
func (d *DictObj) Float(key string) (float64, bool) {
	o, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := o.(NumberObj)
	return n.Float(), ok
}

// Ref returns the indirect reference stored under key.
func (d *DictObj) Ref(key string) (ObjectRef, bool) {
	o, ok := d.Get(key)
	if !ok {
		return ObjectRef{}, false
	}
	r, ok := o.(RefObj)
	return r.R, ok
}

// Dict returns the direct dictionary stored under key.
func (d *DictObj) Dict(key string) (*DictObj, bool) {
	o, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	v, ok := o.(*DictObj)
	return v, ok
}

// Array returns the direct array stored under key.
func (d *DictObj) Array(key string) (*ArrayObj, bool) {
	o, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	v, ok := o.(*ArrayObj)
	return v, ok
}

// Clone makes a deep copy of d. Stream data is shared.
func (d *DictObj) Clone() *DictObj {
	out := Dict()
	for _, k := range d.Keys() {
		out.Set(k, Clone(d.kv[k]))
	}
	return out
}

// Stream object
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string     { return "stream" }
func (s *StreamObj) IsIndirect() bool { return false }
func (s *StreamObj) RawData() []byte  { return s.Data }
func (s *StreamObj) Length() int64    { return int64(len(s.Data)) }

// Reference object
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string     { return "ref" }
func (r RefObj) IsIndirect() bool { return true }
func (r RefObj) Ref() ObjectRef   { return r.R }

// Clone deep-copies containers; scalars are values already.
func Clone(o Object) Object {
	switch v := o.(type) {
	case *ArrayObj:
		items := make([]Object, len(v.Items))
		for i, it := range v.Items {
			items[i] = Clone(it)
		}
		return &ArrayObj{Items: items}
	case *DictObj:
		return v.Clone()
	case *StreamObj:
		return &StreamObj{Dict: v.Dict.Clone(), Data: v.Data}
	case StringObj:
		b := make([]byte, len(v.Bytes))
		copy(b, v.Bytes)
		return StringObj{Bytes: b, Hex: v.Hex}
	default:
		return o
	}
}

// Helpers
func NameLiteral(v string) NameObj                    { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj                     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj                 { return NumberObj{F: f, IsInt: false} }
func Bool(v bool) BoolObj                             { return BoolObj{V: v} }
func Str(bytes []byte) StringObj                      { return StringObj{Bytes: bytes} }
func HexStr(bytes []byte) StringObj                   { return StringObj{Bytes: bytes, Hex: true} }
func NewArray(items ...Object) *ArrayObj              { return &ArrayObj{Items: items} }
func Dict() *DictObj                                  { return &DictObj{kv: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj { return &StreamObj{Dict: dict, Data: data} }
func Ref(num, gen int) RefObj                         { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }

// Ints builds an array of integers.
func Ints(vals ...int) *ArrayObj {
	a := &ArrayObj{Items: make([]Object, len(vals))}
	for i, v := range vals {
		a.Items[i] = NumberInt(int64(v))
	}
	return a
}

// Floats builds an array of reals.
func Floats(vals ...float64) *ArrayObj {
	a := &ArrayObj{Items: make([]Object, len(vals))}
	for i, v := range vals {
		a.Items[i] = NumberFloat(v)
	}
	return a
}

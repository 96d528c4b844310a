package raw

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDictKeepsInsertionOrder(t *testing.T) {
	d := Dict()
	d.Set("Type", NameLiteral("Page"))
	d.Set("MediaBox", Ints(0, 0, 612, 792))
	d.Set("Contents", Ref(4, 0))
	d.Set("Type", NameLiteral("Pages"))
	d.Delete("MediaBox")
	d.Set("Resources", Dict())

	want := []string{"Type", "Contents", "Resources"}
	if diff := cmp.Diff(want, d.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if n, ok := d.Name("Type"); !ok || n != "Pages" {
		t.Fatalf("Type = %q, %v", n, ok)
	}
}

func TestDictTypedAccessors(t *testing.T) {
	d := Dict()
	d.Set("Count", NumberInt(3))
	d.Set("Scale", NumberFloat(1.5))
	d.Set("Parent", Ref(2, 0))

	if v, ok := d.Int("Count"); !ok || v != 3 {
		t.Errorf("Int(Count) = %d, %v", v, ok)
	}
	if v, ok := d.Float("Scale"); !ok || v != 1.5 {
		t.Errorf("Float(Scale) = %v, %v", v, ok)
	}
	if r, ok := d.Ref("Parent"); !ok || r != (ObjectRef{Num: 2}) {
		t.Errorf("Ref(Parent) = %v, %v", r, ok)
	}
	if _, ok := d.Name("Count"); ok {
		t.Errorf("Name(Count) should report a type mismatch")
	}
	if _, ok := d.Get("Missing"); ok {
		t.Errorf("Get(Missing) should be absent")
	}
	var nilDict *DictObj
	if _, ok := nilDict.Get("Type"); ok {
		t.Errorf("nil dict lookup should be absent")
	}
}

func TestArrayInsert(t *testing.T) {
	a := NewArray(Ref(5, 0), Ref(6, 0))
	a.Insert(0, Ref(9, 0))
	a.Insert(10, Ref(10, 0))
	a.Insert(2, Ref(7, 0))

	var got []int
	for _, it := range a.Items {
		got = append(got, it.(RefObj).R.Num)
	}
	if diff := cmp.Diff([]int{9, 5, 7, 6, 10}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := Dict()
	inner.Set("F1", Ref(1, 0))
	outer := Dict()
	outer.Set("Font", inner)

	cp := outer.Clone()
	f, _ := cp.Dict("Font")
	f.Set("F2", Ref(2, 0))

	if inner.Len() != 1 {
		t.Fatalf("clone shares nested dictionary")
	}
}

package methods

import (
	"testing"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

func TestDispatchPicksMostSpecific(t *testing.T) {
	tab := NewTable()
	tab.AddMethod("f", &Method{Name: "f", Params: []Param{{Type: types.Number}}})
	tab.AddMethod("f", &Method{Name: "f", Params: []Param{{Type: types.NewNumeric(value.TagI64)}}})

	m, err := tab.ResolveDynamic("f", []value.Tag{value.TagI64})
	if err != nil {
		t.Fatal(err)
	}
	if m.Params[0].Type.String() != types.NewNumeric(value.TagI64).String() {
		t.Fatalf("expected the Int64-specific method, got %s", m.Params[0].Type)
	}
}

func TestDispatchTieBreaksOnDeclarationOrder(t *testing.T) {
	tab := NewTable()
	first := &Method{Name: "g", Params: []Param{{Type: types.Number}}}
	second := &Method{Name: "g", Params: []Param{{Type: types.Number}}}
	tab.AddMethod("g", first)
	tab.AddMethod("g", second)

	m, err := tab.ResolveDynamic("g", []value.Tag{value.TagI64})
	if err != nil {
		t.Fatal(err)
	}
	if m != first {
		t.Fatalf("expected earlier-declared method to win a tie")
	}
}

func TestAddingMoreSpecificMethodShiftsDispatch(t *testing.T) {
	tab := NewTable()
	tab.AddMethod("h", &Method{Name: "h", Params: []Param{{Type: types.Number}}})
	before, _ := tab.ResolveDynamic("h", []value.Tag{value.TagF64})

	specific := &Method{Name: "h", Params: []Param{{Type: types.NewNumeric(value.TagF64)}}}
	tab.AddMethod("h", specific)
	after, _ := tab.ResolveDynamic("h", []value.Tag{value.TagF64})

	if before == after {
		t.Fatal("adding a more specific method should change dispatch for a matching tuple")
	}
	if after != specific {
		t.Fatal("the newly added, more specific method should now be selected")
	}
}

func TestAddingLessSpecificMethodDoesNotShiftDispatch(t *testing.T) {
	tab := NewTable()
	specific := &Method{Name: "k", Params: []Param{{Type: types.NewNumeric(value.TagI64)}}}
	tab.AddMethod("k", specific)
	before, _ := tab.ResolveDynamic("k", []value.Tag{value.TagI64})

	tab.AddMethod("k", &Method{Name: "k", Params: []Param{{Type: types.Number}}})
	after, _ := tab.ResolveDynamic("k", []value.Tag{value.TagI64})

	if before != after || after != specific {
		t.Fatal("adding a less specific method must not change dispatch for tuples the specific method already covers")
	}
}

func TestNoMethodApplies(t *testing.T) {
	tab := NewTable()
	tab.AddMethod("only-strings", &Method{Name: "only-strings", Params: []Param{{Type: types.StringT}}})
	if _, err := tab.ResolveDynamic("only-strings", []value.Tag{value.TagI64}); err == nil {
		t.Fatal("expected a method error for no applicable method")
	}
}

package types

import (
	"testing"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

func sample() []Type {
	return []Type{
		Bottom,
		Top,
		Bool,
		StringT,
		NewNumeric(value.TagI64),
		NewNumeric(value.TagF64),
		Const{Literal: value.I64(3)},
		Union{Members: []Concrete{NewNumeric(value.TagI64), NewNumeric(value.TagF64)}},
	}
}

func TestJoinIdentityAndAnnihilator(t *testing.T) {
	for _, a := range sample() {
		if Join(a, Bottom).String() != a.String() {
			t.Errorf("join(%s, Bottom) = %s, want %s", a, Join(a, Bottom), a)
		}
		if !IsTop(Join(a, Top)) {
			t.Errorf("join(%s, Top) should be Top, got %s", a, Join(a, Top))
		}
	}
}

func TestJoinIdempotent(t *testing.T) {
	for _, a := range sample() {
		got := Join(a, a)
		if got.String() != Widen(a).String() && got.String() != a.String() {
			t.Errorf("join(%s, %s) = %s, want idempotent", a, a, got)
		}
	}
}

func TestJoinCommutative(t *testing.T) {
	s := sample()
	for _, a := range s {
		for _, b := range s {
			if Join(a, b).String() != Join(b, a).String() {
				t.Errorf("join(%s,%s)=%s != join(%s,%s)=%s", a, b, Join(a, b), b, a, Join(b, a))
			}
		}
	}
}

func TestJoinAssociative(t *testing.T) {
	s := sample()
	for _, a := range s {
		for _, b := range s {
			for _, c := range s {
				lhs := Join(Join(a, b), c)
				rhs := Join(a, Join(b, c))
				if lhs.String() != rhs.String() {
					t.Errorf("associativity failed for %s,%s,%s: %s != %s", a, b, c, lhs, rhs)
				}
			}
		}
	}
}

func TestSubtypeOfJoin(t *testing.T) {
	s := sample()
	for _, a := range s {
		for _, b := range s {
			j := Join(a, b)
			if !Subtype(a, j) {
				t.Errorf("subtype(%s, join(%s,%s)=%s) should hold", a, a, b, j)
			}
		}
	}
}

func TestEnvSnapshotRestore(t *testing.T) {
	env := NewEnv()
	env.Set("x", NewNumeric(value.TagI64))
	snap := env.Snapshot()

	env.Set("x", StringT)
	env.Set("y", Bool)

	env.Restore(snap)
	if !env.Equal(snap) {
		t.Fatalf("restore did not reproduce snapshot: %v vs %v", env.Names(), snap.Names())
	}
}

func TestEnvUpdateReturnsChanged(t *testing.T) {
	env := NewEnv()
	if !env.Update("x", NewNumeric(value.TagI64)) {
		t.Fatal("first update to unset variable should report changed")
	}
	if env.Update("x", NewNumeric(value.TagI64)) {
		t.Fatal("update with identical type should report unchanged")
	}
	if !env.Update("x", NewNumeric(value.TagF64)) {
		t.Fatal("update widening to a union should report changed")
	}
}

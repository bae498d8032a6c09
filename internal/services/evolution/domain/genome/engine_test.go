package genome

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(nil)
}

func mustBaseline(t *testing.T, e *Engine, s seed.Seed) Genome {
	t.Helper()
	g, err := e.GenerateBaseline(SchemaV1, s)
	if err != nil {
		t.Fatalf("generate baseline: %v", err)
	}
	return g
}

func TestGenerateBaselineDeterministic(t *testing.T) {
	e := newTestEngine(t)
	first := mustBaseline(t, e, "alpha-1")
	for range 5 {
		again := mustBaseline(t, e, "alpha-1")
		if !again.Equal(first) {
			t.Fatalf("baseline = %+v, want %+v", again, first)
		}
	}
	// A second engine over a fresh catalog must agree.
	other := mustBaseline(t, NewEngine(DefaultCatalog()), "alpha-1")
	if !other.Equal(first) {
		t.Fatal("expected baseline to be independent of engine instance")
	}
}

func TestGenerateBaselineValidAndVaried(t *testing.T) {
	e := newTestEngine(t)
	seen := make(map[uint64]bool)
	for i := range 50 {
		g := mustBaseline(t, e, seed.Seed(fmt.Sprintf("wild-%d", i)))
		if result := e.Validate(g); !result.Valid() {
			t.Fatalf("baseline %d invalid: %s", i, result)
		}
		if g.Generation != 0 {
			t.Fatalf("generation = %d, want 0", g.Generation)
		}
		seen[g.Checksum] = true
	}
	if len(seen) < 45 {
		t.Fatalf("distinct baselines = %d, want at least 45", len(seen))
	}
}

func TestGenerateBaselineUnknownSchema(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.GenerateBaseline(99, "alpha-1")
	if !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("error = %v, want %v", err, ErrUnknownSchema)
	}
}

func TestBreedDeterministic(t *testing.T) {
	e := newTestEngine(t)
	a := mustBaseline(t, e, "mother")
	b := mustBaseline(t, e, "father")

	first, err := e.Breed(a, b, "clutch-1", DefaultParams())
	if err != nil {
		t.Fatalf("breed: %v", err)
	}
	for range 5 {
		again, err := e.Breed(a, b, "clutch-1", DefaultParams())
		if err != nil {
			t.Fatalf("breed: %v", err)
		}
		if !again.Equal(first) {
			t.Fatalf("child = %+v, want %+v", again, first)
		}
	}
	if first.Generation != 1 {
		t.Fatalf("generation = %d, want 1", first.Generation)
	}
}

func TestBreedDoesNotModifyParents(t *testing.T) {
	e := newTestEngine(t)
	a := mustBaseline(t, e, "mother")
	b := mustBaseline(t, e, "father")
	aBefore, bBefore := a.Clone(), b.Clone()

	if _, err := e.Breed(a, b, "clutch", Params{MutationRate: 1000, MutationScale: 1000}); err != nil {
		t.Fatalf("breed: %v", err)
	}
	if !a.Equal(aBefore) || !b.Equal(bBefore) {
		t.Fatal("expected parents to be left untouched")
	}
}

func TestBreedVariesWithSeedAndStaysValid(t *testing.T) {
	e := newTestEngine(t)
	a := mustBaseline(t, e, "mother")
	b := mustBaseline(t, e, "father")

	seen := make(map[uint64]bool)
	for i := range 40 {
		child, err := e.Breed(a, b, seed.Seed(fmt.Sprintf("clutch-%d", i)), Params{MutationRate: 300, MutationScale: 400})
		if err != nil {
			t.Fatalf("breed: %v", err)
		}
		if result := e.Validate(child); !result.Valid() {
			t.Fatalf("child %d invalid: %s", i, result)
		}
		seen[child.Checksum] = true
	}
	if len(seen) < 35 {
		t.Fatalf("distinct children = %d, want at least 35", len(seen))
	}
}

func TestBreedSelfWithoutMutationKeepsValues(t *testing.T) {
	e := newTestEngine(t)
	g := mustBaseline(t, e, "alpha-1")
	child, err := e.Breed(g, g, "beta-2", Params{MutationRate: 0})
	if err != nil {
		t.Fatalf("breed: %v", err)
	}
	if !slices.Equal(child.Values, g.Values) {
		t.Fatalf("values = %v, want %v", child.Values, g.Values)
	}
	if child.Generation != g.Generation+1 {
		t.Fatalf("generation = %d, want %d", child.Generation, g.Generation+1)
	}
}

func TestBreedContinuousTraitsStayBetweenParents(t *testing.T) {
	e := newTestEngine(t)
	schema, _ := e.Catalog().Schema(SchemaV1)
	a := mustBaseline(t, e, "mother")
	b := mustBaseline(t, e, "father")
	child, err := e.Breed(a, b, "clutch", Params{MutationRate: 0})
	if err != nil {
		t.Fatalf("breed: %v", err)
	}
	for i, trait := range schema.Traits {
		got := child.Values[i]
		lo, hi := min(a.Values[i], b.Values[i]), max(a.Values[i], b.Values[i])
		switch trait.Kind {
		case KindContinuous:
			if got < lo || got > hi {
				t.Fatalf("%s = %d, want within [%d, %d]", trait.Name, got, lo, hi)
			}
		default:
			if got != a.Values[i] && got != b.Values[i] {
				t.Fatalf("%s = %d, want one parent's value", trait.Name, got)
			}
		}
	}
}

func TestBreedSchemaMismatch(t *testing.T) {
	e := newTestEngine(t)
	a := mustBaseline(t, e, "mother")
	b := a.Clone()
	b.SchemaVersion = 2

	if _, err := e.Breed(a, b, "s", DefaultParams()); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("error = %v, want schema error", err)
	}

	short := a.Clone()
	short.Values = short.Values[:3]
	if _, err := e.Breed(a, short, "s", DefaultParams()); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("error = %v, want schema error", err)
	}
}

func TestMutateAlwaysChanges(t *testing.T) {
	e := newTestEngine(t)
	g := mustBaseline(t, e, "alpha-1")
	for i := range 100 {
		s := seed.Seed(fmt.Sprintf("mut-%d", i))
		mutated, err := e.Mutate(g, s, Params{MutationRate: 0, MutationScale: 0})
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
		if slices.Equal(mutated.Values, g.Values) {
			t.Fatalf("seed %s left genome unchanged", s)
		}
		if result := e.Validate(mutated); !result.Valid() {
			t.Fatalf("mutated genome invalid: %s", result)
		}
		if mutated.Generation != g.Generation+1 {
			t.Fatalf("generation = %d, want %d", mutated.Generation, g.Generation+1)
		}
	}
}

func TestMutateDeterministic(t *testing.T) {
	e := newTestEngine(t)
	g := mustBaseline(t, e, "alpha-1")
	first, err := e.Mutate(g, "m", DefaultParams())
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	again, err := e.Mutate(g, "m", DefaultParams())
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !again.Equal(first) {
		t.Fatalf("mutate = %+v, want %+v", again, first)
	}
}

func TestMutateUnknownSchema(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Mutate(Genome{SchemaVersion: 7}, "m", DefaultParams()); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("error = %v, want %v", err, ErrUnknownSchema)
	}
}

func TestParamsNormalized(t *testing.T) {
	got := Params{MutationRate: -5, MutationScale: 5000}.Normalized()
	want := Params{MutationRate: 0, MutationScale: 1000}
	if got != want {
		t.Fatalf("normalized = %+v, want %+v", got, want)
	}
}

func TestParamsFor(t *testing.T) {
	p, ok := ParamsFor(IntensityHigh)
	if !ok || p.MutationRate != 200 {
		t.Fatalf("params = %+v, %v", p, ok)
	}
	if _, ok := ParamsFor("wild"); ok {
		t.Fatal("expected unknown intensity to be rejected")
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int64 }{
		{7, 2, 3},
		{-7, 2, -4},
		{6, 3, 2},
		{-6, 3, -2},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Fatalf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

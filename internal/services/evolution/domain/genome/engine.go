package genome

import (
	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
)

// Sub-seed labels. Each trait draws from its own stream so results do not
// depend on trait order or on which other traits exist.
const (
	labelBaseline = "genome/baseline/"
	labelBreed    = "genome/breed/"
	labelMutate   = "genome/mutate/"
	labelForce    = "genome/mutate/force"
)

// Engine generates and recombines genomes for the schemas in its catalog.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	catalog *Catalog
}

// NewEngine returns an engine over catalog, or over DefaultCatalog when nil.
func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

// Catalog returns the engine's schema catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// GenerateBaseline produces the wild-type genome for seed s at generation 0.
func (e *Engine) GenerateBaseline(version int, s seed.Seed) (Genome, error) {
	schema, err := e.catalog.Schema(version)
	if err != nil {
		return Genome{}, err
	}
	values := make([]int64, len(schema.Traits))
	for i, trait := range schema.Traits {
		stream := seed.Open(s, labelBaseline+trait.Name, 0)
		switch trait.Kind {
		case KindContinuous:
			values[i] = trait.Clamp(trait.Default + stream.Bell(trait.Spread))
		case KindCategorical:
			values[i] = int64(stream.Intn(len(trait.Categories)))
		case KindRGB:
			values[i] = jitterRGB(trait.Default, trait.Spread, stream)
		}
	}
	return New(schema.Version, 0, values), nil
}

// Breed combines parentA and parentB and applies a seeded mutation pass.
//
// Per trait, on its own stream:
//   - categorical and rgb traits take one parent's value whole: draw 0 picks
//     parentA, draw 1 picks parentB;
//   - continuous traits take floor((a*w + b*(1000-w)) / 1000) with the
//     weight w uniform in [0, 1000].
//
// The argument order is part of the contract: Breed(a, b, s) and
// Breed(b, a, s) generally differ. The child's generation is one past the
// older parent. Params are clamped, never rejected.
func (e *Engine) Breed(parentA, parentB Genome, s seed.Seed, params Params) (Genome, error) {
	if parentA.SchemaVersion != parentB.SchemaVersion {
		return Genome{}, schemaMismatch("cannot breed schema %d with schema %d", parentA.SchemaVersion, parentB.SchemaVersion)
	}
	schema, err := e.shapedSchema(parentA)
	if err != nil {
		return Genome{}, err
	}
	if _, err := e.shapedSchema(parentB); err != nil {
		return Genome{}, err
	}
	params = params.Normalized()

	values := make([]int64, len(schema.Traits))
	for i, trait := range schema.Traits {
		a, b := trait.Clamp(parentA.Values[i]), trait.Clamp(parentB.Values[i])
		stream := seed.Open(s, labelBreed+trait.Name, 0)
		switch trait.Kind {
		case KindContinuous:
			w := stream.Between(0, 1000)
			values[i] = trait.Clamp(floorDiv(a*w+b*(1000-w), 1000))
		default:
			if stream.Intn(2) == 0 {
				values[i] = a
			} else {
				values[i] = b
			}
		}
	}
	mutationPass(schema, values, s, params)

	generation := max(parentA.Generation, parentB.Generation) + 1
	return New(schema.Version, generation, values), nil
}

// Mutate applies a seeded mutation pass to g. At least one trait always
// changes: when the rate draws leave g untouched, one trait chosen from
// the seed is forced to a different value. The generation advances by one.
func (e *Engine) Mutate(g Genome, s seed.Seed, params Params) (Genome, error) {
	schema, err := e.shapedSchema(g)
	if err != nil {
		return Genome{}, err
	}
	params = params.Normalized()

	values := make([]int64, len(schema.Traits))
	for i, trait := range schema.Traits {
		values[i] = trait.Clamp(g.Values[i])
	}
	original := append([]int64(nil), values...)
	changed := mutationPass(schema, values, s, params)
	if !changed {
		stream := seed.Open(s, labelForce, 0)
		i := stream.Intn(len(schema.Traits))
		values[i] = mutateValue(schema.Traits[i], original[i], params.MutationScale, stream, true)
	}
	return New(schema.Version, g.Generation+1, values), nil
}

// shapedSchema returns g's schema after checking g has one value per trait.
func (e *Engine) shapedSchema(g Genome) (*Schema, error) {
	schema, err := e.catalog.Schema(g.SchemaVersion)
	if err != nil {
		return nil, err
	}
	if len(g.Values) != len(schema.Traits) {
		return nil, schemaMismatch("schema %d expects %d traits, genome has %d", schema.Version, len(schema.Traits), len(g.Values))
	}
	return schema, nil
}

// mutationPass mutates each trait with probability rate/1000 and reports
// whether any value changed.
func mutationPass(schema *Schema, values []int64, s seed.Seed, params Params) bool {
	changed := false
	for i, trait := range schema.Traits {
		stream := seed.Open(s, labelMutate+trait.Name, 0)
		if stream.Intn(1000) >= params.MutationRate {
			continue
		}
		next := mutateValue(trait, values[i], params.MutationScale, stream, false)
		if next != values[i] {
			changed = true
		}
		values[i] = next
	}
	return changed
}

// mutateValue returns a mutated copy of value. With force set the result
// always differs from value.
func mutateValue(trait TraitSpec, value int64, scale int, stream *seed.Stream, force bool) int64 {
	switch trait.Kind {
	case KindContinuous:
		spread := max(trait.Mutation*int64(scale)/100, 1)
		delta := stream.Bell(spread)
		if force && delta == 0 {
			delta = 1
			if stream.Intn(2) == 0 {
				delta = -1
			}
		}
		next := trait.Clamp(value + delta)
		if force && next == value {
			next = trait.Clamp(value - delta)
		}
		return next
	case KindCategorical:
		n := int64(len(trait.Categories))
		return (value + 1 + int64(stream.Intn(int(n-1)))) % n
	case KindRGB:
		spread := max(trait.Mutation*int64(scale)/100, 1)
		next := jitterRGB(value, spread, stream)
		if force && next == value {
			shift := uint(8 * stream.Intn(3))
			channel := (value >> shift) & 0xFF
			channel = (channel + 1 + int64(stream.Intn(255))) % 256
			next = value&^(0xFF<<shift) | channel<<shift
		}
		return next
	default:
		return value
	}
}

// jitterRGB shifts each channel of rgb by up to ±spread, clamped to [0,255].
func jitterRGB(rgb, spread int64, stream *seed.Stream) int64 {
	var out int64
	for _, shift := range []uint{16, 8, 0} {
		channel := (rgb >> shift) & 0xFF
		channel = min(max(channel+stream.Between(-spread, spread), 0), 255)
		out |= channel << shift
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

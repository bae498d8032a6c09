package genome

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies how a trait value is encoded and recombined.
type Kind uint8

const (
	// KindUnspecified is an invalid trait kind.
	KindUnspecified Kind = iota
	// KindContinuous is a fixed-point value in thousandths within [Min, Max].
	KindContinuous
	// KindCategorical is an index into Categories.
	KindCategorical
	// KindRGB is a packed 0xRRGGBB colour.
	KindRGB
)

func (k Kind) String() string {
	switch k {
	case KindContinuous:
		return "continuous"
	case KindCategorical:
		return "categorical"
	case KindRGB:
		return "rgb"
	default:
		return "unspecified"
	}
}

const maxRGB = 0xFFFFFF

// TraitSpec declares one trait field and its domain.
type TraitSpec struct {
	Name string
	Kind Kind
	// Min and Max bound continuous traits, in thousandths.
	Min int64
	Max int64
	// Categories lists the names of categorical values.
	Categories []string
	// Default is the wild-type value.
	Default int64
	// Spread is the wild-type variation: bell noise for continuous traits,
	// per-channel jitter for rgb traits.
	Spread int64
	// Mutation is the drift applied by one mutation at 100% scale.
	Mutation int64
}

// Bounds returns the inclusive value range of the trait.
func (t TraitSpec) Bounds() (int64, int64) {
	switch t.Kind {
	case KindContinuous:
		return t.Min, t.Max
	case KindCategorical:
		return 0, int64(len(t.Categories)) - 1
	case KindRGB:
		return 0, maxRGB
	default:
		return 0, -1
	}
}

// Contains reports whether value lies in the trait's domain.
func (t TraitSpec) Contains(value int64) bool {
	lo, hi := t.Bounds()
	return value >= lo && value <= hi
}

// Clamp limits value to the trait's domain.
func (t TraitSpec) Clamp(value int64) int64 {
	lo, hi := t.Bounds()
	return min(max(value, lo), hi)
}

func (t TraitSpec) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("trait name is required")
	}
	switch t.Kind {
	case KindContinuous:
		if t.Max <= t.Min {
			return fmt.Errorf("trait %s: max must exceed min", t.Name)
		}
	case KindCategorical:
		if len(t.Categories) < 2 {
			return fmt.Errorf("trait %s: at least two categories are required", t.Name)
		}
	case KindRGB:
	default:
		return fmt.Errorf("trait %s: unknown kind %d", t.Name, t.Kind)
	}
	if !t.Contains(t.Default) {
		return fmt.Errorf("trait %s: default %d is outside its domain", t.Name, t.Default)
	}
	if t.Spread < 0 || t.Mutation < 0 {
		return fmt.Errorf("trait %s: spread must be non-negative", t.Name)
	}
	return nil
}

// Schema is one immutable, versioned set of traits.
type Schema struct {
	Version int
	Traits  []TraitSpec
	index   map[string]int
}

// Index returns the position of the named trait.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Len returns the number of traits.
func (s *Schema) Len() int {
	return len(s.Traits)
}

// Catalog holds the schema versions an engine understands. It is read-only
// after construction and safe for concurrent use.
type Catalog struct {
	schemas map[int]*Schema
}

// NewCatalog validates and indexes the given schemas.
func NewCatalog(schemas ...Schema) (*Catalog, error) {
	if len(schemas) == 0 {
		return nil, fmt.Errorf("at least one schema is required")
	}
	catalog := &Catalog{schemas: make(map[int]*Schema, len(schemas))}
	for _, schema := range schemas {
		if schema.Version <= 0 {
			return nil, fmt.Errorf("schema version must be positive")
		}
		if _, exists := catalog.schemas[schema.Version]; exists {
			return nil, fmt.Errorf("schema version %d is duplicated", schema.Version)
		}
		if len(schema.Traits) == 0 {
			return nil, fmt.Errorf("schema version %d has no traits", schema.Version)
		}
		indexed := &Schema{
			Version: schema.Version,
			Traits:  make([]TraitSpec, len(schema.Traits)),
			index:   make(map[string]int, len(schema.Traits)),
		}
		for i, trait := range schema.Traits {
			if err := trait.validate(); err != nil {
				return nil, fmt.Errorf("schema version %d: %w", schema.Version, err)
			}
			if _, exists := indexed.index[trait.Name]; exists {
				return nil, fmt.Errorf("schema version %d: trait %s is duplicated", schema.Version, trait.Name)
			}
			trait.Categories = slices.Clone(trait.Categories)
			indexed.Traits[i] = trait
			indexed.index[trait.Name] = i
		}
		catalog.schemas[schema.Version] = indexed
	}
	return catalog, nil
}

// Schema returns the schema for version or a SchemaError.
func (c *Catalog) Schema(version int) (*Schema, error) {
	if c != nil {
		if schema, ok := c.schemas[version]; ok {
			return schema, nil
		}
	}
	return nil, unknownSchema(version)
}

// Versions lists the known schema versions in ascending order.
func (c *Catalog) Versions() []int {
	if c == nil {
		return nil
	}
	out := make([]int, 0, len(c.schemas))
	for version := range c.schemas {
		out = append(out, version)
	}
	slices.Sort(out)
	return out
}

// Latest returns the highest known schema version.
func (c *Catalog) Latest() int {
	versions := c.Versions()
	if len(versions) == 0 {
		return 0
	}
	return versions[len(versions)-1]
}

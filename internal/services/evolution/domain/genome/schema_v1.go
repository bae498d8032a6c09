package genome

// SchemaV1 is the turtle trait set: shell and body appearance, performance
// and body proportions. Continuous values are in thousandths, so speed 1000
// is a multiplier of 1.0.
const SchemaV1 = 1

var (
	shellPatterns = []string{"hex", "spots", "stripes", "rings"}
	bodyPatterns  = []string{"solid", "mottled", "speckled", "marbled"}
)

func schemaV1() Schema {
	performance := func(name string) TraitSpec {
		return TraitSpec{Name: name, Kind: KindContinuous, Min: 100, Max: 3000, Default: 1000, Spread: 350, Mutation: 350}
	}
	proportion := func(name string, lo, hi int64) TraitSpec {
		return TraitSpec{Name: name, Kind: KindContinuous, Min: lo, Max: hi, Default: 1000, Spread: 175, Mutation: 175}
	}
	colour := func(name string, rgb int64) TraitSpec {
		return TraitSpec{Name: name, Kind: KindRGB, Default: rgb, Spread: 16, Mutation: 20}
	}
	return Schema{
		Version: SchemaV1,
		Traits: []TraitSpec{
			colour("shell_base_color", 0x228B22),
			{Name: "shell_pattern_type", Kind: KindCategorical, Categories: shellPatterns, Default: 0},
			colour("shell_pattern_color", 0xFFFFFF),
			{Name: "shell_pattern_density", Kind: KindContinuous, Min: 100, Max: 1000, Default: 500, Spread: 175, Mutation: 175},
			colour("body_base_color", 0x6B8E23),
			{Name: "body_pattern_type", Kind: KindCategorical, Categories: bodyPatterns, Default: 0},
			colour("body_pattern_color", 0x556B2F),
			{Name: "body_pattern_density", Kind: KindContinuous, Min: 100, Max: 1000, Default: 300, Spread: 175, Mutation: 175},
			performance("speed"),
			performance("stamina"),
			performance("climb"),
			performance("swim"),
			performance("intelligence"),
			proportion("head_size_modifier", 700, 1300),
			proportion("leg_length", 500, 1500),
			proportion("shell_size_modifier", 500, 1500),
			proportion("leg_thickness_modifier", 700, 1300),
		},
	}
}

// DefaultCatalog returns a catalog holding every built-in schema version.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(schemaV1())
	if err != nil {
		panic(err)
	}
	return catalog
}

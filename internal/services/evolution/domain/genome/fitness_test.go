package genome

import (
	"errors"
	"testing"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
)

// wildType builds the schema v1 default genome with the named traits
// overridden.
func wildType(t *testing.T, overrides map[string]int64) Genome {
	t.Helper()
	schema, err := DefaultCatalog().Schema(SchemaV1)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	values := make([]int64, len(schema.Traits))
	for i, trait := range schema.Traits {
		values[i] = trait.Default
	}
	for name, value := range overrides {
		i, ok := schema.Index(name)
		if !ok {
			t.Fatalf("unknown trait %s", name)
		}
		values[i] = value
	}
	return New(SchemaV1, 0, values)
}

func TestFitnessPerTrait(t *testing.T) {
	grey := map[string]int64{"shell_base_color": 0x808080, "body_base_color": 0x808080, "shell_pattern_color": 0x808080}
	tests := []struct {
		name      string
		overrides map[string]int64
		want      int64
	}{
		{name: "wild type", want: 912},
		{name: "speed", overrides: map[string]int64{"speed": 2000}, want: 1212},
		{name: "stamina", overrides: map[string]int64{"stamina": 2000}, want: 1162},
		{name: "intelligence", overrides: map[string]int64{"intelligence": 2000}, want: 1112},
		{name: "leg length", overrides: map[string]int64{"leg_length": 1500}, want: 931},
		{name: "no colour diversity", overrides: grey, want: 900},
		{name: "ignores climb and swim", overrides: map[string]int64{"climb": 3000, "swim": 100}, want: 912},
		{name: "floor", overrides: map[string]int64{
			"speed": 100, "stamina": 100, "intelligence": 100,
			"head_size_modifier": 700, "leg_length": 500, "shell_size_modifier": 500, "leg_thickness_modifier": 700,
			"shell_base_color": 0x808080, "body_base_color": 0x808080, "shell_pattern_color": 0x808080,
		}, want: 165},
		{name: "ceiling", overrides: map[string]int64{
			"speed": 3000, "stamina": 3000, "intelligence": 3000,
			"head_size_modifier": 1300, "leg_length": 1500, "shell_size_modifier": 1500, "leg_thickness_modifier": 1300,
			"shell_base_color": 0, "body_base_color": 0, "shell_pattern_color": 0,
		}, want: 2485},
	}
	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Fitness(wildType(t, tt.overrides))
			if err != nil {
				t.Fatalf("fitness: %v", err)
			}
			if got != tt.want {
				t.Fatalf("fitness = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFitnessClamps(t *testing.T) {
	wide := schemaV1()
	wide.Version = 2
	for i := range wide.Traits {
		if wide.Traits[i].Kind == KindContinuous && wide.Traits[i].Name != "shell_pattern_density" && wide.Traits[i].Name != "body_pattern_density" {
			wide.Traits[i].Min = 0
			wide.Traits[i].Max = 20000
		}
	}
	catalog, err := NewCatalog(schemaV1(), wide)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	e := NewEngine(catalog)
	schema, _ := catalog.Schema(2)
	values := make([]int64, len(schema.Traits))
	for i, trait := range schema.Traits {
		values[i] = trait.Default
	}

	speed, _ := schema.Index("speed")
	values[speed] = 20000
	if got, err := e.Fitness(New(2, 0, values)); err != nil || got != MaxFitness {
		t.Fatalf("fitness = %d, %v, want %d", got, err, MaxFitness)
	}

	for i, trait := range schema.Traits {
		switch trait.Kind {
		case KindContinuous:
			values[i] = trait.Min
		case KindRGB:
			values[i] = 0x808080
		}
	}
	if got, err := e.Fitness(New(2, 0, values)); err != nil || got != MinFitness {
		t.Fatalf("fitness = %d, %v, want %d", got, err, MinFitness)
	}
}

func TestFitnessNeedsItsTraits(t *testing.T) {
	catalog, err := NewCatalog(Schema{Version: 1, Traits: []TraitSpec{
		{Name: "speed", Kind: KindContinuous, Min: 100, Max: 3000, Default: 1000},
	}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	e := NewEngine(catalog)
	g := New(1, 0, []int64{1000})
	if _, err := e.Fitness(g); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("error = %v, want %v", err, ErrUnknownSchema)
	}
	if _, err := e.SpeedOn(g, TerrainWater); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("error = %v, want %v", err, ErrUnknownSchema)
	}
	if _, err := newTestEngine(t).Fitness(New(SchemaV1, 0, []int64{1})); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("error = %v, want %v", err, ErrSchemaMismatch)
	}
}

func TestSpeedOn(t *testing.T) {
	g := wildType(t, map[string]int64{"speed": 2000, "swim": 1500, "climb": 2000})
	want := map[Terrain]int64{
		TerrainNormal: 2000,
		TerrainGrass:  2200,
		TerrainWater:  3600,
		TerrainSand:   1400,
		TerrainMud:    800,
		TerrainRocks:  2400,
		TerrainBoost:  3000,
	}
	e := newTestEngine(t)
	for _, terrain := range Terrains() {
		got, err := e.SpeedOn(g, terrain)
		if err != nil {
			t.Fatalf("%s: %v", terrain, err)
		}
		if got != want[terrain] {
			t.Fatalf("%s speed = %d, want %d", terrain, got, want[terrain])
		}
	}
	if len(want) != len(Terrains()) {
		t.Fatalf("terrains = %d, want %d", len(Terrains()), len(want))
	}
}

func TestSpeedOnTerrainTraits(t *testing.T) {
	e := newTestEngine(t)
	slowSwimmer := wildType(t, map[string]int64{"swim": 100})
	if got, _ := e.SpeedOn(slowSwimmer, TerrainWater); got != 120 {
		t.Fatalf("water speed = %d, want 120", got)
	}
	if got, _ := e.SpeedOn(slowSwimmer, TerrainRocks); got != 600 {
		t.Fatalf("rocks speed = %d, want 600", got)
	}
	climber := wildType(t, map[string]int64{"climb": 3000})
	if got, _ := e.SpeedOn(climber, TerrainRocks); got != 1800 {
		t.Fatalf("rocks speed = %d, want 1800", got)
	}
	if got, _ := e.SpeedOn(climber, TerrainWater); got != 1200 {
		t.Fatalf("water speed = %d, want 1200", got)
	}
}

func TestSpeedOnUnknownTerrain(t *testing.T) {
	_, err := newTestEngine(t).SpeedOn(wildType(t, nil), "lava")
	if !apperrors.IsCode(err, apperrors.CodeGenomeInvalid) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeGenomeInvalid)
	}
}

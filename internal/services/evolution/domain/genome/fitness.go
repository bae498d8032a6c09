package genome

import (
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
)

// Terrain is a surface that scales movement speed.
type Terrain string

const (
	TerrainNormal Terrain = "normal"
	TerrainGrass  Terrain = "grass"
	TerrainWater  Terrain = "water"
	TerrainSand   Terrain = "sand"
	TerrainMud    Terrain = "mud"
	TerrainRocks  Terrain = "rocks"
	TerrainBoost  Terrain = "boost"
)

// Terrains lists every terrain in display order.
func Terrains() []Terrain {
	return []Terrain{TerrainNormal, TerrainGrass, TerrainWater, TerrainSand, TerrainMud, TerrainRocks, TerrainBoost}
}

// Fitness weights in thousandths. They sum to 1000.
const (
	weightSpeed        = 300
	weightStamina      = 250
	weightIntelligence = 200
	weightPhysical     = 150
	weightDiversity    = 100
)

// Fitness bounds in thousandths.
const (
	MinFitness = 100
	MaxFitness = 3000
)

// colourSpan is the largest squared deviation sum of one colour: three
// channels at 255^2. Diversity divides by it.
const colourSpan = 3 * 255 * 255

var (
	fitnessTraits = []string{
		"speed", "stamina", "intelligence",
		"head_size_modifier", "leg_length", "shell_size_modifier", "leg_thickness_modifier",
		"shell_base_color", "body_base_color", "shell_pattern_color",
	}
	terrainTraits = []string{"speed", "swim", "climb"}
)

// Fitness scores g in thousandths, clamped to [MinFitness, MaxFitness]:
//
//	0.30 speed + 0.25 stamina + 0.20 intelligence
//	+ 0.15 mean(head, leg length, shell size, leg thickness)
//	+ 0.10 colour diversity
//
// Colour diversity is the mean over the shell, body and shell pattern
// colours of each channel's squared distance from 128, over 3*255^2. The sum
// is taken over one common denominator and floored once.
func (e *Engine) Fitness(g Genome) (int64, error) {
	v, err := e.traitValues(g, fitnessTraits)
	if err != nil {
		return 0, err
	}
	performance := v[0]*weightSpeed + v[1]*weightStamina + v[2]*weightIntelligence
	physical := v[3] + v[4] + v[5] + v[6]
	deviation := colourDeviation(v[7]) + colourDeviation(v[8]) + colourDeviation(v[9])

	// physical averages four traits, deviation averages three colours.
	const scale = 4 * 3 * colourSpan
	numerator := performance*scale + physical*weightPhysical*3*colourSpan + deviation*1000*weightDiversity*4
	fitness := numerator / (1000 * scale)
	return min(max(fitness, MinFitness), MaxFitness), nil
}

// SpeedOn returns g's speed on terrain in thousandths. Water scales with
// swim by 1.2 and rocks with climb by 0.6; the other terrains apply a fixed
// multiplier.
func (e *Engine) SpeedOn(g Genome, terrain Terrain) (int64, error) {
	v, err := e.traitValues(g, terrainTraits)
	if err != nil {
		return 0, err
	}
	speed, swim, climb := v[0], v[1], v[2]
	switch terrain {
	case TerrainNormal:
		return speed, nil
	case TerrainGrass:
		return speed * 1100 / 1000, nil
	case TerrainWater:
		return speed * swim * 1200 / 1_000_000, nil
	case TerrainSand:
		return speed * 700 / 1000, nil
	case TerrainMud:
		return speed * 400 / 1000, nil
	case TerrainRocks:
		return speed * climb * 600 / 1_000_000, nil
	case TerrainBoost:
		return speed * 1500 / 1000, nil
	default:
		return 0, apperrors.WithMetadata(
			apperrors.CodeGenomeInvalid,
			fmt.Sprintf("unknown terrain %q", terrain),
			map[string]string{"Violations": fmt.Sprintf("unknown terrain %q", terrain)},
		)
	}
}

// traitValues returns g's values for names in order.
func (e *Engine) traitValues(g Genome, names []string) ([]int64, error) {
	schema, err := e.shapedSchema(g)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(names))
	for i, name := range names {
		idx, ok := schema.Index(name)
		if !ok {
			return nil, apperrors.WithMetadata(
				apperrors.CodeGenomeSchemaUnsupported,
				fmt.Sprintf("genome schema version %d has no trait %s", schema.Version, name),
				map[string]string{"SchemaVersion": strconv.Itoa(schema.Version)},
			)
		}
		out[i] = g.Values[idx]
	}
	return out, nil
}

// colourDeviation sums each channel's squared distance from 128.
func colourDeviation(rgb int64) int64 {
	var sum int64
	for shift := 16; shift >= 0; shift -= 8 {
		d := (rgb>>shift)&0xFF - 128
		sum += d * d
	}
	return sum
}

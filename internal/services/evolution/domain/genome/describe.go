package genome

import (
	"fmt"
	"strconv"
)

// TraitValue is a display form of one trait.
type TraitValue struct {
	Name  string `json:"name" yaml:"name"`
	Kind  string `json:"kind" yaml:"kind"`
	Value string `json:"value" yaml:"value"`
}

// Describe renders g's traits for display: continuous values as decimals,
// categorical values by name and colours as #rrggbb.
func (s *Schema) Describe(g Genome) []TraitValue {
	out := make([]TraitValue, 0, len(s.Traits))
	for i, trait := range s.Traits {
		if i >= len(g.Values) {
			break
		}
		out = append(out, TraitValue{Name: trait.Name, Kind: trait.Kind.String(), Value: formatValue(trait, g.Values[i])})
	}
	return out
}

func formatValue(trait TraitSpec, value int64) string {
	switch trait.Kind {
	case KindContinuous:
		sign := ""
		if value < 0 {
			sign = "-"
			value = -value
		}
		return fmt.Sprintf("%s%d.%03d", sign, value/1000, value%1000)
	case KindCategorical:
		if value >= 0 && value < int64(len(trait.Categories)) {
			return trait.Categories[value]
		}
	case KindRGB:
		if trait.Contains(value) {
			return fmt.Sprintf("#%06x", value)
		}
	}
	return strconv.FormatInt(value, 10)
}

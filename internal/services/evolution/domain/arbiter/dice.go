package arbiter

import (
	"fmt"

	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
)

// diceLabel is the stream RollDice draws from. A dice rule named "roll"
// resolves to the same values.
const diceLabel = "arbiter/dice/roll"

// DieRoll captures the results for a single dice spec.
type DieRoll struct {
	Sides   int   `json:"sides" yaml:"sides"`
	Results []int `json:"results" yaml:"results"`
	Total   int   `json:"total" yaml:"total"`
}

// RollRequest describes a request to roll one or more dice.
type RollRequest struct {
	Dice []DiceSpec
	Seed seed.Seed
}

// RollResult captures the results from rolling multiple dice.
type RollResult struct {
	Rolls []DieRoll `json:"rolls" yaml:"rolls"`
	Total int       `json:"total" yaml:"total"`
}

// RollDice rolls dice based on the provided request.
//
// # Determinism
//
// RollDice is deterministic with respect to the Seed field on RollRequest.
// Given the same Seed and the same Dice slice (including order and values),
// RollDice will always produce the same RollResult.
//
// # Ordering
//
// Dice specs are processed in slice order. The resulting DieRoll entries
// appear in the same order as the corresponding DiceSpec entries.
//
// # Errors
//
//   - At least one DiceSpec must be provided, otherwise ErrMissingDice is
//     returned.
//   - Each DiceSpec must have Sides in [1, MaxSides] and Count in
//     [1, MaxCount], otherwise ErrInvalidDiceSpec is returned.
func RollDice(request RollRequest) (RollResult, error) {
	if len(request.Dice) == 0 {
		return RollResult{}, ErrMissingDice
	}
	for _, spec := range request.Dice {
		if err := validSpec(spec); err != nil {
			return RollResult{}, err
		}
	}
	return rollPool(seed.Open(request.Seed, diceLabel, 0), request.Dice), nil
}

// rollPool rolls already validated specs in order.
func rollPool(stream *seed.Stream, specs []DiceSpec) RollResult {
	rolls := make([]DieRoll, 0, len(specs))
	total := 0
	for _, spec := range specs {
		results := make([]int, spec.Count)
		rollTotal := 0
		for i := range results {
			results[i] = stream.Roll(spec.Sides)
			rollTotal += results[i]
		}
		rolls = append(rolls, DieRoll{Sides: spec.Sides, Results: results, Total: rollTotal})
		total += rollTotal
	}
	return RollResult{Rolls: rolls, Total: total}
}

func validSpec(spec DiceSpec) error {
	if spec.Sides < 1 || spec.Sides > MaxSides || spec.Count < 1 || spec.Count > MaxCount {
		return fmt.Errorf("%w: %dd%d is outside [1, %d]d[1, %d]", ErrInvalidDiceSpec, spec.Count, spec.Sides, MaxCount, MaxSides)
	}
	return nil
}

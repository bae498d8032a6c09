package arbiter

// Kind names a rule family.
type Kind string

const (
	// KindChance succeeds when a d10000 roll lands under Probability.
	KindChance Kind = "chance"
	// KindCheck compares d20 + Modifier against Difficulty.
	KindCheck Kind = "check"
	// KindContest picks the highest d20 + modifier among Contestants.
	KindContest Kind = "contest"
	// KindWeighted picks an index with probability proportional to Weights.
	KindWeighted Kind = "weighted"
	// KindDice totals a dice pool plus Modifier.
	KindDice Kind = "dice"
)

// Rule bounds.
const (
	MaxProbability   = 10000
	MaxDifficulty    = 100
	MaxModifier      = 1000
	MaxSides         = 1000
	MaxCount         = 100
	MaxDiceSpecs     = 32
	MaxContestants   = 64
	MaxWeights       = 1024
	MaxWeight        = 1_000_000
	MaxContestRounds = 8

	checkDie    = 20
	defaultName = "default"
)

// DiceSpec describes a die to roll and how many times to roll it.
type DiceSpec struct {
	Sides int `cbor:"1,keyasint" json:"sides" yaml:"sides"`
	Count int `cbor:"2,keyasint" json:"count" yaml:"count"`
}

// RuleContext describes one rule to resolve. Only the fields of its Kind
// are read.
type RuleContext struct {
	Kind Kind
	// Name distinguishes rules of one kind so they draw from separate
	// streams, e.g. "breeding" or "death_save".
	Name string
	// Probability is the chance of success in basis points.
	Probability int
	// Difficulty is the target for a check.
	Difficulty int
	// Modifier is added to a check roll or a dice total.
	Modifier     int
	Advantage    bool
	Disadvantage bool
	// Contestants holds one modifier per contestant.
	Contestants []int
	Weights     []int
	Dice        []DiceSpec
}

// label returns the sub-seed label for the rule.
func (r RuleContext) label() string {
	name := r.Name
	if name == "" {
		name = defaultName
	}
	return "arbiter/" + string(r.Kind) + "/" + name
}

// Validate reports the first parameter outside its bounds.
func (r RuleContext) Validate() error {
	switch r.Kind {
	case KindChance:
		if r.Probability < 0 || r.Probability > MaxProbability {
			return invalidRule("probability", "probability %d is outside [0, %d]", r.Probability, MaxProbability)
		}
	case KindCheck:
		if r.Difficulty < 0 || r.Difficulty > MaxDifficulty {
			return invalidRule("difficulty", "difficulty %d is outside [0, %d]", r.Difficulty, MaxDifficulty)
		}
		if err := validModifier("modifier", r.Modifier); err != nil {
			return err
		}
	case KindContest:
		if len(r.Contestants) < 2 || len(r.Contestants) > MaxContestants {
			return invalidRule("contestants", "contest needs between 2 and %d contestants, got %d", MaxContestants, len(r.Contestants))
		}
		for _, modifier := range r.Contestants {
			if err := validModifier("contestants", modifier); err != nil {
				return err
			}
		}
	case KindWeighted:
		if len(r.Weights) == 0 || len(r.Weights) > MaxWeights {
			return invalidRule("weights", "weighted pick needs between 1 and %d weights, got %d", MaxWeights, len(r.Weights))
		}
		sum := 0
		for i, weight := range r.Weights {
			if weight < 0 || weight > MaxWeight {
				return invalidRule("weights", "weight %d = %d is outside [0, %d]", i, weight, MaxWeight)
			}
			sum += weight
		}
		if sum == 0 {
			return invalidRule("weights", "weights sum to zero")
		}
	case KindDice:
		if len(r.Dice) == 0 || len(r.Dice) > MaxDiceSpecs {
			return invalidRule("dice", "dice pool needs between 1 and %d specs, got %d", MaxDiceSpecs, len(r.Dice))
		}
		for _, spec := range r.Dice {
			if err := validSpec(spec); err != nil {
				return invalidRule("dice", "%s", err.Error())
			}
		}
		if err := validModifier("modifier", r.Modifier); err != nil {
			return err
		}
	default:
		return invalidRule("kind", "unknown rule kind %q", r.Kind)
	}
	return nil
}

func validModifier(field string, modifier int) error {
	if modifier < -MaxModifier || modifier > MaxModifier {
		return invalidRule(field, "modifier %d is outside [%d, %d]", modifier, -MaxModifier, MaxModifier)
	}
	return nil
}

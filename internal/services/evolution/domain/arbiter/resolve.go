package arbiter

import (
	"github.com/louisbranch/evolving.space/internal/services/evolution/core/check"
	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
)

// Resolve evaluates rule with randomness drawn only from s.
//
// # Determinism
//
// Resolve is pure: equal (s, rule) pairs produce equal outcomes. Each rule
// reads the stream for "arbiter/<kind>/<name>"; contests open one stream
// per round, using the round number as the derivation step.
//
// # Rules
//
//   - chance: roll d10000 as 0..9999, success when roll < Probability.
//   - check: d20 + Modifier against Difficulty. Advantage keeps the higher
//     of two d20s, disadvantage the lower, both together cancel. A natural
//     20 always succeeds and a natural 1 always fails.
//   - contest: every contestant rolls d20 + modifier. Tied leaders re-roll
//     up to MaxContestRounds rounds, after which the lowest index wins.
//   - weighted: draw uniformly in [0, sum) and pick the matching index.
//   - dice: roll the pool in order and add Modifier.
//
// # Errors
//
// Parameters outside their bounds return ErrInvalidRuleContext. The seed
// value never causes an error.
func Resolve(s seed.Seed, rule RuleContext) (Outcome, error) {
	if err := rule.Validate(); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Kind: rule.Kind, Name: rule.Name, Winner: -1}
	switch rule.Kind {
	case KindChance:
		resolveChance(seed.Open(s, rule.label(), 0), rule, &out)
	case KindCheck:
		resolveCheck(seed.Open(s, rule.label(), 0), rule, &out)
	case KindContest:
		resolveContest(s, rule, &out)
	case KindWeighted:
		resolveWeighted(seed.Open(s, rule.label(), 0), rule, &out)
	case KindDice:
		result := rollPool(seed.Open(s, rule.label(), 0), rule.Dice)
		for _, roll := range result.Rolls {
			out.Rolls = append(out.Rolls, roll.Results...)
		}
		out.Total = result.Total + rule.Modifier
		out.Success = true
	}
	return out, nil
}

func resolveChance(stream *seed.Stream, rule RuleContext, out *Outcome) {
	roll := stream.Intn(MaxProbability)
	out.Roll = roll
	out.Total = roll
	out.Target = rule.Probability
	out.Margin = rule.Probability - roll
	out.Success = roll < rule.Probability
}

func resolveCheck(stream *seed.Stream, rule RuleContext, out *Outcome) {
	natural := stream.Roll(checkDie)
	out.Rolls = []int{natural}
	if rule.Advantage != rule.Disadvantage {
		second := stream.Roll(checkDie)
		out.Rolls = append(out.Rolls, second)
		if rule.Advantage {
			natural = max(natural, second)
		} else {
			natural = min(natural, second)
		}
	}

	result := check.Evaluate(natural+rule.Modifier, rule.Difficulty)
	out.Roll = natural
	out.Total = result.Total
	out.Target = result.Difficulty
	out.Margin = result.Margin
	out.Success = result.Success
	switch natural {
	case checkDie:
		out.Success = true
		out.CriticalSuccess = true
	case 1:
		out.Success = false
		out.CriticalFailure = true
	}
}

func resolveContest(s seed.Seed, rule RuleContext, out *Outcome) {
	totals := make([]int, len(rule.Contestants))
	active := make([]int, len(rule.Contestants))
	for i := range active {
		active[i] = i
	}

	for round := range MaxContestRounds {
		stream := seed.Open(s, rule.label(), uint64(round))
		best := 0
		for n, i := range active {
			totals[i] = stream.Roll(checkDie) + rule.Contestants[i]
			if n == 0 || totals[i] > best {
				best = totals[i]
			}
		}
		leaders := make([]int, 0, len(active))
		for _, i := range active {
			if totals[i] == best {
				leaders = append(leaders, i)
			}
		}
		active = leaders
		out.Rounds = round + 1
		if len(active) == 1 {
			break
		}
	}

	// active is in index order, so a tie that survives every round goes
	// to the lowest index.
	out.Winner = active[0]
	out.Rolls = totals
	out.Total = totals[out.Winner]
	out.Success = true
}

func resolveWeighted(stream *seed.Stream, rule RuleContext, out *Outcome) {
	sum := 0
	for _, weight := range rule.Weights {
		sum += weight
	}
	draw := stream.Intn(sum)
	out.Roll = draw
	out.Total = sum
	out.Success = true
	for i, weight := range rule.Weights {
		if draw < weight {
			out.Winner = i
			return
		}
		draw -= weight
	}
}

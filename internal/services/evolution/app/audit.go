package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
)

// AuditReport compares a recorded event with what its inputs produce when
// replayed through the engine and the arbiter.
type AuditReport struct {
	Ref              event.ParentRef `json:"ref" yaml:"ref"`
	Kind             event.Kind      `json:"kind" yaml:"kind"`
	RecordedChecksum uint64          `json:"recorded_checksum" yaml:"recorded_checksum"`
	DerivedChecksum  uint64          `json:"derived_checksum" yaml:"derived_checksum"`
	// OutcomeReplayed is set when the recorded arbiter outcome carries
	// enough of its rule to be resolved again.
	OutcomeReplayed bool   `json:"outcome_replayed" yaml:"outcome_replayed"`
	Match           bool   `json:"match" yaml:"match"`
	Reason          string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Audit re-derives the genome recorded at ref from the event's seed,
// parameters and parents, and compares it with the reconstruction. Seq 0
// means the lineage head. A broken chain is an error, a divergence is a
// report with Match unset.
func (s *Service) Audit(ctx context.Context, ref event.ParentRef) (AuditReport, error) {
	target, err := s.creatureAt(ctx, ref)
	if err != nil {
		return AuditReport{}, err
	}
	evt := target.Event
	report := AuditReport{
		Ref:              evt.Ref(),
		Kind:             evt.Kind,
		RecordedChecksum: target.Genome.Checksum,
	}

	derived, err := s.rederive(ctx, evt)
	if err != nil {
		return AuditReport{}, err
	}
	report.DerivedChecksum = derived.Checksum
	if !derived.Equal(target.Genome) {
		report.Reason = "genome differs from its inputs"
		return report, nil
	}

	if recorded := evt.Inputs.Outcome; recorded != nil {
		replayed, ok, err := replayOutcome(seed.Seed(evt.Inputs.Seed), *recorded)
		if err != nil {
			report.Reason = fmt.Sprintf("outcome does not resolve: %v", err)
			return report, nil
		}
		report.OutcomeReplayed = ok
		if ok && !sameOutcome(replayed, *recorded) {
			report.Reason = "arbiter outcome differs from its seed"
			return report, nil
		}
		if evt.Kind != event.KindOutcome && !recorded.Success {
			report.Reason = "gate failed but the event was recorded"
			return report, nil
		}
	}
	report.Match = true
	return report, nil
}

func (s *Service) rederive(ctx context.Context, evt event.Event) (genome.Genome, error) {
	sd := seed.Seed(evt.Inputs.Seed)
	params := genome.Params{MutationRate: evt.Inputs.MutationRate, MutationScale: evt.Inputs.MutationScale}
	parents := make([]genome.Genome, len(evt.Parents))
	for i, parent := range evt.Parents {
		g, err := s.log.ReconstructAt(ctx, parent.LineageID, parent.Seq)
		if err != nil {
			return genome.Genome{}, fmt.Errorf("rebuild parent %s#%d: %w", parent.LineageID, parent.Seq, err)
		}
		parents[i] = g
	}

	switch evt.Kind {
	case event.KindGenesis:
		return s.engine.GenerateBaseline(evt.SchemaVersion, sd)
	case event.KindBreeding:
		return s.engine.Breed(parents[0], parents[1], sd, params)
	case event.KindMutation:
		return s.engine.Mutate(parents[0], sd, params)
	default:
		return parents[0], nil
	}
}

// replayOutcome resolves the rule a recorded outcome came from, when the
// outcome alone determines it: chance gates and checks. Contests, weighted
// picks and dice pools do not record their full rule.
func replayOutcome(sd seed.Seed, recorded arbiter.Outcome) (arbiter.Outcome, bool, error) {
	rule := arbiter.RuleContext{Kind: recorded.Kind, Name: recorded.Name}
	switch recorded.Kind {
	case arbiter.KindChance:
		rule.Probability = recorded.Target
	case arbiter.KindCheck:
		rule.Difficulty = recorded.Target
		rule.Modifier = recorded.Total - recorded.Roll
		if len(recorded.Rolls) == 2 {
			if recorded.Roll == max(recorded.Rolls[0], recorded.Rolls[1]) {
				rule.Advantage = true
			} else {
				rule.Disadvantage = true
			}
		}
	default:
		return arbiter.Outcome{}, false, nil
	}
	out, err := arbiter.Resolve(sd, rule)
	if err != nil {
		return arbiter.Outcome{}, false, err
	}
	return out, true, nil
}

func sameOutcome(a, b arbiter.Outcome) bool {
	return a.Kind == b.Kind &&
		a.Name == b.Name &&
		a.Success == b.Success &&
		a.Roll == b.Roll &&
		a.Total == b.Total &&
		a.Target == b.Target &&
		a.Margin == b.Margin &&
		a.CriticalSuccess == b.CriticalSuccess &&
		a.CriticalFailure == b.CriticalFailure &&
		slices.Equal(a.Rolls, b.Rolls)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/louisbranch/evolving.space/internal/platform/config"
	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/lineage"
)

// ResolutionMetrics observes arbiter resolutions.
type ResolutionMetrics interface {
	ResolveObserved(kind string, success bool)
}

type noopResolutions struct{}

func (noopResolutions) ResolveObserved(string, bool) {}

// Creature is a recorded genome and the event that produced it.
type Creature struct {
	Event  event.Event   `json:"event" yaml:"event"`
	Genome genome.Genome `json:"genome" yaml:"genome"`
}

// Ref points at the event that produced c.
func (c Creature) Ref() event.ParentRef {
	return c.Event.Ref()
}

// GateResult is the arbiter outcome of a gated operation and, when the
// gate passed, the creature it recorded.
type GateResult struct {
	Outcome  arbiter.Outcome `json:"outcome" yaml:"outcome"`
	Creature *Creature       `json:"creature,omitempty" yaml:"creature,omitempty"`
}

// Passed reports whether the gate let the operation through.
func (r GateResult) Passed() bool {
	return r.Creature != nil
}

// CheckResult is a resolved rule and the outcome event recording it.
type CheckResult struct {
	Outcome  arbiter.Outcome `json:"outcome" yaml:"outcome"`
	Modifier int             `json:"modifier" yaml:"modifier"`
	Event    event.Event     `json:"event" yaml:"event"`
	Genome   genome.Genome   `json:"genome" yaml:"genome"`
}

// Service is the gameplay-facing entry point. Every operation is
// deterministic in its seed, the recorded log and the Rules.
type Service struct {
	log       *lineage.Log
	engine    *genome.Engine
	rules     Rules
	modifiers ModifierSource
	metrics   ResolutionMetrics
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithModifiers sets where Check reads a creature's modifier from.
func WithModifiers(source ModifierSource) ServiceOption {
	return func(s *Service) {
		if source != nil {
			s.modifiers = source
		}
	}
}

// WithResolutionMetrics sets the arbiter metrics sink.
func WithResolutionMetrics(metrics ResolutionMetrics) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithServiceLogger sets the structured logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds a Service over log applying rules.
func NewService(log *lineage.Log, rules Rules, opts ...ServiceOption) (*Service, error) {
	if log == nil {
		return nil, errors.New("evolution log is required")
	}
	if err := config.Validate(rules); err != nil {
		return nil, err
	}
	if _, err := log.Engine().Catalog().Schema(rules.SchemaVersion); err != nil {
		return nil, err
	}
	s := &Service{
		log:       log,
		engine:    log.Engine(),
		rules:     rules,
		modifiers: GenerationModifiers(),
		metrics:   noopResolutions{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Rules returns the parameters the service applies.
func (s *Service) Rules() Rules {
	return s.rules
}

// NewCreature records a wild genome for seed in a new lineage.
func (s *Service) NewCreature(ctx context.Context, sd seed.Seed) (Creature, error) {
	g, err := s.engine.GenerateBaseline(s.rules.SchemaVersion, sd)
	if err != nil {
		return Creature{}, err
	}
	evt, err := s.log.Append(ctx, lineage.AppendRequest{
		LineageID: LineageID(event.KindGenesis, sd),
		Kind:      event.KindGenesis,
		Inputs:    event.Inputs{Seed: string(sd)},
		Genome:    g,
	})
	if err != nil {
		return Creature{}, fmt.Errorf("record genesis: %w", err)
	}
	return Creature{Event: evt, Genome: g}, nil
}

// Breed rolls the breeding gate and, when it passes, records the child of
// a and b in a new lineage. A parent ref with Seq 0 means the lineage head.
// A failed gate records nothing.
func (s *Service) Breed(ctx context.Context, a, b event.ParentRef, sd seed.Seed) (GateResult, error) {
	outcome, err := s.resolve(sd, arbiter.BreedingSuccess(s.rules.BreedingChance))
	if err != nil {
		return GateResult{}, err
	}
	result := GateResult{Outcome: outcome}
	if !outcome.Success {
		return result, nil
	}

	mother, err := s.creatureAt(ctx, a)
	if err != nil {
		return GateResult{}, fmt.Errorf("load parent a: %w", err)
	}
	father, err := s.creatureAt(ctx, b)
	if err != nil {
		return GateResult{}, fmt.Errorf("load parent b: %w", err)
	}
	params := s.rules.Params()
	child, err := s.engine.Breed(mother.Genome, father.Genome, sd, params)
	if err != nil {
		return GateResult{}, err
	}
	parents := []event.ParentRef{mother.Ref(), father.Ref()}
	evt, err := s.log.Append(ctx, lineage.AppendRequest{
		LineageID: LineageID(event.KindBreeding, sd, parents...),
		Kind:      event.KindBreeding,
		Parents:   parents,
		Inputs:    inputs(sd, params, &outcome),
		Genome:    child,
	})
	if err != nil {
		return GateResult{}, fmt.Errorf("record breeding: %w", err)
	}
	result.Creature = &Creature{Event: evt, Genome: child}
	return result, nil
}

// Mutate rolls the mutation trigger and, when it fires, records a mutation
// of the lineage head.
func (s *Service) Mutate(ctx context.Context, lineageID string, sd seed.Seed) (GateResult, error) {
	outcome, err := s.resolve(sd, arbiter.MutationTrigger(s.rules.MutationChance))
	if err != nil {
		return GateResult{}, err
	}
	result := GateResult{Outcome: outcome}
	if !outcome.Success {
		return result, nil
	}

	current, err := s.creatureAt(ctx, event.ParentRef{LineageID: lineageID})
	if err != nil {
		return GateResult{}, err
	}
	params := s.rules.Params()
	mutated, err := s.engine.Mutate(current.Genome, sd, params)
	if err != nil {
		return GateResult{}, err
	}
	evt, err := s.log.Append(ctx, lineage.AppendRequest{
		LineageID: current.Event.LineageID,
		Kind:      event.KindMutation,
		Parents:   []event.ParentRef{current.Ref()},
		Inputs:    inputs(sd, params, &outcome),
		Genome:    mutated,
	})
	if err != nil {
		return GateResult{}, fmt.Errorf("record mutation: %w", err)
	}
	result.Creature = &Creature{Event: evt, Genome: mutated}
	return result, nil
}

// Check resolves rule for the creature at the lineage head and records
// the outcome. Check and dice rules receive the creature's modifier on top
// of their own; other kinds resolve as given.
func (s *Service) Check(ctx context.Context, lineageID string, sd seed.Seed, rule arbiter.RuleContext) (CheckResult, error) {
	if err := rule.Validate(); err != nil {
		return CheckResult{}, err
	}
	current, err := s.creatureAt(ctx, event.ParentRef{LineageID: lineageID})
	if err != nil {
		return CheckResult{}, err
	}
	modifier := 0
	switch rule.Kind {
	case arbiter.KindCheck, arbiter.KindDice:
		modifier = s.modifiers.Modifier(current.Genome)
		rule.Modifier += modifier
	}
	outcome, err := s.resolve(sd, rule)
	if err != nil {
		return CheckResult{}, err
	}
	evt, err := s.log.Append(ctx, lineage.AppendRequest{
		LineageID: current.Event.LineageID,
		Kind:      event.KindOutcome,
		Parents:   []event.ParentRef{current.Ref()},
		Inputs:    event.Inputs{Seed: string(sd), Outcome: &outcome},
		Genome:    current.Genome,
	})
	if err != nil {
		return CheckResult{}, fmt.Errorf("record outcome: %w", err)
	}
	return CheckResult{Outcome: outcome, Modifier: modifier, Event: evt, Genome: current.Genome}, nil
}

// Resolve runs rule without recording anything.
func (s *Service) Resolve(sd seed.Seed, rule arbiter.RuleContext) (arbiter.Outcome, error) {
	return s.resolve(sd, rule)
}

// Verify reports whether lineageID and its ancestry are intact.
func (s *Service) Verify(ctx context.Context, lineageID string) (bool, error) {
	return s.log.Verify(ctx, lineageID)
}

// Inspect verifies lineageID and reports where it breaks.
func (s *Service) Inspect(ctx context.Context, lineageID string) (lineage.Report, error) {
	return s.log.Inspect(ctx, lineageID)
}

// VerifyAll inspects every stored lineage.
func (s *Service) VerifyAll(ctx context.Context) ([]lineage.Report, error) {
	return s.log.VerifyAll(ctx)
}

// Reconstruct rebuilds the genome at ref. Seq 0 means the lineage head.
func (s *Service) Reconstruct(ctx context.Context, ref event.ParentRef) (genome.Genome, error) {
	if ref.Seq == 0 {
		return s.log.Reconstruct(ctx, ref.LineageID)
	}
	return s.log.ReconstructAt(ctx, ref.LineageID, ref.Seq)
}

// History yields the events of lineageID in order.
func (s *Service) History(ctx context.Context, lineageID string) iter.Seq2[event.Event, error] {
	return s.log.History(ctx, lineageID)
}

// Lineages lists every stored lineage id.
func (s *Service) Lineages(ctx context.Context) ([]string, error) {
	return s.log.Lineages(ctx)
}

// Performance is what a genome's traits amount to, in thousandths.
type Performance struct {
	Fitness int64                    `json:"fitness" yaml:"fitness"`
	Speeds  map[genome.Terrain]int64 `json:"speeds" yaml:"speeds"`
}

// Performance scores g and its speed on every terrain.
func (s *Service) Performance(g genome.Genome) (Performance, error) {
	fitness, err := s.engine.Fitness(g)
	if err != nil {
		return Performance{}, err
	}
	out := Performance{Fitness: fitness, Speeds: make(map[genome.Terrain]int64, len(genome.Terrains()))}
	for _, terrain := range genome.Terrains() {
		speed, err := s.engine.SpeedOn(g, terrain)
		if err != nil {
			return Performance{}, err
		}
		out.Speeds[terrain] = speed
	}
	return out, nil
}

// Describe renders g's traits by name.
func (s *Service) Describe(g genome.Genome) ([]genome.TraitValue, error) {
	schema, err := s.engine.Catalog().Schema(g.SchemaVersion)
	if err != nil {
		return nil, err
	}
	return schema.Describe(g), nil
}

// creatureAt loads and rebuilds the event ref points at. A pinned
// signature must match the stored event.
func (s *Service) creatureAt(ctx context.Context, ref event.ParentRef) (Creature, error) {
	lineageID := strings.TrimSpace(ref.LineageID)
	var (
		evt event.Event
		err error
	)
	if ref.Seq == 0 {
		evt, err = s.log.Head(ctx, lineageID)
	} else {
		evt, err = s.log.Event(ctx, lineageID, ref.Seq)
	}
	if err != nil {
		return Creature{}, err
	}
	if ref.Signature != "" && ref.Signature != evt.Signature {
		return Creature{}, fmt.Errorf("%s#%d signature does not match the stored event: %w", lineageID, evt.Seq, lineage.ErrIntegrity)
	}
	g, err := s.log.ReconstructAt(ctx, lineageID, evt.Seq)
	if err != nil {
		return Creature{}, err
	}
	return Creature{Event: evt, Genome: g}, nil
}

func (s *Service) resolve(sd seed.Seed, rule arbiter.RuleContext) (arbiter.Outcome, error) {
	outcome, err := arbiter.Resolve(sd, rule)
	if err != nil {
		return arbiter.Outcome{}, err
	}
	s.metrics.ResolveObserved(string(rule.Kind), outcome.Success)
	s.logger.Debug("rule resolved",
		slog.String("kind", string(rule.Kind)),
		slog.String("name", rule.Name),
		slog.Bool("success", outcome.Success),
		slog.Int("roll", outcome.Roll),
	)
	return outcome, nil
}

func inputs(sd seed.Seed, params genome.Params, outcome *arbiter.Outcome) event.Inputs {
	return event.Inputs{
		Seed:          string(sd),
		MutationRate:  params.MutationRate,
		MutationScale: params.MutationScale,
		Outcome:       outcome,
	}
}

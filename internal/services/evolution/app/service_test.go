package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/lineage"
)

func TestNewServiceRejectsRules(t *testing.T) {
	rt := openRuntime(t, memoryConfig(DefaultRules()))

	_, err := NewService(nil, DefaultRules())
	require.Error(t, err)

	rules := DefaultRules()
	rules.MutationRate = 2000
	_, err = NewService(rt.Log, rules)
	require.Error(t, err)

	rules = DefaultRules()
	rules.SchemaVersion = 9
	_, err = NewService(rt.Log, rules)
	require.ErrorIs(t, err, genome.ErrUnknownSchema)
}

func TestLineageIDDeterministic(t *testing.T) {
	parent := event.ParentRef{LineageID: "a", Seq: 1, Signature: "abc"}
	first := LineageID(event.KindBreeding, "beta-2", parent, parent)
	require.Equal(t, first, LineageID(event.KindBreeding, "beta-2", parent, parent))

	other := parent
	other.Signature = "abd"
	require.NotEqual(t, first, LineageID(event.KindBreeding, "beta-2", parent, other))
	require.NotEqual(t, first, LineageID(event.KindBreeding, "beta-3", parent, parent))
	require.NotEqual(t, LineageID(event.KindGenesis, "x"), LineageID(event.KindBreeding, "x"))

	id, err := uuid.Parse(first)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(5), id.Version())
}

func TestNewCreatureDeterministic(t *testing.T) {
	ctx := context.Background()
	first := newCreature(t, newTestService(t, DefaultRules()), "alpha-1")
	second := newCreature(t, newTestService(t, DefaultRules()), "alpha-1")

	require.Equal(t, first.Event.LineageID, second.Event.LineageID)
	require.Equal(t, first.Event.Signature, second.Event.Signature)
	require.True(t, first.Genome.Equal(second.Genome))
	require.Equal(t, uint64(1), first.Event.Seq)
	require.Equal(t, event.KindGenesis, first.Event.Kind)

	s := newTestService(t, DefaultRules())
	newCreature(t, s, "alpha-1")
	_, err := s.NewCreature(ctx, "alpha-1")
	require.ErrorIs(t, err, event.ErrInvalidEvent)
}

func TestBreedSelfScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, certainRules())
	alpha := newCreature(t, s, "alpha-1")

	result, err := s.Breed(ctx, alpha.Ref(), alpha.Ref(), "beta-2")
	require.NoError(t, err)
	require.True(t, result.Passed())
	require.True(t, result.Outcome.Success)

	child := result.Creature
	require.Equal(t, event.KindBreeding, child.Event.Kind)
	require.Equal(t, []event.ParentRef{alpha.Ref(), alpha.Ref()}, child.Event.Parents)
	require.Equal(t, alpha.Genome.Generation+1, child.Genome.Generation)
	require.Equal(t, LineageID(event.KindBreeding, "beta-2", alpha.Ref(), alpha.Ref()), child.Event.LineageID)

	rebuilt, err := s.Reconstruct(ctx, child.Ref())
	require.NoError(t, err)
	require.True(t, rebuilt.Equal(child.Genome))

	ok, err := s.Verify(ctx, child.Event.LineageID)
	require.NoError(t, err)
	require.True(t, ok)

	again, err := newTestService(t, certainRules()).Breed(ctx, alpha.Ref(), alpha.Ref(), "beta-2")
	require.Error(t, err, "parents are not recorded in a fresh log")
	require.Nil(t, again.Creature)
}

func TestBreedFailedGateRecordsNothing(t *testing.T) {
	ctx := context.Background()
	rules := DefaultRules()
	rules.BreedingChance = 0
	s := newTestService(t, rules)
	a := newCreature(t, s, "mother")
	b := newCreature(t, s, "father")

	result, err := s.Breed(ctx, a.Ref(), b.Ref(), "clutch")
	require.NoError(t, err)
	require.False(t, result.Passed())
	require.False(t, result.Outcome.Success)
	require.Equal(t, arbiter.KindChance, result.Outcome.Kind)

	ids, err := s.Lineages(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestBreedResolvesHeadAndPinnedSignatures(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, certainRules())
	a := newCreature(t, s, "mother")
	b := newCreature(t, s, "father")
	mutated, err := s.Mutate(ctx, a.Event.LineageID, "storm")
	require.NoError(t, err)
	require.True(t, mutated.Passed())

	result, err := s.Breed(ctx, event.ParentRef{LineageID: a.Event.LineageID}, b.Ref(), "clutch")
	require.NoError(t, err)
	require.Equal(t, mutated.Creature.Ref(), result.Creature.Event.Parents[0])

	pinned := b.Ref()
	pinned.Signature = "not-the-signature"
	_, err = s.Breed(ctx, a.Ref(), pinned, "clutch-2")
	require.ErrorIs(t, err, lineage.ErrIntegrity)
}

func TestMutate(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, certainRules())
	alpha := newCreature(t, s, "alpha-1")

	result, err := s.Mutate(ctx, alpha.Event.LineageID, "storm")
	require.NoError(t, err)
	require.True(t, result.Passed())
	require.Equal(t, uint64(2), result.Creature.Event.Seq)
	require.Equal(t, event.KindMutation, result.Creature.Event.Kind)
	require.Equal(t, alpha.Genome.Generation+1, result.Creature.Genome.Generation)
	require.NotEqual(t, alpha.Genome.Values, result.Creature.Genome.Values)

	head, err := s.Reconstruct(ctx, event.ParentRef{LineageID: alpha.Event.LineageID})
	require.NoError(t, err)
	require.True(t, head.Equal(result.Creature.Genome))
}

func TestMutateWithoutTrigger(t *testing.T) {
	ctx := context.Background()
	rules := DefaultRules()
	rules.MutationChance = 0
	s := newTestService(t, rules)
	alpha := newCreature(t, s, "alpha-1")

	result, err := s.Mutate(ctx, alpha.Event.LineageID, "storm")
	require.NoError(t, err)
	require.False(t, result.Passed())

	count := 0
	for _, err := range s.History(ctx, alpha.Event.LineageID) {
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 1, count)
}

func TestCheckRecordsOutcome(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, DefaultRules())
	alpha := newCreature(t, s, "alpha-1")

	result, err := s.Check(ctx, alpha.Event.LineageID, "night-1", arbiter.DeathSave(0, false, false))
	require.NoError(t, err)
	require.Zero(t, result.Modifier)
	require.Equal(t, event.KindOutcome, result.Event.Kind)
	require.Equal(t, uint64(2), result.Event.Seq)
	require.NotNil(t, result.Event.Inputs.Outcome)
	require.Equal(t, result.Outcome, *result.Event.Inputs.Outcome)

	direct, err := s.Resolve("night-1", arbiter.DeathSave(0, false, false))
	require.NoError(t, err)
	require.Equal(t, direct, result.Outcome)

	head, err := s.Reconstruct(ctx, event.ParentRef{LineageID: alpha.Event.LineageID})
	require.NoError(t, err)
	require.True(t, head.Equal(alpha.Genome))
}

func TestCheckAppliesModifierSource(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, DefaultRules(), WithModifiers(ModifierFunc(func(genome.Genome) int { return 3 })))
	alpha := newCreature(t, s, "alpha-1")

	result, err := s.Check(ctx, alpha.Event.LineageID, "night-1", arbiter.DeathSave(2, false, false))
	require.NoError(t, err)
	require.Equal(t, 3, result.Modifier)
	require.Equal(t, result.Outcome.Roll+5, result.Outcome.Total)

	weighted := arbiter.RuleContext{Kind: arbiter.KindWeighted, Name: "path", Weights: []int{1, 1}}
	result, err = s.Check(ctx, alpha.Event.LineageID, "fork", weighted)
	require.NoError(t, err)
	require.Zero(t, result.Modifier)
}

func TestCheckRejectsInvalidRule(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, DefaultRules())
	alpha := newCreature(t, s, "alpha-1")

	_, err := s.Check(ctx, alpha.Event.LineageID, "night-1", arbiter.RuleContext{Kind: arbiter.KindChance, Probability: -1})
	require.ErrorIs(t, err, arbiter.ErrInvalidRuleContext)

	head, err := s.log.Head(ctx, alpha.Event.LineageID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), head.Seq)
}

func TestAuditMatchesRecordedEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, certainRules())
	a := newCreature(t, s, "mother")
	b := newCreature(t, s, "father")
	bred, err := s.Breed(ctx, a.Ref(), b.Ref(), "clutch")
	require.NoError(t, err)
	child := bred.Creature.Event.LineageID
	mutated, err := s.Mutate(ctx, child, "storm")
	require.NoError(t, err)
	checked, err := s.Check(ctx, child, "night-1", arbiter.DeathSave(1, true, false))
	require.NoError(t, err)

	tests := []struct {
		name     string
		ref      event.ParentRef
		replayed bool
	}{
		{name: "genesis", ref: a.Ref()},
		{name: "breeding", ref: bred.Creature.Ref(), replayed: true},
		{name: "mutation", ref: mutated.Creature.Ref(), replayed: true},
		{name: "outcome", ref: checked.Event.Ref(), replayed: true},
		{name: "head", ref: event.ParentRef{LineageID: child}, replayed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := s.Audit(ctx, tt.ref)
			require.NoError(t, err)
			require.True(t, report.Match, report.Reason)
			require.Equal(t, tt.replayed, report.OutcomeReplayed)
			require.Equal(t, report.RecordedChecksum, report.DerivedChecksum)
		})
	}
}

func TestAuditDetectsDivergentInputs(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, DefaultRules())
	alpha := newCreature(t, s, "alpha-1")

	params := s.Rules().Params()
	mutated, err := s.engine.Mutate(alpha.Genome, "storm", params)
	require.NoError(t, err)
	evt, err := s.log.Append(ctx, lineage.AppendRequest{
		LineageID: alpha.Event.LineageID,
		Kind:      event.KindMutation,
		Inputs:    inputs("calm", params, nil),
		Genome:    mutated,
	})
	require.NoError(t, err)

	report, err := s.Audit(ctx, evt.Ref())
	require.NoError(t, err)
	require.False(t, report.Match)
	require.Equal(t, "genome differs from its inputs", report.Reason)
	require.Equal(t, mutated.Checksum, report.RecordedChecksum)
	require.NotEqual(t, report.RecordedChecksum, report.DerivedChecksum)
}

func TestDescribe(t *testing.T) {
	s := newTestService(t, DefaultRules())
	alpha := newCreature(t, s, "alpha-1")

	traits, err := s.Describe(alpha.Genome)
	require.NoError(t, err)
	require.Len(t, traits, len(alpha.Genome.Values))

	_, err = s.Describe(genome.Genome{SchemaVersion: 42})
	require.ErrorIs(t, err, genome.ErrUnknownSchema)
}

func TestPerformance(t *testing.T) {
	s := newTestService(t, DefaultRules())
	alpha := newCreature(t, s, "alpha-1")

	perf, err := s.Performance(alpha.Genome)
	require.NoError(t, err)
	require.GreaterOrEqual(t, perf.Fitness, int64(genome.MinFitness))
	require.LessOrEqual(t, perf.Fitness, int64(genome.MaxFitness))
	require.Len(t, perf.Speeds, len(genome.Terrains()))

	speed, err := s.engine.SpeedOn(alpha.Genome, genome.TerrainMud)
	require.NoError(t, err)
	require.Equal(t, speed, perf.Speeds[genome.TerrainMud])
	require.Less(t, perf.Speeds[genome.TerrainMud], perf.Speeds[genome.TerrainBoost])

	_, err = s.Performance(genome.Genome{SchemaVersion: 42})
	require.ErrorIs(t, err, genome.ErrUnknownSchema)
}

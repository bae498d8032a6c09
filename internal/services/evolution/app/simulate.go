package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
)

const (
	// MinPopulation is the smallest population that can pair.
	MinPopulation = 2
	// MaxPopulation is bounded by how many weights one arbiter pick takes.
	MaxPopulation  = arbiter.MaxWeights
	MaxGenerations = 10_000
)

// SimulationRequest describes a seeded population run.
type SimulationRequest struct {
	Seed        seed.Seed
	Population  int
	Generations int
	// Workers bounds concurrent breedings. Zero means GOMAXPROCS.
	Workers int
}

// Member is one slot of the final population.
type Member struct {
	LineageID  string `json:"lineage_id" yaml:"lineage_id"`
	Seq        uint64 `json:"seq" yaml:"seq"`
	Generation uint32 `json:"generation" yaml:"generation"`
	Checksum   uint64 `json:"checksum" yaml:"checksum"`
}

// Ref points at the member's event.
func (m Member) Ref() event.ParentRef {
	return event.ParentRef{LineageID: m.LineageID, Seq: m.Seq}
}

// SimulationReport summarizes a run.
type SimulationReport struct {
	Seed            string        `json:"seed" yaml:"seed"`
	Population      int           `json:"population" yaml:"population"`
	Generations     int           `json:"generations" yaml:"generations"`
	Founders        int           `json:"founders" yaml:"founders"`
	Births          int           `json:"births" yaml:"births"`
	FailedBreedings int           `json:"failed_breedings" yaml:"failed_breedings"`
	Mutations       int           `json:"mutations" yaml:"mutations"`
	Members         []Member      `json:"members" yaml:"members"`
	Elapsed         time.Duration `json:"elapsed" yaml:"elapsed"`
}

type pairing struct {
	mother, father int
}

type slotResult struct {
	creature Creature
	born     bool
	mutated  bool
}

// Simulate founds a population from req.Seed and breeds it for
// req.Generations generations. Every slot of a generation breeds a pair
// chosen by weighted arbiter picks, then rolls for a mutation; a failed
// breeding carries the first parent over. Pairings and seeds are fixed
// before any breeding starts, so the log does not depend on scheduling.
func (s *Service) Simulate(ctx context.Context, req SimulationRequest) (SimulationReport, error) {
	if req.Population < MinPopulation || req.Population > MaxPopulation {
		return SimulationReport{}, fmt.Errorf("population must be between %d and %d, got %d", MinPopulation, MaxPopulation, req.Population)
	}
	if req.Generations < 0 || req.Generations > MaxGenerations {
		return SimulationReport{}, fmt.Errorf("generations must be between 0 and %d, got %d", MaxGenerations, req.Generations)
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	start := time.Now()
	report := SimulationReport{Seed: string(req.Seed), Population: req.Population, Generations: req.Generations}

	population := make([]Creature, req.Population)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range population {
		g.Go(func() error {
			creature, err := s.NewCreature(gctx, seed.Derive(req.Seed, "simulate/founder", uint64(i)))
			if err != nil {
				return fmt.Errorf("found slot %d: %w", i, err)
			}
			population[i] = creature
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimulationReport{}, err
	}
	report.Founders = len(population)

	for gen := 1; gen <= req.Generations; gen++ {
		pairs, err := s.pairings(req.Seed, gen, population)
		if err != nil {
			return SimulationReport{}, err
		}
		slots := make([]slotResult, len(population))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, pair := range pairs {
			g.Go(func() error {
				slot, err := s.breedSlot(gctx, seed.Derive(req.Seed, "simulate/breed", slotStep(gen, i)), population[pair.mother], population[pair.father])
				if err != nil {
					return fmt.Errorf("generation %d slot %d: %w", gen, i, err)
				}
				slots[i] = slot
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return SimulationReport{}, err
		}

		for i, slot := range slots {
			population[i] = slot.creature
			switch {
			case !slot.born:
				report.FailedBreedings++
			case slot.mutated:
				report.Births++
				report.Mutations++
			default:
				report.Births++
			}
		}
		s.logger.Debug("generation bred",
			slog.Int("generation", gen),
			slog.Int("births", report.Births),
			slog.Int("failed", report.FailedBreedings),
		)
	}

	report.Members = make([]Member, len(population))
	for i, creature := range population {
		report.Members[i] = Member{
			LineageID:  creature.Event.LineageID,
			Seq:        creature.Event.Seq,
			Generation: creature.Genome.Generation,
			Checksum:   creature.Genome.Checksum,
		}
	}
	report.Elapsed = time.Since(start)
	return report, nil
}

func (s *Service) breedSlot(ctx context.Context, sd seed.Seed, mother, father Creature) (slotResult, error) {
	bred, err := s.Breed(ctx, mother.Ref(), father.Ref(), sd)
	if err != nil {
		return slotResult{}, err
	}
	if !bred.Passed() {
		return slotResult{creature: mother}, nil
	}
	child := *bred.Creature
	mutated, err := s.Mutate(ctx, child.Event.LineageID, seed.Derive(sd, "simulate/mutate", 0))
	if err != nil {
		return slotResult{}, err
	}
	if mutated.Passed() {
		return slotResult{creature: *mutated.Creature, born: true, mutated: true}, nil
	}
	return slotResult{creature: child, born: true}, nil
}

// pairings picks a mother and a distinct father for every slot. Members
// weigh their genome fitness, so fitter creatures pair more often.
func (s *Service) pairings(sd seed.Seed, gen int, population []Creature) ([]pairing, error) {
	weights := make([]int, len(population))
	for i, creature := range population {
		fitness, err := s.engine.Fitness(creature.Genome)
		if err != nil {
			return nil, err
		}
		weights[i] = int(fitness)
	}
	pairs := make([]pairing, len(population))
	for i := range pairs {
		slotSeed := seed.Derive(sd, "simulate/pair", slotStep(gen, i))
		mother, err := s.resolve(slotSeed, arbiter.RuleContext{Kind: arbiter.KindWeighted, Name: "mother", Weights: weights})
		if err != nil {
			return nil, err
		}
		others := append([]int(nil), weights...)
		others[mother.Winner] = 0
		father, err := s.resolve(slotSeed, arbiter.RuleContext{Kind: arbiter.KindWeighted, Name: "father", Weights: others})
		if err != nil {
			return nil, err
		}
		pairs[i] = pairing{mother: mother.Winner, father: father.Winner}
	}
	return pairs, nil
}

func slotStep(gen, slot int) uint64 {
	return uint64(gen)<<32 | uint64(slot)
}

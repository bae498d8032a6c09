package evolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/louisbranch/evolving.space/internal/platform/telemetry/metrics"
	"github.com/louisbranch/evolving.space/internal/services/evolution/app"
	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/lineage"
)

const metricsShutdownTimeout = 5 * time.Second

func requireFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (c *cli) genesisCommand() *cobra.Command {
	var sd string
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Record a wild creature in a new lineage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				creature, err := svc.NewCreature(ctx, seed.Seed(sd))
				if err != nil {
					return err
				}
				return c.emit(creature, func() { c.recorded(creature.Event, creature.Genome) })
			})
		},
	}
	cmd.Flags().StringVar(&sd, "seed", "", "Seed the creature is generated from")
	requireFlags(cmd, "seed")
	return cmd
}

func (c *cli) breedCommand() *cobra.Command {
	var a, b, sd string
	cmd := &cobra.Command{
		Use:   "breed",
		Short: "Roll the breeding gate and record the offspring of two events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mother, err := parseRef(a)
			if err != nil {
				return err
			}
			father, err := parseRef(b)
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				result, err := svc.Breed(ctx, mother, father, seed.Seed(sd))
				if err != nil {
					return err
				}
				return c.emit(result, func() {
					c.gate(result, func() {
						c.text("cli.breed.rejected", result.Outcome.Name, result.Outcome.Roll, result.Outcome.Target)
					})
				})
			})
		},
	}
	cmd.Flags().StringVar(&a, "a", "", "First parent as lineage[@seq]")
	cmd.Flags().StringVar(&b, "b", "", "Second parent as lineage[@seq]")
	cmd.Flags().StringVar(&sd, "seed", "", "Seed for the gate and the offspring")
	requireFlags(cmd, "a", "b", "seed")
	return cmd
}

func (c *cli) mutateCommand() *cobra.Command {
	var lineageID, sd string
	cmd := &cobra.Command{
		Use:   "mutate",
		Short: "Roll the mutation trigger for a lineage head",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				result, err := svc.Mutate(ctx, lineageID, seed.Seed(sd))
				if err != nil {
					return err
				}
				return c.emit(result, func() {
					c.gate(result, func() {
						c.text("cli.mutate.skipped", result.Outcome.Roll, result.Outcome.Target)
					})
				})
			})
		},
	}
	cmd.Flags().StringVar(&lineageID, "lineage", "", "Lineage to mutate")
	cmd.Flags().StringVar(&sd, "seed", "", "Seed for the trigger and the mutation")
	requireFlags(cmd, "lineage", "seed")
	return cmd
}

// gate prints the recorded creature, or calls rejected when the roll failed.
func (c *cli) gate(result app.GateResult, rejected func()) {
	if result.Passed() {
		c.recorded(result.Creature.Event, result.Creature.Genome)
		return
	}
	rejected()
}

func (c *cli) checkCommand() *cobra.Command {
	var (
		lineageID, sd, name     string
		difficulty, modifier    int
		advantage, disadvantage bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve a d20 check for a lineage head and record the outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rule := arbiter.RuleContext{
				Kind:         arbiter.KindCheck,
				Name:         name,
				Difficulty:   difficulty,
				Modifier:     modifier,
				Advantage:    advantage,
				Disadvantage: disadvantage,
			}
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				result, err := svc.Check(ctx, lineageID, seed.Seed(sd), rule)
				if err != nil {
					return err
				}
				return c.emit(result, func() {
					c.outcome(result.Outcome)
					c.recorded(result.Event, result.Genome)
				})
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&lineageID, "lineage", "", "Lineage whose head is checked")
	flags.StringVar(&sd, "seed", "", "Seed for the roll")
	flags.StringVar(&name, "name", "death_save", "Rule name, part of the roll's sub-seed")
	flags.IntVar(&difficulty, "difficulty", arbiter.DeathSaveDifficulty, "Target the total must meet")
	flags.IntVar(&modifier, "modifier", 0, "Flat modifier on top of the creature's own")
	flags.BoolVar(&advantage, "advantage", false, "Roll twice and keep the higher die")
	flags.BoolVar(&disadvantage, "disadvantage", false, "Roll twice and keep the lower die")
	requireFlags(cmd, "lineage", "seed")
	return cmd
}

func (c *cli) resolveCommand() *cobra.Command {
	var (
		sd, kind, name, dice    string
		probability, difficulty int
		modifier                int
		advantage, disadvantage bool
		contestants, weights    []int
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a rule without recording anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rule := arbiter.RuleContext{
				Kind:         arbiter.Kind(kind),
				Name:         name,
				Probability:  probability,
				Difficulty:   difficulty,
				Modifier:     modifier,
				Advantage:    advantage,
				Disadvantage: disadvantage,
				Contestants:  contestants,
				Weights:      weights,
			}
			if rule.Kind == arbiter.KindDice {
				specs, err := parseDice(dice)
				if err != nil {
					return err
				}
				rule.Dice = specs
			}
			out, err := arbiter.Resolve(seed.Seed(sd), rule)
			if err != nil {
				return err
			}
			return c.emit(out, func() { c.outcome(out) })
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&sd, "seed", "", "Seed for the roll")
	flags.StringVar(&kind, "kind", string(arbiter.KindCheck), "Rule kind: chance, check, contest, weighted or dice")
	flags.StringVar(&name, "name", "", "Rule name, part of the roll's sub-seed")
	flags.IntVar(&probability, "probability", 0, "Chance in basis points")
	flags.IntVar(&difficulty, "difficulty", 10, "Check difficulty")
	flags.IntVar(&modifier, "modifier", 0, "Check or dice modifier")
	flags.BoolVar(&advantage, "advantage", false, "Roll twice and keep the higher die")
	flags.BoolVar(&disadvantage, "disadvantage", false, "Roll twice and keep the lower die")
	flags.IntSliceVar(&contestants, "contestants", nil, "Contestant modifiers")
	flags.IntSliceVar(&weights, "weights", nil, "Weighted pick weights")
	flags.StringVar(&dice, "dice", "", "Dice pool such as 2d6,1d20")
	requireFlags(cmd, "seed")
	return cmd
}

func (c *cli) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [lineage...]",
		Short: "Verify lineages and their ancestry; every lineage when none is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				var reports []lineage.Report
				if len(args) == 0 {
					all, err := svc.VerifyAll(ctx)
					if err != nil {
						return err
					}
					reports = all
				}
				for _, id := range args {
					report, err := svc.Inspect(ctx, id)
					if err != nil {
						return err
					}
					reports = append(reports, report)
				}
				err := c.emit(reports, func() {
					for _, report := range reports {
						if report.Valid {
							c.text("cli.verify.ok", report.LineageID, report.Checked)
							continue
						}
						c.text("cli.verify.broken", report.LineageID, report.Broken.LineageID, report.Broken.Seq, report.Broken.Reason)
					}
				})
				if err != nil {
					return err
				}
				for _, report := range reports {
					if !report.Valid {
						return ErrVerificationFailed
					}
				}
				return nil
			})
		},
	}
}

func (c *cli) historyCommand() *cobra.Command {
	var lineageID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the events of a lineage in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				var events []event.Event
				for evt, err := range svc.History(ctx, lineageID) {
					if err != nil {
						return err
					}
					events = append(events, evt)
				}
				return c.emit(events, func() {
					for _, evt := range events {
						fmt.Fprintf(c.stdout, "%d\t%s\t%s\t%016x\n", evt.Seq, evt.Kind, evt.Signature, evt.GenomeChecksum)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&lineageID, "lineage", "", "Lineage to list")
	requireFlags(cmd, "lineage")
	return cmd
}

type reconstruction struct {
	Ref         event.ParentRef     `json:"ref" yaml:"ref"`
	Genome      genome.Genome       `json:"genome" yaml:"genome"`
	Traits      []genome.TraitValue `json:"traits" yaml:"traits"`
	Performance app.Performance     `json:"performance" yaml:"performance"`
}

func (c *cli) reconstructCommand() *cobra.Command {
	var (
		lineageID string
		seq       uint64
	)
	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Rebuild a genome from its verified ancestry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref := event.ParentRef{LineageID: lineageID, Seq: seq}
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				g, err := svc.Reconstruct(ctx, ref)
				if err != nil {
					return err
				}
				traits, err := svc.Describe(g)
				if err != nil {
					return err
				}
				perf, err := svc.Performance(g)
				if err != nil {
					return err
				}
				out := reconstruction{Ref: ref, Genome: g, Traits: traits, Performance: perf}
				return c.emit(out, func() {
					c.traits(g, traits)
					c.text("cli.genome.fitness", perf.Fitness/1000, perf.Fitness%1000)
				})
			})
		},
	}
	cmd.Flags().StringVar(&lineageID, "lineage", "", "Lineage to rebuild")
	cmd.Flags().Uint64Var(&seq, "seq", 0, "Event to rebuild; 0 means the head")
	requireFlags(cmd, "lineage")
	return cmd
}

func (c *cli) auditCommand() *cobra.Command {
	var (
		lineageID string
		seq       uint64
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Re-derive a recorded genome from its seed, parameters and parents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref := event.ParentRef{LineageID: lineageID, Seq: seq}
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				report, err := svc.Audit(ctx, ref)
				if err != nil {
					return err
				}
				err = c.emit(report, func() {
					if report.Match {
						c.text("cli.audit.ok", report.Ref.LineageID, report.Ref.Seq)
					} else {
						c.text("cli.audit.mismatch", report.Ref.LineageID, report.Ref.Seq, report.Reason)
					}
				})
				if err == nil && !report.Match {
					return ErrVerificationFailed
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&lineageID, "lineage", "", "Lineage of the event")
	cmd.Flags().Uint64Var(&seq, "seq", 0, "Event to audit; 0 means the head")
	requireFlags(cmd, "lineage")
	return cmd
}

func (c *cli) simulateCommand() *cobra.Command {
	var (
		req         app.SimulationRequest
		sd          string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Found a seeded population and breed it for several generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Seed = seed.Seed(sd)
			return c.withService(cmd, func(ctx context.Context, svc *app.Service) error {
				if metricsAddr != "" {
					stop, err := c.serveMetrics(metricsAddr)
					if err != nil {
						return err
					}
					defer stop()
				}
				report, err := svc.Simulate(ctx, req)
				if err != nil {
					return err
				}
				return c.emit(report, func() {
					c.text("cli.simulate.done", report.Generations, report.Births, report.Founders+report.Births)
				})
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&sd, "seed", "", "Seed of the whole run")
	flags.IntVar(&req.Population, "population", 16, "Creatures per generation")
	flags.IntVar(&req.Generations, "generations", 8, "Generations to breed")
	flags.IntVar(&req.Workers, "workers", 0, "Concurrent breedings; 0 means GOMAXPROCS")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the run lasts")
	requireFlags(cmd, "seed")
	return cmd
}

// serveMetrics exposes the command's registry until stop is called.
func (c *cli) serveMetrics(addr string) (stop func(), err error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(c.registry))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server", "error", err)
		}
	}()
	c.logger.Info("serving metrics", "addr", listener.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

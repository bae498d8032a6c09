// Package evolve builds the evolve command line and runs it inside the
// shared telemetry entrypoint.
package evolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	entrypoint "github.com/louisbranch/evolving.space/internal/platform/cmd"
	"github.com/louisbranch/evolving.space/internal/platform/i18n/catalog"
	"github.com/louisbranch/evolving.space/internal/platform/logging"
	"github.com/louisbranch/evolving.space/internal/platform/telemetry/metrics"
	"github.com/louisbranch/evolving.space/internal/services/evolution/app"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/integrity"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrVerificationFailed is returned when a verify or audit finds a broken
// or divergent lineage. The report has already been printed.
var ErrVerificationFailed = errors.New("verification failed")

// ErrReported marks a failure whose structured report has already been
// written to stderr.
var ErrReported = errors.New("error reported")

// Config holds evolve command configuration.
type Config struct {
	Locale  string `env:"EVOLVE_LOCALE" envDefault:"en-US"`
	EnvFile string `env:"EVOLVE_ENV_FILE" envDefault:".env"`
}

// cli carries the state shared by every subcommand. Only commands that
// touch the log open a store and read the keyring.
type cli struct {
	cfg    Config
	format string
	stdout io.Writer
	stderr io.Writer

	printer  *message.Printer
	logger   *slog.Logger
	registry *prometheus.Registry
}

// Run executes the evolve command line with args.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEvolve, func(ctx context.Context) error {
		return Execute(ctx, cfg, args, stdout, stderr)
	})
}

// Execute runs one command line. Under the json and yaml formats a failed
// command writes an error report to stderr and the returned error wraps
// ErrReported.
func Execute(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) error {
	c, root := newRoot(cfg, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil || errors.Is(err, ErrVerificationFailed) || c.format == FormatText || c.printer == nil {
		return err
	}
	if reportErr := c.emitTo(c.stderr, newErrorReport(err, c.cfg.Locale), nil); reportErr != nil {
		return errors.Join(err, reportErr)
	}
	return fmt.Errorf("%w: %w", ErrReported, err)
}

// NewRootCommand builds the evolve command tree.
func NewRootCommand(cfg Config, stdout, stderr io.Writer) *cobra.Command {
	_, root := newRoot(cfg, stdout, stderr)
	return root
}

func newRoot(cfg Config, stdout, stderr io.Writer) (*cli, *cobra.Command) {
	c := &cli{cfg: cfg, stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "evolve",
		Short:         "Deterministic creature genetics with an auditable lineage log",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	flags := root.PersistentFlags()
	flags.StringVar(&c.format, "format", FormatText, "Output format: text, json or yaml")
	flags.StringVar(&c.cfg.Locale, "locale", cfg.Locale, "Locale for text output")
	flags.StringVar(&c.cfg.EnvFile, "env-file", cfg.EnvFile, "Optional .env file loaded before reading EVOLVE_* variables")

	root.AddCommand(
		c.genesisCommand(),
		c.breedCommand(),
		c.mutateCommand(),
		c.checkCommand(),
		c.resolveCommand(),
		c.verifyCommand(),
		c.historyCommand(),
		c.reconstructCommand(),
		c.auditCommand(),
		c.simulateCommand(),
	)
	return c, root
}

func (c *cli) setup() error {
	switch c.format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown format %q", c.format)
	}
	if err := entrypoint.LoadDotEnv(c.cfg.EnvFile); err != nil {
		return err
	}
	c.printer = catalog.Default().Printer(c.cfg.Locale)
	return nil
}

// withService opens the configured runtime, runs fn and closes the
// runtime again.
func (c *cli) withService(cmd *cobra.Command, fn func(context.Context, *app.Service) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	c.logger = logging.New(cfg.Logging, c.stderr)
	keyring, err := integrity.KeyringFromEnv()
	if err != nil {
		return fmt.Errorf("load hmac keyring: %w", err)
	}
	c.registry = prometheus.NewRegistry()
	rt, err := app.Open(ctx, cfg, keyring,
		app.WithLogger(c.logger),
		app.WithRecorder(metrics.NewRecorder(c.registry)),
	)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close store: %w", closeErr)
		}
	}()
	return fn(ctx, rt.Service)
}

// text prints one catalog message followed by a newline.
func (c *cli) text(key string, args ...any) {
	fmt.Fprintln(c.stdout, strings.TrimSpace(c.printer.Sprintf(key, args...)))
}

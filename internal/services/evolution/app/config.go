package app

import (
	"github.com/louisbranch/evolving.space/internal/platform/config"
	"github.com/louisbranch/evolving.space/internal/platform/logging"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// Rules are the simulation parameters every Service operation applies.
type Rules struct {
	SchemaVersion int `env:"EVOLVE_SCHEMA_VERSION" envDefault:"1" validate:"gte=1"`
	// MutationRate is the per-trait mutation probability in thousandths.
	MutationRate int `env:"EVOLVE_MUTATION_RATE" envDefault:"100" validate:"gte=0,lte=1000"`
	// MutationIntensity, when set, replaces MutationRate with a named preset.
	MutationIntensity genome.Intensity `env:"EVOLVE_MUTATION_INTENSITY" validate:"omitempty,oneof=low moderate high extreme"`
	// MutationScale scales mutation drift, in percent.
	MutationScale int `env:"EVOLVE_MUTATION_SCALE" envDefault:"100" validate:"gte=0,lte=1000"`
	// BreedingChance is the breeding success probability in basis points.
	BreedingChance int `env:"EVOLVE_BREEDING_CHANCE_BP" envDefault:"8000" validate:"gte=0,lte=10000"`
	// MutationChance is the spontaneous mutation probability in basis points.
	MutationChance int `env:"EVOLVE_MUTATION_CHANCE_BP" envDefault:"2500" validate:"gte=0,lte=10000"`
}

// DefaultRules matches the environment defaults.
func DefaultRules() Rules {
	params := genome.DefaultParams()
	return Rules{
		SchemaVersion:  genome.SchemaV1,
		MutationRate:   params.MutationRate,
		MutationScale:  params.MutationScale,
		BreedingChance: 8000,
		MutationChance: 2500,
	}
}

// Params returns the genome engine parameters of r.
func (r Rules) Params() genome.Params {
	params := genome.Params{MutationRate: r.MutationRate, MutationScale: r.MutationScale}
	if preset, ok := genome.ParamsFor(r.MutationIntensity); ok {
		params.MutationRate = preset.MutationRate
	}
	return params
}

// Config is the full runtime configuration read from EVOLVE_* variables.
// HMAC keys are read separately through integrity.KeyringFromEnv.
type Config struct {
	Rules   Rules
	Logging logging.Config

	Store      string `env:"EVOLVE_STORE" envDefault:"memory" validate:"oneof=memory sqlite badger"`
	SQLitePath string `env:"EVOLVE_SQLITE_PATH" envDefault:"data/evolve.db" validate:"required_if=Store sqlite"`
	BadgerPath string `env:"EVOLVE_BADGER_PATH" envDefault:"data/badger" validate:"required_if=Store badger"`
	// SnapshotInterval caches a full genome every N events. Zero disables
	// interval snapshots.
	SnapshotInterval uint64 `env:"EVOLVE_SNAPSHOT_INTERVAL" envDefault:"16"`
	VerifyWorkers    int    `env:"EVOLVE_VERIFY_WORKERS" envDefault:"4" validate:"gte=1,lte=64"`
}

// LoadConfig reads and validates Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnvAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

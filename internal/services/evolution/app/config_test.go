package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.Store)
	require.Equal(t, DefaultRules(), cfg.Rules)
	require.Equal(t, uint64(16), cfg.SnapshotInterval)
	require.Equal(t, 4, cfg.VerifyWorkers)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("EVOLVE_STORE", "sqlite")
	t.Setenv("EVOLVE_SQLITE_PATH", "/tmp/evolve-test.db")
	t.Setenv("EVOLVE_BREEDING_CHANCE_BP", "125")
	t.Setenv("EVOLVE_MUTATION_RATE", "300")
	t.Setenv("EVOLVE_SNAPSHOT_INTERVAL", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, "/tmp/evolve-test.db", cfg.SQLitePath)
	require.Equal(t, 125, cfg.Rules.BreedingChance)
	require.Equal(t, 300, cfg.Rules.Params().MutationRate)
	require.Zero(t, cfg.SnapshotInterval)
}

func TestLoadConfigMutationIntensity(t *testing.T) {
	t.Setenv("EVOLVE_MUTATION_RATE", "7")
	t.Setenv("EVOLVE_MUTATION_SCALE", "40")
	t.Setenv("EVOLVE_MUTATION_INTENSITY", "extreme")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, genome.IntensityExtreme, cfg.Rules.MutationIntensity)
	require.Equal(t, genome.Params{MutationRate: 300, MutationScale: 40}, cfg.Rules.Params())

	cfg.Rules.MutationIntensity = ""
	require.Equal(t, 7, cfg.Rules.Params().MutationRate)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown store", key: "EVOLVE_STORE", value: "postgres"},
		{name: "mutation rate", key: "EVOLVE_MUTATION_RATE", value: "5000"},
		{name: "breeding chance", key: "EVOLVE_BREEDING_CHANCE_BP", value: "10001"},
		{name: "schema", key: "EVOLVE_SCHEMA_VERSION", value: "0"},
		{name: "workers", key: "EVOLVE_VERIFY_WORKERS", value: "0"},
		{name: "log level", key: "EVOLVE_LOG_LEVEL", value: "loud"},
		{name: "intensity", key: "EVOLVE_MUTATION_INTENSITY", value: "wild"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

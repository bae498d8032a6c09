package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/louisbranch/evolving.space/internal/platform/logging"
	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/integrity"
)

func testKeyring(t *testing.T) *integrity.Keyring {
	t.Helper()
	keyring, err := integrity.NewKeyring(map[string][]byte{"v1": []byte("app-test-key")}, "v1")
	require.NoError(t, err)
	return keyring
}

// certainRules always breed and always mutate.
func certainRules() Rules {
	rules := DefaultRules()
	rules.BreedingChance = 10000
	rules.MutationChance = 10000
	return rules
}

func memoryConfig(rules Rules) Config {
	return Config{
		Rules:            rules,
		Store:            StoreMemory,
		SnapshotInterval: 4,
		VerifyWorkers:    2,
	}
}

func openRuntime(t *testing.T, cfg Config, opts ...RuntimeOption) *Runtime {
	t.Helper()
	opts = append([]RuntimeOption{WithLogger(logging.Discard())}, opts...)
	rt, err := Open(context.Background(), cfg, testKeyring(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })
	return rt
}

func newTestService(t *testing.T, rules Rules, opts ...ServiceOption) *Service {
	t.Helper()
	return openRuntime(t, memoryConfig(rules), WithServiceOptions(opts...)).Service
}

func newCreature(t *testing.T, s *Service, sd seed.Seed) Creature {
	t.Helper()
	creature, err := s.NewCreature(context.Background(), sd)
	require.NoError(t, err)
	return creature
}

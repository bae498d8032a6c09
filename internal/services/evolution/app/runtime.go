package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/louisbranch/evolving.space/internal/platform/telemetry/metrics"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/checkpoint"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/journal"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/lineage"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
	storagebadger "github.com/louisbranch/evolving.space/internal/services/evolution/storage/badger"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/integrity"
	storagesqlite "github.com/louisbranch/evolving.space/internal/services/evolution/storage/sqlite"
)

// Runtime owns an opened store and the Log and Service built over it.
type Runtime struct {
	Log     *lineage.Log
	Service *Service

	store storage.Store
}

type runtimeOptions struct {
	logger   *slog.Logger
	recorder *metrics.Recorder
	service  []ServiceOption
}

// RuntimeOption configures Open.
type RuntimeOption func(*runtimeOptions)

// WithLogger sets the logger shared by the store, the log and the service.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder reports log and arbiter metrics to recorder.
func WithRecorder(recorder *metrics.Recorder) RuntimeOption {
	return func(o *runtimeOptions) {
		o.recorder = recorder
	}
}

// WithServiceOptions passes opts through to NewService.
func WithServiceOptions(opts ...ServiceOption) RuntimeOption {
	return func(o *runtimeOptions) {
		o.service = append(o.service, opts...)
	}
}

// Open opens the configured backend and builds the Log and Service over
// it. Close releases the backend.
func Open(ctx context.Context, cfg Config, keyring *integrity.Keyring, opts ...RuntimeOption) (*Runtime, error) {
	options := runtimeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if keyring == nil {
		return nil, integrity.ErrKeyringRequired
	}

	store, err := openStore(ctx, cfg, options.logger)
	if err != nil {
		return nil, err
	}
	logOpts := []lineage.Option{
		lineage.WithSnapshots(store, cfg.SnapshotInterval),
		lineage.WithLogger(options.logger),
		lineage.WithVerifyWorkers(cfg.VerifyWorkers),
	}
	serviceOpts := []ServiceOption{WithServiceLogger(options.logger)}
	if options.recorder != nil {
		logOpts = append(logOpts, lineage.WithMetrics(options.recorder))
		serviceOpts = append(serviceOpts, WithResolutionMetrics(options.recorder))
	}
	serviceOpts = append(serviceOpts, options.service...)

	log, err := lineage.New(store, keyring, logOpts...)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	service, err := NewService(log, cfg.Rules, serviceOpts...)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	options.logger.Debug("evolution runtime ready", slog.String("store", cfg.Store))
	return &Runtime{Log: log, Service: service, store: store}, nil
}

// Close releases the backend.
func (r *Runtime) Close() error {
	if r == nil || r.store == nil {
		return nil
	}
	return storage.CloseIfSupported(r.store)
}

// memoryStore pairs the in-memory journal with in-memory snapshots.
type memoryStore struct {
	*journal.Memory
	snapshots *checkpoint.Memory
}

func (m memoryStore) PutSnapshot(ctx context.Context, snap storage.Snapshot) error {
	return m.snapshots.PutSnapshot(ctx, snap)
}

func (m memoryStore) LatestSnapshot(ctx context.Context, lineageID string, atOrBefore uint64) (storage.Snapshot, error) {
	return m.snapshots.LatestSnapshot(ctx, lineageID, atOrBefore)
}

func openStore(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store {
	case StoreMemory, "":
		return memoryStore{Memory: journal.NewMemory(), snapshots: checkpoint.NewMemory()}, nil
	case StoreSQLite:
		if err := ensureDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		store, err := storagesqlite.Open(ctx, cfg.SQLitePath, storagesqlite.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case StoreBadger:
		bcfg := storagebadger.DefaultConfig(cfg.BadgerPath)
		bcfg.Logger = logger
		store, err := storagebadger.Open(bcfg)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return store, nil
	default:
		return nil, errors.New("unknown store backend " + cfg.Store)
	}
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	return nil
}

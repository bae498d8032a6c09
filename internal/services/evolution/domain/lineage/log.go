package lineage

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/checkpoint"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/integrity"
)

const (
	defaultPageSize      = 200
	defaultVerifyWorkers = 4
)

var tracer = otel.Tracer("evolving.space/lineage")

// Metrics observes log operations. The default discards everything.
type Metrics interface {
	AppendObserved(kind string, elapsed time.Duration, err error)
	VerifyObserved(valid bool, elapsed time.Duration)
	ReconstructObserved(replayed int, err error)
}

type noopMetrics struct{}

func (noopMetrics) AppendObserved(string, time.Duration, error) {}
func (noopMetrics) VerifyObserved(bool, time.Duration)          {}
func (noopMetrics) ReconstructObserved(int, error)              {}

// Log is the Evolution Log over one event store. It is safe for concurrent
// use.
type Log struct {
	events           storage.EventStore
	snapshots        storage.SnapshotStore
	snapshotInterval uint64
	keyring          *integrity.Keyring
	engine           *genome.Engine
	logger           *slog.Logger
	metrics          Metrics
	pageSize         int
	verifyWorkers    int

	locks    *keyedMutex
	rebuilds singleflight.Group
}

// Option configures a Log.
type Option func(*Log)

// WithSnapshots caches a full genome every interval events of a lineage,
// and at every breeding event. An interval of zero disables snapshots.
func WithSnapshots(store storage.SnapshotStore, interval uint64) Option {
	return func(l *Log) {
		if store != nil {
			l.snapshots = store
			l.snapshotInterval = interval
		}
	}
}

// WithEngine sets the genome engine used to validate appended genomes.
func WithEngine(engine *genome.Engine) Option {
	return func(l *Log) {
		if engine != nil {
			l.engine = engine
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(l *Log) {
		if metrics != nil {
			l.metrics = metrics
		}
	}
}

// WithPageSize sets how many records History and verification read at once.
func WithPageSize(size int) Option {
	return func(l *Log) {
		if size > 0 {
			l.pageSize = size
		}
	}
}

// WithVerifyWorkers bounds how many lineages VerifyAll checks in parallel.
func WithVerifyWorkers(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.verifyWorkers = n
		}
	}
}

// New builds a Log over events, sealing with keyring.
func New(events storage.EventStore, keyring *integrity.Keyring, opts ...Option) (*Log, error) {
	if events == nil {
		return nil, errors.New("event store is required")
	}
	if keyring == nil {
		return nil, integrity.ErrKeyringRequired
	}
	l := &Log{
		events:        events,
		snapshots:     checkpoint.NewNoop(),
		keyring:       keyring,
		engine:        genome.NewEngine(nil),
		logger:        slog.Default(),
		metrics:       noopMetrics{},
		pageSize:      defaultPageSize,
		verifyWorkers: defaultVerifyWorkers,
		locks:         newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Engine returns the genome engine the log validates with.
func (l *Log) Engine() *genome.Engine {
	return l.engine
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

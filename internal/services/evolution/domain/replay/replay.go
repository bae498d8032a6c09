// Package replay walks one lineage's records forward in sequence order and
// folds them into caller-defined state, failing on any sequence gap.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrApplierRequired indicates a missing applier.
	ErrApplierRequired = errors.New("applier is required")
	// ErrLineageIDRequired indicates a missing lineage id.
	ErrLineageIDRequired = errors.New("lineage id is required")
)

// GapError reports a record that did not follow its predecessor.
type GapError struct {
	LineageID string
	Expected  uint64
	Got       uint64
}

func (e *GapError) Error() string {
	return fmt.Sprintf("lineage %s sequence gap: expected %d got %d", e.LineageID, e.Expected, e.Got)
}

// EventStore lists records for replay.
type EventStore interface {
	ListRecords(ctx context.Context, lineageID string, afterSeq uint64, limit int) ([]event.Record, error)
}

// Applier folds one record into replay state.
type Applier[S any] interface {
	Apply(state S, rec event.Record) (S, error)
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc[S any] func(state S, rec event.Record) (S, error)

// Apply calls f.
func (f ApplierFunc[S]) Apply(state S, rec event.Record) (S, error) {
	return f(state, rec)
}

// Options configures replay behavior.
type Options struct {
	// AfterSeq skips records up to and including this sequence.
	AfterSeq uint64
	// UntilSeq stops after this sequence. Zero replays to the head.
	UntilSeq uint64
	PageSize int
}

// Result captures replay outcomes.
type Result[S any] struct {
	State   S
	LastSeq uint64
	Applied int
}

// Replay applies the lineage's records after options.AfterSeq in order.
func Replay[S any](ctx context.Context, store EventStore, applier Applier[S], lineageID string, state S, options Options) (Result[S], error) {
	if store == nil {
		return Result[S]{}, ErrEventStoreRequired
	}
	if applier == nil {
		return Result[S]{}, ErrApplierRequired
	}
	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return Result[S]{}, ErrLineageIDRequired
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result[S]{State: state, LastSeq: options.AfterSeq}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if options.UntilSeq > 0 && result.LastSeq >= options.UntilSeq {
			return result, nil
		}
		records, err := store.ListRecords(ctx, lineageID, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(records) == 0 {
			return result, nil
		}
		for _, rec := range records {
			if options.UntilSeq > 0 && rec.Seq > options.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if rec.Seq != expectedSeq {
				return result, &GapError{LineageID: lineageID, Expected: expectedSeq, Got: rec.Seq}
			}
			next, err := applier.Apply(result.State, rec)
			if err != nil {
				return result, err
			}
			result.State = next
			result.LastSeq = rec.Seq
			result.Applied++
		}
	}
}

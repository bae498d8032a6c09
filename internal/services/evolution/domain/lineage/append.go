package lineage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// AppendRequest describes the next event of a lineage.
//
// Genome is the full genome the event produces. Genesis events store it
// whole; every other kind stores a diff against the first parent's genome.
// For mutation and outcome events Parents may be left empty: the
// lineage's current head is used.
type AppendRequest struct {
	LineageID string
	Kind      event.Kind
	Parents   []event.ParentRef
	Inputs    event.Inputs
	Genome    genome.Genome
}

// Append verifies the event's parents and the lineage's previous event,
// then links, seals and stores the new event at the next sequence.
//
// Appends to one lineage are serialized. Parent signatures left empty are
// filled from the store; a pinned signature that does not match the stored
// one fails with ErrIntegrity.
func (l *Log) Append(ctx context.Context, req AppendRequest) (evt event.Event, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "lineage.Append", trace.WithAttributes(
		attribute.String("lineage.id", req.LineageID),
		attribute.String("lineage.kind", string(req.Kind)),
	))
	defer func() {
		l.metrics.AppendObserved(string(req.Kind), time.Since(start), err)
		endSpan(span, err)
	}()

	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	lineageID := strings.TrimSpace(req.LineageID)
	if lineageID == "" {
		return event.Event{}, ErrLineageIDRequired
	}
	if !req.Kind.Valid() {
		return event.Event{}, invalidEvent("unknown event kind %q", req.Kind)
	}

	unlock := l.locks.lock(lineageID)
	defer unlock()

	head, err := l.events.LatestSeq(ctx, lineageID)
	if err != nil {
		return event.Event{}, storageErr("load lineage head", err)
	}
	seq := head + 1
	opens := req.Kind == event.KindGenesis || req.Kind == event.KindBreeding
	if opens && head > 0 {
		return event.Event{}, invalidEvent("%s cannot extend lineage %s at seq %d", req.Kind, lineageID, seq)
	}
	if !opens && head == 0 {
		return event.Event{}, invalidEvent("%s cannot open lineage %s", req.Kind, lineageID)
	}

	parents := slices.Clone(req.Parents)
	prevSignature := ""
	if head > 0 {
		prev, err := l.trustedEvent(ctx, lineageID, lineageID, head)
		if err != nil {
			return event.Event{}, err
		}
		prevSignature = prev.Signature
		if len(parents) == 0 {
			parents = []event.ParentRef{prev.Ref()}
		}
	}
	if want := req.Kind.ParentCount(); len(parents) != want {
		return event.Event{}, invalidEvent("%s needs %d parents, got %d", req.Kind, want, len(parents))
	}
	for i, parent := range parents {
		parentID := strings.TrimSpace(parent.LineageID)
		if parentID == "" || parent.Seq == 0 {
			return event.Event{}, integrityErr(lineageID, fmt.Errorf("parent %d is not a recorded event", i))
		}
		if !opens && (parentID != lineageID || parent.Seq != head) {
			return event.Event{}, invalidEvent("%s must follow the lineage head %s#%d", req.Kind, lineageID, head)
		}
		stored, err := l.trustedEvent(ctx, lineageID, parentID, parent.Seq)
		if err != nil {
			return event.Event{}, err
		}
		if parent.Signature != "" && parent.Signature != stored.Signature {
			return event.Event{}, integrityErr(lineageID, fmt.Errorf("parent %s#%d signature does not match the stored event", parentID, parent.Seq))
		}
		parents[i] = stored.Ref()
	}

	if result := l.engine.Validate(req.Genome); !result.Valid() {
		return event.Event{}, apperrors.WithMetadata(
			apperrors.CodeGenomeInvalid,
			"genome violates its schema: "+result.String(),
			map[string]string{"Violations": result.String()},
		)
	}

	content := event.Content{
		Kind:           req.Kind,
		SchemaVersion:  req.Genome.SchemaVersion,
		Parents:        parents,
		Inputs:         req.Inputs,
		GenomeChecksum: req.Genome.Checksum,
	}
	if req.Kind == event.KindGenesis {
		g := req.Genome.Clone()
		content.Genome = &g
	} else {
		base, _, err := l.rebuild(ctx, parents[0].LineageID, parents[0].Seq)
		if err != nil {
			var chain *BrokenChainError
			if errors.As(err, &chain) {
				return event.Event{}, integrityErr(lineageID, chain)
			}
			return event.Event{}, err
		}
		diff, err := genome.Diff(base, req.Genome)
		if err != nil {
			return event.Event{}, err
		}
		content.Diff = &diff
	}

	evt = event.Event{LineageID: lineageID, Seq: seq, Content: content}
	if err := event.ValidateShape(evt); err != nil {
		return event.Event{}, err
	}
	evt, err = event.Link(evt, prevSignature)
	if err != nil {
		return event.Event{}, fmt.Errorf("link event: %w", err)
	}
	evt.Seal, evt.SealKeyID, err = l.keyring.Seal(lineageID, evt.Signature)
	if err != nil {
		return event.Event{}, fmt.Errorf("seal event: %w", err)
	}
	rec, err := event.ToRecord(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("encode event: %w", err)
	}
	if err := l.events.AppendRecord(ctx, rec); err != nil {
		return event.Event{}, storageErr("append event", err)
	}

	if l.shouldSnapshot(evt) {
		snap := storage.Snapshot{LineageID: lineageID, Seq: seq, Genome: req.Genome.Clone()}
		if err := l.snapshots.PutSnapshot(ctx, snap); err != nil {
			l.logger.WarnContext(ctx, "lineage snapshot failed", "lineage_id", lineageID, "seq", seq, "error", err)
		}
	}
	l.logger.DebugContext(ctx, "lineage event appended",
		"lineage_id", lineageID,
		"seq", seq,
		"kind", string(req.Kind),
		"signature", evt.Signature,
	)
	return evt, nil
}

// shouldSnapshot snapshots every interval events and at every breeding,
// so rebuilding a descendant never has to recurse into its parents.
func (l *Log) shouldSnapshot(evt event.Event) bool {
	if l.snapshotInterval == 0 {
		return false
	}
	return evt.Seq%l.snapshotInterval == 0 || evt.Kind == event.KindBreeding
}

// trustedEvent loads and verifies the event at lineageID#seq on behalf of
// an append to target.
func (l *Log) trustedEvent(ctx context.Context, target, lineageID string, seq uint64) (event.Event, error) {
	evt, chain, err := l.verifyOne(ctx, lineageID, seq)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return event.Event{}, integrityErr(target, fmt.Errorf("event %s#%d is not recorded", lineageID, seq))
		}
		return event.Event{}, err
	}
	if chain != nil {
		return event.Event{}, integrityErr(target, chain)
	}
	return evt, nil
}

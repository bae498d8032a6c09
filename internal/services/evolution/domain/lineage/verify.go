package lineage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/replay"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// Report is the outcome of verifying a lineage and its ancestry.
type Report struct {
	LineageID string `json:"lineage_id" yaml:"lineage_id"`
	// Head is the last sequence covered by the check.
	Head uint64 `json:"head" yaml:"head"`
	// Checked counts verified events across every lineage in the closure.
	Checked int               `json:"checked" yaml:"checked"`
	Valid   bool              `json:"valid" yaml:"valid"`
	Broken  *BrokenChainError `json:"broken,omitempty" yaml:"broken,omitempty"`
}

// Verify reports whether lineageID and every ancestor it depends on pass
// verification.
func (l *Log) Verify(ctx context.Context, lineageID string) (bool, error) {
	report, err := l.Inspect(ctx, lineageID)
	if err != nil {
		return false, err
	}
	return report.Valid, nil
}

// Inspect verifies lineageID up to its head and returns the first break
// found. Storage failures are returned as errors; tampering is not.
func (l *Log) Inspect(ctx context.Context, lineageID string) (Report, error) {
	return l.inspectAt(ctx, lineageID, 0)
}

// VerifyEvent verifies the closure of one event: the lineage up to seq and
// every ancestor it was derived from.
func (l *Log) VerifyEvent(ctx context.Context, ref event.ParentRef) (Report, error) {
	if ref.Seq == 0 {
		return Report{}, invalidEvent("sequence must start at 1")
	}
	report, err := l.inspectAt(ctx, ref.LineageID, ref.Seq)
	if err != nil || !report.Valid || ref.Signature == "" {
		return report, err
	}
	rec, err := l.events.GetRecord(ctx, report.LineageID, ref.Seq)
	if err != nil {
		return Report{}, storageErr("load event", err)
	}
	if rec.Signature != ref.Signature {
		report.Valid = false
		report.Broken = broken(report.LineageID, ref.Seq, nil, "signature does not match the pinned reference")
	}
	return report, nil
}

func (l *Log) inspectAt(ctx context.Context, lineageID string, seq uint64) (report Report, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "lineage.Verify", trace.WithAttributes(attribute.String("lineage.id", lineageID)))
	defer func() {
		if err == nil {
			l.metrics.VerifyObserved(report.Valid, time.Since(start))
			span.SetAttributes(attribute.Bool("lineage.valid", report.Valid), attribute.Int("lineage.checked", report.Checked))
		}
		endSpan(span, err)
	}()

	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return Report{}, ErrLineageIDRequired
	}
	head, err := l.events.LatestSeq(ctx, lineageID)
	if err != nil {
		return Report{}, storageErr("load lineage head", err)
	}
	if head == 0 || seq > head {
		return Report{}, storage.ErrNotFound
	}
	if seq == 0 {
		seq = head
	}

	v := newVerifier(l)
	chain, err := v.run(ctx, lineageID, seq)
	if err != nil {
		return Report{}, err
	}
	report = Report{LineageID: lineageID, Head: seq, Checked: v.checked, Valid: chain == nil, Broken: chain}
	if chain != nil {
		l.logger.WarnContext(ctx, "lineage verification failed",
			"lineage_id", lineageID,
			"broken_lineage_id", chain.LineageID,
			"broken_seq", chain.Seq,
			"reason", chain.Reason,
		)
	}
	return report, nil
}

// VerifyAll inspects every stored lineage, a bounded number at a time.
// Reports are ordered by lineage id.
func (l *Log) VerifyAll(ctx context.Context) ([]Report, error) {
	ids, err := l.events.ListLineages(ctx)
	if err != nil {
		return nil, storageErr("list lineages", err)
	}
	slices.Sort(ids)

	reports := make([]Report, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.verifyWorkers)
	for i, id := range ids {
		group.Go(func() error {
			report, err := l.Inspect(groupCtx, id)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// verifier walks an ancestry closure once per lineage prefix.
type verifier struct {
	log     *Log
	done    map[string]verifiedPrefix
	checked int
}

// verifiedPrefix is the verified part of one lineage.
type verifiedPrefix struct {
	seq       uint64
	signature string
}

type walkState struct {
	prevSignature string
	pending       []event.ParentRef
}

type target struct {
	lineageID string
	seq       uint64
}

func newVerifier(l *Log) *verifier {
	return &verifier{log: l, done: make(map[string]verifiedPrefix)}
}

// run verifies lineageID up to seq and every lineage it descends from.
// It returns the first break found.
func (v *verifier) run(ctx context.Context, lineageID string, seq uint64) (*BrokenChainError, error) {
	stack := []target{{lineageID: lineageID, seq: seq}}
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		prefix := v.done[next.lineageID]
		if prefix.seq >= next.seq {
			continue
		}
		pending, chain, err := v.walk(ctx, next.lineageID, prefix, next.seq)
		if err != nil || chain != nil {
			return chain, err
		}
		for _, parent := range pending {
			stack = append(stack, target{lineageID: parent.LineageID, seq: parent.Seq})
		}
	}
	return nil, nil
}

// walk verifies records (prefix.seq, until] of one lineage and returns the
// cross-lineage parents they reference.
func (v *verifier) walk(ctx context.Context, lineageID string, prefix verifiedPrefix, until uint64) ([]event.ParentRef, *BrokenChainError, error) {
	var chain *BrokenChainError
	applier := replay.ApplierFunc[walkState](func(state walkState, rec event.Record) (walkState, error) {
		evt, reason, cause := v.log.checkRecord(rec, state.prevSignature)
		if reason != "" {
			chain = broken(lineageID, rec.Seq, cause, "%s", reason)
			return state, chain
		}
		for _, parent := range evt.Parents {
			if parent.LineageID == lineageID {
				if parent.Seq != rec.Seq-1 || parent.Signature != state.prevSignature {
					chain = broken(lineageID, rec.Seq, nil, "parent does not reference the previous event")
					return state, chain
				}
				continue
			}
			stored, err := v.log.events.GetRecord(ctx, parent.LineageID, parent.Seq)
			if errors.Is(err, storage.ErrNotFound) {
				chain = broken(lineageID, rec.Seq, nil, "parent %s#%d is not recorded", parent.LineageID, parent.Seq)
				return state, chain
			}
			if err != nil {
				return state, storageErr("load parent", err)
			}
			if stored.Signature != parent.Signature {
				chain = broken(lineageID, rec.Seq, nil, "parent %s#%d signature does not match", parent.LineageID, parent.Seq)
				return state, chain
			}
			state.pending = append(state.pending, parent)
		}
		state.prevSignature = rec.Signature
		v.checked++
		return state, nil
	})

	result, err := replay.Replay(ctx, v.log.events, applier, lineageID, walkState{prevSignature: prefix.signature}, replay.Options{
		AfterSeq: prefix.seq,
		UntilSeq: until,
		PageSize: v.log.pageSize,
	})
	if chain != nil {
		return nil, chain, nil
	}
	var gap *replay.GapError
	if errors.As(err, &gap) {
		return nil, broken(lineageID, gap.Expected, err, "event is missing"), nil
	}
	if err != nil {
		return nil, nil, storageErr("replay lineage", err)
	}
	if result.LastSeq < until {
		return nil, broken(lineageID, result.LastSeq+1, nil, "event is missing"), nil
	}
	v.done[lineageID] = verifiedPrefix{seq: result.LastSeq, signature: result.State.prevSignature}
	return result.State.pending, nil, nil
}

// verifyOne checks a single event against its stored predecessor and
// parents without walking the rest of the lineage.
func (l *Log) verifyOne(ctx context.Context, lineageID string, seq uint64) (event.Event, *BrokenChainError, error) {
	rec, err := l.events.GetRecord(ctx, lineageID, seq)
	if err != nil {
		return event.Event{}, nil, storageErr("load event", err)
	}
	prevSignature := ""
	if seq > 1 {
		prev, err := l.events.GetRecord(ctx, lineageID, seq-1)
		if errors.Is(err, storage.ErrNotFound) {
			return event.Event{}, broken(lineageID, seq-1, nil, "event is missing"), nil
		}
		if err != nil {
			return event.Event{}, nil, storageErr("load previous event", err)
		}
		prevSignature = prev.Signature
	}
	evt, reason, cause := l.checkRecord(rec, prevSignature)
	if reason != "" {
		return event.Event{}, broken(lineageID, seq, cause, "%s", reason), nil
	}
	for _, parent := range evt.Parents {
		stored, err := l.events.GetRecord(ctx, parent.LineageID, parent.Seq)
		if errors.Is(err, storage.ErrNotFound) {
			return event.Event{}, broken(lineageID, seq, nil, "parent %s#%d is not recorded", parent.LineageID, parent.Seq), nil
		}
		if err != nil {
			return event.Event{}, nil, storageErr("load parent", err)
		}
		if stored.Signature != parent.Signature {
			return event.Event{}, broken(lineageID, seq, nil, "parent %s#%d signature does not match", parent.LineageID, parent.Seq), nil
		}
	}
	return evt, nil, nil
}

// checkRecord verifies one record in isolation given its predecessor's
// signature. A non-empty reason means the record is broken.
func (l *Log) checkRecord(rec event.Record, prevSignature string) (event.Event, string, error) {
	evt, err := event.FromRecord(rec)
	if errors.Is(err, event.ErrNonCanonical) {
		return event.Event{}, "content is not canonical", err
	}
	if err != nil {
		return event.Event{}, "content does not decode", err
	}
	if err := event.ValidateShape(evt); err != nil {
		return event.Event{}, "event shape is invalid", err
	}
	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, "content does not encode", err
	}
	if hash != rec.Hash {
		return event.Event{}, "content hash mismatch", nil
	}
	if rec.PrevSignature != prevSignature {
		return event.Event{}, "previous signature mismatch", nil
	}
	if event.Sign(hash, prevSignature, evt.Parents) != rec.Signature {
		return event.Event{}, "signature mismatch", nil
	}
	if err := l.keyring.VerifySeal(rec.LineageID, rec.Signature, rec.Seal, rec.SealKeyID); err != nil {
		return event.Event{}, "seal does not verify", err
	}
	return evt, "", nil
}

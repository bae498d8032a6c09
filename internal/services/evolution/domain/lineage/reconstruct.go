package lineage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/replay"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// Reconstruct rebuilds the genome at the head of lineageID.
func (l *Log) Reconstruct(ctx context.Context, lineageID string) (genome.Genome, error) {
	return l.ReconstructAt(ctx, lineageID, 0)
}

// ReconstructAt verifies the closure of lineageID#seq and rebuilds the
// genome recorded there. Seq zero means the head. Concurrent calls for the
// same event share one rebuild.
func (l *Log) ReconstructAt(ctx context.Context, lineageID string, seq uint64) (g genome.Genome, err error) {
	ctx, span := tracer.Start(ctx, "lineage.Reconstruct", trace.WithAttributes(attribute.String("lineage.id", lineageID)))
	defer func() { endSpan(span, err) }()

	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return genome.Genome{}, ErrLineageIDRequired
	}
	head, err := l.events.LatestSeq(ctx, lineageID)
	if err != nil {
		return genome.Genome{}, storageErr("load lineage head", err)
	}
	if head == 0 || seq > head {
		return genome.Genome{}, storage.ErrNotFound
	}
	if seq == 0 {
		seq = head
	}
	span.SetAttributes(attribute.Int64("lineage.seq", int64(seq)))

	key := fmt.Sprintf("%s@%d", lineageID, seq)
	// The shared rebuild must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	results := l.rebuilds.DoChan(key, func() (any, error) {
		v := newVerifier(l)
		chain, err := v.run(shared, lineageID, seq)
		if err != nil {
			return nil, err
		}
		if chain != nil {
			return nil, chain
		}
		rebuilt, replayed, err := l.rebuild(shared, lineageID, seq)
		l.metrics.ReconstructObserved(replayed, err)
		if err != nil {
			return nil, err
		}
		return rebuilt, nil
	})
	var value any
	select {
	case <-ctx.Done():
		return genome.Genome{}, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return genome.Genome{}, res.Err
		}
		value = res.Val
	}
	return value.(genome.Genome).Clone(), nil
}

// rebuild derives the genome at lineageID#seq from the nearest trusted
// snapshot, or from the lineage's first event, and reports how many events
// it applied. It checks every intermediate genome against its recorded
// checksum but does not verify signatures.
func (l *Log) rebuild(ctx context.Context, lineageID string, seq uint64) (genome.Genome, int, error) {
	state, start, err := l.trustedSnapshot(ctx, lineageID, seq)
	if err != nil {
		return genome.Genome{}, 0, err
	}
	replayed := 0
	if start == 0 {
		rec, err := l.events.GetRecord(ctx, lineageID, 1)
		if errors.Is(err, storage.ErrNotFound) {
			return genome.Genome{}, 0, broken(lineageID, 1, nil, "event is missing")
		}
		if err != nil {
			return genome.Genome{}, 0, storageErr("load first event", err)
		}
		evt, err := event.FromRecord(rec)
		if err != nil {
			return genome.Genome{}, 0, broken(lineageID, 1, err, "content does not decode")
		}
		var first genome.Genome
		switch {
		case evt.Kind == event.KindGenesis && evt.Genome != nil:
			first = evt.Genome.Clone()
		case evt.Kind == event.KindBreeding && evt.Diff != nil && len(evt.Parents) > 0:
			parent := evt.Parents[0]
			base, n, err := l.rebuild(ctx, parent.LineageID, parent.Seq)
			replayed += n
			if err != nil {
				return genome.Genome{}, replayed, err
			}
			first, err = genome.ApplyDiff(base, *evt.Diff)
			if err != nil {
				return genome.Genome{}, replayed, broken(lineageID, 1, err, "diff does not apply to its parent")
			}
		default:
			return genome.Genome{}, replayed, broken(lineageID, 1, nil, "%s cannot open a lineage", evt.Kind)
		}
		if !first.ChecksumValid() || first.Checksum != evt.GenomeChecksum {
			return genome.Genome{}, replayed, broken(lineageID, 1, nil, "genome checksum mismatch")
		}
		state, start = first, 1
		replayed++
	}
	if seq == start {
		return state, replayed, nil
	}

	var chain *BrokenChainError
	applier := replay.ApplierFunc[genome.Genome](func(current genome.Genome, rec event.Record) (genome.Genome, error) {
		evt, err := event.FromRecord(rec)
		if err != nil {
			chain = broken(lineageID, rec.Seq, err, "content does not decode")
			return current, chain
		}
		if evt.Diff == nil {
			chain = broken(lineageID, rec.Seq, nil, "%s carries no diff", evt.Kind)
			return current, chain
		}
		next, err := genome.ApplyDiff(current, *evt.Diff)
		if err != nil {
			chain = broken(lineageID, rec.Seq, err, "diff does not apply to its parent")
			return current, chain
		}
		if !next.ChecksumValid() || next.Checksum != evt.GenomeChecksum {
			chain = broken(lineageID, rec.Seq, nil, "genome checksum mismatch")
			return current, chain
		}
		return next, nil
	})
	result, err := replay.Replay(ctx, l.events, applier, lineageID, state, replay.Options{
		AfterSeq: start,
		UntilSeq: seq,
		PageSize: l.pageSize,
	})
	replayed += result.Applied
	if chain != nil {
		return genome.Genome{}, replayed, chain
	}
	var gap *replay.GapError
	if errors.As(err, &gap) {
		return genome.Genome{}, replayed, broken(lineageID, gap.Expected, err, "event is missing")
	}
	if err != nil {
		return genome.Genome{}, replayed, storageErr("replay lineage", err)
	}
	if result.LastSeq != seq {
		return genome.Genome{}, replayed, broken(lineageID, result.LastSeq+1, nil, "event is missing")
	}
	return result.State, replayed, nil
}

// trustedSnapshot returns the latest snapshot at or before seq whose genome
// matches the checksum recorded in its event. Start is zero when none is
// usable.
func (l *Log) trustedSnapshot(ctx context.Context, lineageID string, seq uint64) (genome.Genome, uint64, error) {
	snap, err := l.snapshots.LatestSnapshot(ctx, lineageID, seq)
	if errors.Is(err, storage.ErrNotFound) {
		return genome.Genome{}, 0, nil
	}
	if err != nil {
		return genome.Genome{}, 0, storageErr("load snapshot", err)
	}
	rec, err := l.events.GetRecord(ctx, lineageID, snap.Seq)
	if errors.Is(err, storage.ErrNotFound) {
		return genome.Genome{}, 0, nil
	}
	if err != nil {
		return genome.Genome{}, 0, storageErr("load snapshot event", err)
	}
	evt, err := event.FromRecord(rec)
	if err != nil || !snap.Genome.ChecksumValid() || snap.Genome.Checksum != evt.GenomeChecksum {
		l.logger.WarnContext(ctx, "ignoring untrusted lineage snapshot", "lineage_id", lineageID, "seq", snap.Seq)
		return genome.Genome{}, 0, nil
	}
	return snap.Genome.Clone(), snap.Seq, nil
}

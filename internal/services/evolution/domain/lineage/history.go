package lineage

import (
	"context"
	"iter"
	"strings"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// History yields the events of lineageID in sequence order, one page at a
// time. Each range over the result reads the store afresh. A missing or
// undecodable event ends iteration with a *BrokenChainError.
func (l *Log) History(ctx context.Context, lineageID string) iter.Seq2[event.Event, error] {
	lineageID = strings.TrimSpace(lineageID)
	return func(yield func(event.Event, error) bool) {
		if lineageID == "" {
			yield(event.Event{}, ErrLineageIDRequired)
			return
		}
		var after uint64
		for {
			records, err := l.events.ListRecords(ctx, lineageID, after, l.pageSize)
			if err != nil {
				yield(event.Event{}, storageErr("list events", err))
				return
			}
			if len(records) == 0 {
				return
			}
			for _, rec := range records {
				if rec.Seq != after+1 {
					yield(event.Event{}, broken(lineageID, after+1, nil, "event is missing"))
					return
				}
				evt, err := event.FromRecord(rec)
				if err != nil {
					yield(event.Event{}, broken(lineageID, rec.Seq, err, "content does not decode"))
					return
				}
				if !yield(evt, nil) {
					return
				}
				after = rec.Seq
			}
		}
	}
}

// ListEvents returns up to limit events of lineageID after afterSeq.
func (l *Log) ListEvents(ctx context.Context, lineageID string, afterSeq uint64, limit int) ([]event.Event, error) {
	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return nil, ErrLineageIDRequired
	}
	if limit <= 0 {
		limit = l.pageSize
	}
	records, err := l.events.ListRecords(ctx, lineageID, afterSeq, limit)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	events := make([]event.Event, 0, len(records))
	for _, rec := range records {
		evt, err := event.FromRecord(rec)
		if err != nil {
			return nil, broken(lineageID, rec.Seq, err, "content does not decode")
		}
		events = append(events, evt)
	}
	return events, nil
}

// Event returns the stored event at lineageID#seq without verifying it.
func (l *Log) Event(ctx context.Context, lineageID string, seq uint64) (event.Event, error) {
	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return event.Event{}, ErrLineageIDRequired
	}
	rec, err := l.events.GetRecord(ctx, lineageID, seq)
	if err != nil {
		return event.Event{}, storageErr("load event", err)
	}
	evt, err := event.FromRecord(rec)
	if err != nil {
		return event.Event{}, broken(lineageID, seq, err, "content does not decode")
	}
	return evt, nil
}

// Head returns the latest event of lineageID, or storage.ErrNotFound.
func (l *Log) Head(ctx context.Context, lineageID string) (event.Event, error) {
	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return event.Event{}, ErrLineageIDRequired
	}
	seq, err := l.events.LatestSeq(ctx, lineageID)
	if err != nil {
		return event.Event{}, storageErr("load lineage head", err)
	}
	if seq == 0 {
		return event.Event{}, storage.ErrNotFound
	}
	return l.Event(ctx, lineageID, seq)
}

// Lineages lists every stored lineage id.
func (l *Log) Lineages(ctx context.Context) ([]string, error) {
	ids, err := l.events.ListLineages(ctx)
	if err != nil {
		return nil, storageErr("list lineages", err)
	}
	return ids, nil
}

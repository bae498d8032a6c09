package event

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
)

func genesisEvent(t *testing.T) Event {
	t.Helper()
	g := genome.New(genome.SchemaV1, 0, []int64{0x228B22, 1, 700})
	evt, err := Link(Event{
		LineageID: "alpha",
		Seq:       1,
		Content: Content{
			Kind:           KindGenesis,
			SchemaVersion:  genome.SchemaV1,
			Inputs:         Inputs{Seed: "alpha-1"},
			Genome:         &g,
			GenomeChecksum: g.Checksum,
		},
	}, "")
	if err != nil {
		t.Fatalf("link genesis: %v", err)
	}
	return evt
}

func mutationEvent(t *testing.T, parent Event) Event {
	t.Helper()
	evt, err := Link(Event{
		LineageID: parent.LineageID,
		Seq:       parent.Seq + 1,
		Content: Content{
			Kind:          KindMutation,
			SchemaVersion: genome.SchemaV1,
			Parents:       []ParentRef{parent.Ref()},
			Inputs: Inputs{
				Seed:          "m-1",
				MutationRate:  100,
				MutationScale: 100,
				Outcome:       &arbiter.Outcome{Kind: arbiter.KindChance, Name: "mutation", Success: true, Roll: 12, Total: 12, Target: 500, Margin: 488, Winner: -1},
			},
			Diff:           &genome.CompactDiff{SchemaVersion: genome.SchemaV1, BaseChecksum: parent.GenomeChecksum, Generation: 1, Changes: []genome.Change{{Index: 2, Value: 710}}},
			GenomeChecksum: 42,
		},
	}, parent.Signature)
	if err != nil {
		t.Fatalf("link mutation: %v", err)
	}
	return evt
}

func TestRecordRoundTripKeepsIntegrity(t *testing.T) {
	genesis := genesisEvent(t)
	for _, evt := range []Event{genesis, mutationEvent(t, genesis)} {
		rec, err := ToRecord(evt)
		if err != nil {
			t.Fatalf("to record: %v", err)
		}
		decoded, err := FromRecord(rec)
		if err != nil {
			t.Fatalf("from record: %v", err)
		}
		if !reflect.DeepEqual(decoded, evt) {
			t.Fatalf("decoded = %+v, want %+v", decoded, evt)
		}
		hash, err := EventHash(decoded)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		if hash != evt.Hash {
			t.Fatalf("hash = %s, want %s", hash, evt.Hash)
		}

		again, err := ToRecord(decoded)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if string(again.Content) != string(rec.Content) {
			t.Fatal("expected canonical re-encoding to be byte-identical")
		}
	}
}

func TestEventHashCoversEnvelope(t *testing.T) {
	base := genesisEvent(t)
	mutate := []struct {
		name  string
		apply func(*Event)
	}{
		{name: "lineage", apply: func(e *Event) { e.LineageID = "beta" }},
		{name: "seq", apply: func(e *Event) { e.Seq = 2 }},
		{name: "seed", apply: func(e *Event) { e.Inputs.Seed = "alpha-2" }},
		{name: "checksum", apply: func(e *Event) { e.GenomeChecksum++ }},
		{name: "genome value", apply: func(e *Event) {
			g := e.Genome.Clone()
			g.Values[1] = 2
			e.Genome = &g
		}},
	}
	for _, tt := range mutate {
		t.Run(tt.name, func(t *testing.T) {
			evt := base
			tt.apply(&evt)
			hash, err := EventHash(evt)
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if hash == base.Hash {
				t.Fatal("expected hash to change")
			}
		})
	}
}

func TestSignChainsPredecessorAndParents(t *testing.T) {
	a := ParentRef{LineageID: "a", Seq: 1, Signature: "sig-a"}
	b := ParentRef{LineageID: "b", Seq: 1, Signature: "sig-b"}

	base := Sign("hash", "", []ParentRef{a, b})
	if base != Sign("hash", "", []ParentRef{a, b}) {
		t.Fatal("expected signature to be deterministic")
	}
	if len(base) != 64 {
		t.Fatalf("signature length = %d, want 64", len(base))
	}
	others := map[string]string{
		"swapped parents": Sign("hash", "", []ParentRef{b, a}),
		"predecessor":     Sign("hash", "prev", []ParentRef{a, b}),
		"hash":            Sign("hash2", "", []ParentRef{a, b}),
		"field boundary":  Sign("has", "h", []ParentRef{a, b}),
		"no parents":      Sign("hash", "", nil),
	}
	for name, sig := range others {
		if sig == base {
			t.Fatalf("%s: expected a different signature", name)
		}
	}
}

func TestDecodeContentRejectsGarbage(t *testing.T) {
	if _, err := DecodeContent([]byte{0xff, 0x00}); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := FromRecord(Record{Content: []byte("not cbor")}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeCanonicalContentRejectsAlternateEncodings(t *testing.T) {
	data, err := EncodeContent(genesisEvent(t).Content)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeCanonicalContent(data); err != nil {
		t.Fatalf("decode canonical: %v", err)
	}
	if data[0]&0xe0 != 0xa0 || data[0]&0x1f >= 24 {
		t.Fatalf("expected a short map header, got %#x", data[0])
	}

	// Same map, length written in the one-byte form.
	longHeader := append([]byte{0xb8, data[0] & 0x1f}, data[1:]...)
	if _, err := DecodeContent(longHeader); err != nil {
		t.Fatalf("long header should still decode: %v", err)
	}
	if _, err := DecodeCanonicalContent(longHeader); !errors.Is(err, ErrNonCanonical) {
		t.Fatalf("error = %v, want %v", err, ErrNonCanonical)
	}

	var fields map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	fields[99] = cbor.RawMessage{0x01}
	extended, err := Marshal(fields)
	if err != nil {
		t.Fatalf("marshal extended: %v", err)
	}
	if _, err := DecodeContent(extended); err == nil {
		t.Fatal("expected unknown content key to be rejected")
	}
}

func TestValidateShape(t *testing.T) {
	genesis := genesisEvent(t)
	mutation := mutationEvent(t, genesis)
	diff := mutation.Diff

	tests := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{name: "genesis", evt: genesis},
		{name: "mutation", evt: mutation},
		{name: "breeding", evt: Event{LineageID: "c", Seq: 1, Content: Content{Kind: KindBreeding, Parents: []ParentRef{genesis.Ref(), mutation.Ref()}, Diff: diff}}},
		{name: "missing lineage", evt: Event{Seq: 1, Content: genesis.Content}, wantErr: true},
		{name: "zero seq", evt: Event{LineageID: "a", Content: genesis.Content}, wantErr: true},
		{name: "unknown kind", evt: Event{LineageID: "a", Seq: 1, Content: Content{Kind: "rebirth"}}, wantErr: true},
		{name: "late genesis", evt: Event{LineageID: "alpha", Seq: 3, Content: genesis.Content}, wantErr: true},
		{name: "mutation opening", evt: Event{LineageID: "b", Seq: 1, Content: mutation.Content}, wantErr: true},
		{name: "breeding one parent", evt: Event{LineageID: "c", Seq: 1, Content: Content{Kind: KindBreeding, Parents: []ParentRef{genesis.Ref()}, Diff: diff}}, wantErr: true},
		{name: "self parent", evt: Event{LineageID: "alpha", Seq: 2, Content: Content{Kind: KindOutcome, Parents: []ParentRef{{LineageID: "alpha", Seq: 2, Signature: "x"}}, Diff: diff}}, wantErr: true},
		{name: "genesis with diff", evt: Event{LineageID: "a", Seq: 1, Content: Content{Kind: KindGenesis, Genome: genesis.Genome, Diff: diff}}, wantErr: true},
		{name: "mutation without diff", evt: Event{LineageID: "alpha", Seq: 2, Content: Content{Kind: KindMutation, Parents: []ParentRef{genesis.Ref()}}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShape(tt.evt)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Fatalf("error = %v, want %v", err, ErrInvalidEvent)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestKindParentCount(t *testing.T) {
	tests := map[Kind]int{KindGenesis: 0, KindBreeding: 2, KindMutation: 1, KindOutcome: 1, "other": 0}
	for kind, want := range tests {
		if got := kind.ParentCount(); got != want {
			t.Fatalf("%s parents = %d, want %d", kind, got, want)
		}
	}
}

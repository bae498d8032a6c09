package event

import (
	"bytes"
	"errors"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const signatureDomain = "evolve/lineage/signature/v1"

// ErrNonCanonical reports stored content that decodes but is not the
// canonical encoding it was written as.
var ErrNonCanonical = errors.New("event content is not canonically encoded")

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("event: cbor encode mode: %v", err))
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		MaxArrayElements:  1 << 16,
		MaxMapPairs:       1 << 10,
		// Unknown keys would decode to the same Content as the original.
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("event: cbor decode mode: %v", err))
	}
	return mode
}

// Marshal encodes v as canonical CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes canonical CBOR into v, rejecting duplicate keys and
// indefinite lengths.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeContent returns the canonical encoding of c.
func EncodeContent(c Content) ([]byte, error) {
	data, err := Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode event content: %w", err)
	}
	return data, nil
}

// DecodeContent parses an encoded Content.
func DecodeContent(data []byte) (Content, error) {
	var c Content
	if err := Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("decode event content: %w", err)
	}
	return c, nil
}

// DecodeCanonicalContent parses data and requires it to be exactly the
// canonical encoding of the decoded Content. Any other byte sequence that
// happens to decode is rejected with ErrNonCanonical.
func DecodeCanonicalContent(data []byte) (Content, error) {
	c, err := DecodeContent(data)
	if err != nil {
		return Content{}, err
	}
	canonical, err := EncodeContent(c)
	if err != nil {
		return Content{}, err
	}
	if !bytes.Equal(canonical, data) {
		return Content{}, ErrNonCanonical
	}
	return c, nil
}

type envelope struct {
	LineageID string  `cbor:"1,keyasint"`
	Seq       uint64  `cbor:"2,keyasint"`
	Content   Content `cbor:"3,keyasint"`
}

// EventHash computes the content hash of evt.
func EventHash(evt Event) (string, error) {
	data, err := Marshal(envelope{LineageID: evt.LineageID, Seq: evt.Seq, Content: evt.Content})
	if err != nil {
		return "", fmt.Errorf("encode event envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Sign computes the GeneticSignature linking hash to the previous event in
// the lineage and to the event's parents. Parent order matters.
func Sign(hash, prevSignature string, parents []ParentRef) string {
	h := sha256.New()
	writeField(h, signatureDomain)
	writeField(h, hash)
	writeField(h, prevSignature)
	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(parents)))
	_, _ = h.Write(count[:])
	for _, parent := range parents {
		writeField(h, parent.Signature)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h interface{ Write([]byte) (int, error) }, value string) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(value)))
	_, _ = h.Write(size[:])
	_, _ = h.Write([]byte(value))
}

// Link fills evt's Hash, PrevSignature and Signature from its content.
// The HMAC seal is left to the caller's keyring.
func Link(evt Event, prevSignature string) (Event, error) {
	hash, err := EventHash(evt)
	if err != nil {
		return Event{}, err
	}
	evt.Hash = hash
	evt.PrevSignature = prevSignature
	evt.Signature = Sign(hash, prevSignature, evt.Parents)
	return evt, nil
}

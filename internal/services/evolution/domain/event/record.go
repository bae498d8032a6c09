package event

// Record is the persisted form of an Event. Content is canonical CBOR.
type Record struct {
	LineageID     string `cbor:"1,keyasint"`
	Seq           uint64 `cbor:"2,keyasint"`
	Content       []byte `cbor:"3,keyasint"`
	Hash          string `cbor:"4,keyasint"`
	PrevSignature string `cbor:"5,keyasint,omitempty"`
	Signature     string `cbor:"6,keyasint"`
	Seal          string `cbor:"7,keyasint"`
	SealKeyID     string `cbor:"8,keyasint"`
}

// ToRecord encodes evt for storage.
func ToRecord(evt Event) (Record, error) {
	content, err := EncodeContent(evt.Content)
	if err != nil {
		return Record{}, err
	}
	return Record{
		LineageID:     evt.LineageID,
		Seq:           evt.Seq,
		Content:       content,
		Hash:          evt.Hash,
		PrevSignature: evt.PrevSignature,
		Signature:     evt.Signature,
		Seal:          evt.Seal,
		SealKeyID:     evt.SealKeyID,
	}, nil
}

// FromRecord decodes a stored record. Content must be canonical; the hash,
// signature and seal are not checked here.
func FromRecord(rec Record) (Event, error) {
	content, err := DecodeCanonicalContent(rec.Content)
	if err != nil {
		return Event{}, err
	}
	return Event{
		LineageID:     rec.LineageID,
		Seq:           rec.Seq,
		Content:       content,
		Hash:          rec.Hash,
		PrevSignature: rec.PrevSignature,
		Signature:     rec.Signature,
		Seal:          rec.Seal,
		SealKeyID:     rec.SealKeyID,
	}, nil
}

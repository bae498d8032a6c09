package integrity

import (
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
)

// EventHash computes the content hash for a single lineage event.
//
// Delegates to the event package's canonical envelope builder so field
// ordering is defined in one place and cannot drift between layers.
func EventHash(evt event.Event) (string, error) {
	return event.EventHash(evt)
}

// Signature computes the GeneticSignature linking evt to its predecessor
// and parents.
func Signature(evt event.Event, prevSignature string) (string, error) {
	hash, err := event.EventHash(evt)
	if err != nil {
		return "", err
	}
	return event.Sign(hash, prevSignature, evt.Parents), nil
}

package app

import (
	"strings"

	"github.com/google/uuid"

	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
)

var lineageNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://evolving.space/lineage"))

// LineageID derives the id of the lineage an event of kind opens. Equal
// inputs give equal ids, so identical runs write identical logs.
func LineageID(kind event.Kind, s seed.Seed, parents ...event.ParentRef) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte(0)
	b.WriteString(string(s))
	for _, parent := range parents {
		b.WriteByte(0)
		b.WriteString(parent.Signature)
	}
	return uuid.NewSHA1(lineageNamespace, []byte(b.String())).String()
}

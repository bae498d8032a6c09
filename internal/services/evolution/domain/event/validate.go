package event

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
)

// ErrInvalidEvent indicates an event whose shape breaks lineage rules.
var ErrInvalidEvent = apperrors.New(apperrors.CodeLineageInvalidEvent, "lineage event is not allowed")

func invalidEvent(format string, args ...any) error {
	reason := fmt.Sprintf(format, args...)
	return apperrors.WithMetadata(apperrors.CodeLineageInvalidEvent, reason, map[string]string{"Reason": reason})
}

// ValidateShape checks the structural rules of evt at its sequence:
// genesis and breeding open a lineage, mutation and outcome extend it, and
// each kind carries its parent count and payload.
func ValidateShape(evt Event) error {
	if strings.TrimSpace(evt.LineageID) == "" {
		return invalidEvent("lineage id is required")
	}
	if evt.Seq == 0 {
		return invalidEvent("sequence must start at 1")
	}
	if !evt.Kind.Valid() {
		return invalidEvent("unknown event kind %q", evt.Kind)
	}
	opens := evt.Kind == KindGenesis || evt.Kind == KindBreeding
	if opens && evt.Seq != 1 {
		return invalidEvent("%s is only valid as the first event, got seq %d", evt.Kind, evt.Seq)
	}
	if !opens && evt.Seq == 1 {
		return invalidEvent("%s cannot open a lineage", evt.Kind)
	}
	if want := evt.Kind.ParentCount(); len(evt.Parents) != want {
		return invalidEvent("%s needs %d parents, got %d", evt.Kind, want, len(evt.Parents))
	}
	for i, parent := range evt.Parents {
		if strings.TrimSpace(parent.LineageID) == "" || parent.Seq == 0 {
			return invalidEvent("parent %d is not a recorded event", i)
		}
		if parent.LineageID == evt.LineageID && parent.Seq >= evt.Seq {
			return invalidEvent("parent %d must precede the event", i)
		}
	}
	if evt.Kind == KindGenesis {
		if evt.Genome == nil || evt.Diff != nil {
			return invalidEvent("genesis carries a full genome and no diff")
		}
	} else if evt.Diff == nil || evt.Genome != nil {
		return invalidEvent("%s carries a diff and no full genome", evt.Kind)
	}
	return nil
}

package evolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
)

// parseRef reads "lineage" or "lineage@seq". A missing seq means the head.
func parseRef(raw string) (event.ParentRef, error) {
	raw = strings.TrimSpace(raw)
	id, seqText, hasSeq := strings.Cut(raw, "@")
	if id == "" {
		return event.ParentRef{}, fmt.Errorf("lineage reference %q has no lineage id", raw)
	}
	ref := event.ParentRef{LineageID: id}
	if hasSeq {
		seq, err := strconv.ParseUint(seqText, 10, 64)
		if err != nil || seq == 0 {
			return event.ParentRef{}, fmt.Errorf("lineage reference %q has an invalid seq", raw)
		}
		ref.Seq = seq
	}
	return ref, nil
}

// parseDice reads a pool such as "2d6,1d20".
func parseDice(raw string) ([]arbiter.DiceSpec, error) {
	var specs []arbiter.DiceSpec
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		countText, sidesText, ok := strings.Cut(part, "d")
		if !ok {
			return nil, fmt.Errorf("dice %q must look like NdS", part)
		}
		count := 1
		if countText != "" {
			n, err := strconv.Atoi(countText)
			if err != nil {
				return nil, fmt.Errorf("dice %q has an invalid count", part)
			}
			count = n
		}
		sides, err := strconv.Atoi(sidesText)
		if err != nil {
			return nil, fmt.Errorf("dice %q has invalid sides", part)
		}
		specs = append(specs, arbiter.DiceSpec{Sides: sides, Count: count})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("dice pool is empty")
	}
	return specs, nil
}

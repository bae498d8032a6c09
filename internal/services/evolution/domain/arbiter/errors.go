package arbiter

import (
	"fmt"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
)

var (
	// ErrInvalidRuleContext indicates rule parameters outside their bounds.
	ErrInvalidRuleContext = apperrors.New(apperrors.CodeArbiterInvalidRuleContext, "rule context is invalid")

	// ErrMissingDice indicates a roll request had no dice specified.
	ErrMissingDice = apperrors.New(apperrors.CodeDiceMissing, "at least one die must be provided")

	// ErrInvalidDiceSpec indicates a die specification has invalid fields.
	ErrInvalidDiceSpec = apperrors.New(apperrors.CodeDiceInvalidSpec, "dice must have positive sides and count")
)

func invalidRule(field, format string, args ...any) error {
	return apperrors.WithMetadata(
		apperrors.CodeArbiterInvalidRuleContext,
		fmt.Sprintf(format, args...),
		map[string]string{"Field": field},
	)
}

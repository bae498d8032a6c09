package genome

import (
	"fmt"
	"strings"
)

// ViolationCode classifies a failed genome constraint.
type ViolationCode string

const (
	ViolationUnknownSchema ViolationCode = "unknown_schema"
	ViolationTraitCount    ViolationCode = "trait_count"
	ViolationOutOfDomain   ViolationCode = "out_of_domain"
	ViolationChecksum      ViolationCode = "checksum"
)

// Violation is one failed constraint. Trait is empty for genome-wide checks.
type Violation struct {
	Trait   string        `json:"trait,omitempty" yaml:"trait,omitempty"`
	Code    ViolationCode `json:"code" yaml:"code"`
	Message string        `json:"message" yaml:"message"`
}

// ValidationResult lists every violated constraint. Empty means valid.
type ValidationResult struct {
	Violations []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Valid reports whether no constraint was violated.
func (r ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// String joins the violation messages.
func (r ValidationResult) String() string {
	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		parts = append(parts, v.Message)
	}
	return strings.Join(parts, "; ")
}

// Validate checks g against its schema and recomputes its checksum. It
// never fails: malformed input is reported as violations.
func (e *Engine) Validate(g Genome) ValidationResult {
	var result ValidationResult
	add := func(trait string, code ViolationCode, format string, args ...any) {
		result.Violations = append(result.Violations, Violation{Trait: trait, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	schema, err := e.catalog.Schema(g.SchemaVersion)
	if err != nil {
		add("", ViolationUnknownSchema, "schema version %d is not supported", g.SchemaVersion)
	} else {
		if len(g.Values) != len(schema.Traits) {
			add("", ViolationTraitCount, "schema %d expects %d traits, genome has %d", schema.Version, len(schema.Traits), len(g.Values))
		}
		for i, trait := range schema.Traits {
			if i >= len(g.Values) {
				break
			}
			if !trait.Contains(g.Values[i]) {
				lo, hi := trait.Bounds()
				add(trait.Name, ViolationOutOfDomain, "%s = %d is outside [%d, %d]", trait.Name, g.Values[i], lo, hi)
			}
		}
	}
	if !g.ChecksumValid() {
		add("", ViolationChecksum, "checksum %016x does not match field values", g.Checksum)
	}
	return result
}

package genome

import (
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
)

var (
	// ErrUnknownSchema indicates an unknown or unsupported schema version.
	ErrUnknownSchema = apperrors.New(apperrors.CodeGenomeSchemaUnsupported, "genome schema version is not supported")
	// ErrSchemaMismatch indicates genomes that do not share one schema. It
	// matches ErrUnknownSchema under errors.Is since both are schema errors.
	ErrSchemaMismatch = apperrors.New(apperrors.CodeGenomeSchemaUnsupported, "genome schema versions do not match")
	// ErrDiffMismatch indicates a diff that was not taken against the given parent.
	ErrDiffMismatch = apperrors.New(apperrors.CodeGenomeDiffMismatch, "genome diff does not apply to parent")
)

func unknownSchema(version int) error {
	return apperrors.WithMetadata(
		apperrors.CodeGenomeSchemaUnsupported,
		fmt.Sprintf("genome schema version %d is not supported", version),
		map[string]string{"SchemaVersion": strconv.Itoa(version)},
	)
}

func schemaMismatch(format string, args ...any) error {
	return apperrors.WithMetadata(
		apperrors.CodeGenomeSchemaUnsupported,
		fmt.Sprintf(format, args...),
		map[string]string{"SchemaVersion": "mismatch"},
	)
}

func diffMismatch(format string, args ...any) error {
	return apperrors.New(apperrors.CodeGenomeDiffMismatch, fmt.Sprintf(format, args...))
}

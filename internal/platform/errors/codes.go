// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Genome errors
	CodeGenomeSchemaUnsupported Code = "GENOME_SCHEMA_UNSUPPORTED"
	CodeGenomeInvalid           Code = "GENOME_INVALID"
	CodeGenomeDiffMismatch      Code = "GENOME_DIFF_MISMATCH"

	// Arbiter errors
	CodeArbiterInvalidRuleContext Code = "ARBITER_INVALID_RULE_CONTEXT"

	// Lineage errors
	CodeLineageIDRequired   Code = "LINEAGE_ID_REQUIRED"
	CodeLineageInvalidEvent Code = "LINEAGE_INVALID_EVENT"
	CodeLineageIntegrity    Code = "LINEAGE_INTEGRITY"
	CodeLineageBrokenChain  Code = "LINEAGE_BROKEN_CHAIN"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeSequenceConflict Code = "SEQUENCE_CONFLICT"
	CodeStorageFailure   Code = "STORAGE_FAILURE"

	// Dice/mechanics errors
	CodeDiceMissing     Code = "DICE_MISSING"
	CodeDiceInvalidSpec Code = "DICE_INVALID_SPEC"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeGenomeSchemaUnsupported,
		CodeGenomeInvalid,
		CodeArbiterInvalidRuleContext,
		CodeLineageIDRequired,
		CodeLineageInvalidEvent,
		CodeDiceMissing,
		CodeDiceInvalidSpec:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeLineageIntegrity,
		CodeGenomeDiffMismatch:
		return codes.FailedPrecondition

	// DataLoss - stored history cannot be trusted
	case CodeLineageBrokenChain:
		return codes.DataLoss

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// Aborted - concurrent writer won the race
	case CodeSequenceConflict:
		return codes.Aborted

	case CodeStorageFailure:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

package lineage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

var (
	// ErrLineageIDRequired indicates a missing lineage id.
	ErrLineageIDRequired = apperrors.New(apperrors.CodeLineageIDRequired, "lineage id is required")
	// ErrIntegrity indicates an append whose parents or predecessor failed
	// verification.
	ErrIntegrity = apperrors.New(apperrors.CodeLineageIntegrity, "lineage history failed verification")
	// ErrBrokenChain matches every *BrokenChainError under errors.Is.
	ErrBrokenChain = apperrors.New(apperrors.CodeLineageBrokenChain, "lineage chain is broken")
	// ErrStorage indicates a backend failure.
	ErrStorage = apperrors.New(apperrors.CodeStorageFailure, "lineage store failed")
	// ErrInvalidGenome indicates an append whose genome violates its schema.
	ErrInvalidGenome = apperrors.New(apperrors.CodeGenomeInvalid, "genome violates its schema")
)

// BrokenChainError reports the earliest event of a lineage that could not
// be verified or rebuilt.
type BrokenChainError struct {
	LineageID string `json:"lineage_id" yaml:"lineage_id"`
	Seq       uint64 `json:"seq" yaml:"seq"`
	Reason    string `json:"reason" yaml:"reason"`
	Cause     error  `json:"-" yaml:"-"`
}

func (e *BrokenChainError) Error() string {
	msg := fmt.Sprintf("lineage %s broken at seq %d: %s", e.LineageID, e.Seq, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *BrokenChainError) Unwrap() error {
	return e.Cause
}

// Is matches ErrBrokenChain and any other error with its code.
func (e *BrokenChainError) Is(target error) bool {
	var appErr *apperrors.Error
	if errors.As(target, &appErr) {
		return appErr.Code == apperrors.CodeLineageBrokenChain
	}
	return false
}

// AppError converts e into a coded error carrying localisation metadata.
func (e *BrokenChainError) AppError() *apperrors.Error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeLineageBrokenChain,
		e.Error(),
		map[string]string{"LineageID": e.LineageID, "Seq": strconv.FormatUint(e.Seq, 10)},
		e.Cause,
	)
}

func broken(lineageID string, seq uint64, cause error, format string, args ...any) *BrokenChainError {
	return &BrokenChainError{LineageID: lineageID, Seq: seq, Reason: fmt.Sprintf(format, args...), Cause: cause}
}

func integrityErr(lineageID string, cause error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeLineageIntegrity,
		fmt.Sprintf("lineage %s cannot be extended: %v", lineageID, cause),
		map[string]string{"LineageID": lineageID},
		cause,
	)
}

func invalidEvent(format string, args ...any) error {
	reason := fmt.Sprintf(format, args...)
	return apperrors.WithMetadata(apperrors.CodeLineageInvalidEvent, reason, map[string]string{"Reason": reason})
}

// storageErr wraps backend failures as ErrStorage. Not-found, sequence
// conflicts and context errors keep their identity.
func storageErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStorage),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrSequenceConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperrors.Wrap(apperrors.CodeStorageFailure, fmt.Sprintf("%s: %v", op, err), err)
}

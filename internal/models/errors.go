package models

import "fmt"

// ErrorType identifies the pipeline stage category of an error.
type ErrorType string

const (
	// Manifest reading
	ErrManifestParse ErrorType = "manifest_parse"

	// Revision resolution
	ErrRevisionResolution ErrorType = "revision_resolution"

	// Patch application (aggregate only; individual failures are warnings)
	ErrPatchFailure ErrorType = "patch_failure"

	// Build driver
	ErrBuild ErrorType = "build"

	// Verification
	ErrVerification ErrorType = "verification"

	// Packaging
	ErrPackaging ErrorType = "packaging"

	// Catch-all
	ErrInternalError ErrorType = "internal_error"
)

// StageError is a fatal pipeline error attributed to a single stage.
type StageError struct {
	Type ErrorType
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the stage category.
func NewStageError(t ErrorType, err error) *StageError {
	return &StageError{Type: t, Err: err}
}

// Stagef is a convenience for NewStageError with a formatted message.
func Stagef(t ErrorType, format string, args ...any) *StageError {
	return &StageError{Type: t, Err: fmt.Errorf(format, args...)}
}

package manager

import "errors"

// ErrEmptyCompletion is returned when the model produced only whitespace.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// modelNotFoundError is returned when a requested model id is not present in the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var target modelNotFoundError
	return errors.As(err, &target)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var target dependencyUnavailableError
	return errors.As(err, &target)
}

// generationFailedError wraps an error raised while the model was generating.
type generationFailedError struct{ err error }

func (e generationFailedError) Error() string { return "generation failed: " + e.err.Error() }

func (e generationFailedError) Unwrap() error { return e.err }

// IsGenerationFailed reports whether err was raised by the generation step.
func IsGenerationFailed(err error) bool {
	var target generationFailedError
	return errors.As(err, &target)
}

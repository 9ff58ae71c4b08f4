package query

import "errors"

// Error categories returned by the builder. Operations wrap them with
// context, so match with errors.Is.
var (
	// ErrParameter reports a missing, empty or malformed argument.
	ErrParameter = errors.New("invalid parameter")

	// ErrPrecondition reports a build invoked without the accumulators it
	// needs, such as a SELECT with no table.
	ErrPrecondition = errors.New("build precondition failed")

	// ErrVocabulary reports a filter condition name outside the supported set.
	ErrVocabulary = errors.New("unrecognized condition")

	// ErrFormat reports a value that could not be parsed as a timestamp.
	ErrFormat = errors.New("invalid timestamp format")
)

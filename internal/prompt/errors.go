package prompt

import "errors"

var (
	// ErrInvalidRequest is returned for blank queries.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrGeneration is returned when the model call fails or returns nothing.
	ErrGeneration = errors.New("generation failed")

	// ErrMalformedOutput is returned when the model's structured output does
	// not match the expected schema.
	ErrMalformedOutput = errors.New("malformed model output")
)

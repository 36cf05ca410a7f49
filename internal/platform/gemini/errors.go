package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidImage is returned when the input is not valid base64 or a
	// well-formed data URI.
	ErrInvalidImage = errors.New("invalid base64 image")

	// ErrImageTooSmall is returned when the decoded image is below the
	// minimum size.
	ErrImageTooSmall = errors.New("image data too small")

	// ErrInvalidConfig is returned for an unusable analyzer configuration.
	ErrInvalidConfig = errors.New("invalid vision configuration")

	// ErrInvalidResponse is returned when the model output is empty, is not
	// JSON or does not match the features schema.
	ErrInvalidResponse = errors.New("invalid vision response")

	// ErrRateLimited is returned once every rate-limit retry of every model
	// has been used up.
	ErrRateLimited = errors.New("rate limit exhausted")

	// ErrContentBlocked is returned when the model refused the content.
	ErrContentBlocked = errors.New("content blocked by safety filters")
)

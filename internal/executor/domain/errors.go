package domain

import "errors"

// Tool-level errors surfaced to callers as {success:false, error:<message>}
var (
	ErrURLRequired    = errors.New("URL is required")
	ErrInvalidURL     = errors.New("invalid URL")
	ErrNotVideoURL    = errors.New("URL is not a recognized video link")
	ErrNoVideoID      = errors.New("could not extract video ID from URL")
	ErrInvalidMode    = errors.New("invalid mode")
	ErrContentFetch   = errors.New("failed to fetch content")
	ErrPatternFailed  = errors.New("pattern execution failed")
	ErrPatternTimeout = errors.New("pattern execution timed out")
)

// Expected conditions that produce an explanatory result rather than an error
var (
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrRunnerUnavailable     = errors.New("pattern runner unavailable")
)

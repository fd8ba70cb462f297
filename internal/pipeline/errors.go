package pipeline

import "github.com/rotisserie/eris"

// Fatal pipeline errors. Everything else is absorbed as a diagnostic.
var (
	// ErrNoContent means the document had neither text nor image content.
	ErrNoContent = eris.New("pipeline: document has no content")

	// ErrExtractionFailed means both the oracle and the pattern-based
	// fallback produced zero entities; nothing downstream can proceed.
	ErrExtractionFailed = eris.New("pipeline: extraction produced no entities")
)

package types

import "errors"

var (
	// ErrEmptyDocument means the chunker received no text to split.
	ErrEmptyDocument = errors.New("document text is empty")

	// ErrExternalCall wraps failures of the generation or retrieval calls.
	ErrExternalCall = errors.New("external call failed")

	// ErrRunTerminal rejects status transitions out of COMPLETED or ERROR.
	ErrRunTerminal = errors.New("run is already in a terminal status")
)

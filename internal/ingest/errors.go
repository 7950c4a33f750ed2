package ingest

import "errors"

// Error kinds from spec §7.
var (
	ErrForkNotFound   = errors.New("ingest: fork not found")
	ErrForkClosed     = errors.New("ingest: fork is not open")
	ErrInvalidBoundary = errors.New("ingest: invalid checkpoint boundary")
	ErrCheckpointMismatch = errors.New("ingest: checkpoint hash mismatch at height")
)

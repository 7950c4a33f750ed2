package graph

import "errors"

// Error kinds returned by Client, per spec §4.1 and §7. Callers retry at the
// pipeline level only when errors.Is(err, ErrRetryable) is true.
var (
	ErrSchema    = errors.New("graph: schema error")
	ErrWrite     = errors.New("graph: write error")
	ErrRetryable = errors.New("graph: retryable store error")
)

package recovery

import "errors"

var (
	// ErrNoConfirmedCheckpoint means rollback could not find any confirmed
	// checkpoint below the contested height to restore to.
	ErrNoConfirmedCheckpoint = errors.New("recovery: no confirmed checkpoint below contested height")
	// ErrRecoveryFetch wraps every failure obtaining a payload from the
	// content-addressed store during replay or gap-fill.
	ErrRecoveryFetch = errors.New("recovery: content-store fetch failed")
)

package internal

import "time"

const (
	// lockRetryDelay is how often a busy lock file is polled while the
	// caller's context is alive.
	lockRetryDelay = 50 * time.Millisecond
	lockFileMode   = 0750
)

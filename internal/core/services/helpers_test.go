package services

import "time"

// Polling bounds for require.Eventually in async tests.
const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

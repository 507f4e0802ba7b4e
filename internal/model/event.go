package model

import "time"

const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Event describes one completed public operation.
type Event struct {
	Operation string
	Keys      map[string]string
	Outcome   string
	Err       error
	Duration  time.Duration
}

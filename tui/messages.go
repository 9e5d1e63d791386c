package tui

import "time"

// emailProcessedMsg reports that the pipeline finished one email.
type emailProcessedMsg struct {
	Index  int
	Result ProcessResult
}

// A message for the spinner tick.
type StatusTickMsg struct{ Time time.Time }

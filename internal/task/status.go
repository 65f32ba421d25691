package task

// Status is the derived task status. It is never stored authoritatively;
// the recorded start, end, predecessors, and commitments determine it.
type Status string

const (
	StatusUnavailable Status = "UNAVAILABLE"
	StatusAvailable   Status = "AVAILABLE"
	StatusPending     Status = "PENDING"
	StatusExecuting   Status = "EXECUTING"
	StatusFinished    Status = "FINISHED"
	StatusFailed      Status = "FAILED"
)

func (s Status) String() string { return string(s) }

// Terminal reports whether the status records a completed end action.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// FinishedKind classifies how a finished task's actual duration compares
// with its estimate widened by the acceptable deviation.
type FinishedKind string

const (
	FinishedEarly   FinishedKind = "EARLY"
	FinishedOnTime  FinishedKind = "ON_TIME"
	FinishedDelayed FinishedKind = "DELAYED"
)

func (k FinishedKind) String() string { return string(k) }

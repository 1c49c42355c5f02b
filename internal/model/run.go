package model

type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStatePaused    RunState = "paused"
	RunStateStopped   RunState = "stopped"
	RunStateCompleted RunState = "completed"
)

// CanStart reports whether a run may be started from s.
func (s RunState) CanStart() bool {
	return s != RunStateRunning
}

type CurrentContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Progress struct {
	RunID        string          `json:"runId,omitempty"`
	State        RunState        `json:"state"`
	Sent         int             `json:"sent"`
	Failed       int             `json:"failed"`
	Total        int             `json:"total"`
	CurrentIndex int             `json:"currentIndex"`
	Current      *CurrentContact `json:"current,omitempty"`
}

func (p Progress) Remaining() int {
	if n := p.Total - p.Sent - p.Failed; n > 0 {
		return n
	}
	return 0
}

// Percent is the share of the list already attempted, rounded down.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Sent + p.Failed) * 100 / p.Total
}

type RunSummary struct {
	RunID      string   `json:"runId"`
	State      RunState `json:"state"`
	Sent       int      `json:"sent"`
	Failed     int      `json:"failed"`
	Total      int      `json:"total"`
	StartedAt  int64    `json:"startedAtMs"`
	FinishedAt int64    `json:"finishedAtMs"`
}

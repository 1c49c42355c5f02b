package notify

import (
	"context"

	"bulk_sender/internal/model"
)

// FailedContact is one failed delivery listed in a run summary.
type FailedContact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone"`
	Error string `json:"error"`
}

// RunFinishedEvent is emitted once per run when it completes, stops or pauses.
type RunFinishedEvent struct {
	model.RunSummary
	Failures []FailedContact `json:"failures,omitempty"`
}

type Notifier interface {
	NotifyRunFinished(ctx context.Context, evt RunFinishedEvent)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) NotifyRunFinished(ctx context.Context, evt RunFinishedEvent) {
	for _, n := range m {
		if n != nil {
			n.NotifyRunFinished(ctx, evt)
		}
	}
}

// MaxListedFailures caps Failures so a large run does not produce a huge message.
const MaxListedFailures = 50

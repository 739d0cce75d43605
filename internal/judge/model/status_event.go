package model

// StatusEventType identifies the status event type.
type StatusEventType string

const (
	// StatusEventFinal indicates the final status event.
	StatusEventFinal StatusEventType = "final"
)

// StatusEvent is published on the result topic.
type StatusEvent struct {
	Type      StatusEventType  `json:"type"`
	Status    EvaluationStatus `json:"status"`
	CreatedAt int64            `json:"created_at"`
}

package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskType names a registered handler. Unknown types are a configuration
// error, not a runtime condition.
type TaskType string

const (
	TaskFetch      TaskType = "fetch"
	TaskVerify     TaskType = "verify"
	TaskSynthesize TaskType = "synthesize"
	TaskDeliver    TaskType = "deliver"
)

// TaskStatus is the task state machine; done and failed are terminal.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// FetchPayload scopes a fetch task to one source.
type FetchPayload struct {
	SourceID string `json:"source_id"`
}

// VerifyPayload scopes a verification task to one cluster.
type VerifyPayload struct {
	ClusterID string `json:"cluster_id"`
}

// SynthesizePayload scopes a synthesis task to one cluster.
type SynthesizePayload struct {
	ClusterID string `json:"cluster_id"`
}

// DeliverPayload carries one outbound webhook notification.
type DeliverPayload struct {
	URL  string          `json:"url"`
	Body json.RawMessage `json:"body"`
}

// TaskPayload is a closed union: exactly the field matching the task type
// is populated. Handlers dispatch on the task type and read that field.
type TaskPayload struct {
	Fetch      *FetchPayload      `json:"fetch,omitempty"`
	Verify     *VerifyPayload     `json:"verify,omitempty"`
	Synthesize *SynthesizePayload `json:"synthesize,omitempty"`
	Deliver    *DeliverPayload    `json:"deliver,omitempty"`
}

// Validate checks that the populated payload variant matches the type.
func (p TaskPayload) Validate(t TaskType) error {
	var ok bool
	switch t {
	case TaskFetch:
		ok = p.Fetch != nil
	case TaskVerify:
		ok = p.Verify != nil
	case TaskSynthesize:
		ok = p.Synthesize != nil
	case TaskDeliver:
		ok = p.Deliver != nil
	default:
		return fmt.Errorf("unknown task type %q", t)
	}
	if !ok {
		return fmt.Errorf("payload does not match task type %q", t)
	}
	return nil
}

// Task is one schedulable, retryable, prioritized unit of asynchronous
// work. Lower Priority values run first.
type Task struct {
	ID          string
	Type        TaskType
	Payload     TaskPayload
	Priority    int
	Retries     int
	MaxRetries  int
	Status      TaskStatus
	LastError   string
	CreatedAt   time.Time
	ScheduledAt time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the task has finished for good.
func (t *Task) Terminal() bool {
	return t.Status == TaskDone || t.Status == TaskFailed
}

// Package queue runs bulk jobs in the background on asynq.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeBulkProcess processes every pending row of one bulk job
const TypeBulkProcess = "bulk:process"

// Payload is the body of a bulk:process task
type Payload struct {
	JobID string `json:"jobId"`
}

// NewProcessTask builds the task for jobID
func NewProcessTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(Payload{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TypeBulkProcess, data), nil
}

// ParsePayload decodes a bulk:process task
func ParsePayload(t *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if p.JobID == "" {
		return p, fmt.Errorf("task payload has no jobId")
	}
	return p, nil
}

package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types
const (
	TaskTypeReconcile = "catalog:reconcile"
)

// QueueCatalog is the queue reconcile tasks run on
const QueueCatalog = "catalog"

// ReconcilePayload identifies the file a reconcile task runs
type ReconcilePayload struct {
	FileID uuid.UUID `json:"file_id"`
}

// NewReconcileTask builds a reconcile task. Only one task per file can be
// queued at a time, so repeated sweeps do not pile up duplicates.
func NewReconcileTask(fileID uuid.UUID, maxRetry int, uniqueFor time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reconcile payload: %w", err)
	}
	return asynq.NewTask(TaskTypeReconcile, payload,
		asynq.Queue(QueueCatalog),
		asynq.MaxRetry(maxRetry),
		asynq.Unique(uniqueFor),
	), nil
}

// ParseReconcilePayload decodes the payload of a reconcile task
func ParseReconcilePayload(task *asynq.Task) (ReconcilePayload, error) {
	var p ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid reconcile payload: %w", err)
	}
	if p.FileID == uuid.Nil {
		return p, fmt.Errorf("invalid reconcile payload: missing file_id")
	}
	return p, nil
}

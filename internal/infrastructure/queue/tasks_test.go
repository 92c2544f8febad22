package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileTask_RoundTrip(t *testing.T) {
	id := uuid.New()

	task, err := NewReconcileTask(id, 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeReconcile, task.Type())

	p, err := ParseReconcilePayload(task)
	require.NoError(t, err)
	assert.Equal(t, id, p.FileID)
}

func TestParseReconcilePayload_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"not json":        []byte("{"),
		"missing file id": []byte(`{}`),
		"bad uuid":        []byte(`{"file_id":"nope"}`),
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReconcilePayload(asynq.NewTask(TaskTypeReconcile, payload))
			assert.Error(t, err)
		})
	}
}

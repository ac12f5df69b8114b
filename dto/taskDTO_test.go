package dto_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itsdone/dto"
)

func TestUpdateTaskRequest_DueDateAbsent(t *testing.T) {
	var req dto.UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"text":"new text"}`), &req))

	require.NotNil(t, req.Text)
	assert.Equal(t, "new text", *req.Text)
	assert.False(t, req.DueDate.Set)
}

func TestUpdateTaskRequest_DueDateNullClears(t *testing.T) {
	var req dto.UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":null}`), &req))

	assert.True(t, req.DueDate.Set)
	assert.Nil(t, req.DueDate.Value)
}

func TestUpdateTaskRequest_DueDateValue(t *testing.T) {
	var req dto.UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":"2026-09-15T09:00:00Z"}`), &req))

	require.True(t, req.DueDate.Set)
	require.NotNil(t, req.DueDate.Value)
	assert.Equal(t, time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC), req.DueDate.Value.UTC())
}

func TestUpdateTaskRequest_InvalidDueDate(t *testing.T) {
	var req dto.UpdateTaskRequest
	assert.Error(t, json.Unmarshal([]byte(`{"dueDate":"next tuesday"}`), &req))
}

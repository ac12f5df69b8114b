package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"itsdone/model"
)

func TestTaskPatch_Apply(t *testing.T) {
	due := time.Now().Add(time.Hour)
	nid := "n-1"
	base := model.Task{ID: "1", Text: "original", Completed: false, DueDate: &due, NotificationID: &nid}

	text := "edited"
	completed := true

	tests := []struct {
		name  string
		patch model.TaskPatch
		want  model.Task
	}{
		{
			name:  "empty patch changes nothing",
			patch: model.TaskPatch{},
			want:  base,
		},
		{
			name:  "text only",
			patch: model.TaskPatch{Text: &text},
			want:  model.Task{ID: "1", Text: "edited", DueDate: &due, NotificationID: &nid},
		},
		{
			name:  "completed only",
			patch: model.TaskPatch{Completed: &completed},
			want:  model.Task{ID: "1", Text: "original", Completed: true, DueDate: &due, NotificationID: &nid},
		},
		{
			name:  "explicit null due date clears it",
			patch: model.TaskPatch{HasDueDate: true},
			want:  model.Task{ID: "1", Text: "original", NotificationID: &nid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.patch.Apply(base))
		})
	}
}

func TestTaskPatch_IsZero(t *testing.T) {
	assert.True(t, model.TaskPatch{}.IsZero())
	assert.False(t, model.TaskPatch{HasDueDate: true}.IsZero())

	text := "x"
	assert.False(t, model.TaskPatch{Text: &text}.IsZero())
}

package model

import (
	"time"
)

// Task is the sole persisted entity. Locally created tasks carry a
// timestamp-based id; once a task is mirrored to Firestore the server
// document id takes over through the next snapshot.
type Task struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Completed      bool       `json:"completed"`
	DueDate        *time.Time `json:"dueDate"`
	NotificationID *string    `json:"notificationId"`
	CreatedAt      int64      `json:"createdAt,omitempty"` // unix millis, set on remote create
}

// TaskPatch is a partial update. Nil fields are left untouched.
// DueDate only applies when HasDueDate is set; a nil DueDate with
// HasDueDate clears the due date.
type TaskPatch struct {
	Text       *string
	Completed  *bool
	DueDate    *time.Time
	HasDueDate bool
}

// IsZero reports whether the patch touches nothing.
func (p TaskPatch) IsZero() bool {
	return p.Text == nil && p.Completed == nil && !p.HasDueDate
}

// Apply returns t with the patched fields replaced.
func (p TaskPatch) Apply(t Task) Task {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.HasDueDate {
		t.DueDate = p.DueDate
	}
	return t
}

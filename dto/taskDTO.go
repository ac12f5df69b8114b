package dto

import (
	"encoding/json"
	"time"
)

type CreateTaskRequest struct {
	Text      string     `json:"text" binding:"required"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"dueDate"`
}

// UpdateTaskRequest carries a partial task update; absent fields are
// left untouched.
type UpdateTaskRequest struct {
	Text      *string      `json:"text"`
	Completed *bool        `json:"completed"`
	DueDate   OptionalTime `json:"dueDate"`
}

// OptionalTime distinguishes an absent dueDate from an explicit null:
// null clears the due date, absence leaves it alone.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

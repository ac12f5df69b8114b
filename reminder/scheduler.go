package reminder

import (
	"time"

	"go.uber.org/zap"

	"itsdone/logger"
)

// Scheduler translates task due dates into notification requests. It
// holds no state of its own.
type Scheduler struct {
	notifier Notifier
}

func NewScheduler(notifier Notifier) *Scheduler {
	return &Scheduler{notifier: notifier}
}

// Schedule requests a reminder for a task and returns its handle.
// Absent or past-or-present due dates are never scheduled; scheduling
// failures are logged and yield nil.
func (s *Scheduler) Schedule(taskID string, dueDate *time.Time) *string {
	if dueDate == nil || !dueDate.After(time.Now()) {
		return nil
	}

	handle, err := s.notifier.ScheduleAt(*dueDate, Notification{
		Title:  "Task Reminder",
		Body:   "Reminder for your task",
		TaskID: taskID,
	})
	if err != nil {
		logger.Warn("reminder schedule failed",
			zap.String("task_id", taskID), zap.Error(err))
		return nil
	}
	return &handle
}

// Cancel is best-effort; failures are logged and swallowed.
func (s *Scheduler) Cancel(handle string) {
	if err := s.notifier.Cancel(handle); err != nil {
		logger.Warn("reminder cancel failed",
			zap.String("handle", handle), zap.Error(err))
	}
}

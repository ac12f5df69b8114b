package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"itsdone/logger"
	"itsdone/model"
)

// Cache is the on-device persistence collaborator. Reads never fail
// (unreadable content is an empty list).
type Cache interface {
	ReadAll() []model.Task
	WriteAll(tasks []model.Task) error
}

// Reminders schedules and cancels due-date notifications. Schedule
// returns nil when nothing was scheduled.
type Reminders interface {
	Schedule(taskID string, dueDate *time.Time) *string
	Cancel(handle string)
}

// Remote is the per-user document collection the store mirrors into.
type Remote interface {
	Subscribe(ctx context.Context, uid string, onSnapshot func([]model.Task), onError func(error)) func()
	Create(ctx context.Context, uid string, t model.Task) (string, error)
	Patch(ctx context.Context, uid, id string, patch model.TaskPatch) error
	Remove(ctx context.Context, uid, id string) error
}

// TaskStore owns the in-memory task list and coordinates the cache,
// the reminder scheduler and the remote sync channel. Every mutation
// lands in memory first, then in the cache, then (when a session is
// attached) in the remote collection. Remote and cache failures are
// logged, never surfaced, and never rolled back.
type TaskStore struct {
	cache     Cache
	reminders Reminders
	remote    Remote

	mu      sync.Mutex
	tasks   []model.Task
	session *model.Session
	stop    func()
}

// New builds a store primed from the local cache.
func New(cache Cache, reminders Reminders, remote Remote) *TaskStore {
	return &TaskStore{
		cache:     cache,
		reminders: reminders,
		remote:    remote,
		tasks:     cache.ReadAll(),
	}
}

// Tasks returns a copy of the in-memory list.
func (s *TaskStore) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// AddTask creates a task with a fresh client identifier and prepends
// it. A strictly future due date gets a reminder. Callers validate the
// text before calling; the store does not reject empty text.
func (s *TaskStore) AddTask(ctx context.Context, text string, completed bool, dueDate *time.Time) {
	now := time.Now().UnixMilli()
	task := model.Task{
		ID:        strconv.FormatInt(now, 10),
		Text:      text,
		Completed: completed,
		DueDate:   dueDate,
		CreatedAt: now,
	}
	if dueDate != nil {
		task.NotificationID = s.reminders.Schedule(task.ID, dueDate)
	}

	s.mu.Lock()
	s.tasks = append([]model.Task{task}, s.tasks...)
	s.persistLocked()
	uid := s.uidLocked()
	s.mu.Unlock()

	if uid != "" {
		if _, err := s.remote.Create(ctx, uid, task); err != nil {
			logger.Warn("remote create failed",
				zap.String("task_id", task.ID), zap.Error(err))
		}
	}
}

// UpdateTask applies a partial update; unknown ids are a silent no-op.
// A patch that touches the due date cancels the old reminder and
// schedules or clears per the new value. Only the patched fields are
// pushed remotely.
func (s *TaskStore) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	next := patch.Apply(s.tasks[idx])
	if patch.HasDueDate {
		if prev := s.tasks[idx].NotificationID; prev != nil {
			s.reminders.Cancel(*prev)
		}
		next.NotificationID = nil
		if patch.DueDate != nil {
			next.NotificationID = s.reminders.Schedule(id, patch.DueDate)
		}
	}
	s.tasks[idx] = next
	s.persistLocked()
	uid := s.uidLocked()
	s.mu.Unlock()

	if uid != "" {
		if err := s.remote.Patch(ctx, uid, id, patch); err != nil {
			logger.Warn("remote patch failed",
				zap.String("task_id", id), zap.Error(err))
		}
	}
}

// DeleteTask releases the task's reminder, removes it and deletes the
// remote document. Unknown ids are a silent no-op.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	if nid := s.tasks[idx].NotificationID; nid != nil {
		s.reminders.Cancel(*nid)
	}
	s.tasks = append(s.tasks[:idx:idx], s.tasks[idx+1:]...)
	s.persistLocked()
	uid := s.uidLocked()
	s.mu.Unlock()

	if uid != "" {
		if err := s.remote.Remove(ctx, uid, id); err != nil {
			logger.Warn("remote delete failed",
				zap.String("task_id", id), zap.Error(err))
		}
	}
}

// ToggleComplete flips completion through the regular update path, so
// the flip persists locally and syncs remotely like any other patch.
func (s *TaskStore) ToggleComplete(ctx context.Context, id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	completed := !s.tasks[idx].Completed
	s.mu.Unlock()

	s.UpdateTask(ctx, id, model.TaskPatch{Completed: &completed})
}

// Reload replaces the in-memory list with the local cache contents.
func (s *TaskStore) Reload() {
	tasks := s.cache.ReadAll()
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
}

// Attach transitions the store to the authenticated state: mutations
// start dual-writing and a live subscription keeps overwriting memory
// with server snapshots. Any previous subscription is torn down first.
func (s *TaskStore) Attach(ctx context.Context, session *model.Session) {
	if session == nil {
		s.Detach()
		return
	}

	s.mu.Lock()
	if s.stop != nil {
		s.stop()
	}
	s.stop = nil
	s.session = session
	s.mu.Unlock()

	stop := s.remote.Subscribe(ctx, session.UID, s.adoptSnapshot, func(err error) {
		logger.Warn("task subscription error", zap.Error(err))
	})

	s.mu.Lock()
	if s.session != session {
		// signed out (or re-attached) while the subscription was opening
		s.mu.Unlock()
		stop()
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

// Detach tears the subscription down and reverts memory to whatever
// the local cache holds, which may be stale relative to the remote
// state we are no longer watching.
func (s *TaskStore) Detach() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.session = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.Reload()
}

// adoptSnapshot installs a server snapshot as the authoritative list:
// a full replace, never a merge.
func (s *TaskStore) adoptSnapshot(tasks []model.Task) {
	s.mu.Lock()
	s.tasks = tasks
	s.persistLocked()
	s.mu.Unlock()
}

func (s *TaskStore) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) uidLocked() string {
	if s.session == nil {
		return ""
	}
	return s.session.UID
}

func (s *TaskStore) persistLocked() {
	if err := s.cache.WriteAll(s.tasks); err != nil {
		logger.Warn("cache write failed", zap.Error(err))
	}
}

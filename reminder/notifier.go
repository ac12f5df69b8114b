package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"itsdone/logger"
)

// Notification is the payload handed to the notification subsystem.
type Notification struct {
	Title  string
	Body   string
	TaskID string
}

// Notifier is the external notification collaborator: it delivers a
// notification at a wall-clock time and hands back an opaque handle.
type Notifier interface {
	RequestPermission(ctx context.Context) error
	ScheduleAt(at time.Time, n Notification) (string, error)
	Cancel(handle string) error
}

// LocalNotifier delivers notifications in-process with timers. Delivery
// is a structured log line plus the optional callback.
type LocalNotifier struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	deliver func(Notification)
}

func NewLocalNotifier(deliver func(Notification)) *LocalNotifier {
	return &LocalNotifier{
		timers:  make(map[string]*time.Timer),
		deliver: deliver,
	}
}

// RequestPermission is a recorded no-op: in-process delivery needs no
// OS-level grant.
func (n *LocalNotifier) RequestPermission(ctx context.Context) error {
	logger.Info("notification permission granted (in-process notifier)")
	return nil
}

func (n *LocalNotifier) ScheduleAt(at time.Time, note Notification) (string, error) {
	handle := uuid.New().String()

	n.mu.Lock()
	n.timers[handle] = time.AfterFunc(time.Until(at), func() {
		n.fire(handle, note)
	})
	n.mu.Unlock()

	return handle, nil
}

// Cancel stops a pending timer. Unknown or already-fired handles are
// not an error.
func (n *LocalNotifier) Cancel(handle string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.timers[handle]; ok {
		t.Stop()
		delete(n.timers, handle)
	}
	return nil
}

func (n *LocalNotifier) fire(handle string, note Notification) {
	n.mu.Lock()
	delete(n.timers, handle)
	deliver := n.deliver
	n.mu.Unlock()

	logger.Info("reminder fired",
		zap.String("handle", handle),
		zap.String("task_id", note.TaskID),
		zap.String("title", note.Title),
	)
	if deliver != nil {
		deliver(note)
	}
}

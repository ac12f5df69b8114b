package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"itsdone/model"
	"itsdone/reminder"
	"itsdone/store"
)

type fakeCache struct {
	mu     sync.Mutex
	tasks  []model.Task
	writes int
	fail   bool
}

func (f *fakeCache) ReadAll() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

func (f *fakeCache) WriteAll(tasks []model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.tasks = make([]model.Task, len(tasks))
	copy(f.tasks, tasks)
	f.writes++
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	scheduled map[string]reminder.Notification
	cancelled []string
	fail      bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{scheduled: make(map[string]reminder.Notification)}
}

func (f *fakeNotifier) RequestPermission(ctx context.Context) error { return nil }

func (f *fakeNotifier) ScheduleAt(at time.Time, n reminder.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("notifier unavailable")
	}
	handle := fmt.Sprintf("n-%d", len(f.scheduled)+1)
	f.scheduled[handle] = n
	return handle, nil
}

func (f *fakeNotifier) Cancel(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, handle)
	return nil
}

type MockRemote struct {
	mock.Mock
	onSnapshot func([]model.Task)
	onError    func(error)
}

func (m *MockRemote) Subscribe(ctx context.Context, uid string, onSnapshot func([]model.Task), onError func(error)) func() {
	m.onSnapshot = onSnapshot
	m.onError = onError
	args := m.Called(ctx, uid)
	return args.Get(0).(func())
}

func (m *MockRemote) Create(ctx context.Context, uid string, t model.Task) (string, error) {
	args := m.Called(ctx, uid, t)
	return args.String(0), args.Error(1)
}

func (m *MockRemote) Patch(ctx context.Context, uid, id string, patch model.TaskPatch) error {
	args := m.Called(ctx, uid, id, patch)
	return args.Error(0)
}

func (m *MockRemote) Remove(ctx context.Context, uid, id string) error {
	args := m.Called(ctx, uid, id)
	return args.Error(0)
}

var _ store.Remote = (*MockRemote)(nil)
var _ store.Cache = (*fakeCache)(nil)

func newStore(t *testing.T) (*store.TaskStore, *fakeCache, *fakeNotifier, *MockRemote) {
	t.Helper()
	cache := &fakeCache{}
	notifier := newFakeNotifier()
	remote := new(MockRemote)
	s := store.New(cache, reminder.NewScheduler(notifier), remote)
	return s, cache, notifier, remote
}

func futureDate(t *testing.T) *time.Time {
	t.Helper()
	d := time.Now().Add(time.Hour)
	return &d
}

func pastDate(t *testing.T) *time.Time {
	t.Helper()
	d := time.Now().Add(-time.Hour)
	return &d
}

func TestAddTask_CreationInvariant(t *testing.T) {
	s, cache, _, _ := newStore(t)

	s.AddTask(context.Background(), "Buy milk", false, nil)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.NotEmpty(t, tasks[0].ID)
	assert.Equal(t, "Buy milk", tasks[0].Text)
	assert.False(t, tasks[0].Completed)
	assert.Nil(t, tasks[0].DueDate)
	assert.Nil(t, tasks[0].NotificationID)

	// always persisted locally, even unauthenticated
	assert.Equal(t, tasks, cache.ReadAll())
}

func TestAddTask_PrependsNewest(t *testing.T) {
	s, _, _, _ := newStore(t)

	s.AddTask(context.Background(), "first", false, nil)
	s.AddTask(context.Background(), "second", false, nil)

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "second", tasks[0].Text)
	assert.Equal(t, "first", tasks[1].Text)
}

func TestAddTask_FutureDueDateSchedulesReminder(t *testing.T) {
	s, _, notifier, _ := newStore(t)

	s.AddTask(context.Background(), "call dentist", false, futureDate(t))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].NotificationID)
	note, ok := notifier.scheduled[*tasks[0].NotificationID]
	require.True(t, ok)
	assert.Equal(t, tasks[0].ID, note.TaskID)
}

func TestAddTask_PastDueDateNotScheduled(t *testing.T) {
	s, _, notifier, _ := newStore(t)

	s.AddTask(context.Background(), "too late", false, pastDate(t))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.NotNil(t, tasks[0].DueDate)
	assert.Nil(t, tasks[0].NotificationID)
	assert.Empty(t, notifier.scheduled)
}

func TestAddTask_NotifierFailureLeavesTaskWithoutReminder(t *testing.T) {
	s, _, notifier, _ := newStore(t)
	notifier.fail = true

	s.AddTask(context.Background(), "best effort", false, futureDate(t))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].NotificationID)
}

func TestAddTask_AuthenticatedCreatesRemoteDocument(t *testing.T) {
	s, _, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})
	remote.On("Create", mock.Anything, "uid-1", mock.MatchedBy(func(task model.Task) bool {
		return task.Text == "synced"
	})).Return("remote-id", nil)

	s.Attach(context.Background(), &model.Session{UID: "uid-1", Email: "a@b.c"})
	s.AddTask(context.Background(), "synced", false, nil)

	remote.AssertCalled(t, "Create", mock.Anything, "uid-1", mock.Anything)

	// the remote id is adopted through the next snapshot, not patched
	// back into the optimistic local entry
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.NotEqual(t, "remote-id", tasks[0].ID)
}

func TestAddTask_RemoteFailureKeepsLocalState(t *testing.T) {
	s, cache, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})
	remote.On("Create", mock.Anything, "uid-1", mock.Anything).Return("", errors.New("network down"))

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	s.AddTask(context.Background(), "offline", false, nil)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "offline", tasks[0].Text)
	assert.Equal(t, tasks, cache.ReadAll())
}

func TestUpdateTask_PatchesOnlyGivenFields(t *testing.T) {
	s, _, _, _ := newStore(t)
	due := futureDate(t)
	s.AddTask(context.Background(), "write report", false, due)
	id := s.Tasks()[0].ID

	completed := true
	s.UpdateTask(context.Background(), id, model.TaskPatch{Completed: &completed})

	got := s.Tasks()[0]
	assert.True(t, got.Completed)
	assert.Equal(t, "write report", got.Text)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(*due))
	assert.NotNil(t, got.NotificationID)
}

func TestUpdateTask_UnknownIDIsSilentNoOp(t *testing.T) {
	s, cache, _, _ := newStore(t)
	s.AddTask(context.Background(), "keep me", false, nil)
	writesBefore := cache.writes

	text := "changed"
	s.UpdateTask(context.Background(), "no-such-id", model.TaskPatch{Text: &text})

	assert.Equal(t, "keep me", s.Tasks()[0].Text)
	assert.Equal(t, writesBefore, cache.writes)
}

func TestUpdateTask_DueDateChangeReschedules(t *testing.T) {
	s, _, notifier, _ := newStore(t)
	s.AddTask(context.Background(), "moving target", false, futureDate(t))
	id := s.Tasks()[0].ID
	oldHandle := *s.Tasks()[0].NotificationID

	newDue := time.Now().Add(2 * time.Hour)
	s.UpdateTask(context.Background(), id, model.TaskPatch{DueDate: &newDue, HasDueDate: true})

	got := s.Tasks()[0]
	assert.Equal(t, []string{oldHandle}, notifier.cancelled)
	require.NotNil(t, got.NotificationID)
	assert.NotEqual(t, oldHandle, *got.NotificationID)
}

func TestUpdateTask_ClearingDueDateCancelsReminder(t *testing.T) {
	s, _, notifier, _ := newStore(t)
	s.AddTask(context.Background(), "no more deadline", false, futureDate(t))
	id := s.Tasks()[0].ID
	handle := *s.Tasks()[0].NotificationID

	s.UpdateTask(context.Background(), id, model.TaskPatch{HasDueDate: true})

	got := s.Tasks()[0]
	assert.Nil(t, got.DueDate)
	assert.Nil(t, got.NotificationID)
	assert.Equal(t, []string{handle}, notifier.cancelled)
}

func TestUpdateTask_PastDueDateLeavesNoReminder(t *testing.T) {
	s, _, notifier, _ := newStore(t)
	s.AddTask(context.Background(), "backdated", false, nil)
	id := s.Tasks()[0].ID

	s.UpdateTask(context.Background(), id, model.TaskPatch{DueDate: pastDate(t), HasDueDate: true})

	got := s.Tasks()[0]
	assert.NotNil(t, got.DueDate)
	assert.Nil(t, got.NotificationID)
	assert.Empty(t, notifier.scheduled)
}

func TestUpdateTask_AuthenticatedPushesPatchedFieldsOnly(t *testing.T) {
	s, _, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})
	remote.On("Create", mock.Anything, "uid-1", mock.Anything).Return("remote-id", nil)

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	s.AddTask(context.Background(), "sync me", false, nil)
	id := s.Tasks()[0].ID

	text := "sync me harder"
	remote.On("Patch", mock.Anything, "uid-1", id, mock.MatchedBy(func(p model.TaskPatch) bool {
		return p.Text != nil && *p.Text == text && p.Completed == nil && !p.HasDueDate
	})).Return(nil)

	s.UpdateTask(context.Background(), id, model.TaskPatch{Text: &text})

	remote.AssertExpectations(t)
}

func TestDeleteTask_Completeness(t *testing.T) {
	s, cache, notifier, _ := newStore(t)
	s.AddTask(context.Background(), "doomed", false, futureDate(t))
	s.AddTask(context.Background(), "survivor", false, nil)
	doomed := s.Tasks()[1]
	require.NotNil(t, doomed.NotificationID)

	s.DeleteTask(context.Background(), doomed.ID)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "survivor", tasks[0].Text)
	// the reminder handle went to cancel exactly once
	assert.Equal(t, []string{*doomed.NotificationID}, notifier.cancelled)
	assert.Equal(t, tasks, cache.ReadAll())
}

func TestDeleteTask_UnknownIDIsSilentNoOp(t *testing.T) {
	s, _, notifier, _ := newStore(t)
	s.AddTask(context.Background(), "still here", false, nil)

	s.DeleteTask(context.Background(), "no-such-id")

	assert.Len(t, s.Tasks(), 1)
	assert.Empty(t, notifier.cancelled)
}

func TestDeleteTask_AuthenticatedRemovesRemoteDocument(t *testing.T) {
	s, _, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})
	remote.On("Create", mock.Anything, "uid-1", mock.Anything).Return("remote-id", nil)
	remote.On("Remove", mock.Anything, "uid-1", mock.Anything).Return(nil)

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	s.AddTask(context.Background(), "gone soon", false, nil)
	id := s.Tasks()[0].ID

	s.DeleteTask(context.Background(), id)

	remote.AssertCalled(t, "Remove", mock.Anything, "uid-1", id)
	assert.Empty(t, s.Tasks())
}

func TestToggleComplete_FlipsAndDualWrites(t *testing.T) {
	s, cache, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})
	remote.On("Create", mock.Anything, "uid-1", mock.Anything).Return("remote-id", nil)

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	s.AddTask(context.Background(), "flip me", false, nil)
	id := s.Tasks()[0].ID

	remote.On("Patch", mock.Anything, "uid-1", id, mock.MatchedBy(func(p model.TaskPatch) bool {
		return p.Completed != nil && *p.Completed
	})).Return(nil)

	s.ToggleComplete(context.Background(), id)

	assert.True(t, s.Tasks()[0].Completed)
	assert.True(t, cache.ReadAll()[0].Completed)
	remote.AssertExpectations(t)

	remote.On("Patch", mock.Anything, "uid-1", id, mock.MatchedBy(func(p model.TaskPatch) bool {
		return p.Completed != nil && !*p.Completed
	})).Return(nil)

	s.ToggleComplete(context.Background(), id)
	assert.False(t, s.Tasks()[0].Completed)
}

func TestSnapshotAuthority_FullReplace(t *testing.T) {
	s, cache, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})

	s.AddTask(context.Background(), "local only", false, nil)
	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	require.NotNil(t, remote.onSnapshot)

	server := []model.Task{
		{ID: "r2", Text: "from server 2", CreatedAt: 2000},
		{ID: "r1", Text: "from server 1", Completed: true, CreatedAt: 1000},
	}
	remote.onSnapshot(server)

	// exact replace: no leftover local entries, no merge
	assert.Equal(t, server, s.Tasks())
	assert.Equal(t, server, cache.ReadAll())
}

func TestDetach_RevertsToLocalCache(t *testing.T) {
	s, cache, _, remote := newStore(t)
	stopped := 0
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() { stopped++ })

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	remote.onSnapshot([]model.Task{
		{ID: "r1", Text: "remote one"},
		{ID: "r2", Text: "remote two"},
	})

	// the cache drifts from the last snapshot while we are detaching
	stale := []model.Task{{ID: "r1", Text: "remote one"}}
	require.NoError(t, cache.WriteAll(stale))

	s.Detach()

	assert.Equal(t, 1, stopped)
	assert.Equal(t, stale, s.Tasks())
}

func TestDetach_StopsDualWrites(t *testing.T) {
	s, _, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	s.Detach()

	s.AddTask(context.Background(), "local again", false, nil)
	remote.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestReattach_TearsDownPreviousSubscription(t *testing.T) {
	s, _, _, remote := newStore(t)
	stops := map[string]int{}
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() { stops["uid-1"]++ })
	remote.On("Subscribe", mock.Anything, "uid-2").Return(func() { stops["uid-2"]++ })

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	s.Attach(context.Background(), &model.Session{UID: "uid-2"})

	assert.Equal(t, 1, stops["uid-1"])
	assert.Equal(t, 0, stops["uid-2"])
}

func TestSubscriptionErrorIsNonFatal(t *testing.T) {
	s, _, _, remote := newStore(t)
	remote.On("Subscribe", mock.Anything, "uid-1").Return(func() {})
	remote.On("Create", mock.Anything, "uid-1", mock.Anything).Return("remote-id", nil)

	s.Attach(context.Background(), &model.Session{UID: "uid-1"})
	require.NotNil(t, remote.onError)

	// a dropped subscription is logged only; the store keeps serving
	remote.onError(errors.New("stream closed"))

	s.AddTask(context.Background(), "still working", false, nil)
	assert.Len(t, s.Tasks(), 1)
}

func TestReload_ReplacesMemoryFromCache(t *testing.T) {
	s, cache, _, _ := newStore(t)
	s.AddTask(context.Background(), "in memory", false, nil)

	recovered := []model.Task{{ID: "42", Text: "from disk"}}
	require.NoError(t, cache.WriteAll(recovered))

	s.Reload()

	assert.Equal(t, recovered, s.Tasks())
}

func TestCacheWriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	s, cache, _, _ := newStore(t)
	cache.fail = true

	s.AddTask(context.Background(), "unpersisted", false, nil)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "unpersisted", tasks[0].Text)
}

func TestNewPrimesFromCache(t *testing.T) {
	cache := &fakeCache{tasks: []model.Task{{ID: "1", Text: "persisted"}}}
	s := store.New(cache, reminder.NewScheduler(newFakeNotifier()), new(MockRemote))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "persisted", tasks[0].Text)
}

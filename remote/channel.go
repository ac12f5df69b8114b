package remote

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"itsdone/logger"
	"itsdone/model"
)

// Task documents live in a per-user subcollection:
// users/{uid}/tasks/{taskId}.
const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

// taskDoc is the wire shape of a task document. Due dates travel as
// RFC 3339 strings, creation time as unix milliseconds.
type taskDoc struct {
	Text           string  `firestore:"text"`
	Completed      bool    `firestore:"completed"`
	DueDate        *string `firestore:"dueDate"`
	NotificationID *string `firestore:"notificationId"`
	CreatedAt      int64   `firestore:"createdAt"`
}

// Channel mirrors task mutations to the authenticated user's Firestore
// collection and streams authoritative snapshots back.
type Channel struct {
	client *firestore.Client
}

func NewChannel(client *firestore.Client) *Channel {
	return &Channel{client: client}
}

func (c *Channel) tasks(uid string) *firestore.CollectionRef {
	return c.client.Collection(usersCollection).Doc(uid).Collection(tasksCollection)
}

// Subscribe opens a live query over the user's tasks ordered by
// creation time, newest first. Every server-side change delivers the
// full decoded list to onSnapshot; a transport failure goes to onError
// and ends the stream (no reconnect). The returned stop function tears
// the subscription down and must be called on session end.
func (c *Channel) Subscribe(ctx context.Context, uid string, onSnapshot func([]model.Task), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	snaps := c.tasks(uid).Query.OrderBy("createdAt", firestore.Desc).Snapshots(ctx)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					onError(err)
				}
				return
			}
			onSnapshot(decodeSnapshot(snap))
		}
	}()

	return cancel
}

func decodeSnapshot(snap *firestore.QuerySnapshot) []model.Task {
	serverTasks := []model.Task{}
	docs := snap.Documents
	for {
		docSnap, err := docs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Warn("snapshot document iteration failed", zap.Error(err))
			break
		}

		var doc taskDoc
		if err := docSnap.DataTo(&doc); err != nil {
			logger.Warn("task document decode failed",
				zap.String("doc_id", docSnap.Ref.ID), zap.Error(err))
			continue
		}
		serverTasks = append(serverTasks, model.Task{
			ID:             docSnap.Ref.ID,
			Text:           doc.Text,
			Completed:      doc.Completed,
			DueDate:        parseDueDate(docSnap.Ref.ID, doc.DueDate),
			NotificationID: doc.NotificationID,
			CreatedAt:      doc.CreatedAt,
		})
	}
	return serverTasks
}

// Create appends a new document; Firestore assigns the identifier.
func (c *Channel) Create(ctx context.Context, uid string, t model.Task) (string, error) {
	ref, _, err := c.tasks(uid).Add(ctx, taskDoc{
		Text:           t.Text,
		Completed:      t.Completed,
		DueDate:        formatDueDate(t.DueDate),
		NotificationID: t.NotificationID,
		CreatedAt:      time.Now().UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create task document: %w", err)
	}
	return ref.ID, nil
}

// Patch pushes only the fields the patch touches; everything else is
// left untouched server-side.
func (c *Channel) Patch(ctx context.Context, uid, id string, patch model.TaskPatch) error {
	fields := map[string]interface{}{}
	if patch.Text != nil {
		fields["text"] = *patch.Text
	}
	if patch.Completed != nil {
		fields["completed"] = *patch.Completed
	}
	if patch.HasDueDate {
		fields["dueDate"] = formatDueDate(patch.DueDate)
	}
	if len(fields) == 0 {
		return nil
	}

	if _, err := c.tasks(uid).Doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to patch task document %s: %w", id, err)
	}
	return nil
}

// Remove deletes a document; an already-absent document is success.
func (c *Channel) Remove(ctx context.Context, uid, id string) error {
	if _, err := c.tasks(uid).Doc(id).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete task document %s: %w", id, err)
	}
	return nil
}

func formatDueDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseDueDate(docID string, s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		logger.Warn("invalid dueDate on task document",
			zap.String("doc_id", docID), zap.Error(err))
		return nil
	}
	return &t
}

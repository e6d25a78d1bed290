// Package notify delivers notifications to a user's devices.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/google/uuid"
)

const subjectPrefix = "geoplaylists.notifications."

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Pusher forwards a notification to open app sessions.
type Pusher interface {
	Push(userID uuid.UUID, n model.Notification) error
}

// Notifier is created once at startup and shared by reference. Notifications go
// to any open app session over the websocket hub and to the push gateway over
// NATS, which reaches devices where the app is closed.
type Notifier struct {
	pusher    Pusher
	publisher Publisher
	now       func() time.Time
}

// New builds a Notifier. Either collaborator may be nil.
func New(pusher Pusher, publisher Publisher) *Notifier {
	return &Notifier{pusher: pusher, publisher: publisher, now: time.Now}
}

func Subject(userID uuid.UUID) string {
	return subjectPrefix + userID.String()
}

type envelope struct {
	UserID       uuid.UUID          `json:"user_id"`
	Notification model.Notification `json:"notification"`
}

// Schedule delivers n immediately.
func (n *Notifier) Schedule(_ context.Context, userID uuid.UUID, note model.Notification) error {
	if note.SentAt.IsZero() {
		note.SentAt = n.now().UTC()
	}

	if n.pusher != nil {
		if err := n.pusher.Push(userID, note); err != nil {
			log.Printf("[Notify]: websocket push for user %s: %v", userID, err)
		}
	}

	if n.publisher == nil {
		return nil
	}

	data, err := json.Marshal(envelope{UserID: userID, Notification: note})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := n.publisher.Publish(Subject(userID), data); err != nil {
		log.Printf("[Notify]: publishing %s notification for user %s: %v", note.Kind, userID, err)
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// Package message implements patient/doctor messaging and the notification
// fan-out that accompanies messages and other clinical events.
package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/ids"
	"medrecord.org/internal/stream"
)

// Message is a direct message between two accounts.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

// Notification is a persisted per-account event record.
type Notification struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Kind      string     `json:"kind"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Notification kinds.
const (
	KindMessage      = "message.received"
	KindApplication  = "application.decided"
	KindPrescription = "prescription.issued"
)

var (
	ErrNotFound     = errors.New("message: not found")
	ErrInvalidInput = errors.New("message: invalid input")
)

// Store defines persistence for messages and notifications.
type Store interface {
	CreateMessage(ctx context.Context, m Message) (Message, error)
	// ListConversation returns messages exchanged between two accounts in
	// chronological order.
	ListConversation(ctx context.Context, a, b string) ([]Message, error)
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	ListNotifications(ctx context.Context, accountID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, accountID, id string, readAt time.Time) error
}

// Service gates messaging behind the authorization engine and mirrors each
// delivery into the notification store and the live stream.
type Service struct {
	store  Store
	stream *stream.Stream
	now    func() time.Time
}

func NewService(store Store, live *stream.Stream) (*Service, error) {
	if store == nil {
		return nil, errors.New("message store is required")
	}
	return &Service{store: store, stream: live, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Send delivers a message from the caller to receiverID. The capability is
// chosen by the sender's active role, so a pending doctor is denied even
// though the doctor role is in its role set.
func (s *Service) Send(ctx context.Context, sender *account.Account, receiverID, content string) (Message, error) {
	if sender == nil {
		return Message{}, authz.ErrUnauthenticated
	}
	var capability authz.Capability
	switch sender.ActiveRole {
	case account.RoleDoctor:
		capability = authz.CapDoctorMessaging
	default:
		capability = authz.CapPatientMessaging
	}
	if err := authz.Decide(sender, capability); err != nil {
		return Message{}, err
	}

	receiverID = strings.TrimSpace(receiverID)
	content = strings.TrimSpace(content)
	if receiverID == "" || content == "" {
		return Message{}, fmt.Errorf("%w: receiver_id and content are required", ErrInvalidInput)
	}
	if receiverID == sender.ID {
		return Message{}, fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}

	msg, err := s.store.CreateMessage(ctx, Message{
		ID:         ids.New(),
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		Content:    content,
		SentAt:     s.now(),
	})
	if err != nil {
		return Message{}, err
	}
	s.Notify(ctx, receiverID, KindMessage, fmt.Sprintf("New message from %s", sender.Name))
	return msg, nil
}

// Conversation lists messages between the caller and the other party.
func (s *Service) Conversation(ctx context.Context, actor *account.Account, otherID string) ([]Message, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	var capability authz.Capability
	switch actor.ActiveRole {
	case account.RoleDoctor:
		capability = authz.CapDoctorMessaging
	default:
		capability = authz.CapPatientMessaging
	}
	if err := authz.Decide(actor, capability); err != nil {
		return nil, err
	}
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	return s.store.ListConversation(ctx, actor.ID, otherID)
}

// Notify records a notification and pushes it to live subscribers. Failures
// to persist are returned; the live push is best effort.
func (s *Service) Notify(ctx context.Context, accountID, kind, body string) {
	n := Notification{
		ID:        ids.New(),
		AccountID: accountID,
		Kind:      kind,
		Body:      body,
		CreatedAt: s.now(),
	}
	// Notification delivery must not fail the triggering operation.
	_, _ = s.store.CreateNotification(ctx, n)
	if s.stream != nil {
		s.stream.Publish(stream.Event{
			AccountID: accountID,
			Kind:      kind,
			Body:      body,
			Timestamp: n.CreatedAt,
		})
	}
}

// Notifications lists the caller's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, actor *account.Account) ([]Notification, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	return s.store.ListNotifications(ctx, actor.ID)
}

// MarkRead marks one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor *account.Account, id string) error {
	if actor == nil {
		return authz.ErrUnauthenticated
	}
	return s.store.MarkNotificationRead(ctx, actor.ID, id, s.now())
}

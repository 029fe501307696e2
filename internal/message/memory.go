package message

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu            sync.RWMutex
	messages      []Message
	notifications map[string][]Notification // account ID -> notifications
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[string][]Notification)}
}

func (s *InMemory) CreateMessage(ctx context.Context, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *InMemory) ListConversation(ctx context.Context, a, b string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Message
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (s *InMemory) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.AccountID] = append(s.notifications[n.AccountID], n)
	return n, nil
}

func (s *InMemory) ListNotifications(ctx context.Context, accountID string) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.notifications[accountID]
	out := make([]Notification, len(list))
	copy(out, list)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) MarkNotificationRead(ctx context.Context, accountID, id string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[accountID]
	for i := range list {
		if list[i].ID == id {
			t := readAt
			list[i].ReadAt = &t
			return nil
		}
	}
	return ErrNotFound
}

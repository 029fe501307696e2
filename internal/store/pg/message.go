package pg

import (
	"context"
	"database/sql"
	"time"

	"medrecord.org/internal/message"
)

var _ message.Store = (*Store)(nil)

func (s *Store) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into messages (id, sender_id, receiver_id, content, sent_at)
		values ($1,$2,$3,$4,$5)
	`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.SentAt)
	if err != nil {
		return message.Message{}, err
	}
	return m, nil
}

func (s *Store) ListConversation(ctx context.Context, a, b string) ([]message.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, sender_id, receiver_id, content, sent_at
		from messages
		where (sender_id=$1 and receiver_id=$2) or (sender_id=$2 and receiver_id=$1)
		order by sent_at
	`, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []message.Message
	for rows.Next() {
		var m message.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) CreateNotification(ctx context.Context, n message.Notification) (message.Notification, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into notifications (id, account_id, kind, body, created_at, read_at)
		values ($1,$2,$3,$4,$5,null)
	`, n.ID, n.AccountID, n.Kind, n.Body, n.CreatedAt)
	if err != nil {
		return message.Notification{}, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, accountID string) ([]message.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, account_id, kind, body, created_at, read_at
		from notifications where account_id=$1 order by created_at desc
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []message.Notification
	for rows.Next() {
		var (
			n      message.Notification
			readAt sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Kind, &n.Body, &n.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, accountID, id string, readAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update notifications set read_at=$3
		where id=$1 and account_id=$2 and read_at is null
	`, id, accountID, readAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return message.ErrNotFound
	}
	return nil
}

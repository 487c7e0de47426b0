package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/rs/xid"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

// SystemSenderID and SystemSenderName author the announcement messages
// written by moderation actions.
const (
	SystemSenderID   = "system"
	SystemSenderName = "URA System"
)

// SendMessage persists a new message on a channel and returns it with its
// server-assigned id and timestamp.
//
// The block check runs here, inside the same transaction as the insert,
// against the sender row as stored right now. A client-held stale copy of
// the user record is only a UX hint; this is the enforcement point.
func (s *Store) SendMessage(ctx context.Context, channel string, m chat.Message) (*chat.Message, error) {
	s.logger.Debugf("Creating message from user (%s) in channel (%s)", m.SenderID, channel)

	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	// error handling can be omitted for rollback according docs
	// see https://pkg.go.dev/github.com/jackc/pgx/v4?tab=doc#hdr-Transactions or any source comment on Rollback
	defer tx.Rollback(context.Background())

	if m.SenderID != SystemSenderID {
		var isBlocked bool
		var blockExpires int64
		sql := "select is_blocked, block_expires from users where username = $1"
		err = tx.QueryRow(ctx, sql, m.SenderID).Scan(&isBlocked, &blockExpires)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		if isBlocked {
			if blockExpires > chat.Millis(now) {
				return nil, ErrBlocked
			}
			// Lazy expiry: the block ran out, clear it on this read path.
			sql = "update users set is_blocked = false, block_expires = 0 where username = $1"
			if _, err = tx.Exec(ctx, sql, m.SenderID); err != nil {
				return nil, err
			}
		}
	}

	m.ID = xid.New().String()
	m.Timestamp = chat.Millis(now)

	var replyTo interface{}
	if m.ReplyTo != nil {
		buf, err := json.Marshal(m.ReplyTo)
		if err != nil {
			return nil, err
		}
		replyTo = buf
	}

	sql := `insert into messages
			(id, channel, sender_id, sender_name, sender_profile_url, role, text, image_url, reply_to, created_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = tx.Exec(ctx, sql,
		m.ID, channel, m.SenderID, m.SenderName, m.SenderProfileURL,
		string(m.Role), m.Text, m.ImageURL, replyTo, now)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Debugf("Created message (%s) in channel (%s)", m.ID, channel)

	return &m, nil
}

// MessagesByChannel returns all channel messages sorted by creation time
// (from earliest to latest), ties broken by id.
func (s *Store) MessagesByChannel(ctx context.Context, channel string) ([]chat.Message, error) {
	s.logger.Debugf("Retrieving messages for channel (%s)", channel)

	sql := `select id, sender_id, sender_name, sender_profile_url, role, text, image_url, reply_to, created_at
			  from messages
			 where channel = $1
			 order by created_at asc, id asc`

	rows, err := s.db.Query(ctx, sql, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d messages", len(messages))

	return messages, nil
}

// MessageSnapshot returns the channel contents as a keyed map, the shape
// change listeners receive on each delivery.
func (s *Store) MessageSnapshot(ctx context.Context, channel string) (map[string]chat.Message, error) {
	messages, err := s.MessagesByChannel(ctx, channel)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]chat.Message, len(messages))
	for _, m := range messages {
		snap[m.ID] = m
	}
	return snap, nil
}

// GetMessage fetches a single message by channel and id.
func (s *Store) GetMessage(ctx context.Context, channel, id string) (*chat.Message, error) {
	sql := `select id, sender_id, sender_name, sender_profile_url, role, text, image_url, reply_to, created_at
			  from messages
			 where channel = $1 and id = $2`

	row := s.db.QueryRow(ctx, sql, channel, id)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

// DeleteMessage removes a message. Authorization (self or moderator) is the
// caller's concern.
func (s *Store) DeleteMessage(ctx context.Context, channel, id string) error {
	s.logger.Debugf("Deleting message (%s) from channel (%s)", id, channel)

	tag, err := s.db.Exec(ctx, "delete from messages where channel = $1 and id = $2", channel, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func scanMessage(row pgx.Row) (chat.Message, error) {
	var m chat.Message
	var role string
	var replyTo pgtype.JSONB
	var createdAt time.Time

	err := row.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.SenderProfileURL,
		&role, &m.Text, &m.ImageURL, &replyTo, &createdAt)
	if err != nil {
		return m, err
	}

	m.Role = chat.Role(role)
	m.Timestamp = chat.Millis(createdAt)

	if replyTo.Status == pgtype.Present {
		var ref chat.ReplyRef
		if err := json.Unmarshal(replyTo.Bytes, &ref); err != nil {
			return m, err
		}
		m.ReplyTo = &ref
	}

	return m, nil
}

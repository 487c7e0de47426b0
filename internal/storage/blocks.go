package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/xid"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

// Block flips the user's block fields and appends a system-authored
// announcement to the public channel, both in one transaction.
func (s *Store) Block(ctx context.Context, username string, expires time.Time, announcement string) error {
	s.logger.Infof("Blocking user (%s) until %s", username, expires)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(context.Background())

	sql := "update users set is_blocked = true, block_expires = $2 where username = $1"
	tag, err := tx.Exec(ctx, sql, username, chat.Millis(expires))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err = appendSystemMessage(ctx, tx, announcement); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Unblock clears the block fields and announces the action.
func (s *Store) Unblock(ctx context.Context, username string, announcement string) error {
	s.logger.Infof("Unblocking user (%s)", username)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(context.Background())

	sql := "update users set is_blocked = false, block_expires = 0 where username = $1"
	tag, err := tx.Exec(ctx, sql, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err = appendSystemMessage(ctx, tx, announcement); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func appendSystemMessage(ctx context.Context, tx pgx.Tx, text string) error {
	now := time.Now()
	sql := `insert into messages
			(id, channel, sender_id, sender_name, sender_profile_url, role, text, image_url, reply_to, created_at)
			values ($1, $2, $3, $4, '', $5, $6, '', null, $7)`
	_, err := tx.Exec(ctx, sql,
		xid.New().String(), chat.PublicChannel, SystemSenderID, SystemSenderName,
		string(chat.RoleSystem), text, now)
	return err
}

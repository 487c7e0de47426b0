package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	"github.com/uranetworks7-commits/Chat-pro/internal/friends"
)

// ApplyFriendUpdate executes a multi-path friend payload in one transaction.
// Either every mirrored write lands or none does, so the two sides of a pair
// can never diverge mid-transition.
func (s *Store) ApplyFriendUpdate(ctx context.Context, update friends.Update) error {
	s.logger.Debugf("Applying friend update with %d writes", len(update))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(context.Background())

	for _, w := range update {
		var sql string
		var args []interface{}

		switch w.Op {
		case friends.SetRequest:
			sql = `insert into friend_requests (username, other, status)
				   values ($1, $2, $3)
				   on conflict (username, other) do update set status = excluded.status`
			args = []interface{}{w.Owner, w.Other, string(w.Status)}
		case friends.ClearRequest:
			sql = "delete from friend_requests where username = $1 and other = $2"
			args = []interface{}{w.Owner, w.Other}
		case friends.SetFriend:
			// Idempotent on purpose: accepting twice leaves the same relation.
			sql = `insert into friends (username, friend)
				   values ($1, $2)
				   on conflict (username, friend) do nothing`
			args = []interface{}{w.Owner, w.Other}
		case friends.ClearFriend:
			sql = "delete from friends where username = $1 and friend = $2"
			args = []interface{}{w.Owner, w.Other}
		}

		if _, err = tx.Exec(ctx, sql, args...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				if pgErr.Code == pgerrcode.ForeignKeyViolation {
					return ErrUserNotFound
				}
			}
			return err
		}
	}

	return tx.Commit(ctx)
}

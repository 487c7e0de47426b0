package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

// CreateReport appends an abuse report. Reports are keyed by the reported
// message id and never mutated; a second report of the same message is
// ErrReportExists.
func (s *Store) CreateReport(ctx context.Context, r chat.Report) error {
	s.logger.Debugf("Creating report on message (%s) by (%s)", r.MessageID, r.Reporter)

	sql := `insert into reports (message_id, reporter, reported_user, message, reason, created_at)
			values ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.Exec(ctx, sql, r.MessageID, r.Reporter, r.ReportedUser, r.Message, r.Reason, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.UniqueViolation {
				return ErrReportExists
			}
		}
		return err
	}
	return nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

// UpsertMetadata overwrites the private chat summary for a pair id. The
// write is idempotent (full replacement), so a retried or out-of-order
// refresh cannot corrupt the record.
func (s *Store) UpsertMetadata(ctx context.Context, pairID string, meta chat.PrivateChatMetadata) error {
	s.logger.Debugf("Updating metadata for private chat (%s)", pairID)

	participants, err := json.Marshal(meta.Participants)
	if err != nil {
		return err
	}

	sql := `insert into private_chat_metadata (pair_id, last_message, updated_at, participants)
			values ($1, $2, $3, $4)
			on conflict (pair_id) do update
			set last_message = excluded.last_message,
				updated_at = excluded.updated_at,
				participants = excluded.participants`
	_, err = s.db.Exec(ctx, sql, pairID, meta.LastMessage, time.Now(), participants)
	return err
}

// GetMetadata fetches the private chat summary for a pair id.
func (s *Store) GetMetadata(ctx context.Context, pairID string) (*chat.PrivateChatMetadata, error) {
	sql := `select last_message, updated_at, participants
			  from private_chat_metadata
			 where pair_id = $1`

	var meta chat.PrivateChatMetadata
	var updatedAt time.Time
	var participants pgtype.JSONB
	err := s.db.QueryRow(ctx, sql, pairID).Scan(&meta.LastMessage, &updatedAt, &participants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMetadataNotFound
		}
		return nil, err
	}

	meta.Timestamp = chat.Millis(updatedAt)
	if err := json.Unmarshal(participants.Bytes, &meta.Participants); err != nil {
		return nil, err
	}
	return &meta, nil
}

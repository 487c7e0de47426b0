package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage/zapadapter"
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user does not exist")
	ErrNameMismatch     = errors.New("display name does not match")
	ErrBlocked          = errors.New("user is blocked")
	ErrMessageNotFound  = errors.New("message does not exist")
	ErrMetadataNotFound = errors.New("private chat metadata does not exist")
	ErrReportExists     = errors.New("message is already reported")
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() {
	s.db.Close()
}

// CreateUser creates a user record on first login. Role defaults to "user".
func (s *Store) CreateUser(ctx context.Context, username, customName string) (*chat.User, error) {
	s.logger.Debugf("Creating user (%s)", username)

	sql := `insert into users (username, custom_name, role, created_at)
			values ($1, $2, $3, $4)`
	_, err := s.db.Exec(ctx, sql, username, customName, string(chat.RoleUser), time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.UniqueViolation {
				return nil, ErrUserExists
			}
		}
		return nil, err
	}

	s.logger.Debugf("Created user (%s)", username)

	return &chat.User{Username: username, CustomName: customName, Role: chat.RoleUser}, nil
}

// Login fetches the user record and verifies the provided display name
// against the stored one. A mismatch is ErrNameMismatch, a missing user is
// ErrUserNotFound.
func (s *Store) Login(ctx context.Context, username, customName string) (*chat.User, error) {
	u, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u.CustomName != customName {
		return nil, ErrNameMismatch
	}
	return u, nil
}

// GetUser loads a user record with its friends and friend-request relations.
func (s *Store) GetUser(ctx context.Context, username string) (*chat.User, error) {
	u := &chat.User{Username: username}

	sql := `select custom_name, role, profile_image_url, is_blocked, block_expires
			  from users
			 where username = $1`
	var role string
	err := s.db.QueryRow(ctx, sql, username).
		Scan(&u.CustomName, &role, &u.ProfileImageURL, &u.IsBlocked, &u.BlockExpires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = chat.Role(role)

	rows, err := s.db.Query(ctx, "select friend from friends where username = $1", username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var friend string
		if err := rows.Scan(&friend); err != nil {
			return nil, err
		}
		if u.Friends == nil {
			u.Friends = make(map[string]bool)
		}
		u.Friends[friend] = true
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = s.db.Query(ctx, "select other, status from friend_requests where username = $1", username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var other, status string
		if err := rows.Scan(&other, &status); err != nil {
			return nil, err
		}
		if u.FriendRequests == nil {
			u.FriendRequests = make(map[string]chat.RequestStatus)
		}
		u.FriendRequests[other] = chat.RequestStatus(status)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return u, nil
}

// ListUsers returns lightweight user records (no relations), ordered by
// username. Backs the display-name search on the add-friend flow.
func (s *Store) ListUsers(ctx context.Context) ([]chat.User, error) {
	sql := `select username, custom_name, role, profile_image_url
			  from users
			 order by username`

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []chat.User
	for rows.Next() {
		var u chat.User
		var role string
		if err := rows.Scan(&u.Username, &u.CustomName, &role, &u.ProfileImageURL); err != nil {
			return nil, err
		}
		u.Role = chat.Role(role)
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

// UpdateProfile changes the display name and avatar of an existing user.
func (s *Store) UpdateProfile(ctx context.Context, username, customName, profileImageURL string) error {
	s.logger.Debugf("Updating profile for user (%s)", username)

	sql := `update users
			   set custom_name = $2, profile_image_url = $3
			 where username = $1`
	tag, err := s.db.Exec(ctx, sql, username, customName, profileImageURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

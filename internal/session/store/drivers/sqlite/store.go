// Package sqlite persists sessions in a SQLite database through
// modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
	"github.com/aussiebroadwan/sessiond/internal/session/store"
	_ "modernc.org/sqlite"
)

var _ store.Sessions = (*Store)(nil)

type Store struct {
	db  *sql.DB
	dsn string
}

// NewStore opens dsn. In-memory databases are pinned to a single connection
// so every query sees the same schema.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sessionColumns = `id, user_id, roles, permissions, device_info, is_remember_me, created_at, last_activity`

func (s *Store) Get(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return sess, nil
}

func (s *Store) Set(ctx context.Context, sess domain.Session) error {
	roles, err := json.Marshal(nonNil(sess.Roles))
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	perms, err := json.Marshal(nonNil(sess.Permissions))
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	device, err := json.Marshal(sess.DeviceInfo)
	if err != nil {
		return fmt.Errorf("encode device info: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id        = excluded.user_id,
			roles          = excluded.roles,
			permissions    = excluded.permissions,
			device_info    = excluded.device_info,
			is_remember_me = excluded.is_remember_me,
			created_at     = excluded.created_at,
			last_activity  = excluded.last_activity`,
		sess.ID,
		sess.UserID,
		string(roles),
		string(perms),
		string(device),
		sess.IsRememberMe,
		sess.CreatedAt.UnixMilli(),
		sess.LastActivity.UnixMilli(),
	)
	return err
}

func (s *Store) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = MAX(last_activity, ?) WHERE id = ?`,
		at.UnixMilli(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.queryMany(ctx, `DELETE FROM sessions WHERE user_id = ? RETURNING `+sessionColumns, userID)
}

func (s *Store) DeleteIdle(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	return s.queryMany(ctx, `DELETE FROM sessions WHERE last_activity < ? RETURNING `+sessionColumns, cutoff.UnixMilli())
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.queryMany(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY last_activity DESC, id DESC`,
		userID,
	)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

func (s *Store) queryMany(ctx context.Context, query string, args ...any) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (domain.Session, error) {
	var (
		sess                  domain.Session
		roles, perms, device  string
		createdAt, lastActive int64
	)
	if err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&roles,
		&perms,
		&device,
		&sess.IsRememberMe,
		&createdAt,
		&lastActive,
	); err != nil {
		return domain.Session{}, err
	}

	if err := json.Unmarshal([]byte(roles), &sess.Roles); err != nil {
		return domain.Session{}, fmt.Errorf("decode roles: %w", err)
	}
	if err := json.Unmarshal([]byte(perms), &sess.Permissions); err != nil {
		return domain.Session{}, fmt.Errorf("decode permissions: %w", err)
	}
	if err := json.Unmarshal([]byte(device), &sess.DeviceInfo); err != nil {
		return domain.Session{}, fmt.Errorf("decode device info: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(createdAt).UTC()
	sess.LastActivity = time.UnixMilli(lastActive).UTC()
	return sess, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

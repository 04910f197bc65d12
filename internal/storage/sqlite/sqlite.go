package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"userinfobot/internal/models"
	"userinfobot/internal/storage"
	"userinfobot/internal/storage/migrations"
)

const userColumns = `user_id, first_name, last_name, username, language_code, is_premium,
	is_banned, ban_reason, unban_at, bio, joined_at`

const insertAllColumns = `INSERT INTO users (` + userColumns + `)
	VALUES (:user_id, :first_name, :last_name, :username, :language_code, :is_premium,
		:is_banned, :ban_reason, :unban_at, :bio, :joined_at)`

// SQLiteDB is the file-backed fallback used when no DATABASE_URL is configured
type SQLiteDB struct {
	db *sqlx.DB
}

var _ storage.Storage = (*SQLiteDB)(nil)

// userRow mirrors the table; timestamps are RFC 3339 text
type userRow struct {
	UserID       int64          `db:"user_id"`
	FirstName    sql.NullString `db:"first_name"`
	LastName     sql.NullString `db:"last_name"`
	Username     sql.NullString `db:"username"`
	LanguageCode sql.NullString `db:"language_code"`
	IsPremium    bool           `db:"is_premium"`
	IsBanned     bool           `db:"is_banned"`
	BanReason    sql.NullString `db:"ban_reason"`
	UnbanAt      sql.NullString `db:"unban_at"`
	Bio          sql.NullString `db:"bio"`
	JoinedAt     string         `db:"joined_at"`
}

// NewSQLiteDB opens (or creates) the database file
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// Initialize applies the embedded migrations
func (s *SQLiteDB) Initialize(ctx context.Context) error {
	return migrations.Up(s.db.DB, migrations.SQLite)
}

func toRow(u models.User) userRow {
	joined := u.JoinedAt
	if joined.IsZero() {
		joined = time.Now()
	}
	r := userRow{
		UserID:       u.UserID,
		FirstName:    nullString(u.FirstName),
		LastName:     nullString(u.LastName),
		Username:     nullString(u.Username),
		LanguageCode: nullString(u.LanguageCode),
		IsPremium:    u.IsPremium,
		IsBanned:     u.IsBanned,
		BanReason:    nullString(u.BanReason),
		Bio:          nullString(u.Bio),
		JoinedAt:     formatTime(joined),
	}
	if u.UnbanAt != nil {
		r.UnbanAt = sql.NullString{String: formatTime(*u.UnbanAt), Valid: true}
	}
	return r
}

func (r userRow) toUser() (models.User, error) {
	u := models.User{
		UserID:       r.UserID,
		FirstName:    stringPtr(r.FirstName),
		LastName:     stringPtr(r.LastName),
		Username:     stringPtr(r.Username),
		LanguageCode: stringPtr(r.LanguageCode),
		IsPremium:    r.IsPremium,
		IsBanned:     r.IsBanned,
		BanReason:    stringPtr(r.BanReason),
		Bio:          stringPtr(r.Bio),
	}

	joined, err := parseTime(r.JoinedAt)
	if err != nil {
		return u, fmt.Errorf("invalid joined_at for user %d: %w", r.UserID, err)
	}
	u.JoinedAt = joined

	if r.UnbanAt.Valid {
		t, err := parseTime(r.UnbanAt.String)
		if err != nil {
			return u, fmt.Errorf("invalid unban_at for user %d: %w", r.UserID, err)
		}
		u.UnbanAt = &t
	}
	return u, nil
}

// UpsertUser inserts the user or refreshes its profile fields
func (s *SQLiteDB) UpsertUser(ctx context.Context, u models.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (user_id, first_name, last_name, username, language_code, is_premium, bio, joined_at)
		VALUES (:user_id, :first_name, :last_name, :username, :language_code, :is_premium, :bio, :joined_at)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name    = excluded.first_name,
			last_name     = excluded.last_name,
			username      = excluded.username,
			language_code = excluded.language_code,
			is_premium    = excluded.is_premium,
			bio           = COALESCE(excluded.bio, users.bio)
	`, toRow(models.User{
		UserID:       u.UserID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
		IsPremium:    u.IsPremium,
		Bio:          u.Bio,
	}))
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.UserID, err)
	}
	return nil
}

func (s *SQLiteDB) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var r userRow
	if err := s.db.GetContext(ctx, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u, err := r.toUser()
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns a single user or nil when not found
func (s *SQLiteDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return u, nil
}

// FindByUsername returns the lowest user_id with the given handle
func (s *SQLiteDB) FindByUsername(ctx context.Context, handle string) (*models.User, error) {
	handle = storage.NormalizeHandle(handle)
	if handle == "" {
		return nil, nil
	}
	u, err := s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? ORDER BY user_id LIMIT 1`, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to find user @%s: %w", handle, err)
	}
	return u, nil
}

// SetBanned bans the user, creating a bare row for unknown ids
func (s *SQLiteDB) SetBanned(ctx context.Context, userID int64, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, is_banned, ban_reason, joined_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			is_banned  = 1,
			ban_reason = excluded.ban_reason,
			unban_at   = NULL
	`, userID, reason, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to ban user %d: %w", userID, err)
	}
	return nil
}

// SetUnbanAt stores the deadline of an active ban
func (s *SQLiteDB) SetUnbanAt(ctx context.Context, userID int64, deadline time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET unban_at = ? WHERE user_id = ? AND is_banned = 1`,
		formatTime(deadline), userID)
	if err != nil {
		return fmt.Errorf("failed to set unban deadline for user %d: %w", userID, err)
	}
	return nil
}

// ClearBan lifts the ban and drops its reason and deadline
func (s *SQLiteDB) ClearBan(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_banned = 0, ban_reason = NULL, unban_at = NULL WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to unban user %d: %w", userID, err)
	}
	return nil
}

// CountUsers returns the number of rows
func (s *SQLiteDB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountBanned returns the number of banned rows
func (s *SQLiteDB) CountBanned(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE is_banned = 1`); err != nil {
		return 0, fmt.Errorf("failed to count banned users: %w", err)
	}
	return n, nil
}

// SnapshotAll returns all users ordered by id
func (s *SQLiteDB) SnapshotAll(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("failed to snapshot users: %w", err)
	}

	users := make([]models.User, 0, len(rows))
	for _, r := range rows {
		u, err := r.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// BulkReplace swaps the whole table content inside one transaction
func (s *SQLiteDB) BulkReplace(ctx context.Context, users []models.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin restore: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertAllColumns)
	if err != nil {
		return fmt.Errorf("failed to prepare restore insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, toRow(u)); err != nil {
			return fmt.Errorf("failed to restore user %d: %w", u.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}
	return nil
}

// ImportUser overwrites every column of the user
func (s *SQLiteDB) ImportUser(ctx context.Context, u models.User) error {
	_, err := s.db.NamedExecContext(ctx, insertAllColumns+`
		ON CONFLICT (user_id) DO UPDATE SET
			first_name    = excluded.first_name,
			last_name     = excluded.last_name,
			username      = excluded.username,
			language_code = excluded.language_code,
			is_premium    = excluded.is_premium,
			is_banned     = excluded.is_banned,
			ban_reason    = excluded.ban_reason,
			unban_at      = excluded.unban_at,
			bio           = excluded.bio,
			joined_at     = excluded.joined_at
	`, toRow(u))
	if err != nil {
		return fmt.Errorf("failed to import user %d: %w", u.UserID, err)
	}
	return nil
}

// Close closes the database file
func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

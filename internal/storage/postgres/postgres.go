package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	// goose opens its own database/sql connection through lib/pq
	_ "github.com/lib/pq"

	"userinfobot/internal/models"
	"userinfobot/internal/storage"
	"userinfobot/internal/storage/migrations"
)

const userColumns = `user_id, first_name, last_name, username, language_code, is_premium,
	is_banned, ban_reason, unban_at, bio, joined_at`

var copyColumns = []string{
	"user_id", "first_name", "last_name", "username", "language_code", "is_premium",
	"is_banned", "ban_reason", "unban_at", "bio", "joined_at",
}

// PostgresDB is a storage.Storage backed by a pgx connection pool
type PostgresDB struct {
	pool *pgxpool.Pool
	dsn  string
}

var _ storage.Storage = (*PostgresDB)(nil)

// NewPostgresDB connects to PostgreSQL and verifies the connection
func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &PostgresDB{pool: pool, dsn: dsn}, nil
}

// Initialize applies the embedded migrations
func (db *PostgresDB) Initialize(ctx context.Context) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", db.dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	return migrations.Up(sqlDB, migrations.Postgres)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Username, &u.LanguageCode, &u.IsPremium,
		&u.IsBanned, &u.BanReason, &u.UnbanAt, &u.Bio, &u.JoinedAt)
	if err != nil {
		return nil, err
	}
	u.JoinedAt = u.JoinedAt.UTC()
	if u.UnbanAt != nil {
		t := u.UnbanAt.UTC()
		u.UnbanAt = &t
	}
	return &u, nil
}

// UpsertUser inserts the user or refreshes its profile fields
func (db *PostgresDB) UpsertUser(ctx context.Context, u models.User) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO users (user_id, first_name, last_name, username, language_code, is_premium, bio)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name    = EXCLUDED.first_name,
			last_name     = EXCLUDED.last_name,
			username      = EXCLUDED.username,
			language_code = EXCLUDED.language_code,
			is_premium    = EXCLUDED.is_premium,
			bio           = COALESCE(EXCLUDED.bio, users.bio)
	`, u.UserID, u.FirstName, u.LastName, u.Username, u.LanguageCode, u.IsPremium, u.Bio)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.UserID, err)
	}
	return nil
}

// GetUser returns a single user or nil when not found
func (db *PostgresDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return u, nil
}

// FindByUsername returns any user with the given handle
func (db *PostgresDB) FindByUsername(ctx context.Context, handle string) (*models.User, error) {
	handle = storage.NormalizeHandle(handle)
	if handle == "" {
		return nil, nil
	}

	row := db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 ORDER BY user_id LIMIT 1`, handle)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user @%s: %w", handle, err)
	}
	return u, nil
}

// SetBanned bans the user, creating a bare row for unknown ids
func (db *PostgresDB) SetBanned(ctx context.Context, userID int64, reason string) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO users (user_id, is_banned, ban_reason)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			is_banned  = TRUE,
			ban_reason = EXCLUDED.ban_reason,
			unban_at   = NULL
	`, userID, reason)
	if err != nil {
		return fmt.Errorf("failed to ban user %d: %w", userID, err)
	}
	return nil
}

// SetUnbanAt stores the deadline of an active ban
func (db *PostgresDB) SetUnbanAt(ctx context.Context, userID int64, deadline time.Time) error {
	_, err := db.pool.Exec(ctx, `UPDATE users SET unban_at = $2 WHERE user_id = $1 AND is_banned`,
		userID, deadline.UTC())
	if err != nil {
		return fmt.Errorf("failed to set unban deadline for user %d: %w", userID, err)
	}
	return nil
}

// ClearBan lifts the ban and drops its reason and deadline
func (db *PostgresDB) ClearBan(ctx context.Context, userID int64) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE users SET is_banned = FALSE, ban_reason = NULL, unban_at = NULL WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to unban user %d: %w", userID, err)
	}
	return nil
}

// CountUsers returns the number of rows
func (db *PostgresDB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountBanned returns the number of banned rows
func (db *PostgresDB) CountBanned(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_banned`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count banned users: %w", err)
	}
	return n, nil
}

// SnapshotAll returns all users ordered by id
func (db *PostgresDB) SnapshotAll(ctx context.Context) ([]models.User, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to snapshot users: %w", err)
	}
	return users, nil
}

// BulkReplace swaps the whole table content inside one transaction
func (db *PostgresDB) BulkReplace(ctx context.Context, users []models.User) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin restore: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE users`); err != nil {
		return fmt.Errorf("failed to truncate users: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"users"}, copyColumns,
		pgx.CopyFromSlice(len(users), func(i int) ([]any, error) {
			u := users[i]
			joined := u.JoinedAt
			if joined.IsZero() {
				joined = now
			}
			return []any{u.UserID, u.FirstName, u.LastName, u.Username, u.LanguageCode, u.IsPremium,
				u.IsBanned, u.BanReason, u.UnbanAt, u.Bio, joined}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to copy users: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}
	return nil
}

// ImportUser overwrites every column of the user
func (db *PostgresDB) ImportUser(ctx context.Context, u models.User) error {
	joined := u.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name    = EXCLUDED.first_name,
			last_name     = EXCLUDED.last_name,
			username      = EXCLUDED.username,
			language_code = EXCLUDED.language_code,
			is_premium    = EXCLUDED.is_premium,
			is_banned     = EXCLUDED.is_banned,
			ban_reason    = EXCLUDED.ban_reason,
			unban_at      = EXCLUDED.unban_at,
			bio           = EXCLUDED.bio,
			joined_at     = EXCLUDED.joined_at
	`, u.UserID, u.FirstName, u.LastName, u.Username, u.LanguageCode, u.IsPremium,
		u.IsBanned, u.BanReason, u.UnbanAt, u.Bio, joined)
	if err != nil {
		return fmt.Errorf("failed to import user %d: %w", u.UserID, err)
	}
	return nil
}

// Close closes the pool
func (db *PostgresDB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

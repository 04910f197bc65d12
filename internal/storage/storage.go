package storage

import (
	"context"
	"strings"
	"time"

	"userinfobot/internal/models"
)

// Storage defines the interface for user persistence
type Storage interface {
	// UpsertUser inserts a new row or refreshes first_name, last_name, username,
	// language_code and is_premium. Bio is only written when non-nil.
	// Ban fields and joined_at are never modified.
	UpsertUser(ctx context.Context, u models.User) error

	// GetUser returns nil without error when the user is unknown
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// FindByUsername matches the stored handle exactly (a leading @ is ignored).
	// Handles are not unique, the lowest user_id wins.
	FindByUsername(ctx context.Context, handle string) (*models.User, error)

	// Ban operations
	SetBanned(ctx context.Context, userID int64, reason string) error
	SetUnbanAt(ctx context.Context, userID int64, deadline time.Time) error
	ClearBan(ctx context.Context, userID int64) error

	CountUsers(ctx context.Context) (int, error)
	CountBanned(ctx context.Context) (int, error)

	// SnapshotAll returns every row ordered by user_id
	SnapshotAll(ctx context.Context) ([]models.User, error)

	// BulkReplace truncates the table and inserts users in one transaction.
	// On failure the table is left unchanged.
	BulkReplace(ctx context.Context, users []models.User) error

	// ImportUser upserts every column, including ban fields, bio and joined_at
	ImportUser(ctx context.Context, u models.User) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// NormalizeHandle strips surrounding spaces and a leading @.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

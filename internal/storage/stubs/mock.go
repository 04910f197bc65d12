package stubs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"userinfobot/internal/models"
	"userinfobot/internal/storage"
)

// ErrInjected is returned by every call while MockDB.Fail is set
var ErrInjected = errors.New("mock database failure")

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu    sync.RWMutex
	users map[int64]models.User

	// Fail makes every operation return ErrInjected
	Fail bool
}

var _ storage.Storage = (*MockDB)(nil)

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		users: make(map[int64]models.User),
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

// UpsertUser inserts the user or refreshes its profile fields
func (m *MockDB) UpsertUser(ctx context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrInjected
	}

	in := u.Clone()
	existing, ok := m.users[u.UserID]
	if !ok {
		m.users[u.UserID] = models.User{
			UserID:       in.UserID,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Username:     in.Username,
			LanguageCode: in.LanguageCode,
			IsPremium:    in.IsPremium,
			Bio:          in.Bio,
			JoinedAt:     now(),
		}
		return nil
	}

	existing.FirstName = in.FirstName
	existing.LastName = in.LastName
	existing.Username = in.Username
	existing.LanguageCode = in.LanguageCode
	existing.IsPremium = in.IsPremium
	if in.Bio != nil {
		existing.Bio = in.Bio
	}
	m.users[u.UserID] = existing
	return nil
}

// GetUser returns a copy of the user or nil when not found
func (m *MockDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, ErrInjected
	}

	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	c := u.Clone()
	return &c, nil
}

// FindByUsername returns the user with the lowest id carrying the handle
func (m *MockDB) FindByUsername(ctx context.Context, handle string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, ErrInjected
	}

	handle = storage.NormalizeHandle(handle)
	if handle == "" {
		return nil, nil
	}
	for _, u := range m.sortedLocked() {
		if models.StringValue(u.Username) == handle {
			c := u.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

// SetBanned bans the user, creating a bare row for unknown ids
func (m *MockDB) SetBanned(ctx context.Context, userID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrInjected
	}

	u, ok := m.users[userID]
	if !ok {
		u = models.User{UserID: userID, JoinedAt: now()}
	}
	u.IsBanned = true
	u.BanReason = &reason
	u.UnbanAt = nil
	m.users[userID] = u
	return nil
}

// SetUnbanAt stores the deadline of an active ban
func (m *MockDB) SetUnbanAt(ctx context.Context, userID int64, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrInjected
	}

	u, ok := m.users[userID]
	if !ok || !u.IsBanned {
		return nil
	}
	d := deadline.UTC()
	u.UnbanAt = &d
	m.users[userID] = u
	return nil
}

// ClearBan lifts the ban
func (m *MockDB) ClearBan(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrInjected
	}

	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	u.IsBanned = false
	u.BanReason = nil
	u.UnbanAt = nil
	m.users[userID] = u
	return nil
}

// CountUsers returns the number of users
func (m *MockDB) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return 0, ErrInjected
	}
	return len(m.users), nil
}

// CountBanned returns the number of banned users
func (m *MockDB) CountBanned(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return 0, ErrInjected
	}
	n := 0
	for _, u := range m.users {
		if u.IsBanned {
			n++
		}
	}
	return n, nil
}

// SnapshotAll returns copies of all users sorted by id
func (m *MockDB) SnapshotAll(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, ErrInjected
	}

	sorted := m.sortedLocked()
	users := make([]models.User, 0, len(sorted))
	for _, u := range sorted {
		users = append(users, u.Clone())
	}
	return users, nil
}

// BulkReplace swaps the whole content
func (m *MockDB) BulkReplace(ctx context.Context, users []models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrInjected
	}

	replaced := make(map[int64]models.User, len(users))
	for _, u := range users {
		c := u.Clone()
		if c.JoinedAt.IsZero() {
			c.JoinedAt = now()
		}
		replaced[u.UserID] = c
	}
	m.users = replaced
	return nil
}

// ImportUser overwrites every field of the user
func (m *MockDB) ImportUser(ctx context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrInjected
	}

	c := u.Clone()
	if c.JoinedAt.IsZero() {
		c.JoinedAt = now()
	}
	m.users[u.UserID] = c
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}

func (m *MockDB) sortedLocked() []models.User {
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].UserID < users[j].UserID
	})
	return users
}

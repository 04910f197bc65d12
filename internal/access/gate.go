// Package access decides whether a principal is the owner, allowed or banned.
package access

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"userinfobot/internal/apperr"
	"userinfobot/internal/metrics"
	"userinfobot/internal/models"
)

// Role of a principal for one event
type Role int

const (
	Allowed Role = iota
	Owner
	Banned
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case Banned:
		return "banned"
	default:
		return "allowed"
	}
}

// Decision is the outcome of Classify
type Decision struct {
	Role Role
	// User is the stored row, nil for the owner and for unknown ids
	User *models.User
	// AutoUnbanned is set when an expired ban was cleared by this call
	AutoUnbanned bool
}

// BanStore is the part of the store the gate needs
type BanStore interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ClearBan(ctx context.Context, userID int64) error
}

// Gate classifies principals
type Gate struct {
	ownerID int64
	store   BanStore
	clock   clockwork.Clock
	logger  *zap.Logger
}

// NewGate creates a gate for the configured owner
func NewGate(ownerID int64, store BanStore, clock clockwork.Clock, logger *zap.Logger) *Gate {
	return &Gate{ownerID: ownerID, store: store, clock: clock, logger: logger}
}

// OwnerID returns the configured owner
func (g *Gate) OwnerID() int64 {
	return g.ownerID
}

// IsOwner reports whether id is the owner
func (g *Gate) IsOwner(id int64) bool {
	return id == g.ownerID
}

// Classify returns the role of id. An expired ban is cleared on the way.
func (g *Gate) Classify(ctx context.Context, id int64) (Decision, error) {
	if g.IsOwner(id) {
		return Decision{Role: Owner}, nil
	}

	u, err := g.store.GetUser(ctx, id)
	if err != nil {
		return Decision{}, apperr.Wrap(apperr.Persistence, fmt.Errorf("failed to classify user %d: %w", id, err))
	}
	if u == nil || !u.IsBanned {
		return Decision{Role: Allowed, User: u}, nil
	}

	if u.UnbanAt == nil || !g.clock.Now().After(*u.UnbanAt) {
		return Decision{Role: Banned, User: u}, nil
	}

	if err := g.store.ClearBan(ctx, id); err != nil {
		return Decision{}, apperr.Wrap(apperr.Persistence, fmt.Errorf("failed to lift expired ban of %d: %w", id, err))
	}
	metrics.BanActions.WithLabelValues(metrics.BanActionAutoUnban).Inc()
	g.logger.Info("Expired ban lifted",
		zap.Int64("user_id", id),
		zap.Time("unban_at", *u.UnbanAt),
	)

	u.IsBanned = false
	u.BanReason = nil
	u.UnbanAt = nil
	return Decision{Role: Allowed, User: u, AutoUnbanned: true}, nil
}

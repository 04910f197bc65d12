// Package profile resolves principals into enriched profiles and renders them.
package profile

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"userinfobot/internal/models"
)

// Labels of the fields whose absence marks a profile as privacy restricted
const (
	LabelFirstName = "First Name"
	LabelUsername  = "User Name"
	LabelBio       = "Bio"
)

// ChatFetcher is the part of the gateway the resolver needs
type ChatFetcher interface {
	GetChat(ctx context.Context, params *tgbot.GetChatParams) (*tgmodels.ChatFullInfo, error)
}

// UserStore is the part of the store the resolver needs
type UserStore interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	UpsertUser(ctx context.Context, u models.User) error
}

// Profile is the merged view of a principal. Empty strings mean missing.
type Profile struct {
	UserID       int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	Bio          string
	IsPremium    bool

	PrivacyRestricted bool
	Missing           []string
}

// IDOnly reports whether nothing but the id could be resolved
func (p Profile) IDOnly() bool {
	return p.FirstName == "" && p.LastName == "" && p.Username == ""
}

// Resolver merges live gateway data with stored rows
type Resolver struct {
	chats  ChatFetcher
	store  UserStore
	logger *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(chats ChatFetcher, store UserStore, logger *zap.Logger) *Resolver {
	return &Resolver{chats: chats, store: store, logger: logger}
}

// Resolve never fails: unreachable sources are skipped and logged.
// Per field the order is live, then stored, then missing.
func (r *Resolver) Resolve(ctx context.Context, p Principal) Profile {
	id := p.ID()
	live := liveFields(p)

	chat, err := r.chats.GetChat(ctx, &tgbot.GetChatParams{ChatID: id})
	if err != nil {
		r.logger.Debug("Live profile unavailable", zap.Int64("user_id", id), zap.Error(err))
	} else if chat != nil {
		live.firstName = firstNonEmpty(live.firstName, chat.FirstName)
		live.lastName = firstNonEmpty(live.lastName, chat.LastName)
		live.username = firstNonEmpty(live.username, chat.Username)
		live.bio = chat.Bio
	}

	var stored *models.User
	if sp, ok := p.(StoredPrincipal); ok {
		u := sp.User.Clone()
		stored = &u
	} else {
		stored, err = r.store.GetUser(ctx, id)
		if err != nil {
			r.logger.Warn("Failed to read stored profile", zap.Int64("user_id", id), zap.Error(err))
			stored = nil
		}
	}
	st := storedFields(stored)

	prof := Profile{
		UserID:       id,
		FirstName:    firstNonEmpty(live.firstName, st.firstName),
		LastName:     firstNonEmpty(live.lastName, st.lastName),
		Username:     firstNonEmpty(live.username, st.username),
		LanguageCode: firstNonEmpty(live.languageCode, st.languageCode),
		Bio:          firstNonEmpty(live.bio, st.bio),
		IsPremium:    live.isPremium || st.isPremium,
	}
	markRestricted(&prof)

	if live.bio != "" || live.isPremium {
		r.writeBack(ctx, prof)
	}
	return prof
}

func (r *Resolver) writeBack(ctx context.Context, prof Profile) {
	err := r.store.UpsertUser(ctx, models.User{
		UserID:       prof.UserID,
		FirstName:    models.StringPtr(prof.FirstName),
		LastName:     models.StringPtr(prof.LastName),
		Username:     models.StringPtr(prof.Username),
		LanguageCode: models.StringPtr(prof.LanguageCode),
		IsPremium:    prof.IsPremium,
		Bio:          models.StringPtr(prof.Bio),
	})
	if err != nil {
		r.logger.Warn("Failed to write back live profile", zap.Int64("user_id", prof.UserID), zap.Error(err))
	}
}

func markRestricted(p *Profile) {
	p.Missing = p.Missing[:0]
	if p.FirstName == "" {
		p.Missing = append(p.Missing, LabelFirstName)
	}
	if p.Username == "" {
		p.Missing = append(p.Missing, LabelUsername)
	}
	if p.Bio == "" {
		p.Missing = append(p.Missing, LabelBio)
	}
	p.PrivacyRestricted = len(p.Missing) > 0
}

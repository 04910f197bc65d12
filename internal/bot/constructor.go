package bot

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"userinfobot/internal/access"
	"userinfobot/internal/profile"
	"userinfobot/internal/state"
	"userinfobot/internal/storage"
)

// NewBot creates a new Telegram bot
func NewBot(token string, db storage.Storage, settings Settings, clock clockwork.Clock, logger *zap.Logger) (*Bot, error) {
	b := newBot(nil, db, settings, clock, logger)

	api, err := tgbot.New(token, b.clientOptions()...)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.api = api
	b.setGateway(api)

	logger.Info("Bot created", zap.Int64("owner_id", settings.OwnerID))
	return b, nil
}

// newBot wires the handlers around any gateway; tests pass a fake
func newBot(gw Gateway, db storage.Storage, settings Settings, clock clockwork.Clock, logger *zap.Logger) *Bot {
	b := &Bot{
		gw:       gw,
		db:       db,
		gate:     access.NewGate(settings.OwnerID, db, clock, logger),
		states:   state.NewStore(),
		clock:    clock,
		settings: settings,
		logger:   logger,
	}
	b.dispatch = newDispatcher(b.HandleUpdate)
	b.setGateway(gw)
	return b
}

// clientOptions hands every update to the dispatcher synchronously so that
// per-principal queues see them in arrival order
func (b *Bot) clientOptions(extra ...tgbot.Option) []tgbot.Option {
	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
			b.Submit(ctx, update)
		}),
		tgbot.WithNotAsyncHandlers(),
		tgbot.WithErrorsHandler(func(err error) {
			b.logger.Warn("Telegram client error", zap.Error(err))
		}),
	}
	if b.settings.WebhookSecret != "" {
		opts = append(opts, tgbot.WithWebhookSecretToken(b.settings.WebhookSecret))
	}
	return append(opts, extra...)
}

func (b *Bot) setGateway(gw Gateway) {
	b.gw = gw
	b.resolver = profile.NewResolver(gw, b.db, b.logger)
}

package bot

import (
	"context"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"userinfobot/internal/access"
	"userinfobot/internal/metrics"
	"userinfobot/internal/state"
)

// HandleUpdate processes a single update to completion
func (b *Bot) HandleUpdate(ctx context.Context, update *models.Update) {
	userID := principalID(update)
	chatID := replyChatID(update)

	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.Inc()
			b.logger.Error("Recovered from panic in update handler",
				zap.Any("panic", r),
				zap.Int64("user_id", userID),
				zap.Stack("stack"),
			)
			if chatID != 0 {
				b.apologize(ctx, chatID)
			}
		}
	}()

	if userID == 0 {
		return
	}

	decision, err := b.gate.Classify(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to authorize update", zap.Int64("user_id", userID), zap.Error(err))
		if q := update.CallbackQuery; q != nil {
			b.answer(ctx, q.ID, "", false)
		}
		if chatID != 0 {
			b.apologize(ctx, chatID)
		}
		return
	}
	if decision.AutoUnbanned {
		_ = b.sendHTML(ctx, chatID, "✅ Your ban has expired. Welcome back!", nil)
	}

	pending := b.states.Get(userID)
	if _, appealing := pending.(state.AwaitingAppealMessage); appealing && decision.Role != access.Banned {
		// The ban ended while the appeal was open
		b.states.Clear(userID)
		pending = nil
	}
	route := selectRoute(update, decision.Role, pending)
	metrics.Updates.WithLabelValues(route.String()).Inc()

	b.logger.Debug("Routing update",
		zap.Int64("user_id", userID),
		zap.String("role", decision.Role.String()),
		zap.String("pending", state.Name(pending)),
		zap.String("route", route.String()),
	)

	switch route {
	case RouteStart:
		b.handleStart(ctx, update.Message, decision)
	case RouteCallback:
		b.handleCallbackQuery(ctx, update.CallbackQuery, decision)
	case RouteSharedUsers:
		b.handleSharedUsers(ctx, update.Message)
	case RouteSharedChat:
		b.handleSharedChat(ctx, update.Message)
	case RoutePending:
		b.handleConversation(ctx, update.Message, pending)
	case RouteSelfProfile:
		b.handleSelfProfile(ctx, update.Message)
	case RouteForwarded:
		b.handleForwarded(ctx, update.Message)
	case RouteBannedNotice:
		b.handleBannedNotice(ctx, update, decision)
	}
}

// replyChatID is where answers to the update go; callbacks arrive from private chats
func replyChatID(update *models.Update) int64 {
	switch {
	case update == nil:
		return 0
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil:
		return update.Message.Chat.ID
	}
	return 0
}

// handleBannedNotice answers any event of a banned principal outside the appeal flow
func (b *Bot) handleBannedNotice(ctx context.Context, update *models.Update, decision access.Decision) {
	userID := principalID(update)
	if q := update.CallbackQuery; q != nil {
		b.logger.Info("Banned user pressed a button", zap.Int64("user_id", userID), zap.String("data", q.Data))
		b.answer(ctx, q.ID, "🚫 You are banned from using this bot.", true)
		return
	}
	b.sendBannedNotice(ctx, replyChatID(update), decision)
}

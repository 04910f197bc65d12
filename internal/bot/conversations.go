package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"userinfobot/internal/apperr"
	"userinfobot/internal/metrics"
	appmodels "userinfobot/internal/models"
	"userinfobot/internal/profile"
	"userinfobot/internal/state"
	"userinfobot/internal/storage"
)

// handleConversation continues the dialog named by the pending action
func (b *Bot) handleConversation(ctx context.Context, message *models.Message, pending state.Action) {
	switch p := pending.(type) {
	case state.AwaitingBanIdentity:
		b.handleBanIdentity(ctx, message)
	case state.AwaitingBanReason:
		b.handleBanReason(ctx, message, p)
	case state.AwaitingBanConfirm:
		_ = b.sendHTML(ctx, message.Chat.ID, "☝️ Please confirm or cancel the ban using the buttons above.", banConfirmKeyboard(p.TargetID))
	case state.AwaitingAppealMessage:
		b.handleAppealMessage(ctx, message, p)
	case state.AwaitingBroadcastMessage:
		b.handleBroadcastMessage(ctx, message)
	case state.AwaitingInfoLookup:
		b.handleLookup(ctx, message)
	}
}

// handleBanIdentity resolves the ban target from a forward, an id or a handle
func (b *Bot) handleBanIdentity(ctx context.Context, message *models.Message) {
	ownerID := message.From.ID
	chatID := message.Chat.ID

	target, err := b.identifyTarget(ctx, message)
	switch {
	case apperr.Classify(err) == apperr.Persistence:
		b.logger.Error("Failed to look up ban target", zap.Error(err))
		b.apologize(ctx, chatID)
		return
	case errors.Is(err, apperr.ErrOwnerTarget):
		_ = b.sendHTML(ctx, chatID, "❌ You cannot ban yourself. Send another user.", cancelToUsersMenu())
		return
	case err != nil:
		_ = b.sendHTML(ctx, chatID, "❌ Could not identify the user.\n\n"+
			"Send a numeric user ID, the @username of a known user, or forward a message from them.",
			cancelToUsersMenu())
		return
	}

	b.states.Set(ownerID, state.AwaitingBanReason{TargetID: target})
	_ = b.sendHTML(ctx, chatID,
		fmt.Sprintf("✍️ Send the reason for banning <code>%d</code>.", target),
		cancelToUsersMenu())
}

// identifyTarget resolves the ban target; the owner is never a valid one
func (b *Bot) identifyTarget(ctx context.Context, message *models.Message) (int64, error) {
	target, err := b.resolveTarget(ctx, message)
	if err != nil {
		return 0, err
	}
	if b.gate.IsOwner(target) {
		return 0, apperr.ErrOwnerTarget
	}
	return target, nil
}

func (b *Bot) resolveTarget(ctx context.Context, message *models.Message) (int64, error) {
	if origin := message.ForwardOrigin; origin != nil && origin.MessageOriginUser != nil {
		return origin.MessageOriginUser.SenderUser.ID, nil
	}

	text := strings.TrimSpace(message.Text)
	if isDigits(text) {
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, apperr.ErrUnidentified
		}
		return id, nil
	}

	if storage.NormalizeHandle(text) == "" {
		return 0, apperr.ErrUnidentified
	}
	u, err := b.db.FindByUsername(ctx, text)
	if err != nil {
		return 0, apperr.Wrap(apperr.Persistence, err)
	}
	if u == nil {
		return 0, apperr.ErrUnidentified
	}
	return u.UserID, nil
}

// handleBanReason stores the reason and asks for confirmation
func (b *Bot) handleBanReason(ctx context.Context, message *models.Message, pending state.AwaitingBanReason) {
	reason := strings.TrimSpace(message.Text)
	if reason == "" {
		_ = b.sendHTML(ctx, message.Chat.ID, "✍️ The reason must be text. Please send it again.", cancelToUsersMenu())
		return
	}

	b.states.Set(message.From.ID, state.AwaitingBanConfirm{TargetID: pending.TargetID, Reason: reason})
	text := fmt.Sprintf("⚠️ <b>Confirm ban</b>\n\n🔑 <b>User ID:</b> <code>%d</code>\n📝 <b>Reason:</b> %s",
		pending.TargetID, html.EscapeString(reason))
	_ = b.sendHTML(ctx, message.Chat.ID, text, banConfirmKeyboard(pending.TargetID))
}

// handleAppealMessage forwards the appeal text to the owner
func (b *Bot) handleAppealMessage(ctx context.Context, message *models.Message, pending state.AwaitingAppealMessage) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		_ = b.sendHTML(ctx, message.Chat.ID, "📝 Please send your appeal as text.", skipAppealKeyboard(pending.AppellantID))
		return
	}
	b.submitAppeal(ctx, pending.AppellantID, text)
}

// handleBroadcastMessage sends the text to every stored user
func (b *Bot) handleBroadcastMessage(ctx context.Context, message *models.Message) {
	ownerID := message.From.ID
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	if strings.EqualFold(text, "cancel") {
		b.states.Clear(ownerID)
		_ = b.sendHTML(ctx, chatID, "❌ Broadcast cancelled.", adminPanel())
		return
	}
	if text == "" {
		_ = b.sendHTML(ctx, chatID, "📢 The broadcast must be text. Send it again or send <code>cancel</code>.", nil)
		return
	}

	users, err := b.db.SnapshotAll(ctx)
	if err != nil {
		b.logger.Error("Failed to load broadcast recipients", zap.Error(err))
		b.apologize(ctx, chatID)
		return
	}
	b.states.Clear(ownerID)

	sent, failed := b.broadcast(ctx, message.Text, users)

	b.logger.Info("Broadcast finished",
		zap.Int("recipients", len(users)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	_ = b.sendHTML(ctx, chatID, fmt.Sprintf("📢 <b>Broadcast finished</b>\n\n✅ Sent: %d\n❌ Failed: %d", sent, failed), nil)
}

// broadcast makes exactly one send attempt per user
func (b *Bot) broadcast(ctx context.Context, template string, users []appmodels.User) (sent, failed int) {
	for _, u := range users {
		if err := b.sendPlain(ctx, u.UserID, renderBroadcast(template, u)); err != nil {
			failed++
			metrics.BroadcastSends.WithLabelValues(metrics.ResultFailure).Inc()
			b.logger.Debug("Broadcast send failed",
				zap.Int64("user_id", u.UserID),
				zap.String("kind", apperr.Classify(err).String()),
				zap.Error(err),
			)
			continue
		}
		sent++
		metrics.BroadcastSends.WithLabelValues(metrics.ResultSuccess).Inc()
	}
	return sent, failed
}

func renderBroadcast(template string, u appmodels.User) string {
	return strings.NewReplacer(
		"{first_name}", appmodels.OrNA(appmodels.StringValue(u.FirstName)),
		"{last_name}", appmodels.OrNA(appmodels.StringValue(u.LastName)),
		"{username}", appmodels.OrNA(appmodels.StringValue(u.Username)),
		"{user_id}", strconv.FormatInt(u.UserID, 10),
	).Replace(template)
}

// handleLookup renders the profile of an id or a stored handle
func (b *Bot) handleLookup(ctx context.Context, message *models.Message) {
	ownerID := message.From.ID
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	if isDigits(text) {
		id, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			b.states.Clear(ownerID)
			prof := b.resolver.Resolve(ctx, profile.SyntheticPrincipal{UserID: id})
			_ = b.sendHTML(ctx, chatID, profile.Render("User Info", prof), nil)
			return
		}
	}

	if storage.NormalizeHandle(text) == "" {
		_ = b.sendHTML(ctx, chatID, "🔎 Send a numeric user ID or an @username.", cancelToUsersMenu())
		return
	}

	u, err := b.db.FindByUsername(ctx, text)
	if err != nil {
		b.logger.Error("Failed to look up username", zap.String("handle", text), zap.Error(err))
		b.apologize(ctx, chatID)
		return
	}
	if u == nil {
		_ = b.sendHTML(ctx, chatID, fmt.Sprintf("❌ No user with username <b>%s</b> in the database.\n\n"+
			"Send a numeric user ID or the @username of a known user.", html.EscapeString(text)), cancelToUsersMenu())
		return
	}

	b.states.Clear(ownerID)
	prof := b.resolver.Resolve(ctx, profile.StoredPrincipal{User: *u})
	_ = b.sendHTML(ctx, chatID, profile.Render("User Info", prof), nil)
}

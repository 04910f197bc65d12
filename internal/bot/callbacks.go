package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"userinfobot/internal/access"
	"userinfobot/internal/apperr"
	"userinfobot/internal/backup"
	"userinfobot/internal/metrics"
	appmodels "userinfobot/internal/models"
	"userinfobot/internal/state"
)

// appealDeferral is how long "Not now" keeps a ban in force
const appealDeferral = 48 * time.Hour

const skippedAppealText = "No appeal message provided (Skipped)"

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *models.CallbackQuery, decision access.Decision) {
	data := query.Data
	userID := query.From.ID

	// Appeal buttons are the only ones open to non-owners
	if id, ok := parseID(data, cbAppeal); ok {
		b.answer(ctx, query.ID, b.handleAppealStart(ctx, userID, id, decision), false)
		return
	}
	if id, ok := parseID(data, cbSkipAppeal); ok {
		b.answer(ctx, query.ID, b.handleSkipAppeal(ctx, userID, id), false)
		return
	}

	if decision.Role != access.Owner {
		b.logger.Warn("Unauthorized callback query attempt",
			zap.Error(apperr.ErrNotOwner),
			zap.Int64("user_id", userID),
			zap.String("username", query.From.Username),
			zap.String("callback_data", data),
		)
		b.answer(ctx, query.ID, "", false)
		return
	}

	toast, alert := b.handleOwnerCallback(ctx, userID, data)
	b.answer(ctx, query.ID, toast, alert)
}

// handleOwnerCallback runs an owner-only button and returns the toast to show
func (b *Bot) handleOwnerCallback(ctx context.Context, ownerID int64, data string) (string, bool) {
	switch data {
	case cbStatus:
		b.handleStatus(ctx, ownerID)
		return "", false
	case cbUsersMenu:
		b.states.Clear(ownerID)
		_ = b.sendHTML(ctx, ownerID, "👥 <b>User Management</b>\n\nChoose an action:", usersMenu())
		return "", false
	case cbBroadcast:
		b.states.Set(ownerID, state.AwaitingBroadcastMessage{})
		_ = b.sendHTML(ctx, ownerID, "📢 <b>Broadcast</b>\n\n"+
			"Send the message to deliver to every user.\n"+
			"Placeholders: <code>{first_name}</code>, <code>{last_name}</code>, <code>{username}</code>, <code>{user_id}</code>.\n"+
			"Send <code>cancel</code> to abort.", nil)
		return "", false
	case cbGetInfo:
		b.states.Set(ownerID, state.AwaitingInfoLookup{})
		_ = b.sendHTML(ctx, ownerID, "🔎 Send a user ID or @username.", cancelToUsersMenu())
		return "", false
	case cbGetList:
		b.handleGetList(ctx, ownerID)
		return "", false
	case cbBanStart:
		b.states.Set(ownerID, state.AwaitingBanIdentity{})
		_ = b.sendHTML(ctx, ownerID, "🚫 <b>Ban user</b>\n\n"+
			"Send the user ID, their @username, or forward a message from them.", cancelToUsersMenu())
		return "", false
	}

	if id, ok := parseID(data, cbConfirmBan); ok {
		return b.handleConfirmBan(ctx, ownerID, id), false
	}
	if id, ok := parseID(data, cbOwnerUnban); ok {
		return b.handleOwnerUnban(ctx, ownerID, id), false
	}
	if id, ok := parseID(data, cbOwnerNotNow); ok {
		return b.handleOwnerNotNow(ctx, ownerID, id), false
	}
	if strings.HasPrefix(data, backup.RestorePrefix) {
		return b.handleRestore(ctx, strings.TrimPrefix(data, backup.RestorePrefix))
	}

	b.logger.Debug("Unknown callback data", zap.String("callback_data", data))
	return "", false
}

// handleConfirmBan applies the ban held in the owner's pending action
func (b *Bot) handleConfirmBan(ctx context.Context, ownerID, target int64) string {
	pending, ok := b.states.Get(ownerID).(state.AwaitingBanConfirm)
	if !ok || pending.TargetID != target {
		return "This ban request has expired."
	}

	if err := b.db.SetBanned(ctx, target, pending.Reason); err != nil {
		b.logger.Error("Failed to ban user", zap.Int64("target_id", target), zap.Error(err))
		b.apologize(ctx, ownerID)
		return ""
	}
	metrics.BanActions.WithLabelValues(metrics.BanActionBan).Inc()
	b.states.Clear(ownerID)

	notice := fmt.Sprintf("🚫 <b>You have been banned</b> from using this bot.\n\n📝 <b>Reason:</b> %s\n\n"+
		"If you think this is a mistake, you can appeal.", html.EscapeString(pending.Reason))
	if err := b.sendHTML(ctx, target, notice, appealKeyboard(target)); err != nil {
		b.logger.Info("Banned user could not be notified", zap.Int64("target_id", target))
	}

	b.logger.Info("User banned",
		zap.Int64("target_id", target),
		zap.String("reason", pending.Reason),
	)
	_ = b.sendHTML(ctx, ownerID, fmt.Sprintf("✅ User <code>%d</code> has been banned.", target), usersMenu())
	return "User banned"
}

// handleAppealStart opens the appeal dialog of a banned principal
func (b *Bot) handleAppealStart(ctx context.Context, userID, id int64, decision access.Decision) string {
	if id != userID {
		b.logger.Warn("Appeal for another user", zap.Int64("user_id", userID), zap.Int64("appeal_id", id))
		return ""
	}
	if decision.Role != access.Banned {
		return "You are not banned."
	}

	b.states.Set(userID, state.AwaitingAppealMessage{AppellantID: userID})
	_ = b.sendHTML(ctx, userID, "📝 Send your appeal message. It will be forwarded to the administrator.",
		skipAppealKeyboard(userID))
	return ""
}

// handleSkipAppeal submits an appeal without text
func (b *Bot) handleSkipAppeal(ctx context.Context, userID, id int64) string {
	pending, ok := b.states.Get(userID).(state.AwaitingAppealMessage)
	if id != userID || !ok || pending.AppellantID != id {
		return ""
	}
	b.submitAppeal(ctx, id, skippedAppealText)
	return ""
}

// submitAppeal sends the appeal to the owner with the decision buttons
func (b *Bot) submitAppeal(ctx context.Context, appellantID int64, text string) {
	name := appmodels.NotAvailable
	reason := appmodels.NotAvailable
	u, err := b.db.GetUser(ctx, appellantID)
	if err != nil {
		b.logger.Warn("Failed to load appellant", zap.Int64("user_id", appellantID), zap.Error(err))
	} else if u != nil {
		name = appmodels.OrNA(strings.TrimSpace(appmodels.StringValue(u.FirstName) + " " + appmodels.StringValue(u.LastName)))
		reason = appmodels.OrNA(appmodels.StringValue(u.BanReason))
	}

	msg := fmt.Sprintf("⚖️ <b>Ban appeal</b>\n\n"+
		"👤 <b>User:</b> %s (<code>%d</code>)\n"+
		"📝 <b>Ban reason:</b> %s\n"+
		"💬 <b>Appeal:</b> %s",
		html.EscapeString(name), appellantID, html.EscapeString(reason), html.EscapeString(text))

	if err := b.sendHTML(ctx, b.gate.OwnerID(), msg, appealDecisionKeyboard(appellantID)); err != nil {
		b.apologize(ctx, appellantID)
		return
	}

	metrics.BanActions.WithLabelValues(metrics.BanActionAppeal).Inc()
	b.states.Clear(appellantID)
	_ = b.sendHTML(ctx, appellantID, "✅ Your appeal has been sent to the administrator.", nil)
}

// notBannedText is the toast for appeal decisions on a user whose ban already ended
const notBannedText = "This user is no longer banned."

// appealOpen reports whether an appeal decision for id can still apply,
// otherwise it returns the toast for the owner
func (b *Bot) appealOpen(ctx context.Context, ownerID, id int64) (string, bool) {
	u, err := b.db.GetUser(ctx, id)
	if err != nil {
		b.logger.Error("Failed to load appellant", zap.Int64("target_id", id), zap.Error(err))
		b.apologize(ctx, ownerID)
		return "", false
	}
	if u == nil || !u.IsBanned {
		b.logger.Info("Appeal decision for a user who is not banned", zap.Int64("target_id", id))
		return notBannedText, false
	}
	return "", true
}

// handleOwnerUnban grants an appeal
func (b *Bot) handleOwnerUnban(ctx context.Context, ownerID, id int64) string {
	if toast, ok := b.appealOpen(ctx, ownerID, id); !ok {
		return toast
	}
	if err := b.db.ClearBan(ctx, id); err != nil {
		b.logger.Error("Failed to unban user", zap.Int64("target_id", id), zap.Error(err))
		b.apologize(ctx, ownerID)
		return ""
	}
	metrics.BanActions.WithLabelValues(metrics.BanActionUnban).Inc()
	b.logger.Info("User unbanned", zap.Int64("target_id", id))

	_ = b.sendHTML(ctx, id, "✅ Your appeal was accepted. You have been unbanned.", nil)
	_ = b.sendHTML(ctx, ownerID, fmt.Sprintf("✅ User <code>%d</code> has been unbanned.", id), nil)
	return "User unbanned"
}

// handleOwnerNotNow keeps the ban until a deadline, after which the gate lifts it
func (b *Bot) handleOwnerNotNow(ctx context.Context, ownerID, id int64) string {
	if toast, ok := b.appealOpen(ctx, ownerID, id); !ok {
		return toast
	}

	deadline := b.clock.Now().Add(appealDeferral).UTC()
	if err := b.db.SetUnbanAt(ctx, id, deadline); err != nil {
		b.logger.Error("Failed to defer unban", zap.Int64("target_id", id), zap.Error(err))
		b.apologize(ctx, ownerID)
		return ""
	}
	metrics.BanActions.WithLabelValues(metrics.BanActionDefer).Inc()
	b.logger.Info("Unban deferred", zap.Int64("target_id", id), zap.Time("unban_at", deadline))

	_ = b.sendHTML(ctx, id, fmt.Sprintf("⏳ Your appeal was reviewed. The ban will be lifted on %s.",
		formatDeadline(deadline)), nil)
	_ = b.sendHTML(ctx, ownerID, fmt.Sprintf("⏳ User <code>%d</code> will be unbanned on %s.",
		id, formatDeadline(deadline)), nil)
	return "Unban deferred"
}

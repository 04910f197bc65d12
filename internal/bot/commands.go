package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"time"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"userinfobot/internal/access"
	"userinfobot/internal/backup"
	appmodels "userinfobot/internal/models"
	"userinfobot/internal/profile"
)

// handleStart registers the sender and shows their profile with the menu
func (b *Bot) handleStart(ctx context.Context, message *models.Message, decision access.Decision) {
	from := message.From
	chatID := message.Chat.ID

	b.states.Clear(from.ID)

	if err := b.db.UpsertUser(ctx, userFromGateway(from)); err != nil {
		b.logger.Error("Failed to register user", zap.Int64("user_id", from.ID), zap.Error(err))
		b.apologize(ctx, chatID)
		return
	}

	if decision.Role == access.Banned {
		b.sendBannedNotice(ctx, chatID, decision)
		return
	}

	if b.startupChecked.CompareAndSwap(false, true) {
		b.runStartupImport(ctx)
	}

	prof := b.resolver.Resolve(ctx, fullPrincipal(from))
	_ = b.sendHTML(ctx, chatID, profile.Render("Your Info", prof), mainKeyboard())

	if decision.Role == access.Owner {
		_ = b.sendHTML(ctx, chatID, "🛠 <b>Admin Panel</b>\n\nChoose an action:", adminPanel())
	}
}

// handleSelfProfile answers the "My Account" button
func (b *Bot) handleSelfProfile(ctx context.Context, message *models.Message) {
	prof := b.resolver.Resolve(ctx, fullPrincipal(message.From))
	_ = b.sendHTML(ctx, message.Chat.ID, profile.Render("Your Account Info", prof), nil)
}

// handleForwarded describes the origin of a forwarded message
func (b *Bot) handleForwarded(ctx context.Context, message *models.Message) {
	origin := message.ForwardOrigin
	chatID := message.Chat.ID

	switch {
	case origin.MessageOriginUser != nil:
		sender := origin.MessageOriginUser.SenderUser
		prof := b.resolver.Resolve(ctx, fullPrincipal(&sender))
		_ = b.sendHTML(ctx, chatID, profile.Render("Forwarded User Info", prof), nil)

	case origin.MessageOriginHiddenUser != nil:
		text := fmt.Sprintf("👤 <b>Forwarded User Info:</b>\n\n"+
			"👤 <b>Name:</b> %s\n\n"+
			"<i>This user hides their account in forwarded messages, so only the name is available.</i>",
			html.EscapeString(appmodels.OrNA(origin.MessageOriginHiddenUser.SenderUserName)))
		_ = b.sendHTML(ctx, chatID, text, nil)

	case origin.MessageOriginChat != nil:
		_ = b.sendHTML(ctx, chatID, forwardedChatText(origin.MessageOriginChat.SenderChat), nil)

	case origin.MessageOriginChannel != nil:
		_ = b.sendHTML(ctx, chatID, forwardedChatText(origin.MessageOriginChannel.Chat), nil)
	}
}

func forwardedChatText(chat models.Chat) string {
	return fmt.Sprintf("📢 <b>Forwarded Chat Info:</b>\n\n"+
		"📛 <b>Title:</b> %s\n"+
		"🔑 <b>Chat ID:</b> <code>%d</code>",
		html.EscapeString(appmodels.OrNA(chat.Title)), chat.ID)
}

// sendBannedNotice tells a banned principal why and until when.
// Open-ended bans carry the Appeal button.
func (b *Bot) sendBannedNotice(ctx context.Context, chatID int64, decision access.Decision) {
	reason := appmodels.NotAvailable
	var until *time.Time
	if u := decision.User; u != nil {
		reason = appmodels.OrNA(appmodels.StringValue(u.BanReason))
		until = u.UnbanAt
	}

	text := fmt.Sprintf("🚫 <b>You are banned from using this bot.</b>\n\n📝 <b>Reason:</b> %s", html.EscapeString(reason))
	var markup models.ReplyMarkup
	if until != nil {
		text += fmt.Sprintf("\n⏳ <b>Ban lifts:</b> %s", formatDeadline(*until))
	} else {
		markup = appealKeyboard(chatID)
	}
	_ = b.sendHTML(ctx, chatID, text, markup)
}

// runStartupImport applies the startup artifact once per process
func (b *Bot) runStartupImport(ctx context.Context) {
	path := b.settings.StartupImportFile
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn("Cannot stat startup import file", zap.String("path", path), zap.Error(err))
		}
		return
	}

	n, err := backup.Import(ctx, b.db, path)
	if err != nil {
		b.logger.Error("Startup import failed",
			zap.String("path", path),
			zap.Int("imported", n),
			zap.Error(err),
		)
		return
	}
	b.logger.Info("Startup import finished", zap.String("path", path), zap.Int("imported", n))
}

func userFromGateway(u *models.User) appmodels.User {
	return appmodels.User{
		UserID:       u.ID,
		FirstName:    appmodels.StringPtr(u.FirstName),
		LastName:     appmodels.StringPtr(u.LastName),
		Username:     appmodels.StringPtr(u.Username),
		LanguageCode: appmodels.StringPtr(u.LanguageCode),
		IsPremium:    u.IsPremium,
	}
}

func fullPrincipal(u *models.User) profile.FullPrincipal {
	return profile.FullPrincipal{
		UserID:       u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
		IsPremium:    u.IsPremium,
	}
}

func formatDeadline(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

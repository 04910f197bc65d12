package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	appmodels "userinfobot/internal/models"
	"userinfobot/internal/profile"
)

// handleSharedUsers renders every user picked with a request-users button
func (b *Bot) handleSharedUsers(ctx context.Context, message *models.Message) {
	for _, shared := range message.UsersShared.Users {
		prof := b.resolver.Resolve(ctx, profile.SharedPrincipal{
			UserID:    shared.UserID,
			FirstName: shared.FirstName,
			LastName:  shared.LastName,
			Username:  shared.Username,
		})

		text := profile.Render("Selected User Info", prof)
		if prof.IDOnly() {
			text = profile.RenderIDOnly("Selected User Info", shared.UserID)
		}
		_ = b.sendHTML(ctx, message.Chat.ID, text, nil)
	}
}

// handleSharedChat renders a chat picked with a request-chat button
func (b *Bot) handleSharedChat(ctx context.Context, message *models.Message) {
	shared := message.ChatShared
	chatID := message.Chat.ID

	chat, err := b.gw.GetChat(ctx, &tgbot.GetChatParams{ChatID: shared.ChatID})
	if err != nil {
		b.logger.Info("Shared chat is not accessible", zap.Int64("shared_chat_id", shared.ChatID), zap.Error(err))
		_ = b.sendHTML(ctx, chatID, fmt.Sprintf("✅ <b>Selected Chat Info:</b>\n\n🔑 <b>Chat ID:</b> <code>%d</code>", shared.ChatID), nil)
		return
	}

	members := appmodels.NotAvailable
	if n, err := b.gw.GetChatMemberCount(ctx, &tgbot.GetChatMemberCountParams{ChatID: shared.ChatID}); err == nil {
		members = fmt.Sprint(n)
	}

	title := chat.Title
	if title == "" {
		title = shared.Title
	}
	username := chat.Username
	if username == "" {
		username = shared.Username
	}

	var sb strings.Builder
	sb.WriteString("✅ <b>Selected Chat Info:</b>\n\n")
	fmt.Fprintf(&sb, "📛 <b>Title:</b> %s\n", html.EscapeString(appmodels.OrNA(title)))
	fmt.Fprintf(&sb, "🆔 <b>Username:</b> @%s\n", html.EscapeString(appmodels.OrNA(username)))
	fmt.Fprintf(&sb, "🔑 <b>Chat ID:</b> <code>%d</code>\n", shared.ChatID)
	fmt.Fprintf(&sb, "👥 <b>Members:</b> %s\n", members)
	fmt.Fprintf(&sb, "📝 <b>Description:</b> %s", html.EscapeString(appmodels.OrNA(chat.Description)))
	_ = b.sendHTML(ctx, chatID, sb.String(), nil)
}

package bot

import (
	"context"
	"regexp"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"userinfobot/internal/apperr"
)

// Gateway is the subset of the Telegram client used by the handlers.
// *tgbot.Bot satisfies it.
type Gateway interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *tgbot.SendDocumentParams) (*models.Message, error)
	GetChat(ctx context.Context, params *tgbot.GetChatParams) (*models.ChatFullInfo, error)
	GetChatMemberCount(ctx context.Context, params *tgbot.GetChatMemberCountParams) (int, error)
	AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error)
	DeleteMessage(ctx context.Context, params *tgbot.DeleteMessageParams) (bool, error)
}

const apologyText = "⚠️ Sorry, something went wrong. Please try again later."

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// sendHTML sends an HTML message; failures are logged and returned
func (b *Bot) sendHTML(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	params := &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.gw.SendMessage(ctx, params); err != nil {
		// Gateway failures are expected for blocked or deleted chats
		log := b.logger.Error
		if apperr.IsGateway(err) {
			log = b.logger.Warn
		}
		log("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.String("kind", apperr.Classify(err).String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// sendPlain sends text without any parse mode
func (b *Bot) sendPlain(ctx context.Context, chatID int64, text string) error {
	_, err := b.gw.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// apologize tells the user a request failed without exposing the error
func (b *Bot) apologize(ctx context.Context, chatID int64) {
	_ = b.sendHTML(ctx, chatID, apologyText, nil)
}

// answer stops the button spinner, optionally with a toast
func (b *Bot) answer(ctx context.Context, queryID, text string, alert bool) {
	if queryID == "" {
		return
	}
	_, err := b.gw.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		b.logger.Debug("Failed to answer callback query", zap.String("query_id", queryID), zap.Error(err))
	}
}

func isDigits(s string) bool {
	return digitsOnly.MatchString(s)
}

package bot

import (
	"context"
	"net/http"

	tgbot "github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Start runs the bot in polling mode until ctx is cancelled
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	b.logger.Info("Bot started successfully. Waiting for updates...")
	b.api.Start(ctx)

	b.Wait()
	b.logger.Info("Bot stopped")
}

// StartWebhook registers the webhook and processes pushed updates until ctx is cancelled
func (b *Bot) StartWebhook(ctx context.Context, webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	_, err := b.api.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:            webhookURL + WebhookPath,
		MaxConnections: 40,
		SecretToken:    b.settings.WebhookSecret,
	})
	if err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}

	// Get webhook info to verify
	info, err := b.api.GetWebhookInfo(ctx)
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}

	b.logger.Info("Bot configured for webhook mode")
	b.api.StartWebhook(ctx)

	b.Wait()
	b.logger.Info("Bot stopped")
	return nil
}

// Client returns the gateway client for collaborators such as the backup scheduler
func (b *Bot) Client() *tgbot.Bot {
	return b.api
}

// WebhookPath is where the gateway pushes updates in webhook mode
const WebhookPath = "/telegram-webhook"

// WebhookHandler decodes pushed updates and feeds them to the dispatcher.
// Requests without the configured secret header are dropped.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return b.api.WebhookHandler()
}

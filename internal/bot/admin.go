package bot

import (
	"bytes"
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"userinfobot/internal/apperr"
	"userinfobot/internal/backup"
	"userinfobot/internal/report"
)

// handleStatus shows totals and the backup destination
func (b *Bot) handleStatus(ctx context.Context, ownerID int64) {
	total, err := b.db.CountUsers(ctx)
	if err != nil {
		b.logger.Error("Failed to load status", zap.Error(err))
		b.apologize(ctx, ownerID)
		return
	}
	banned, err := b.db.CountBanned(ctx)
	if err != nil {
		b.logger.Error("Failed to load status", zap.Error(err))
		b.apologize(ctx, ownerID)
		return
	}

	text := fmt.Sprintf("📊 <b>Bot Status</b>\n\n"+
		"👥 <b>Total users:</b> %d\n"+
		"🚫 <b>Banned users:</b> %d\n"+
		"🗄 <b>Backup destination:</b> <code>%d</code>\n"+
		"💬 <b>Open dialogs:</b> %d",
		total, banned, b.settings.BackupDestination, b.states.Len())
	_ = b.sendHTML(ctx, ownerID, text, adminPanel())
}

// handleGetList sends the user table as a spreadsheet
func (b *Bot) handleGetList(ctx context.Context, ownerID int64) {
	users, err := b.db.SnapshotAll(ctx)
	if err != nil {
		b.logger.Error("Failed to load user list", zap.Error(err))
		b.apologize(ctx, ownerID)
		return
	}

	data, err := report.UserList(users)
	if err != nil {
		b.logger.Error("Failed to build user list", zap.Error(err))
		b.apologize(ctx, ownerID)
		return
	}

	_, err = b.gw.SendDocument(ctx, &tgbot.SendDocumentParams{
		ChatID:    ownerID,
		Document:  &models.InputFileUpload{Filename: "users.xlsx", Data: bytes.NewReader(data)},
		Caption:   report.Summary(users),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		b.logger.Error("Failed to send user list", zap.Error(err))
		b.apologize(ctx, ownerID)
	}
}

// handleRestore replaces the table with a backup artifact
func (b *Bot) handleRestore(ctx context.Context, name string) (string, bool) {
	n, err := backup.Restore(ctx, b.db, b.settings.BackupDir, name)
	if err != nil {
		b.logger.Error("Restore failed",
			zap.String("file", name),
			zap.String("kind", apperr.Classify(err).String()),
			zap.Error(err),
		)
		if apperr.Classify(err) == apperr.Persistence {
			return "❌ Restore failed: database error. Nothing was changed.", true
		}
		return "❌ Restore failed: the backup file is missing or invalid.", true
	}

	b.logger.Info("Database restored", zap.String("file", name), zap.Int("users", n))
	return fmt.Sprintf("✅ Restored %d users from %s", n, name), true
}

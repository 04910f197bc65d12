package bot

import (
	"sync/atomic"

	tgbot "github.com/go-telegram/bot"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"userinfobot/internal/access"
	"userinfobot/internal/profile"
	"userinfobot/internal/state"
	"userinfobot/internal/storage"
)

// Settings are the immutable values the handlers need from configuration
type Settings struct {
	OwnerID           int64
	BackupDestination int64
	BackupDir         string
	StartupImportFile string
	// WebhookSecret is echoed by the gateway in every pushed update
	WebhookSecret     string
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      *tgbot.Bot // nil in tests
	gw       Gateway
	db       storage.Storage
	gate     *access.Gate
	states   *state.Store
	resolver *profile.Resolver
	clock    clockwork.Clock
	settings Settings
	logger   *zap.Logger
	dispatch *dispatcher

	// startupChecked guards the one-time import on the first /start
	startupChecked atomic.Bool
}

package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"userinfobot/internal/metrics"
	"userinfobot/internal/models"
)

// ErrUnreachable is returned when the destination check fails
var ErrUnreachable = errors.New("backup destination unreachable")

// Sender is the part of the gateway the scheduler needs
type Sender interface {
	GetChat(ctx context.Context, params *tgbot.GetChatParams) (*tgmodels.ChatFullInfo, error)
	SendDocument(ctx context.Context, params *tgbot.SendDocumentParams) (*tgmodels.Message, error)
	DeleteMessage(ctx context.Context, params *tgbot.DeleteMessageParams) (bool, error)
}

// Snapshotter reads the whole table
type Snapshotter interface {
	SnapshotAll(ctx context.Context) ([]models.User, error)
}

// Config of the backup job
type Config struct {
	Destination int64
	Dir         string
	Interval    time.Duration
	FirstRun    time.Duration
}

// Result describes one completed run
type Result struct {
	FileName  string
	Path      string
	Users     int
	MessageID int
}

// Scheduler periodically snapshots the store and sends it to the destination
type Scheduler struct {
	cfg    Config
	sender Sender
	store  Snapshotter
	clock  clockwork.Clock
	logger *zap.Logger

	mu        sync.Mutex
	lastMsgID int

	sched gocron.Scheduler
}

// NewScheduler creates a scheduler; call Start to begin the timer
func NewScheduler(cfg Config, sender Sender, store Snapshotter, clock clockwork.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		sender: sender,
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Start registers the job. The first run happens FirstRun after now.
func (s *Scheduler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	startAt := gocron.WithStartImmediately()
	if s.cfg.FirstRun > 0 {
		startAt = gocron.WithStartDateTime(s.clock.Now().Add(s.cfg.FirstRun))
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error("Backup run failed", zap.Error(err))
			}
		}),
		gocron.WithName("users-backup"),
		gocron.WithStartAt(startAt),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to register backup job: %w", err)
	}

	sched.Start()
	s.sched = sched
	s.logger.Info("Backup scheduler started",
		zap.Int64("destination", s.cfg.Destination),
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("first_run", s.cfg.FirstRun),
	)
	return nil
}

// Shutdown stops the timer and waits for a running job
func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// LastMessageID returns the id of the latest backup message, 0 if none
func (s *Scheduler) LastMessageID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMsgID
}

// Run performs one backup
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	if _, err := s.sender.GetChat(ctx, &tgbot.GetChatParams{ChatID: s.cfg.Destination}); err != nil {
		metrics.Backups.WithLabelValues(metrics.ResultSkipped).Inc()
		s.logger.Warn("Backup destination unreachable, skipping run",
			zap.Int64("destination", s.cfg.Destination),
			zap.Error(err),
		)
		return Result{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	res, err := s.produce(ctx)
	if err != nil {
		metrics.Backups.WithLabelValues(metrics.ResultFailure).Inc()
		return Result{}, err
	}
	metrics.Backups.WithLabelValues(metrics.ResultSuccess).Inc()
	return res, nil
}

func (s *Scheduler) produce(ctx context.Context) (Result, error) {
	users, err := s.store.SnapshotAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to snapshot users: %w", err)
	}

	now := s.clock.Now().UTC()
	name := FileName(now)
	path, data, err := WriteFile(s.cfg.Dir, name, users)
	if err != nil {
		return Result{}, err
	}

	msg, err := s.sender.SendDocument(ctx, &tgbot.SendDocumentParams{
		ChatID:    s.cfg.Destination,
		Document:  &tgmodels.InputFileUpload{Filename: name, Data: bytes.NewReader(data)},
		Caption:   Caption(now, len(users)),
		ParseMode: tgmodels.ParseModeHTML,
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
				{{Text: "♻️ Restore", CallbackData: RestorePayload(name)}},
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to send backup %s: %w", name, err)
	}

	s.mu.Lock()
	prev := s.lastMsgID
	s.lastMsgID = msg.ID
	s.mu.Unlock()

	if prev != 0 {
		if _, err := s.sender.DeleteMessage(ctx, &tgbot.DeleteMessageParams{
			ChatID:    s.cfg.Destination,
			MessageID: prev,
		}); err != nil {
			s.logger.Debug("Failed to delete previous backup message",
				zap.Int("message_id", prev),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Backup sent",
		zap.String("file", name),
		zap.Int("users", len(users)),
		zap.Int("message_id", msg.ID),
	)
	return Result{FileName: name, Path: path, Users: len(users), MessageID: msg.ID}, nil
}

// Caption of the backup document
func Caption(at time.Time, users int) string {
	return fmt.Sprintf("🗄 <b>Database backup</b>\n\n🕒 %s UTC\n👥 Users: %d",
		at.UTC().Format("2006-01-02 15:04:05"), users)
}

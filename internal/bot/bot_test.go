package bot

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"userinfobot/internal/backup"
	appmodels "userinfobot/internal/models"
	"userinfobot/internal/state"
	"userinfobot/internal/storage/stubs"
)

const testOwner = int64(1)

type sentMessage struct {
	ChatID int64
	Text   string
	Markup models.ReplyMarkup
}

type sentDocument struct {
	ChatID   int64
	Filename string
	Caption  string
	Data     []byte
}

// fakeGateway records outgoing calls; chats in failFor reject every send
type fakeGateway struct {
	mu        sync.Mutex
	messages  []sentMessage
	documents []sentDocument
	answers   []string
	attempts  map[int64]int
	failFor   map[int64]bool
	chats     map[int64]*models.ChatFullInfo
	members   int
	nextID    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		attempts: make(map[int64]int),
		failFor:  make(map[int64]bool),
		chats:    make(map[int64]*models.ChatFullInfo),
		members:  3,
	}
}

func (g *fakeGateway) SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := params.ChatID.(int64)
	g.attempts[id]++
	if g.failFor[id] {
		return nil, fmt.Errorf("send to %d: %w", id, tgbot.ErrorForbidden)
	}
	g.messages = append(g.messages, sentMessage{ChatID: id, Text: params.Text, Markup: params.ReplyMarkup})
	g.nextID++
	return &models.Message{ID: g.nextID}, nil
}

func (g *fakeGateway) SendDocument(ctx context.Context, params *tgbot.SendDocumentParams) (*models.Message, error) {
	upload := params.Document.(*models.InputFileUpload)
	data, err := io.ReadAll(upload.Data)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	id := params.ChatID.(int64)
	g.documents = append(g.documents, sentDocument{ChatID: id, Filename: upload.Filename, Caption: params.Caption, Data: data})
	g.nextID++
	return &models.Message{ID: g.nextID}, nil
}

func (g *fakeGateway) GetChat(ctx context.Context, params *tgbot.GetChatParams) (*models.ChatFullInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if chat, ok := g.chats[params.ChatID.(int64)]; ok {
		return chat, nil
	}
	return nil, tgbot.ErrorBadRequest
}

func (g *fakeGateway) GetChatMemberCount(ctx context.Context, params *tgbot.GetChatMemberCountParams) (int, error) {
	return g.members, nil
}

func (g *fakeGateway) AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, params.Text)
	return true, nil
}

func (g *fakeGateway) DeleteMessage(ctx context.Context, params *tgbot.DeleteMessageParams) (bool, error) {
	return true, nil
}

// to returns the texts sent to chatID in order
func (g *fakeGateway) to(chatID int64) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sentMessage
	for _, m := range g.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (g *fakeGateway) last(t *testing.T, chatID int64) sentMessage {
	t.Helper()
	msgs := g.to(chatID)
	require.NotEmpty(t, msgs, "no messages sent to %d", chatID)
	return msgs[len(msgs)-1]
}

func (g *fakeGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = nil
	g.answers = nil
}

type harness struct {
	bot   *Bot
	gw    *fakeGateway
	db    *stubs.MockDB
	clock *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw := newFakeGateway()
	db := stubs.NewMockDB()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	settings := Settings{OwnerID: testOwner, BackupDestination: -100500, BackupDir: t.TempDir()}
	return &harness{
		bot:   newBot(gw, db, settings, clock, zap.NewNop()),
		gw:    gw,
		db:    db,
		clock: clock,
	}
}

func textUpdate(from int64, firstName, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   1,
		From: &models.User{ID: from, FirstName: firstName},
		Chat: models.Chat{ID: from, Type: models.ChatTypePrivate},
		Text: text,
	}}
}

func callbackUpdate(from int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   fmt.Sprintf("q-%d-%s", from, data),
		From: models.User{ID: from},
		Data: data,
	}}
}

func (h *harness) send(update *models.Update) {
	h.bot.HandleUpdate(context.Background(), update)
}

func (h *harness) text(from int64, text string) {
	h.send(textUpdate(from, "", text))
}

func (h *harness) click(from int64, data string) {
	h.send(callbackUpdate(from, data))
}

func (h *harness) user(t *testing.T, id int64) *appmodels.User {
	t.Helper()
	u, err := h.db.GetUser(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func inlinePayloads(markup models.ReplyMarkup) []string {
	kb, ok := markup.(*models.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.CallbackData)
		}
	}
	return out
}

func TestScenario_FreshStart(t *testing.T) {
	h := newHarness(t)

	h.send(textUpdate(100, "Ada", "/start"))

	u := h.user(t, 100)
	assert.Equal(t, "Ada", appmodels.StringValue(u.FirstName))
	assert.Nil(t, u.LastName)
	assert.Nil(t, u.Username)
	assert.Nil(t, u.LanguageCode)
	assert.False(t, u.IsPremium)
	assert.False(t, u.IsBanned)
	assert.Nil(t, u.BanReason)
	assert.Nil(t, u.UnbanAt)
	assert.False(t, u.JoinedAt.IsZero())

	msgs := h.gw.to(100)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "<b>First Name:</b> Ada")
	kb, ok := msgs[0].Markup.(*models.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, kb.Keyboard, 4)
	assert.Nil(t, h.bot.states.Get(100))
}

func TestStart_OwnerGetsAdminPanel(t *testing.T) {
	h := newHarness(t)

	h.send(textUpdate(testOwner, "Owner", "/start"))

	msgs := h.gw.to(testOwner)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Text, "Admin Panel")
	assert.ElementsMatch(t, []string{cbStatus, cbUsersMenu, cbBroadcast}, inlinePayloads(msgs[1].Markup))
}

func TestStart_ClearsPendingAction(t *testing.T) {
	h := newHarness(t)
	h.click(testOwner, cbBanStart)
	require.NotNil(t, h.bot.states.Get(testOwner))

	h.text(testOwner, "/start")

	assert.Nil(t, h.bot.states.Get(testOwner))
}

// banUser200 runs the owner's ban dialog for user 200
func banUser200(t *testing.T, h *harness) {
	t.Helper()
	h.send(textUpdate(200, "Bob", "/start"))

	h.click(testOwner, cbBanStart)
	assert.Equal(t, state.AwaitingBanIdentity{}, h.bot.states.Get(testOwner))

	h.text(testOwner, "200")
	assert.Equal(t, state.AwaitingBanReason{TargetID: 200}, h.bot.states.Get(testOwner))

	h.text(testOwner, "Spam")
	assert.Equal(t, state.AwaitingBanConfirm{TargetID: 200, Reason: "Spam"}, h.bot.states.Get(testOwner))
	assert.Contains(t, inlinePayloads(h.gw.last(t, testOwner).Markup), "confirm_ban_200")

	h.click(testOwner, "confirm_ban_200")
}

func TestScenario_OwnerBansUser(t *testing.T) {
	h := newHarness(t)

	banUser200(t, h)

	u := h.user(t, 200)
	assert.True(t, u.IsBanned)
	assert.Equal(t, "Spam", appmodels.StringValue(u.BanReason))
	assert.Nil(t, h.bot.states.Get(testOwner))

	notice := h.gw.last(t, 200)
	assert.Contains(t, notice.Text, "You have been banned")
	assert.Equal(t, []string{"appeal_200"}, inlinePayloads(notice.Markup))
}

func TestBan_ByUsernameAndForward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.db.UpsertUser(ctx, appmodels.User{UserID: 300, Username: appmodels.StringPtr("carol")}))

	h.click(testOwner, cbBanStart)
	h.text(testOwner, "@carol")
	assert.Equal(t, state.AwaitingBanReason{TargetID: 300}, h.bot.states.Get(testOwner))

	h.click(testOwner, cbBanStart)
	forward := textUpdate(testOwner, "", "hello")
	forward.Message.ForwardOrigin = &models.MessageOrigin{
		MessageOriginUser: &models.MessageOriginUser{SenderUser: models.User{ID: 400}},
	}
	h.send(forward)
	assert.Equal(t, state.AwaitingBanReason{TargetID: 400}, h.bot.states.Get(testOwner))
}

func TestBan_UnidentifiedAndSelf(t *testing.T) {
	h := newHarness(t)

	h.click(testOwner, cbBanStart)
	h.text(testOwner, "@nobody")
	assert.Contains(t, h.gw.last(t, testOwner).Text, "Could not identify")
	assert.Equal(t, state.AwaitingBanIdentity{}, h.bot.states.Get(testOwner))

	h.text(testOwner, "1")
	assert.Contains(t, h.gw.last(t, testOwner).Text, "cannot ban yourself")
	assert.Equal(t, state.AwaitingBanIdentity{}, h.bot.states.Get(testOwner))
}

func TestBan_ConfirmWithoutPendingExpires(t *testing.T) {
	h := newHarness(t)

	h.click(testOwner, "confirm_ban_200")

	u, err := h.db.GetUser(context.Background(), 200)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Equal(t, []string{"This ban request has expired."}, h.gw.answers)
}

func TestBan_PersistenceFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.click(testOwner, cbBanStart)
	h.text(testOwner, "200")
	h.text(testOwner, "Spam")

	h.db.Fail = true
	h.click(testOwner, "confirm_ban_200")

	assert.Equal(t, apologyText, h.gw.last(t, testOwner).Text)
	assert.Equal(t, state.AwaitingBanConfirm{TargetID: 200, Reason: "Spam"}, h.bot.states.Get(testOwner))
}

func TestScenario_AppealGranted(t *testing.T) {
	h := newHarness(t)
	banUser200(t, h)
	h.gw.reset()

	h.click(200, "appeal_200")
	assert.Equal(t, state.AwaitingAppealMessage{AppellantID: 200}, h.bot.states.Get(200))

	h.text(200, "Sorry")

	appeal := h.gw.last(t, testOwner)
	assert.Contains(t, appeal.Text, "⚖️")
	assert.Contains(t, appeal.Text, "200")
	assert.Contains(t, appeal.Text, "Sorry")
	assert.Equal(t, []string{"owner_unban_200", "owner_notnow_200"}, inlinePayloads(appeal.Markup))
	assert.Nil(t, h.bot.states.Get(200))

	h.click(testOwner, "owner_unban_200")

	u := h.user(t, 200)
	assert.False(t, u.IsBanned)
	assert.Nil(t, u.BanReason)
	assert.Nil(t, u.UnbanAt)
	assert.Contains(t, h.gw.last(t, 200).Text, "unbanned")
}

func TestAppeal_Skip(t *testing.T) {
	h := newHarness(t)
	banUser200(t, h)

	h.click(200, "appeal_200")
	h.click(200, "skip_appeal_200")

	assert.Contains(t, h.gw.last(t, testOwner).Text, skippedAppealText)
	assert.Nil(t, h.bot.states.Get(200))
}

func TestAppeal_OwnerUnreachableKeepsState(t *testing.T) {
	h := newHarness(t)
	banUser200(t, h)

	h.click(200, "appeal_200")
	h.gw.failFor[testOwner] = true
	h.text(200, "Sorry")

	assert.Equal(t, apologyText, h.gw.last(t, 200).Text)
	assert.Equal(t, state.AwaitingAppealMessage{AppellantID: 200}, h.bot.states.Get(200))
}

func TestBanned_OtherEventsGetNotice(t *testing.T) {
	h := newHarness(t)
	banUser200(t, h)
	h.gw.reset()

	h.text(200, "💳 My Account")
	assert.Contains(t, h.gw.last(t, 200).Text, "You are banned")

	h.click(200, "appeal_300")
	h.click(200, cbStatus)
	assert.Equal(t, []string{"🚫 You are banned from using this bot.", "🚫 You are banned from using this bot."}, h.gw.answers)
}

func TestScenario_DeferredUnban(t *testing.T) {
	h := newHarness(t)
	banUser200(t, h)

	h.click(testOwner, "owner_notnow_200")

	u := h.user(t, 200)
	assert.True(t, u.IsBanned)
	require.NotNil(t, u.UnbanAt)
	assert.True(t, h.clock.Now().Add(48*time.Hour).Equal(*u.UnbanAt))

	h.clock.Advance(48*time.Hour + time.Second)
	h.gw.reset()
	h.text(200, "💳 My Account")

	u = h.user(t, 200)
	assert.False(t, u.IsBanned)
	assert.Nil(t, u.UnbanAt)

	msgs := h.gw.to(200)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "ban has expired")
	assert.Contains(t, msgs[1].Text, "Your Account Info")
}

func TestAppeal_LapsedBanClosesDialog(t *testing.T) {
	h := newHarness(t)
	banUser200(t, h)
	h.click(200, "appeal_200")
	h.text(200, "Sorry")
	h.click(testOwner, "owner_notnow_200")

	// A second appeal is opened and left unanswered until the deadline passes
	h.click(200, "appeal_200")
	require.Equal(t, state.AwaitingAppealMessage{AppellantID: 200}, h.bot.states.Get(200))
	h.clock.Advance(49 * time.Hour)
	h.gw.reset()

	h.text(200, "just saying hi")
	h.click(200, "skip_appeal_200")

	assert.False(t, h.user(t, 200).IsBanned)
	assert.Nil(t, h.bot.states.Get(200))
	assert.Empty(t, h.gw.to(testOwner), "no appeal reaches the owner")
	assert.Contains(t, h.gw.to(200)[0].Text, "ban has expired")
}

func TestAppeal_DecisionOnUnbannedUser(t *testing.T) {
	h := newHarness(t)
	banUser200(t, h)
	h.click(200, "appeal_200")
	h.text(200, "Sorry")
	h.click(testOwner, "owner_unban_200")
	h.gw.reset()

	h.click(testOwner, "owner_notnow_200")
	h.click(testOwner, "owner_unban_200")

	assert.Equal(t, []string{notBannedText, notBannedText}, h.gw.answers)
	assert.Empty(t, h.gw.to(200))
	assert.Empty(t, h.gw.to(testOwner))
	u := h.user(t, 200)
	assert.False(t, u.IsBanned)
	assert.Nil(t, u.UnbanAt)

	h.click(testOwner, "owner_notnow_999")
	assert.Equal(t, notBannedText, h.gw.answers[2])
}

func TestStart_ImportsStartupFileOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path, _, err := backup.WriteFile(t.TempDir(), "user_report.json", []appmodels.User{{
		UserID:    700,
		FirstName: appmodels.StringPtr("Imported"),
		Bio:       appmodels.StringPtr("from the report"),
		IsBanned:  true,
		BanReason: appmodels.StringPtr("Old spam"),
		JoinedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	h.bot.settings.StartupImportFile = path

	h.send(textUpdate(100, "Ada", "/start"))

	u := h.user(t, 700)
	assert.True(t, u.IsBanned)
	assert.Equal(t, "Old spam", appmodels.StringValue(u.BanReason))
	assert.Equal(t, "from the report", appmodels.StringValue(u.Bio))

	require.NoError(t, h.db.ClearBan(ctx, 700))
	h.send(textUpdate(100, "Ada", "/start"))
	h.send(textUpdate(testOwner, "Owner", "/start"))

	assert.False(t, h.user(t, 700).IsBanned, "the file is applied only once")
}

func TestStart_MissingStartupFileIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.bot.settings.StartupImportFile = filepath.Join(t.TempDir(), "user_report.json")

	h.send(textUpdate(100, "Ada", "/start"))

	msgs := h.gw.to(100)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "<b>First Name:</b> Ada")
	n, err := h.db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScenario_BroadcastWithSubstitution(t *testing.T) {
	h := newHarness(t)
	h.send(textUpdate(100, "Ada", "/start"))
	h.send(textUpdate(200, "Bob", "/start"))
	h.gw.reset()

	h.click(testOwner, cbBroadcast)
	assert.Equal(t, state.AwaitingBroadcastMessage{}, h.bot.states.Get(testOwner))

	h.text(testOwner, "Hi {first_name} (id {user_id})")

	assert.Equal(t, "Hi Ada (id 100)", h.gw.last(t, 100).Text)
	assert.Equal(t, "Hi Bob (id 200)", h.gw.last(t, 200).Text)
	summary := h.gw.last(t, testOwner).Text
	assert.Contains(t, summary, "Sent: 2")
	assert.Contains(t, summary, "Failed: 0")
	assert.Nil(t, h.bot.states.Get(testOwner))
}

func TestBroadcast_OneAttemptPerUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for id := int64(100); id < 105; id++ {
		require.NoError(t, h.db.UpsertUser(ctx, appmodels.User{UserID: id, FirstName: appmodels.StringPtr("U")}))
	}
	h.gw.failFor[101] = true
	h.gw.failFor[103] = true

	h.click(testOwner, cbBroadcast)
	h.text(testOwner, "{username}")

	for id := int64(100); id < 105; id++ {
		assert.Equal(t, 1, h.gw.attempts[id], "attempts for %d", id)
	}
	for _, id := range []int64{100, 102, 104} {
		msgs := h.gw.to(id)
		require.Len(t, msgs, 1)
		assert.Equal(t, "N/A", msgs[0].Text)
	}
	summary := h.gw.last(t, testOwner).Text
	assert.Contains(t, summary, "Sent: 3")
	assert.Contains(t, summary, "Failed: 2")
}

func TestBroadcast_Cancel(t *testing.T) {
	h := newHarness(t)
	h.send(textUpdate(100, "Ada", "/start"))
	h.gw.reset()

	h.click(testOwner, cbBroadcast)
	h.text(testOwner, "CANCEL")

	assert.Empty(t, h.gw.to(100))
	assert.Contains(t, h.gw.last(t, testOwner).Text, "Broadcast cancelled")
	assert.Nil(t, h.bot.states.Get(testOwner))
}

func TestLookup_ByIDAndHandle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.db.UpsertUser(ctx, appmodels.User{
		UserID:    300,
		FirstName: appmodels.StringPtr("Carol"),
		Username:  appmodels.StringPtr("carol"),
	}))

	h.click(testOwner, cbGetInfo)
	h.text(testOwner, "@nobody")
	assert.Contains(t, h.gw.last(t, testOwner).Text, "No user with username")
	assert.Equal(t, state.AwaitingInfoLookup{}, h.bot.states.Get(testOwner))

	h.text(testOwner, "@carol")
	text := h.gw.last(t, testOwner).Text
	assert.Contains(t, text, "<b>First Name:</b> Carol")
	assert.Contains(t, text, "<code>300</code>")
	assert.Nil(t, h.bot.states.Get(testOwner))

	h.click(testOwner, cbGetInfo)
	h.text(testOwner, "300")
	assert.Contains(t, h.gw.last(t, testOwner).Text, "<b>First Name:</b> Carol")
}

func TestCallback_NonOwnerIgnored(t *testing.T) {
	h := newHarness(t)

	for _, data := range []string{cbStatus, cbGetList, cbBanStart, "owner_unban_5", "restore_backup.json"} {
		h.click(100, data)
	}

	assert.Empty(t, h.gw.to(100))
	assert.Empty(t, h.gw.documents)
	assert.Nil(t, h.bot.states.Get(100))
	for _, a := range h.gw.answers {
		assert.Empty(t, a)
	}
}

func TestAdmin_StatusAndList(t *testing.T) {
	h := newHarness(t)
	h.send(textUpdate(100, "Ada", "/start"))
	banUser200(t, h)

	h.click(testOwner, cbStatus)
	status := h.gw.last(t, testOwner).Text
	assert.Contains(t, status, "Total users:</b> 2")
	assert.Contains(t, status, "Banned users:</b> 1")
	assert.Contains(t, status, "-100500")

	h.click(testOwner, cbGetList)
	require.Len(t, h.gw.documents, 1)
	doc := h.gw.documents[0]
	assert.Equal(t, "users.xlsx", doc.Filename)
	assert.NotEmpty(t, doc.Data)
	assert.Contains(t, doc.Caption, "Total: 2")
	assert.Contains(t, doc.Caption, "Banned: 1")
}

func TestAdmin_Restore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	users := []appmodels.User{
		{UserID: 10, FirstName: appmodels.StringPtr("A"), JoinedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{UserID: 11, FirstName: appmodels.StringPtr("B"), JoinedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	_, _, err := backup.WriteFile(h.bot.settings.BackupDir, "backup_20250101_000000.json", users)
	require.NoError(t, err)
	require.NoError(t, h.db.UpsertUser(ctx, appmodels.User{UserID: 99}))

	h.click(testOwner, backup.RestorePayload("backup_20250101_000000.json"))

	assert.Equal(t, []string{"✅ Restored 2 users from backup_20250101_000000.json"}, h.gw.answers)
	snapshot, err := h.db.SnapshotAll(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(10), snapshot[0].UserID)

	h.gw.reset()
	h.click(testOwner, backup.RestorePayload("../etc/passwd"))
	require.Len(t, h.gw.answers, 1)
	assert.Contains(t, h.gw.answers[0], "Restore failed")
}

func TestSharedUsersAndChat(t *testing.T) {
	h := newHarness(t)
	h.gw.chats[-1001] = &models.ChatFullInfo{ID: -1001, Title: "Gophers", Username: "gophers", Description: "Go <3"}

	shared := textUpdate(100, "Ada", "")
	shared.Message.UsersShared = &models.UsersShared{RequestID: reqUser, Users: []models.SharedUser{
		{UserID: 500, FirstName: "Eve"},
		{UserID: 501},
	}}
	h.send(shared)

	msgs := h.gw.to(100)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "<b>First Name:</b> Eve")
	assert.Contains(t, msgs[1].Text, "<code>501</code>")
	assert.Contains(t, msgs[1].Text, "restricted by Telegram")

	h.gw.reset()
	chat := textUpdate(100, "Ada", "")
	chat.Message.ChatShared = &models.ChatShared{RequestID: reqGroup, ChatID: -1001}
	h.send(chat)
	text := h.gw.last(t, 100).Text
	assert.Contains(t, text, "Gophers")
	assert.Contains(t, text, "@gophers")
	assert.Contains(t, text, "<b>Members:</b> 3")
	assert.Contains(t, text, "Go &lt;3")

	chat.Message.ChatShared = &models.ChatShared{RequestID: reqGroup, ChatID: -2002}
	h.send(chat)
	assert.Equal(t, "✅ <b>Selected Chat Info:</b>\n\n🔑 <b>Chat ID:</b> <code>-2002</code>", h.gw.last(t, 100).Text)
}

func TestForwarded_HiddenUserAndChannel(t *testing.T) {
	h := newHarness(t)

	hidden := textUpdate(100, "Ada", "hi")
	hidden.Message.ForwardOrigin = &models.MessageOrigin{
		MessageOriginHiddenUser: &models.MessageOriginHiddenUser{SenderUserName: "Ghost <x>"},
	}
	h.send(hidden)
	assert.Contains(t, h.gw.last(t, 100).Text, "Ghost &lt;x&gt;")

	channel := textUpdate(100, "Ada", "hi")
	channel.Message.ForwardOrigin = &models.MessageOrigin{
		MessageOriginChannel: &models.MessageOriginChannel{Chat: models.Chat{ID: -300, Title: "News"}},
	}
	h.send(channel)
	text := h.gw.last(t, 100).Text
	assert.Contains(t, text, "News")
	assert.Contains(t, text, "<code>-300</code>")
}

func TestHandleUpdate_PersistenceFailureApologizes(t *testing.T) {
	h := newHarness(t)
	h.db.Fail = true

	h.send(textUpdate(100, "Ada", "/start"))

	assert.Equal(t, apologyText, h.gw.last(t, 100).Text)
}

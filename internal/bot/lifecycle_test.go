package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder replaces the dispatcher handler and keeps what reached it
type recorder struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recorder) handle(ctx context.Context, update *models.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, update.ID)
}

func (r *recorder) seen() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

func newClient(t *testing.T, h *harness, rec *recorder) *tgbot.Bot {
	t.Helper()
	h.bot.dispatch = newDispatcher(rec.handle)
	api, err := tgbot.New("123456:test-token", h.bot.clientOptions(tgbot.WithSkipGetMe())...)
	require.NoError(t, err)
	h.bot.api = api
	return api
}

func TestClient_KeepsArrivalOrderPerPrincipal(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	api := newClient(t, h, rec)

	const n = 2000
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		u := textUpdate(200, "Bob", "x")
		u.ID = int64(i)
		api.ProcessUpdate(ctx, u)
	}
	h.bot.Wait()

	got := rec.seen()
	require.Len(t, got, n)
	for i, id := range got {
		require.Equal(t, int64(i+1), id, "update %d handled out of order", id)
	}
}

func TestWebhookHandler_RequiresSecret(t *testing.T) {
	h := newHarness(t)
	h.bot.settings.WebhookSecret = "s3cret-token"
	rec := &recorder{}
	api := newClient(t, h, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go api.StartWebhook(ctx)

	handler := h.bot.WebhookHandler()
	post := func(updateID int64, secret string) {
		body := fmt.Sprintf(`{"update_id":%d,"message":{"message_id":1,"date":0,`+
			`"chat":{"id":%d,"type":"private"},"from":{"id":%d,"is_bot":false,"first_name":"Owner"},"text":"/start"}}`,
			updateID, testOwner, testOwner)
		req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
		if secret != "" {
			req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	post(1, "")
	post(2, "wrong")
	post(3, "s3cret-token")

	assert.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	h.bot.Wait()
	assert.Equal(t, []int64{3}, rec.seen(), "only the update carrying the secret is dispatched")
}

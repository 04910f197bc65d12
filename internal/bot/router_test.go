package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userinfobot/internal/access"
	"userinfobot/internal/state"
)

func TestSelectRoute(t *testing.T) {
	forward := textUpdate(100, "", "fwd")
	forward.Message.ForwardOrigin = &models.MessageOrigin{
		MessageOriginUser: &models.MessageOriginUser{SenderUser: models.User{ID: 7}},
	}
	sharedUsers := textUpdate(100, "", "")
	sharedUsers.Message.UsersShared = &models.UsersShared{Users: []models.SharedUser{{UserID: 7}}}
	sharedChat := textUpdate(100, "", "")
	sharedChat.Message.ChatShared = &models.ChatShared{ChatID: -7}
	group := textUpdate(100, "", "/start")
	group.Message.Chat.Type = models.ChatTypeGroup
	anonymous := textUpdate(100, "", "hello")
	anonymous.Message.From = nil

	tests := []struct {
		name    string
		update  *models.Update
		role    access.Role
		pending state.Action
		want    Route
	}{
		{"nil update", nil, access.Allowed, nil, RouteIgnore},
		{"group chat", group, access.Allowed, nil, RouteIgnore},
		{"no sender", anonymous, access.Allowed, nil, RouteIgnore},
		{"start", textUpdate(100, "", "/start"), access.Allowed, nil, RouteStart},
		{"start with payload", textUpdate(100, "", "/start ref"), access.Allowed, nil, RouteStart},
		{"start beats pending", textUpdate(1, "", "/start"), access.Owner, state.AwaitingInfoLookup{}, RouteStart},
		{"banned start", textUpdate(100, "", "/start"), access.Banned, nil, RouteStart},
		{"callback", callbackUpdate(100, cbStatus), access.Allowed, nil, RouteCallback},
		{"callback beats pending", callbackUpdate(1, cbUsersMenu), access.Owner, state.AwaitingBanIdentity{}, RouteCallback},
		{"shared users", sharedUsers, access.Allowed, nil, RouteSharedUsers},
		{"shared chat", sharedChat, access.Allowed, nil, RouteSharedChat},
		{"pending text", textUpdate(1, "", "200"), access.Owner, state.AwaitingBanIdentity{}, RoutePending},
		{"pending beats my account", textUpdate(1, "", myAccountLabel), access.Owner, state.AwaitingBanReason{TargetID: 2}, RoutePending},
		{"pending forward", forward, access.Owner, state.AwaitingBanIdentity{}, RoutePending},
		{"my account", textUpdate(100, "", myAccountLabel), access.Allowed, nil, RouteSelfProfile},
		{"forwarded", forward, access.Allowed, nil, RouteForwarded},
		{"plain text", textUpdate(100, "", "hello"), access.Allowed, nil, RouteIgnore},
		{"banned own appeal", callbackUpdate(100, "appeal_100"), access.Banned, nil, RouteCallback},
		{"banned own skip", callbackUpdate(100, "skip_appeal_100"), access.Banned, state.AwaitingAppealMessage{AppellantID: 100}, RouteCallback},
		{"banned foreign appeal", callbackUpdate(100, "appeal_200"), access.Banned, nil, RouteBannedNotice},
		{"banned admin callback", callbackUpdate(100, cbStatus), access.Banned, nil, RouteBannedNotice},
		{"banned appeal text", textUpdate(100, "", "Sorry"), access.Banned, state.AwaitingAppealMessage{AppellantID: 100}, RoutePending},
		{"banned text", textUpdate(100, "", "hello"), access.Banned, nil, RouteBannedNotice},
		{"banned my account", textUpdate(100, "", myAccountLabel), access.Banned, nil, RouteBannedNotice},
		{"banned shared users", sharedUsers, access.Banned, nil, RouteBannedNotice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectRoute(tt.update, tt.role, tt.pending))
		})
	}
}

func TestParseID(t *testing.T) {
	id, ok := parseID("confirm_ban_200", cbConfirmBan)
	assert.True(t, ok)
	assert.Equal(t, int64(200), id)

	for _, data := range []string{"confirm_ban_", "confirm_ban_-1", "confirm_ban_2x", "appeal_200"} {
		_, ok := parseID(data, cbConfirmBan)
		assert.False(t, ok, data)
	}
}

func TestDispatcher_PerPrincipalOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got = make(map[int64][]int)
	)
	d := newDispatcher(func(ctx context.Context, update *models.Update) {
		// Slow down the first event of each principal so later ones would overtake it
		if update.Message.ID == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		mu.Lock()
		got[update.Message.From.ID] = append(got[update.Message.From.ID], update.Message.ID)
		mu.Unlock()
	})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		for _, id := range []int64{1, 2, 3} {
			u := textUpdate(id, "", "x")
			u.Message.ID = i
			d.submit(ctx, id, u)
		}
	}
	d.wait()

	require.Len(t, got, 3)
	for id, seq := range got {
		require.Len(t, seq, 20, "principal %d", id)
		for i, v := range seq {
			assert.Equal(t, i, v, "principal %d", id)
		}
	}
}

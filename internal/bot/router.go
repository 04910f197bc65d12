package bot

import (
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"userinfobot/internal/access"
	"userinfobot/internal/state"
)

// Route is the handler selected for an update
type Route int

const (
	RouteIgnore Route = iota
	RouteStart
	RouteCallback
	RouteSharedUsers
	RouteSharedChat
	RoutePending
	RouteSelfProfile
	RouteForwarded
	RouteBannedNotice
)

func (r Route) String() string {
	switch r {
	case RouteStart:
		return "start"
	case RouteCallback:
		return "callback"
	case RouteSharedUsers:
		return "shared_users"
	case RouteSharedChat:
		return "shared_chat"
	case RoutePending:
		return "pending"
	case RouteSelfProfile:
		return "self_profile"
	case RouteForwarded:
		return "forwarded"
	case RouteBannedNotice:
		return "banned_notice"
	default:
		return "ignore"
	}
}

// Callback payload prefixes
const (
	cbStatus      = "status"
	cbUsersMenu   = "users_menu"
	cbBroadcast   = "broadcast"
	cbGetInfo     = "get_info"
	cbGetList     = "get_list"
	cbBanStart    = "ban_start"
	cbConfirmBan  = "confirm_ban_"
	cbAppeal      = "appeal_"
	cbSkipAppeal  = "skip_appeal_"
	cbOwnerUnban  = "owner_unban_"
	cbOwnerNotNow = "owner_notnow_"
)

func isStart(text string) bool {
	return text == "/start" || strings.HasPrefix(text, "/start ") || strings.HasPrefix(text, "/start@")
}

// selectRoute picks exactly one handler. It depends only on the update,
// the sender's role and their pending action.
func selectRoute(update *models.Update, role access.Role, pending state.Action) Route {
	if update == nil {
		return RouteIgnore
	}

	msg := update.Message
	if msg != nil && (msg.Chat.Type != models.ChatTypePrivate || msg.From == nil) {
		return RouteIgnore
	}

	if msg != nil && isStart(msg.Text) {
		return RouteStart
	}

	if role == access.Banned {
		return bannedRoute(update, pending)
	}

	if update.CallbackQuery != nil {
		return RouteCallback
	}
	if msg == nil {
		return RouteIgnore
	}

	switch {
	case msg.UsersShared != nil:
		return RouteSharedUsers
	case msg.ChatShared != nil:
		return RouteSharedChat
	case pending != nil && (msg.Text != "" || msg.ForwardOrigin != nil):
		return RoutePending
	case msg.Text == myAccountLabel:
		return RouteSelfProfile
	case msg.ForwardOrigin != nil:
		return RouteForwarded
	}
	return RouteIgnore
}

// bannedRoute lets a banned principal reach only the appeal flow
func bannedRoute(update *models.Update, pending state.Action) Route {
	if q := update.CallbackQuery; q != nil {
		if ownAppealPayload(q.Data, q.From.ID) {
			return RouteCallback
		}
		return RouteBannedNotice
	}

	msg := update.Message
	if msg == nil {
		return RouteIgnore
	}
	if _, ok := pending.(state.AwaitingAppealMessage); ok && msg.Text != "" {
		return RoutePending
	}
	return RouteBannedNotice
}

func ownAppealPayload(data string, clicker int64) bool {
	for _, prefix := range []string{cbAppeal, cbSkipAppeal} {
		if id, ok := parseID(data, prefix); ok {
			return id == clicker
		}
	}
	return false
}

// parseID extracts the decimal id following prefix
func parseID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	raw := strings.TrimPrefix(data, prefix)
	if !isDigits(raw) {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

package bot

import (
	"strconv"

	"github.com/go-telegram/bot/models"
)

const myAccountLabel = "💳 My Account"

// Request ids of the reply keyboard buttons
const (
	reqUser = iota + 1
	reqPremium
	reqBot
	reqGroup
	reqChannel
	reqForum
	reqMyGroup
	reqMyChannel
	reqMyForum
)

func mainKeyboard() *models.ReplyKeyboardMarkup {
	adminRights := &models.ChatAdministratorRights{
		CanManageChat:  true,
		CanInviteUsers: true,
	}

	return &models.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]models.KeyboardButton{
			{
				{Text: "👤 User", RequestUsers: &models.KeyboardButtonRequestUsers{RequestID: reqUser, MaxQuantity: 1}},
				{Text: "🌟 Premium", RequestUsers: &models.KeyboardButtonRequestUsers{RequestID: reqPremium, UserIsPremium: true, MaxQuantity: 1}},
				{Text: "🤖 Bot", RequestUsers: &models.KeyboardButtonRequestUsers{RequestID: reqBot, UserIsBot: true, MaxQuantity: 1}},
			},
			{
				{Text: "👥 Group", RequestChat: &models.KeyboardButtonRequestChat{RequestID: reqGroup}},
				{Text: "📢 Channel", RequestChat: &models.KeyboardButtonRequestChat{RequestID: reqChannel, ChatIsChannel: true}},
				{Text: "🏛️ Forum", RequestChat: &models.KeyboardButtonRequestChat{RequestID: reqForum, ChatIsForum: true}},
			},
			{
				{Text: "🏘️ My Group", RequestChat: &models.KeyboardButtonRequestChat{RequestID: reqMyGroup, UserAdministratorRights: adminRights}},
				{Text: "📡 My Channel", RequestChat: &models.KeyboardButtonRequestChat{RequestID: reqMyChannel, ChatIsChannel: true, UserAdministratorRights: adminRights}},
				{Text: "🗯️ My Forum", RequestChat: &models.KeyboardButtonRequestChat{RequestID: reqMyForum, ChatIsForum: true, UserAdministratorRights: adminRights}},
			},
			{
				{Text: myAccountLabel},
			},
		},
	}
}

func inline(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func withID(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

func adminPanel() *models.InlineKeyboardMarkup {
	return inline(
		[]models.InlineKeyboardButton{button("📊 Status", cbStatus), button("👥 Users", cbUsersMenu)},
		[]models.InlineKeyboardButton{button("📢 Broadcast", cbBroadcast)},
	)
}

func usersMenu() *models.InlineKeyboardMarkup {
	return inline(
		[]models.InlineKeyboardButton{button("🔎 Get Info", cbGetInfo), button("📋 Get List", cbGetList)},
		[]models.InlineKeyboardButton{button("🚫 Ban User", cbBanStart)},
	)
}

func cancelToUsersMenu() *models.InlineKeyboardMarkup {
	return inline([]models.InlineKeyboardButton{button("❌ Cancel", cbUsersMenu)})
}

func banConfirmKeyboard(target int64) *models.InlineKeyboardMarkup {
	return inline([]models.InlineKeyboardButton{
		button("✅ Confirm", withID(cbConfirmBan, target)),
		button("❌ Cancel", cbUsersMenu),
	})
}

func appealKeyboard(id int64) *models.InlineKeyboardMarkup {
	return inline([]models.InlineKeyboardButton{button("⚖️ Appeal", withID(cbAppeal, id))})
}

func skipAppealKeyboard(id int64) *models.InlineKeyboardMarkup {
	return inline([]models.InlineKeyboardButton{button("⏭ Skip", withID(cbSkipAppeal, id))})
}

func appealDecisionKeyboard(id int64) *models.InlineKeyboardMarkup {
	return inline([]models.InlineKeyboardButton{
		button("✅ Unban", withID(cbOwnerUnban, id)),
		button("⏳ Not now", withID(cbOwnerNotNow, id)),
	})
}

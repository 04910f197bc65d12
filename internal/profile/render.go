package profile

import (
	"fmt"
	"html"
	"strings"

	"userinfobot/internal/models"
)

// Render formats a profile as an HTML message
func Render(title string, p Profile) string {
	premium := "No"
	if p.IsPremium {
		premium = "Yes 🌟"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s:</b>\n\n", html.EscapeString(title))
	fmt.Fprintf(&b, "👤 <b>First Name:</b> %s\n", field(p.FirstName))
	fmt.Fprintf(&b, "👤 <b>Last Name:</b> %s\n", field(p.LastName))
	fmt.Fprintf(&b, "🆔 <b>User Name:</b> @%s\n", field(p.Username))
	fmt.Fprintf(&b, "🔑 <b>User ID:</b> <code>%d</code>\n", p.UserID)
	fmt.Fprintf(&b, "🌐 <b>Language:</b> %s\n", field(p.LanguageCode))
	fmt.Fprintf(&b, "🌟 <b>Premium:</b> %s\n", premium)
	fmt.Fprintf(&b, "📝 <b>Bio:</b> %s\n\n", field(p.Bio))
	fmt.Fprintf(&b, "🔗 <b>Permanent Link:</b> <a href='tg://user?id=%d'>Click Here</a>", p.UserID)

	if p.PrivacyRestricted {
		fmt.Fprintf(&b, "\n\n⚠️ <i>Hidden by privacy settings: %s.\nForward a message from this user to see more.</i>",
			html.EscapeString(strings.Join(p.Missing, ", ")))
	}
	return b.String()
}

// RenderIDOnly is used when nothing but the id of a shared user is known
func RenderIDOnly(title string, id int64) string {
	return fmt.Sprintf("✅ <b>%s:</b>\n\n"+
		"🔑 <b>User ID:</b> <code>%d</code>\n"+
		"<i>Note: Further details are restricted by Telegram for security. "+
		"Forward a message from this user to see more.</i>",
		html.EscapeString(title), id)
}

func field(s string) string {
	return html.EscapeString(models.OrNA(s))
}

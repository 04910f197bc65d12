package models

import "time"

// NotAvailable is rendered in place of any missing profile field.
const NotAvailable = "N/A"

// User represents a row of the users table.
// Field order matches the keys of the backup artifact.
type User struct {
	UserID       int64      `json:"user_id"`
	FirstName    *string    `json:"first_name"`
	LastName     *string    `json:"last_name"`
	Username     *string    `json:"username"`
	LanguageCode *string    `json:"language_code"`
	IsPremium    bool       `json:"is_premium"`
	IsBanned     bool       `json:"is_banned"`
	BanReason    *string    `json:"ban_reason"`
	UnbanAt      *time.Time `json:"unban_at"`
	Bio          *string    `json:"bio"`
	JoinedAt     time.Time  `json:"joined_at"`
}

// Clone returns a deep copy so callers never share pointer fields.
func (u User) Clone() User {
	c := u
	c.FirstName = cloneString(u.FirstName)
	c.LastName = cloneString(u.LastName)
	c.Username = cloneString(u.Username)
	c.LanguageCode = cloneString(u.LanguageCode)
	c.BanReason = cloneString(u.BanReason)
	c.Bio = cloneString(u.Bio)
	if u.UnbanAt != nil {
		t := *u.UnbanAt
		c.UnbanAt = &t
	}
	return c
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// OrNA returns s or NotAvailable when s is empty.
func OrNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

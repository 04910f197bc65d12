// Package backup produces, sends and restores JSON snapshots of the users table.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"userinfobot/internal/models"
)

const fileNameLayout = "backup_20060102_150405.json"

// FileName returns the artifact name for a snapshot taken at t
func FileName(t time.Time) string {
	return t.UTC().Format(fileNameLayout)
}

// Encode renders users as a JSON array with four-space indentation
func Encode(users []models.User) ([]byte, error) {
	if users == nil {
		users = []models.User{}
	}
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return data, nil
}

// record accepts artifacts written by other producers: naive timestamps,
// 0/1 booleans and unknown keys.
type record struct {
	UserID       int64     `json:"user_id"`
	FirstName    *string   `json:"first_name"`
	LastName     *string   `json:"last_name"`
	Username     *string   `json:"username"`
	LanguageCode *string   `json:"language_code"`
	IsPremium    flexBool  `json:"is_premium"`
	IsBanned     flexBool  `json:"is_banned"`
	BanReason    *string   `json:"ban_reason"`
	UnbanAt      *flexTime `json:"unban_at"`
	Bio          *string   `json:"bio"`
	JoinedAt     *flexTime `json:"joined_at"`
}

func (r record) toUser() models.User {
	u := models.User{
		UserID:       r.UserID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Username:     r.Username,
		LanguageCode: r.LanguageCode,
		IsPremium:    bool(r.IsPremium),
		IsBanned:     bool(r.IsBanned),
		BanReason:    r.BanReason,
		Bio:          r.Bio,
	}
	if r.UnbanAt != nil {
		t := time.Time(*r.UnbanAt)
		u.UnbanAt = &t
	}
	if r.JoinedAt != nil {
		u.JoinedAt = time.Time(*r.JoinedAt)
	}
	if !u.IsBanned {
		u.BanReason = nil
		u.UnbanAt = nil
	}
	return u
}

// Decode parses an artifact
func Decode(data []byte) ([]models.User, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	users := make([]models.User, 0, len(records))
	for i, r := range records {
		if r.UserID == 0 {
			return nil, fmt.Errorf("failed to decode backup: record %d has no user_id", i)
		}
		users = append(users, r.toUser())
	}
	return users, nil
}

// ReadFile decodes the artifact at path
func ReadFile(path string) ([]models.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", path, err)
	}
	return Decode(data)
}

// WriteFile encodes users into dir/name
func WriteFile(dir, name string, users []models.User) (string, []byte, error) {
	data, err := Encode(users)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create backup dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("failed to write backup %s: %w", path, err)
	}
	return path, data, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// flexTime parses RFC 3339 and naive ISO-8601 strings; naive values are UTC
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = flexTime(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", s)
}

// flexBool accepts true/false and 0/1
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return fmt.Errorf("unsupported boolean %s", data)
	}
	return nil
}

// Package report builds the spreadsheet sent by the admin "get list" action.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"userinfobot/internal/models"
)

// SheetName of the single worksheet
const SheetName = "Users"

var header = []interface{}{
	"user_id",
	"first_name",
	"last_name",
	"username",
	"language_code",
	"is_premium",
	"is_banned",
	"ban_reason",
	"unban_at",
	"bio",
	"joined_at",
}

// UserList renders users as an xlsx workbook
func UserList(users []models.User) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, u := range users {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			u.UserID,
			models.StringValue(u.FirstName),
			models.StringValue(u.LastName),
			models.StringValue(u.Username),
			models.StringValue(u.LanguageCode),
			u.IsPremium,
			u.IsBanned,
			models.StringValue(u.BanReason),
			formatTime(u.UnbanAt),
			models.StringValue(u.Bio),
			u.JoinedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write user %d: %w", u.UserID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary is the text sent along with the workbook
func Summary(users []models.User) string {
	banned := 0
	premium := 0
	for _, u := range users {
		if u.IsBanned {
			banned++
		}
		if u.IsPremium {
			premium++
		}
	}
	return fmt.Sprintf("📋 <b>User list</b>\n\nTotal: %d\nPremium: %d\nBanned: %d", len(users), premium, banned)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

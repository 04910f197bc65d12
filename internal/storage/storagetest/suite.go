// Package storagetest holds behaviour tests shared by every storage.Storage
// implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userinfobot/internal/models"
	"userinfobot/internal/storage"
)

// Factory returns an initialized, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Storage

// Run executes the whole suite against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db storage.Storage)
	}{
		{"UpsertCreatesUser", testUpsertCreatesUser},
		{"UpsertPreservesBanAndJoined", testUpsertPreservesBanAndJoined},
		{"UpsertKeepsBioWhenNil", testUpsertKeepsBioWhenNil},
		{"GetUnknownUser", testGetUnknownUser},
		{"FindByUsername", testFindByUsername},
		{"BanLifecycle", testBanLifecycle},
		{"SetBannedUnknownUser", testSetBannedUnknownUser},
		{"CountUsers", testCountUsers},
		{"CountBanned", testCountBanned},
		{"SnapshotReplaceRoundTrip", testSnapshotReplaceRoundTrip},
		{"BulkReplaceDropsMissingRows", testBulkReplaceDropsMissingRows},
		{"ImportOverwritesEverything", testImportOverwritesEverything},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func user(id int64, first, username string) models.User {
	return models.User{
		UserID:    id,
		FirstName: models.StringPtr(first),
		Username:  models.StringPtr(username),
	}
}

func testUpsertCreatesUser(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	before := time.Now().Add(-time.Minute)

	require.NoError(t, db.UpsertUser(ctx, user(100, "Ada", "")))

	got, err := db.GetUser(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", models.StringValue(got.FirstName))
	assert.Nil(t, got.LastName)
	assert.Nil(t, got.Username)
	assert.Nil(t, got.LanguageCode)
	assert.Nil(t, got.Bio)
	assert.False(t, got.IsPremium)
	assert.False(t, got.IsBanned)
	assert.Nil(t, got.BanReason)
	assert.Nil(t, got.UnbanAt)
	assert.True(t, got.JoinedAt.After(before), "joined_at should be set on insert")
}

func testUpsertPreservesBanAndJoined(t *testing.T, db storage.Storage) {
	ctx := context.Background()

	require.NoError(t, db.UpsertUser(ctx, user(200, "Bob", "bob")))
	require.NoError(t, db.SetBanned(ctx, 200, "Spam"))
	deadline := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, db.SetUnbanAt(ctx, 200, deadline))

	first, err := db.GetUser(ctx, 200)
	require.NoError(t, err)

	updated := user(200, "Robert", "bobby")
	updated.IsPremium = true
	updated.IsBanned = false
	updated.JoinedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertUser(ctx, updated))
	require.NoError(t, db.UpsertUser(ctx, updated))

	got, err := db.GetUser(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, "Robert", models.StringValue(got.FirstName))
	assert.Equal(t, "bobby", models.StringValue(got.Username))
	assert.True(t, got.IsPremium)
	assert.True(t, got.IsBanned)
	assert.Equal(t, "Spam", models.StringValue(got.BanReason))
	require.NotNil(t, got.UnbanAt)
	assert.True(t, deadline.Equal(*got.UnbanAt))
	assert.True(t, first.JoinedAt.Equal(got.JoinedAt))
}

func testUpsertKeepsBioWhenNil(t *testing.T, db storage.Storage) {
	ctx := context.Background()

	u := user(300, "Cy", "cy")
	u.Bio = models.StringPtr("hello")
	require.NoError(t, db.UpsertUser(ctx, u))
	require.NoError(t, db.UpsertUser(ctx, user(300, "Cy", "cy")))

	got, err := db.GetUser(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, "hello", models.StringValue(got.Bio))
}

func testGetUnknownUser(t *testing.T, db storage.Storage) {
	got, err := db.GetUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testFindByUsername(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, user(1, "A", "alice")))
	require.NoError(t, db.UpsertUser(ctx, user(2, "B", "bob")))

	got, err := db.FindByUsername(ctx, "@bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.UserID)

	got, err = db.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.UserID)

	got, err = db.FindByUsername(ctx, "@Bob")
	require.NoError(t, err)
	assert.Nil(t, got, "lookup is case-sensitive")

	// Shared handle: the lowest id wins regardless of insertion order
	require.NoError(t, db.UpsertUser(ctx, user(9, "Late", "twin")))
	require.NoError(t, db.UpsertUser(ctx, user(5, "Early", "twin")))
	got, err = db.FindByUsername(ctx, "twin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(5), got.UserID)
}

func testBanLifecycle(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, user(5, "E", "")))

	require.NoError(t, db.SetBanned(ctx, 5, "Flood"))
	got, err := db.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.True(t, got.IsBanned)
	assert.Equal(t, "Flood", models.StringValue(got.BanReason))
	assert.Nil(t, got.UnbanAt)

	require.NoError(t, db.ClearBan(ctx, 5))
	got, err = db.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.False(t, got.IsBanned)
	assert.Nil(t, got.BanReason)
	assert.Nil(t, got.UnbanAt)

	// A deadline is only kept for an active ban
	require.NoError(t, db.SetUnbanAt(ctx, 5, time.Now().Add(time.Hour)))
	got, err = db.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got.UnbanAt)
}

func testSetBannedUnknownUser(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	require.NoError(t, db.SetBanned(ctx, 777, "Scam"))

	got, err := db.GetUser(ctx, 777)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsBanned)
	assert.Equal(t, "Scam", models.StringValue(got.BanReason))
}

func testCountUsers(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, db.UpsertUser(ctx, user(i, "U", "")))
	}
	require.NoError(t, db.UpsertUser(ctx, user(2, "U2", "")))

	n, err = db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testCountBanned(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, db.UpsertUser(ctx, user(i, "U", "")))
	}
	require.NoError(t, db.SetBanned(ctx, 2, "Spam"))
	require.NoError(t, db.SetBanned(ctx, 7, "Scam"))

	n, err := db.CountBanned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.ClearBan(ctx, 2))
	n, err = db.CountBanned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testSnapshotReplaceRoundTrip(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	a := user(100, "Ada", "ada")
	a.LanguageCode = models.StringPtr("en")
	a.Bio = models.StringPtr("<b>bio</b>")
	require.NoError(t, db.UpsertUser(ctx, a))
	require.NoError(t, db.UpsertUser(ctx, user(200, "Bob", "")))
	require.NoError(t, db.SetBanned(ctx, 200, "Spam"))
	require.NoError(t, db.SetUnbanAt(ctx, 200, time.Now().Add(time.Hour)))

	before, err := db.SnapshotAll(ctx)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, int64(100), before[0].UserID)
	assert.Equal(t, int64(200), before[1].UserID)

	require.NoError(t, db.BulkReplace(ctx, before))

	after, err := db.SnapshotAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func testBulkReplaceDropsMissingRows(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, user(1, "A", "")))
	require.NoError(t, db.UpsertUser(ctx, user(2, "B", "")))

	joined := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	replacement := user(3, "C", "c")
	replacement.JoinedAt = joined
	require.NoError(t, db.BulkReplace(ctx, []models.User{replacement}))

	all, err := db.SnapshotAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(3), all[0].UserID)
	assert.True(t, joined.Equal(all[0].JoinedAt))
}

func testImportOverwritesEverything(t *testing.T, db storage.Storage) {
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, user(9, "Old", "old")))

	deadline := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	joined := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	imported := user(9, "New", "new")
	imported.IsBanned = true
	imported.BanReason = models.StringPtr("Imported")
	imported.UnbanAt = &deadline
	imported.Bio = models.StringPtr("bio")
	imported.JoinedAt = joined
	require.NoError(t, db.ImportUser(ctx, imported))

	got, err := db.GetUser(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "New", models.StringValue(got.FirstName))
	assert.True(t, got.IsBanned)
	assert.Equal(t, "Imported", models.StringValue(got.BanReason))
	require.NotNil(t, got.UnbanAt)
	assert.True(t, deadline.Equal(*got.UnbanAt))
	assert.Equal(t, "bio", models.StringValue(got.Bio))
	assert.True(t, joined.Equal(got.JoinedAt))
}

package profile

import (
	"context"
	"testing"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"userinfobot/internal/models"
	"userinfobot/internal/storage/stubs"
)

type fakeChats struct {
	chats map[int64]*tgmodels.ChatFullInfo
}

func (f *fakeChats) GetChat(ctx context.Context, params *tgbot.GetChatParams) (*tgmodels.ChatFullInfo, error) {
	id, _ := params.ChatID.(int64)
	if c, ok := f.chats[id]; ok {
		return c, nil
	}
	return nil, tgbot.ErrorBadRequest
}

func newResolver(chats map[int64]*tgmodels.ChatFullInfo) (*Resolver, *stubs.MockDB) {
	db := stubs.NewMockDB()
	return NewResolver(&fakeChats{chats: chats}, db, zap.NewNop()), db
}

func TestResolve_LiveWinsOverStored(t *testing.T) {
	r, db := newResolver(map[int64]*tgmodels.ChatFullInfo{
		100: {ID: 100, FirstName: "Ada", Username: "ada", Bio: "math"},
	})
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, models.User{
		UserID:       100,
		FirstName:    models.StringPtr("Old"),
		LastName:     models.StringPtr("Lovelace"),
		LanguageCode: models.StringPtr("en"),
	}))

	p := r.Resolve(ctx, SyntheticPrincipal{UserID: 100})

	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "Lovelace", p.LastName)
	assert.Equal(t, "ada", p.Username)
	assert.Equal(t, "en", p.LanguageCode)
	assert.Equal(t, "math", p.Bio)
	assert.False(t, p.PrivacyRestricted)

	stored, err := db.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "math", models.StringValue(stored.Bio), "live bio is written back")
	assert.Equal(t, "Ada", models.StringValue(stored.FirstName))
}

func TestResolve_FallsBackToStored(t *testing.T) {
	r, db := newResolver(nil)
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, models.User{
		UserID:    200,
		FirstName: models.StringPtr("Bob"),
		Username:  models.StringPtr("bob"),
	}))

	p := r.Resolve(ctx, SyntheticPrincipal{UserID: 200})

	assert.Equal(t, "Bob", p.FirstName)
	assert.True(t, p.PrivacyRestricted)
	assert.Equal(t, []string{LabelBio}, p.Missing)
}

func TestResolve_IDOnly(t *testing.T) {
	r, db := newResolver(nil)

	p := r.Resolve(context.Background(), SharedPrincipal{UserID: 300})

	assert.True(t, p.IDOnly())
	assert.Equal(t, []string{LabelFirstName, LabelUsername, LabelBio}, p.Missing)

	n, err := db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing is written without live bio or premium")
}

func TestResolve_PremiumWritesBack(t *testing.T) {
	r, db := newResolver(nil)
	ctx := context.Background()

	p := r.Resolve(ctx, FullPrincipal{UserID: 400, FirstName: "Eve", IsPremium: true})
	assert.True(t, p.IsPremium)

	stored, err := db.GetUser(ctx, 400)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsPremium)
}

func TestResolve_StoreFailureIsTolerated(t *testing.T) {
	r, db := newResolver(nil)
	db.Fail = true

	p := r.Resolve(context.Background(), FullPrincipal{UserID: 500, FirstName: "Zed"})
	assert.Equal(t, "Zed", p.FirstName)
}

func TestResolve_StoredPrincipalSkipsLookup(t *testing.T) {
	r, db := newResolver(nil)
	db.Fail = true

	p := r.Resolve(context.Background(), StoredPrincipal{User: models.User{
		UserID:    600,
		FirstName: models.StringPtr("Row"),
	}})
	assert.Equal(t, "Row", p.FirstName)
}

func TestRender_AllMissing(t *testing.T) {
	p := Profile{UserID: 7}
	markRestricted(&p)

	out := Render("Your Info", p)

	assert.Contains(t, out, "<b>First Name:</b> N/A")
	assert.Contains(t, out, "<b>Last Name:</b> N/A")
	assert.Contains(t, out, "<b>User Name:</b> @N/A")
	assert.Contains(t, out, "<code>7</code>")
	assert.Contains(t, out, "<b>Language:</b> N/A")
	assert.Contains(t, out, "<b>Premium:</b> No")
	assert.Contains(t, out, "<b>Bio:</b> N/A")
	assert.Contains(t, out, "tg://user?id=7")
	assert.Contains(t, out, "First Name, User Name, Bio")
	assert.Contains(t, out, "Forward a message")
}

func TestRender_EscapesUserStrings(t *testing.T) {
	p := Profile{
		UserID:    1,
		FirstName: "<script>",
		LastName:  "A & B",
		Username:  "x\"y",
		Bio:       "<b>bold</b>",
		IsPremium: true,
	}
	markRestricted(&p)

	out := Render("Info", p)

	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "A &amp; B")
	assert.Contains(t, out, "@x&#34;y")
	assert.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, out, "Yes 🌟")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "Hidden by privacy")
}

func TestRenderIDOnly(t *testing.T) {
	out := RenderIDOnly("Selected User Info", 42)
	assert.Contains(t, out, "<code>42</code>")
	assert.Contains(t, out, "Forward a message")
}


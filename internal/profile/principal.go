package profile

import "userinfobot/internal/models"

// Principal is anything the resolver can turn into a Profile
type Principal interface {
	ID() int64
}

// FullPrincipal is a user object delivered live by the gateway
type FullPrincipal struct {
	UserID       int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsPremium    bool
}

// SharedPrincipal comes from a users_shared event; names are optional
type SharedPrincipal struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
}

// StoredPrincipal is a row read from the store
type StoredPrincipal struct {
	User models.User
}

// SyntheticPrincipal carries only an id
type SyntheticPrincipal struct {
	UserID int64
}

func (p FullPrincipal) ID() int64      { return p.UserID }
func (p SharedPrincipal) ID() int64    { return p.UserID }
func (p StoredPrincipal) ID() int64    { return p.User.UserID }
func (p SyntheticPrincipal) ID() int64 { return p.UserID }

// fields is the per-source view merged by the resolver
type fields struct {
	firstName    string
	lastName     string
	username     string
	languageCode string
	bio          string
	isPremium    bool
}

func liveFields(p Principal) fields {
	switch v := p.(type) {
	case FullPrincipal:
		return fields{
			firstName:    v.FirstName,
			lastName:     v.LastName,
			username:     v.Username,
			languageCode: v.LanguageCode,
			isPremium:    v.IsPremium,
		}
	case SharedPrincipal:
		return fields{
			firstName: v.FirstName,
			lastName:  v.LastName,
			username:  v.Username,
		}
	}
	return fields{}
}

func storedFields(u *models.User) fields {
	if u == nil {
		return fields{}
	}
	return fields{
		firstName:    models.StringValue(u.FirstName),
		lastName:     models.StringValue(u.LastName),
		username:     models.StringValue(u.Username),
		languageCode: models.StringValue(u.LanguageCode),
		bio:          models.StringValue(u.Bio),
		isPremium:    u.IsPremium,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

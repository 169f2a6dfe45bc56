package domain

// Identity is the authenticated caller as resolved by the identity provider
// and the configured admin allow-list.
type Identity struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

// Authenticated reports whether the identity carries a user id.
func (i *Identity) Authenticated() bool {
	return i != nil && i.UserID != ""
}

// Admin reports whether the identity is an authenticated admin.
func (i *Identity) Admin() bool {
	return i.Authenticated() && i.IsAdmin
}

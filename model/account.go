package model

// AccountKind distinguishes ordinary wallet accounts from issuer and internal accounts.
type AccountKind string

const (
	AccountKindUser   AccountKind = "user"
	AccountKindIssuer AccountKind = "issuer"
	AccountKindStash  AccountKind = "stash"
)

// Account is an asset account held by a nym on a notary.
type Account struct {
	AccountID  string      `json:"account_id"`
	NymID      string      `json:"nym_id"`
	ServerID   string      `json:"server_id"`
	UnitTypeID string      `json:"unit_type_id"`
	Kind       AccountKind `json:"kind"`
	Name       string      `json:"name"`
}

// IsUser reports whether deposits may be routed into this account automatically.
func (a *Account) IsUser() bool {
	return a.Kind == AccountKindUser
}

// Nym is a wallet identity with a display name.
type Nym struct {
	NymID string `json:"nym_id"`
	Name  string `json:"name"`
}

package identity

import "fmt"

// Identity is the data-visibility domain for the current user: either the
// anonymous guest tracked in device storage, or an authenticated account
// backed by the remote store.
type Identity struct {
	accountID string
}

// Guest returns the anonymous identity.
func Guest() Identity {
	return Identity{}
}

// Account returns the identity for an authenticated account id.
func Account(accountID string) Identity {
	return Identity{accountID: accountID}
}

// IsGuest reports whether this is the anonymous identity.
func (i Identity) IsGuest() bool {
	return i.accountID == ""
}

// AccountID returns the account id, empty for guests.
func (i Identity) AccountID() string {
	return i.accountID
}

// Ref is the stable string used to key per-identity records.
func (i Identity) Ref() string {
	if i.IsGuest() {
		return "guest"
	}
	return fmt.Sprintf("account:%s", i.accountID)
}

package tgauth

import (
	"context"
	"time"
)

// LoginResult defines a public type used by tgauth APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	// AccessToken is the signed bearer token. Empty while TwoFARequired is set.
	AccessToken string
	// TokenType is the token scheme reported to clients, always "bearer".
	TokenType string
	// TwoFARequired reports that the account carries a cloud password and the
	// caller must complete the flow with SubmitPassword.
	TwoFARequired bool
}

// User defines a public type used by tgauth APIs.
//
// User instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type User struct {
	ID               string
	Phone            string
	EncryptedSession []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserStore persists the encrypted provider credential per phone number.
// UpsertByPhone must be atomic with respect to the uniqueness constraint on
// phone: two concurrent logins for the same phone never create two records.
type UserStore interface {
	UpsertByPhone(ctx context.Context, phone string, encryptedSession []byte) (*User, error)
}

// Package auth abstracts identity and token acquisition behind a single
// provider interface so production and test backends are interchangeable.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrTokenUnavailable is returned when no usable identity token can be
	// produced. Sync attempts must abort before any network call is made.
	ErrTokenUnavailable = errors.New("no usable identity token")

	// ErrNotSignedIn is returned by operations that require an identity
	// while the provider is signed out.
	ErrNotSignedIn = errors.New("not signed in")
)

// IdentityProvider supplies the current identity and bearer tokens for
// requests to the remote authority.
type IdentityProvider interface {
	// CurrentUserID returns the signed-in user's id. The second return is
	// false while signed out.
	CurrentUserID() (string, bool)

	// IsSignedIn reports whether a user is currently signed in.
	IsSignedIn() bool

	// CurrentToken returns a bearer token for the signed-in user, or
	// ErrTokenUnavailable when none can be produced.
	CurrentToken(ctx context.Context) (string, error)
}

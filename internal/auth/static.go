package auth

import (
	"context"
	"sync"
)

// StaticProvider is an in-memory IdentityProvider with a fixed user and
// token. It is used by tests and offline development builds.
type StaticProvider struct {
	mu       sync.Mutex
	userID   string
	token    string
	signedIn bool
}

// NewStaticProvider creates a signed-in provider for the given user.
func NewStaticProvider(userID, token string) *StaticProvider {
	return &StaticProvider{userID: userID, token: token, signedIn: true}
}

// SignIn marks the provider as signed in with the given identity.
func (p *StaticProvider) SignIn(userID, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userID = userID
	p.token = token
	p.signedIn = true
}

// SignOut marks the provider as signed out.
func (p *StaticProvider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedIn = false
}

// CurrentUserID returns the configured user id while signed in.
func (p *StaticProvider) CurrentUserID() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.signedIn {
		return "", false
	}
	return p.userID, true
}

// IsSignedIn reports whether the provider is signed in.
func (p *StaticProvider) IsSignedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signedIn
}

// CurrentToken returns the configured token, or ErrTokenUnavailable while
// signed out.
func (p *StaticProvider) CurrentToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.signedIn || p.token == "" {
		return "", ErrTokenUnavailable
	}
	return p.token, nil
}

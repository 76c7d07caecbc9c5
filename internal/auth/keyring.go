package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/repertoire/internal/credential"
)

// KeyringProvider reads the identity token from the system keyring. The
// token is a JWT issued by the remote authority; the provider does not
// verify its signature (that is the server's job) but it does reject
// expired tokens locally so sync fails fast without a network call.
type KeyringProvider struct {
	now func() time.Time
}

// NewKeyringProvider creates a provider backed by the system keyring.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{now: time.Now}
}

// SignIn stores the given token in the keyring.
func (p *KeyringProvider) SignIn(token string) error {
	if _, err := validateToken(token, p.now()); err != nil {
		return err
	}
	if err := credential.Set(credential.TokenKey, token); err != nil {
		return fmt.Errorf("storing identity token: %w", err)
	}
	return nil
}

// SignOut removes the stored token.
func (p *KeyringProvider) SignOut() error {
	if err := credential.Delete(credential.TokenKey); err != nil {
		return fmt.Errorf("removing identity token: %w", err)
	}
	return nil
}

// CurrentUserID returns the subject claim of the stored token.
func (p *KeyringProvider) CurrentUserID() (string, bool) {
	token, err := credential.Get(credential.TokenKey)
	if err != nil {
		return "", false
	}
	sub, err := validateToken(token, p.now())
	if err != nil {
		return "", false
	}
	return sub, true
}

// IsSignedIn reports whether a non-expired token is stored.
func (p *KeyringProvider) IsSignedIn() bool {
	_, err := p.CurrentToken(context.Background())
	return err == nil
}

// CurrentToken returns the stored bearer token, or ErrTokenUnavailable if
// none is stored or the stored token has expired.
func (p *KeyringProvider) CurrentToken(ctx context.Context) (string, error) {
	token, err := credential.Get(credential.TokenKey)
	if err != nil {
		return "", ErrTokenUnavailable
	}

	if _, err := validateToken(token, p.now()); err != nil {
		return "", err
	}

	return token, nil
}

// validateToken decodes the JWT claims without signature verification and
// returns the subject, rejecting tokens that are expired or carry no
// subject.
func validateToken(token string, now time.Time) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrTokenUnavailable)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	if exp != nil && !now.Before(exp.Time) {
		return "", fmt.Errorf("%w: token expired at %s", ErrTokenUnavailable, exp.Time)
	}

	return sub, nil
}

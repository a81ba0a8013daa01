package utils

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret-for-tests", "refresh-secret-for-tests", 30, 7)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	c := qt.New(t)
	issuer := newTestIssuer()

	tok, err := issuer.IssueAccess(42, "alice")
	c.Assert(err, qt.IsNil)
	c.Assert(tok.Token, qt.Not(qt.Equals), "")

	claims, err := issuer.Verify(tok.Token, TokenTypeAccess)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.UserID, qt.Equals, uint64(42))
	c.Assert(claims.Username, qt.Equals, "alice")
	c.Assert(claims.Type, qt.Equals, TokenTypeAccess)
	c.Assert(claims.ExpiresAt.Sub(claims.IssuedAt), qt.Equals, 30*time.Minute)
}

func TestTokenTypeConfusionRejected(t *testing.T) {
	c := qt.New(t)
	issuer := newTestIssuer()

	access, err := issuer.IssueAccess(42, "alice")
	c.Assert(err, qt.IsNil)
	refresh, err := issuer.IssueRefresh(42, "alice")
	c.Assert(err, qt.IsNil)

	// An access token presented as a refresh token is signed with the
	// wrong secret for that path, and vice versa.
	_, err = issuer.Verify(access.Token, TokenTypeRefresh)
	c.Assert(err, qt.IsNotNil)
	_, err = issuer.Verify(refresh.Token, TokenTypeAccess)
	c.Assert(err, qt.IsNotNil)
}

func TestTypeClaimCheckedEvenWithSharedShape(t *testing.T) {
	c := qt.New(t)
	// Same secret on both sides isolates the type-claim line of defense.
	issuer := NewTokenIssuer("shared", "shared", 30, 7)

	access, err := issuer.IssueAccess(7, "bob")
	c.Assert(err, qt.IsNil)
	_, err = issuer.Verify(access.Token, TokenTypeRefresh)
	c.Assert(err, qt.Equals, ErrWrongTokenType)
}

func TestExpiredTokenRejected(t *testing.T) {
	c := qt.New(t)
	// Negative TTL issues a token that is already past its expiry.
	issuer := NewTokenIssuer("access-secret-for-tests", "refresh-secret-for-tests", -1, 7)

	tok, err := issuer.IssueAccess(42, "alice")
	c.Assert(err, qt.IsNil)

	_, err = issuer.Verify(tok.Token, TokenTypeAccess)
	c.Assert(err, qt.Equals, ErrTokenExpired)
}

func TestTamperedTokenRejected(t *testing.T) {
	c := qt.New(t)
	issuer := newTestIssuer()

	tok, err := issuer.IssueAccess(42, "alice")
	c.Assert(err, qt.IsNil)

	_, err = issuer.Verify(tok.Token+"x", TokenTypeAccess)
	c.Assert(err, qt.Equals, ErrInvalidToken)

	other := NewTokenIssuer("some-other-secret", "refresh-secret-for-tests", 30, 7)
	_, err = other.Verify(tok.Token, TokenTypeAccess)
	c.Assert(err, qt.Equals, ErrInvalidToken)
}

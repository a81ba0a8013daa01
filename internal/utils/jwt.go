package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Token type tags embedded in the `type` claim. Together with the separate
// signing secrets they give two independent lines of defense against a
// refresh token being replayed as an access token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Verification failures. Handlers collapse all three to a generic 401; the
// distinction exists for logging only and must never reach the client.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	UserID    uint64
	Username  string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SignedToken pairs a serialized JWT with its expiration time so handlers
// can return the expiry to clients without re-parsing the token.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// TokenIssuer mints and verifies HS256 tokens. Access and refresh tokens
// are signed with different secrets; Verify selects the secret from the
// expected type, so a token presented as the wrong type fails signature
// validation even before the type claim is compared.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenIssuer builds a TokenIssuer from the configured secrets and TTLs.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTLMin, refreshTTLDays int) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// AccessTTL reports the configured access-token lifetime. Clients mirror
// it to decide when a cached session should be treated as stale.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

// IssueAccess signs a short-lived access token for the user.
func (i *TokenIssuer) IssueAccess(userID uint64, username string) (SignedToken, error) {
	return i.issue(TokenTypeAccess, i.accessSecret, i.accessTTL, userID, username)
}

// IssueRefresh signs a long-lived refresh token for the user.
func (i *TokenIssuer) IssueRefresh(userID uint64, username string) (SignedToken, error) {
	return i.issue(TokenTypeRefresh, i.refreshSecret, i.refreshTTL, userID, username)
}

func (i *TokenIssuer) issue(typ string, secret []byte, ttl time.Duration, userID uint64, username string) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"type":     typ,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// Verify parses and validates a token of the expected type and returns its
// claims. Failures are ErrTokenExpired, ErrWrongTokenType or ErrInvalidToken.
func (i *TokenIssuer) Verify(raw, expectedType string) (Claims, error) {
	secret := i.accessSecret
	if expectedType == TokenTypeRefresh {
		secret = i.refreshSecret
	}

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC before touching the secret.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	typ, _ := mc["type"].(string)
	if typ != expectedType {
		return Claims{}, ErrWrongTokenType
	}

	sub, ok := mc["sub"].(float64) // JSON numbers decode as float64
	if !ok || sub <= 0 {
		return Claims{}, ErrInvalidToken
	}
	username, _ := mc["username"].(string)

	c := Claims{
		UserID:   uint64(sub),
		Username: username,
		Type:     typ,
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

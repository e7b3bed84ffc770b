package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kodasoftware/example-api/internal/common"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Identity
}

// RefreshClaims is the payload of a refresh token. It carries the subject id
// only; everything else is re-read from the store on refresh.
type RefreshClaims struct {
	jwt.RegisteredClaims
	ID string `json:"id"`
}

// Audiences keep the two token kinds from standing in for each other.
const (
	AccessAudience  = "example-api:access"
	RefreshAudience = "example-api:refresh"
)

// TokenPair is what a successful login or refresh hands to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExpiry time.Time
}

// TokenIssuer signs and verifies RS256 tokens with a single key pair. It holds
// no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		privateKey: privateKey,
		publicKey:  publicKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// LoadKeyPair reads a PEM private key (PKCS#1 or PKCS#8) and a PEM public key.
func LoadKeyPair(privatePath, publicPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read private key: %w", err)
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse private key: %w", err)
	}

	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read public key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse public key: %w", err)
	}

	return priv, pub, nil
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.accessTTL }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

// Issue signs a fresh access/refresh pair for identity.
func (t *TokenIssuer) Issue(identity Identity) (TokenPair, error) {
	const op = "auth.Issue"

	now := t.now()
	accessExpiry := now.Add(t.accessTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodRS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{AccessAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
		Identity: identity,
	})
	accessToken, err := access.SignedString(t.privateKey)
	if err != nil {
		return TokenPair{}, common.Wrap(common.KindInternal, op, err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodRS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{RefreshAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
		ID: identity.ID,
	})
	refreshToken, err := refresh.SignedString(t.privateKey)
	if err != nil {
		return TokenPair{}, common.Wrap(common.KindInternal, op, err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, AccessExpiry: accessExpiry}, nil
}

// Verify checks an access token's signature and expiry and returns the
// identity it carries.
func (t *TokenIssuer) Verify(accessToken string) (Identity, error) {
	const op = "auth.Verify"

	claims := &AccessClaims{}
	if err := t.parse(accessToken, AccessAudience, claims); err != nil {
		return Identity{}, common.Wrap(common.KindInvalidToken, op, err)
	}
	if claims.Identity.ID == "" || claims.Identity.Email == "" {
		return Identity{}, common.E(common.KindInvalidToken, op, "token has no identity")
	}

	return claims.Identity, nil
}

// ParseRefresh decodes the refresh token without verification to read its
// subject, then verifies signature and expiry against the public key. Both
// must succeed and agree.
func (t *TokenIssuer) ParseRefresh(refreshToken string) (string, error) {
	const op = "auth.ParseRefresh"

	unverified := &RefreshClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(refreshToken, unverified); err != nil {
		return "", common.Wrap(common.KindInvalidToken, op, err)
	}
	if unverified.ID == "" {
		return "", common.E(common.KindInvalidToken, op, "token has no subject")
	}

	verified := &RefreshClaims{}
	if err := t.parse(refreshToken, RefreshAudience, verified); err != nil {
		return "", common.Wrap(common.KindInvalidToken, op, err)
	}
	if verified.ID != unverified.ID {
		return "", common.E(common.KindInvalidToken, op, "subject mismatch")
	}

	return verified.ID, nil
}

func (t *TokenIssuer) parse(tokenString, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token is not valid")
	}
	return nil
}

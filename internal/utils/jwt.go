package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type claims. An access token authenticates requests; a refresh
// token may only be exchanged for a new access token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set carried by every issued token.
type TokenClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed bearer tokens.
type TokenManager struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager constructs a TokenManager for an HMAC signing algorithm
// (HS256, HS384 or HS512).
func NewTokenManager(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unsupported signing algorithm: " + algorithm)
	}

	return &TokenManager{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// CreateAccessToken signs an access token for the subject. An optional TTL
// overrides the configured access lifetime.
func (m *TokenManager) CreateAccessToken(subject string, ttl ...time.Duration) (string, error) {
	lifetime := m.accessTTL
	if len(ttl) > 0 {
		lifetime = ttl[0]
	}
	token, _, err := m.sign(subject, TokenTypeAccess, lifetime)
	return token, err
}

// CreateRefreshToken signs a refresh token for the subject and returns its
// expiry so callers can persist the backing record.
func (m *TokenManager) CreateRefreshToken(subject string) (string, time.Time, error) {
	return m.sign(subject, TokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) sign(subject, tokenType string, lifetime time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(lifetime)

	claims := &TokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	return signed, expiresAt, err
}

// VerifyToken checks signature and expiry as one operation. It returns nil
// for any failure: bad signature, wrong algorithm, malformed input, expiry.
func (m *TokenManager) VerifyToken(tokenString string) *TokenClaims {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}))
	if err != nil {
		return nil
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims
	}

	return nil
}

// ExtractEmail returns the subject of a valid access token. Refresh tokens
// never satisfy this check, so one cannot be used as an access credential.
func (m *TokenManager) ExtractEmail(tokenString string) (string, bool) {
	claims := m.VerifyToken(tokenString)
	if claims == nil || claims.TokenType != TokenTypeAccess {
		return "", false
	}
	return claims.Subject, true
}

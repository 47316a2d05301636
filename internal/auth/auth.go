package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rojanatorn/apiserver/types"
)

const bcryptCost = 12

// inviteTokenBytes sizes the random invite token before base64url encoding.
const inviteTokenBytes = 24

// VerifyResult reports the outcome of a password check.
type VerifyResult int

const (
	// VerifyFailed means the password does not match and authentication
	// must be rejected.
	VerifyFailed VerifyResult = iota

	// VerifySuccess means the password matches.
	VerifySuccess

	// VerifySuccessRehashNeeded means the password matches but the stored
	// hash was produced with an outdated cost and should be regenerated.
	VerifySuccessRehashNeeded
)

// HashPassword produces a salted one-way hash. Hashing the same plaintext
// twice yields different hashes.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword checks a plaintext password against a stored hash.
func VerifyPassword(hash, password string) VerifyResult {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return VerifyFailed
	}
	if cost, err := bcrypt.Cost([]byte(hash)); err == nil && cost < bcryptCost {
		return VerifySuccessRehashNeeded
	}
	return VerifySuccess
}

// NewInviteToken generates a cryptographically random URL-safe token.
func NewInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID string
	Email  string
	Role   types.Role
}

// Token is an issued bearer credential.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed, stateless session tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenService constructs a TokenService. TTL at or below zero falls back
// to 24 hours.
func NewTokenService(secret, issuer, audience string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}
}

// Issue signs a token carrying the user's id, email, and role.
func (s *TokenService) Issue(user types.User) (Token, error) {
	now := time.Now().UTC()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: expires}, nil
}

// Validate parses and verifies a token. It returns nil on any structural,
// signature, or expiry failure; it never panics or propagates parse errors.
func (s *TokenService) Validate(tokenString string) *Identity {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil || !token.Valid {
		return nil
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil
	}
	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   types.NormalizeRole(claims.Role),
	}
}

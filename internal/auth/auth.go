// Package auth issues and validates the bearer tokens that guard the admin
// dataset routes. There is a single admin credential, configured as a bcrypt
// hash; sessions are stateless HS256 JWTs.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role a token is ever issued for.
const RoleAdmin = "admin"

var (
	// ErrInvalidCredentials is returned by Login for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned by Validate for any token that must not be honored.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the JWT payload of an admin session.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is a signed session token and its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Options configures an Authenticator.
type Options struct {
	Username     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
	Clock        clockwork.Clock // defaults to the real clock
}

// Authenticator checks the admin credential and manages session tokens.
type Authenticator struct {
	username     []byte
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	clock        clockwork.Clock
}

// New creates an Authenticator.
func New(opts Options) *Authenticator {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Authenticator{
		username:     []byte(opts.Username),
		passwordHash: []byte(opts.PasswordHash),
		secret:       []byte(opts.Secret),
		ttl:          opts.TTL,
		clock:        clk,
	}
}

// HashPassword returns the bcrypt hash of plain, suitable for ADMIN_PASSWORD_HASH.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Login verifies the credential and issues a session token.
func (a *Authenticator) Login(username, password string) (Token, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), a.username) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return Token{}, ErrInvalidCredentials
	}
	return a.issue(username)
}

func (a *Authenticator) issue(subject string) (Token, error) {
	now := a.clock.Now().UTC().Truncate(time.Second)
	expires := now.Add(a.ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expires}, nil
}

// Validate parses tokenStr and returns its claims. Expired, tampered,
// non-HMAC or non-admin tokens all yield ErrInvalidToken.
func (a *Authenticator) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithTimeFunc(a.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

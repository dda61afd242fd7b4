package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUser     = "admin"
	testPassword = "correct horse battery staple"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAuthenticator(t *testing.T) (*auth.Authenticator, *clockwork.FakeClock) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	clk := clockwork.NewFakeClockAt(testNow)
	return auth.New(auth.Options{
		Username:     testUser,
		PasswordHash: string(hash),
		Secret:       testSecret,
		TTL:          time.Hour,
		Clock:        clk,
	}), clk
}

func TestLogin(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	tok, err := a.Login(testUser, testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.Equal(t, testNow.Add(time.Hour), tok.ExpiresAt)

	claims, err := a.Validate(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, testUser, claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, testNow, claims.IssuedAt.Time.UTC())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	tests := []struct {
		name     string
		user     string
		password string
	}{
		{"wrong password", testUser, "hunter2"},
		{"wrong user", "root", testPassword},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Login(tt.user, tt.password)
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestValidate_Expired(t *testing.T) {
	a, clk := newTestAuthenticator(t)
	tok, err := a.Login(testUser, testPassword)
	require.NoError(t, err)

	clk.Advance(time.Hour + time.Second)

	_, err = a.Validate(tok.Value)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidate_Rejects(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	tok, err := a.Login(testUser, testPassword)
	require.NoError(t, err)

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser,
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}).SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	wrongRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser,
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role:             auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: testUser},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
		Role: auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-jwt",
		"tampered":     tok.Value[:len(tok.Value)-2] + "xx",
		"other secret": otherSecret,
		"wrong role":   wrongRole,
		"no expiry":    noExpiry,
		"alg none":     unsigned,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Validate(raw)
			require.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	tok, err := a.Login(testUser, testPassword)
	require.NoError(t, err)

	var gotSubject string
	h := a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		require.True(t, ok)
		gotSubject = claims.Subject
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + tok.Value, http.StatusNoContent},
		{"lowercase scheme", "bearer " + tok.Value, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/session", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.True(t, strings.Contains(rec.Body.String(), "unauthorized"))
			}
		})
	}
	assert.Equal(t, testUser, gotSubject)
}

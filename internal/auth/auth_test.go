package auth

import (
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTokens(clock *fakeClock) *TokenService {
	return NewTokenService(testSecret, time.Hour, "inkwell-api", "inkwell-client", clock.Now)
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"))

	assert.True(t, VerifyPassword("hunter2", hash))
	assert.False(t, VerifyPassword("hunter3", hash))
	assert.False(t, VerifyPassword("hunter2", "not-a-hash"))
}

func TestVerifier(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name       string
		legacy     bool
		username   string
		password   string
		hash       string
		wantOK     bool
		wantBypass bool
	}{
		{"correct password", false, "alice", "s3cret", hash, true, false},
		{"wrong password", false, "alice", "nope", hash, false, false},
		{"legacy credential disabled", false, "admin", "admin123", hash, false, false},
		{"legacy credential enabled", true, "admin", "admin123", hash, true, true},
		{"legacy credential without stored user", true, "admin", "admin123", "", true, true},
		{"legacy flag does not open other users", true, "alice", "admin123", hash, false, false},
		{"unknown user", false, "ghost", "s3cret", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, bypass := Verifier{AllowLegacyAdmin: tt.legacy}.Verify(tt.username, tt.password, tt.hash)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBypass, bypass)
		})
	}
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokens(clock)

	token, exp, err := svc.Issue("alice", models.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(time.Hour), exp)

	id, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, models.RoleEditor, id.Role)
	assert.NotEmpty(t, id.TokenID)
	assert.Equal(t, exp, id.ExpiresAt)
	assert.True(t, id.HasRole(models.RoleAdmin, models.RoleEditor))
	assert.False(t, id.HasRole(models.RoleAdmin))
}

func TestTokenService_Expiry(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	svc := newTestTokens(clock)

	token, _, err := svc.Issue("admin", models.RoleAdmin)
	require.NoError(t, err)

	clock.now = start.Add(59 * time.Minute)
	_, err = svc.Validate(token)
	assert.NoError(t, err)

	clock.now = start.Add(61 * time.Minute)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	svc := newTestTokens(clock)

	a, _, err := svc.Issue("alice", models.RoleEditor)
	require.NoError(t, err)
	b, _, err := svc.Issue("alice", models.RoleEditor)
	require.NoError(t, err)

	ia, err := svc.Validate(a)
	require.NoError(t, err)
	ib, err := svc.Validate(b)
	require.NoError(t, err)
	assert.NotEqual(t, ia.TokenID, ib.TokenID)
}

func TestTokenService_Rejects(t *testing.T) {
	t.Parallel()
	now := time.Now()
	clock := &fakeClock{now: now}
	svc := newTestTokens(clock)

	good, _, err := svc.Issue("alice", models.RoleEditor)
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	baseClaims := func() Claims {
		return Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    "inkwell-api",
				Audience:  jwt.ClaimStrings{"inkwell-client"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Role: models.RoleEditor,
		}
	}

	wrongIssuer := baseClaims()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := baseClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	noExpiry := baseClaims()
	noExpiry.ExpiresAt = nil
	badRole := baseClaims()
	badRole.Role = "superuser"

	tests := map[string]string{
		"empty":          "",
		"malformed":      "not.a.token",
		"tampered":       good[:len(good)-2] + "xx",
		"wrong secret":   NewTokenService("another-secret-entirely-for-signing", time.Hour, "inkwell-api", "inkwell-client", clock.Now).mustIssue(t),
		"alg none":       sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, baseClaims()),
		"hs512":          sign(jwt.SigningMethodHS512, []byte(testSecret), baseClaims()),
		"wrong issuer":   sign(jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"wrong audience": sign(jwt.SigningMethodHS256, []byte(testSecret), wrongAudience),
		"no expiry":      sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"unknown role":   sign(jwt.SigningMethodHS256, []byte(testSecret), badRole),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_RequiresSecret(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("", time.Hour, "i", "a", nil)
	_, _, err := svc.Issue("alice", models.RoleEditor)
	assert.Error(t, err)
}

func (s *TokenService) mustIssue(t *testing.T) string {
	t.Helper()
	token, _, err := s.Issue("alice", models.RoleEditor)
	require.NoError(t, err)
	return token
}

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestIssueAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, issued, err := IssueToken(testSecret, userID, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestParseToken_Rejects(t *testing.T) {
	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": uuid.NewString(),
			"iss": TokenIssuer,
			"aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := valid()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIssuer := valid()
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := valid()
	wrongAudience["aud"] = "other-client"
	numericSub := valid()
	numericSub["sub"] = "42"
	noExp := valid()
	delete(noExp, "exp")

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", sign(valid(), jwt.SigningMethodHS256, []byte("other-secret")), ErrInvalidToken},
		{"expired", sign(expired, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
		{"wrong issuer", sign(wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
		{"wrong audience", sign(wrongAudience, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
		{"non uuid subject", sign(numericSub, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
		{"missing exp", sign(noExp, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseToken(testSecret, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssueToken_RequiresSecret(t *testing.T) {
	_, _, err := IssueToken("", uuid.New(), time.Now())
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc", "abc"},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, tt.want, string(body), tt.header)
	}
}

package server

import (
	"net/http"
	"testing"

	"github.com/quantu99/Test-Beincom-BE/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ann", "email": "Ann@Example.com", "password": "Passw0rdOK",
	}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	registered := decode[authPayload](t, body)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "ann@example.com", registered.User.Email)
	assert.NotContains(t, string(body), "Passw0rdOK")
	assert.NotContains(t, string(body), `"password"`)

	resp, _ = env.do(t, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ann again", "email": "ann@example.com", "password": "Passw0rdOK",
	}))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "wrong-password",
	}))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "Passw0rdOK",
	}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	token := decode[authPayload](t, body).Token

	resp, body = env.do(t, jsonRequest(t, http.MethodGet, "/users/me", token, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, registered.User.ID, decode[models.User](t, body).ID)

	resp, _ = env.do(t, jsonRequest(t, http.MethodPost, "/auth/logout", token, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, env.mr.Keys(), 1)

	resp, _ = env.do(t, jsonRequest(t, http.MethodGet, "/users/me", token, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The token from registration is a different jti and stays valid.
	resp, _ = env.do(t, jsonRequest(t, http.MethodGet, "/users/me", registered.Token, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"email": "a@example.com"}},
		{"bad email", map[string]string{"name": "Ann", "email": "nope", "password": "Passw0rdOK"}},
		{"weak password", map[string]string{"name": "Ann", "email": "a@example.com", "password": "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, jsonRequest(t, http.MethodPost, "/auth/register", "", tt.body))
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	env := newTestEnv(t)

	for i := 0; i < 10; i++ {
		resp, _ := env.do(t, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "ghost@example.com", "password": "Passw0rdOK",
		}))
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	resp, _ := env.do(t, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "Passw0rdOK",
	}))
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

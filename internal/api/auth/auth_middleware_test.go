package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/internal/types"
)

func signTestToken(t *testing.T, cfg types.Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cfg)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testClaims(userID string, isAdmin bool, ttl time.Duration) types.Claims {
	now := time.Now()
	return types.Claims{
		UserID:  userID,
		Email:   "t@example.com",
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "vivu-backend",
			Audience:  jwt.ClaimStrings{"vivu-clients"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func captureIdentity(t *testing.T) (http.Handler, *map[string]any) {
	t.Helper()
	got := map[string]any{}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := GetUserIDFromContext(r.Context()); ok {
			got["userID"] = id
		}
		if isAdmin, ok := IsAdminFromContext(r.Context()); ok {
			got["isAdmin"] = isAdmin
		}
		w.WriteHeader(http.StatusOK)
	})
	return h, &got
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mw := Authenticate(logger, testJWTConfig())

	t.Run("valid token passes identity through", func(t *testing.T) {
		inner, got := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testClaims("user-1", true, time.Hour), "test-secret"))

		mw(inner).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", (*got)["userID"])
		assert.Equal(t, true, (*got)["isAdmin"])
	})

	t.Run("missing header rejected", func(t *testing.T) {
		inner, _ := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		mw(inner).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signature rejected", func(t *testing.T) {
		inner, _ := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testClaims("user-1", false, time.Hour), "other-secret"))

		mw(inner).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		inner, _ := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testClaims("user-1", false, -time.Hour), "test-secret"))

		mw(inner).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong issuer rejected", func(t *testing.T) {
		inner, _ := captureIdentity(t)
		claims := testClaims("user-1", false, time.Hour)
		claims.Issuer = "someone-else"
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, claims, "test-secret"))

		mw(inner).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestIdentify(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mw := Identify(logger, testJWTConfig())

	t.Run("no token still serves the request", func(t *testing.T) {
		inner, got := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		mw(inner).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, *got, "userID")
	})

	t.Run("invalid token ignored", func(t *testing.T) {
		inner, got := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")

		mw(inner).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, *got, "userID")
	})

	t.Run("valid token populates identity", func(t *testing.T) {
		inner, got := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testClaims("user-7", false, time.Hour), "test-secret"))

		mw(inner).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-7", (*got)["userID"])
	})
}

func TestRequireAdmin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	authMW := Authenticate(logger, testJWTConfig())
	adminMW := RequireAdmin(logger)

	t.Run("admin passes", func(t *testing.T) {
		inner, _ := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testClaims("admin-1", true, time.Hour), "test-secret"))

		authMW(adminMW(inner)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		inner, _ := captureIdentity(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testClaims("user-1", false, time.Hour), "test-secret"))

		authMW(adminMW(inner)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	neturl "net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vivutravel/vivu-backend/config"
	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, email, passwordHash, fullName, avatar string) (types.User, error) {
	args := m.Called(ctx, email, passwordHash, fullName, avatar)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (types.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (types.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Error(1)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenTTL: time.Hour,
		Issuer:         "vivu-backend",
		Audience:       "vivu-clients",
	}
}

func setupAuthServiceTest() (*AuthServiceImpl, *MockAuthRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mockRepo := new(MockAuthRepo)
	service := NewAuthService(mockRepo, testJWTConfig(), logger)
	return service, mockRepo
}

func TestPlaceholderAvatar(t *testing.T) {
	t.Run("deterministic per email", func(t *testing.T) {
		first := PlaceholderAvatar("Linh Tran", "linh@example.com")
		second := PlaceholderAvatar("Linh Tran", "linh@example.com")
		assert.Equal(t, first, second)
	})

	t.Run("uses up to two initials", func(t *testing.T) {
		url := PlaceholderAvatar("Nguyen Van An", "an@example.com")
		assert.Contains(t, url, "name=NV")
	})

	t.Run("multi-byte initials keep two letters", func(t *testing.T) {
		url := PlaceholderAvatar("Đặng Vũ", "dang@example.com")
		assert.Contains(t, url, "name="+neturl.QueryEscape("ĐV"))
	})

	t.Run("empty name falls back", func(t *testing.T) {
		url := PlaceholderAvatar("", "x@example.com")
		assert.Contains(t, url, "name=%3F")
	})
}

func TestAuthServiceImpl_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success lowercases email and hashes password", func(t *testing.T) {
		service, mockRepo := setupAuthServiceTest()
		created := types.User{ID: uuid.New(), Email: "linh@example.com", FullName: "Linh Tran"}

		mockRepo.On("CreateUser", mock.Anything, "linh@example.com",
			mock.MatchedBy(func(hash string) bool {
				return bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret-pass")) == nil
			}),
			"Linh Tran",
			mock.MatchedBy(func(avatar string) bool {
				return strings.Contains(avatar, "ui-avatars.com")
			}),
		).Return(created, nil).Once()

		u, err := service.Register(ctx, types.RegisterUserParams{
			Email:    "Linh@Example.com",
			Password: "secret-pass",
			FullName: "Linh Tran",
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid email", func(t *testing.T) {
		service, _ := setupAuthServiceTest()
		_, err := service.Register(ctx, types.RegisterUserParams{
			Email: "not-an-email", Password: "secret-pass", FullName: "X",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("short password", func(t *testing.T) {
		service, _ := setupAuthServiceTest()
		_, err := service.Register(ctx, types.RegisterUserParams{
			Email: "a@b.com", Password: "12345", FullName: "X",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("blank full name", func(t *testing.T) {
		service, _ := setupAuthServiceTest()
		_, err := service.Register(ctx, types.RegisterUserParams{
			Email: "a@b.com", Password: "123456", FullName: "  ",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("duplicate email surfaces conflict", func(t *testing.T) {
		service, mockRepo := setupAuthServiceTest()
		mockRepo.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(types.User{}, api.ErrConflict).Once()

		_, err := service.Register(ctx, types.RegisterUserParams{
			Email: "a@b.com", Password: "123456", FullName: "X",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrConflict))
	})
}

func TestAuthServiceImpl_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	u := types.User{ID: uuid.New(), Email: "linh@example.com", PasswordHash: string(hash), IsAdmin: true}

	t.Run("success issues a verifiable token", func(t *testing.T) {
		service, mockRepo := setupAuthServiceTest()
		mockRepo.On("GetUserByEmail", mock.Anything, "linh@example.com").Return(u, nil).Once()

		result, err := service.Login(ctx, types.LoginParams{Email: "Linh@Example.com", Password: "secret-pass"})
		require.NoError(t, err)
		require.NotEmpty(t, result.AccessToken)

		var claims types.Claims
		parsed, err := jwt.ParseWithClaims(result.AccessToken, &claims, func(t *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
		assert.Equal(t, u.ID.String(), claims.UserID)
		assert.True(t, claims.IsAdmin)
		assert.Equal(t, "vivu-backend", claims.Issuer)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		service, mockRepo := setupAuthServiceTest()
		mockRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").
			Return(types.User{}, api.ErrNotFound).Once()
		mockRepo.On("GetUserByEmail", mock.Anything, "linh@example.com").Return(u, nil).Once()

		_, unknownErr := service.Login(ctx, types.LoginParams{Email: "ghost@example.com", Password: "whatever"})
		_, wrongErr := service.Login(ctx, types.LoginParams{Email: "linh@example.com", Password: "wrong"})

		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.True(t, errors.Is(unknownErr, api.ErrUnauthenticated))
		assert.True(t, errors.Is(wrongErr, api.ErrUnauthenticated))
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})
}

func TestAuthServiceImpl_LoginWithGoogle(t *testing.T) {
	ctx := context.Background()

	t.Run("first sight creates the account", func(t *testing.T) {
		service, mockRepo := setupAuthServiceTest()
		created := types.User{ID: uuid.New(), Email: "new@example.com", FullName: "New User"}

		mockRepo.On("GetUserByEmail", mock.Anything, "new@example.com").
			Return(types.User{}, api.ErrNotFound).Once()
		mockRepo.On("CreateUser", mock.Anything, "new@example.com", mock.MatchedBy(func(hash string) bool {
			// The random placeholder must never match an empty password.
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("")) != nil
		}), "New User", "https://lh3.example.com/photo.jpg").Return(created, nil).Once()

		result, err := service.LoginWithGoogle(ctx, "New@Example.com", "New User", "https://lh3.example.com/photo.jpg")
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, created.ID, result.User.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("existing account signs in without create", func(t *testing.T) {
		service, mockRepo := setupAuthServiceTest()
		existing := types.User{ID: uuid.New(), Email: "old@example.com"}
		mockRepo.On("GetUserByEmail", mock.Anything, "old@example.com").Return(existing, nil).Once()

		result, err := service.LoginWithGoogle(ctx, "old@example.com", "Old User", "")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, result.User.ID)
		mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

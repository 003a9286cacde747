package admin

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/internal/types"
)

type MockAdminRepo struct {
	mock.Mock
}

func (m *MockAdminRepo) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAdminRepo) CountAdmins(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAdminRepo) CountCities(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAdminRepo) CountDestinations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAdminRepo) CountTours(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAdminRepo) CityViews(ctx context.Context) ([]types.CityViewStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.CityViewStat), args.Error(1)
}

func (m *MockAdminRepo) DestinationStats(ctx context.Context, limit int) ([]types.DestinationStat, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.DestinationStat), args.Error(1)
}

func (m *MockAdminRepo) SignupsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func setupAdminServiceTest() (*AdminServiceImpl, *MockAdminRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mockRepo := new(MockAdminRepo)
	service := NewAdminService(mockRepo, time.Minute, logger)
	return service, mockRepo
}

func expectCounts(mockRepo *MockAdminRepo, users, admins, cities, destinations, tours int) {
	mockRepo.On("CountUsers", mock.Anything).Return(users, nil)
	mockRepo.On("CountAdmins", mock.Anything).Return(admins, nil)
	mockRepo.On("CountCities", mock.Anything).Return(cities, nil)
	mockRepo.On("CountDestinations", mock.Anything).Return(destinations, nil)
	mockRepo.On("CountTours", mock.Anything).Return(tours, nil)
	mockRepo.On("CityViews", mock.Anything).Return([]types.CityViewStat{}, nil)
	mockRepo.On("DestinationStats", mock.Anything, topPlacesLimit).Return([]types.DestinationStat{}, nil)
}

func TestAdminServiceImpl_Statistics(t *testing.T) {
	ctx := context.Background()

	t.Run("gathers and fills the signup window", func(t *testing.T) {
		service, mockRepo := setupAdminServiceTest()
		fixed := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
		service.now = func() time.Time { return fixed }
		since := fixed.AddDate(0, 0, -(signupWindowDays - 1)).Truncate(24 * time.Hour)

		expectCounts(mockRepo, 42, 2, 5, 120, 9)
		mockRepo.On("SignupsSince", mock.Anything, since).Return(map[string]int{
			"2025-03-04": 3,
			"2025-03-10": 1,
		}, nil)

		stats, err := service.Statistics(ctx)
		require.NoError(t, err)

		assert.Equal(t, 42, stats.Users)
		assert.Equal(t, 2, stats.Admins)
		assert.Equal(t, 9, stats.Tours)

		require.Len(t, stats.Signups, signupWindowDays)
		assert.Equal(t, "2025-03-04", stats.Signups[0].Day)
		assert.Equal(t, 3, stats.Signups[0].Count)
		assert.Equal(t, "2025-03-05", stats.Signups[1].Day)
		assert.Equal(t, 0, stats.Signups[1].Count)
		assert.Equal(t, "2025-03-10", stats.Signups[6].Day)
		assert.Equal(t, 1, stats.Signups[6].Count)
	})

	t.Run("second call served from cache", func(t *testing.T) {
		service, mockRepo := setupAdminServiceTest()
		expectCounts(mockRepo, 1, 1, 1, 1, 1)
		mockRepo.On("SignupsSince", mock.Anything, mock.Anything).Return(map[string]int{}, nil)

		_, err := service.Statistics(ctx)
		require.NoError(t, err)
		_, err = service.Statistics(ctx)
		require.NoError(t, err)

		mockRepo.AssertNumberOfCalls(t, "CountUsers", 1)
	})

	t.Run("aggregate failure surfaces", func(t *testing.T) {
		service, mockRepo := setupAdminServiceTest()
		repoErr := errors.New("relation does not exist")
		mockRepo.On("CountUsers", mock.Anything).Return(0, repoErr)
		mockRepo.On("CountAdmins", mock.Anything).Return(0, nil).Maybe()
		mockRepo.On("CountCities", mock.Anything).Return(0, nil).Maybe()
		mockRepo.On("CountDestinations", mock.Anything).Return(0, nil).Maybe()
		mockRepo.On("CountTours", mock.Anything).Return(0, nil).Maybe()
		mockRepo.On("CityViews", mock.Anything).Return([]types.CityViewStat{}, nil).Maybe()
		mockRepo.On("DestinationStats", mock.Anything, topPlacesLimit).Return([]types.DestinationStat{}, nil).Maybe()
		mockRepo.On("SignupsSince", mock.Anything, mock.Anything).Return(map[string]int{}, nil).Maybe()

		_, err := service.Statistics(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, repoErr))
	})
}

func TestFillSignupWindow(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	window := fillSignupWindow(map[string]int{"2025-01-02": 5}, since, 3)
	require.Len(t, window, 3)
	assert.Equal(t, types.SignupCount{Day: "2025-01-01", Count: 0}, window[0])
	assert.Equal(t, types.SignupCount{Day: "2025-01-02", Count: 5}, window[1])
	assert.Equal(t, types.SignupCount{Day: "2025-01-03", Count: 0}, window[2])

	assert.Empty(t, fillSignupWindow(nil, since, 0))
}

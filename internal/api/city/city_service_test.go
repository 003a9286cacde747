package city

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

type MockCityRepo struct {
	mock.Mock
}

func (m *MockCityRepo) CreateCity(ctx context.Context, params types.CreateCityParams, slug string) (types.City, error) {
	args := m.Called(ctx, params, slug)
	return args.Get(0).(types.City), args.Error(1)
}

func (m *MockCityRepo) GetCity(ctx context.Context, id uuid.UUID) (types.City, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.City), args.Error(1)
}

func (m *MockCityRepo) GetCityBySlug(ctx context.Context, slug string) (types.City, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(types.City), args.Error(1)
}

func (m *MockCityRepo) ListCities(ctx context.Context) ([]types.City, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.City), args.Error(1)
}

func (m *MockCityRepo) ListCitiesByType(ctx context.Context, typeID uuid.UUID) ([]types.City, error) {
	args := m.Called(ctx, typeID)
	return args.Get(0).([]types.City), args.Error(1)
}

func (m *MockCityRepo) ListCitiesWithCounts(ctx context.Context) ([]types.CityWithCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.CityWithCount), args.Error(1)
}

func (m *MockCityRepo) SaveCity(ctx context.Context, c types.City, typeIDs []uuid.UUID) (types.City, error) {
	args := m.Called(ctx, c, typeIDs)
	return args.Get(0).(types.City), args.Error(1)
}

func (m *MockCityRepo) DeletionImpact(ctx context.Context, id uuid.UUID) (types.CityDeletionImpact, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.CityDeletionImpact), args.Error(1)
}

func (m *MockCityRepo) DeleteCity(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCityRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupCityServiceTest() (*CityServiceImpl, *MockCityRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mockRepo := new(MockCityRepo)
	service := NewCityService(mockRepo, logger)
	return service, mockRepo
}

func seasons(n int) []types.SeasonWeather {
	titles := []string{"Spring", "Summer", "Autumn", "Winter", "Monsoon"}
	out := make([]types.SeasonWeather, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.SeasonWeather{Title: titles[i%len(titles)]})
	}
	return out
}

func TestCityServiceImpl_CreateCity(t *testing.T) {
	ctx := context.Background()

	t.Run("four seasons accepted", func(t *testing.T) {
		service, mockRepo := setupCityServiceTest()
		params := types.CreateCityParams{Name: "Huế", Weather: seasons(4)}
		created := types.City{ID: uuid.New(), Name: "Huế", Slug: "huế"}
		mockRepo.On("CreateCity", mock.Anything, params, "huế").Return(created, nil).Once()

		c, err := service.CreateCity(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, created.ID, c.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing weather rejected", func(t *testing.T) {
		service, mockRepo := setupCityServiceTest()
		_, err := service.CreateCity(ctx, types.CreateCityParams{Name: "Hue"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
		mockRepo.AssertNotCalled(t, "CreateCity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("three seasons rejected", func(t *testing.T) {
		service, _ := setupCityServiceTest()
		_, err := service.CreateCity(ctx, types.CreateCityParams{Name: "Hue", Weather: seasons(3)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("five seasons rejected", func(t *testing.T) {
		service, _ := setupCityServiceTest()
		_, err := service.CreateCity(ctx, types.CreateCityParams{Name: "Hue", Weather: seasons(5)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("untitled season rejected", func(t *testing.T) {
		service, _ := setupCityServiceTest()
		weather := seasons(4)
		weather[2].Title = "  "
		_, err := service.CreateCity(ctx, types.CreateCityParams{Name: "Hue", Weather: weather})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("too many images rejected", func(t *testing.T) {
		service, _ := setupCityServiceTest()
		_, err := service.CreateCity(ctx, types.CreateCityParams{
			Name:    "Hue",
			Weather: seasons(4),
			Images:  []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("blank name rejected", func(t *testing.T) {
		service, _ := setupCityServiceTest()
		_, err := service.CreateCity(ctx, types.CreateCityParams{Name: "   ", Weather: seasons(4)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})
}

func TestCityServiceImpl_UpdateCity(t *testing.T) {
	ctx := context.Background()
	cityID := uuid.New()
	stored := types.City{ID: cityID, Name: "Hue", Slug: "hue", Weather: seasons(4)}

	t.Run("absent weather keeps stored seasons", func(t *testing.T) {
		service, mockRepo := setupCityServiceTest()
		desc := "imperial city"
		mockRepo.On("GetCity", mock.Anything, cityID).Return(stored, nil).Once()
		mockRepo.On("SaveCity", mock.Anything, mock.MatchedBy(func(c types.City) bool {
			return c.Description == desc && len(c.Weather) == 4
		}), []uuid.UUID(nil)).Return(stored, nil).Once()

		_, err := service.UpdateCity(ctx, cityID, types.UpdateCityParams{Description: &desc})
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("partial weather replacement rejected", func(t *testing.T) {
		service, mockRepo := setupCityServiceTest()
		mockRepo.On("GetCity", mock.Anything, cityID).Return(stored, nil).Once()

		_, err := service.UpdateCity(ctx, cityID, types.UpdateCityParams{Weather: seasons(2)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
		mockRepo.AssertNotCalled(t, "SaveCity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("image cap enforced on update", func(t *testing.T) {
		service, mockRepo := setupCityServiceTest()
		mockRepo.On("GetCity", mock.Anything, cityID).Return(stored, nil).Once()

		_, err := service.UpdateCity(ctx, cityID, types.UpdateCityParams{
			Images: []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})
}

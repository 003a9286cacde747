package tour

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

type MockTourRepo struct {
	mock.Mock
}

func (m *MockTourRepo) CreateTour(ctx context.Context, params types.CreateTourParams, slug string) (types.Tour, error) {
	args := m.Called(ctx, params, slug)
	return args.Get(0).(types.Tour), args.Error(1)
}

func (m *MockTourRepo) GetTour(ctx context.Context, id uuid.UUID) (types.Tour, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Tour), args.Error(1)
}

func (m *MockTourRepo) GetTourBySlug(ctx context.Context, userID uuid.UUID, slug string) (types.Tour, error) {
	args := m.Called(ctx, userID, slug)
	return args.Get(0).(types.Tour), args.Error(1)
}

func (m *MockTourRepo) ListPublicTours(ctx context.Context, page, limit int) ([]types.Tour, int, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]types.Tour), args.Int(1), args.Error(2)
}

func (m *MockTourRepo) ListToursByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.Tour, int, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]types.Tour), args.Int(1), args.Error(2)
}

func (m *MockTourRepo) SaveTour(ctx context.Context, t types.Tour, tagIDs []uuid.UUID) error {
	args := m.Called(ctx, t, tagIDs)
	return args.Error(0)
}

func (m *MockTourRepo) DeleteTour(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTourRepo) EnsureDay(ctx context.Context, tourID uuid.UUID, label string) (uuid.UUID, error) {
	args := m.Called(ctx, tourID, label)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTourRepo) FindDay(ctx context.Context, tourID uuid.UUID, label string) (uuid.UUID, error) {
	args := m.Called(ctx, tourID, label)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTourRepo) ListDayItems(ctx context.Context, dayID uuid.UUID) ([]types.ItineraryItem, error) {
	args := m.Called(ctx, dayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ItineraryItem), args.Error(1)
}

func (m *MockTourRepo) InsertItem(ctx context.Context, dayID uuid.UUID, item types.ItineraryItem) error {
	args := m.Called(ctx, dayID, item)
	return args.Error(0)
}

func (m *MockTourRepo) UpdateItem(ctx context.Context, itemID uuid.UUID, title, content, timeOfDay, iconType *string) error {
	args := m.Called(ctx, itemID, title, content, timeOfDay, iconType)
	return args.Error(0)
}

func (m *MockTourRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

func (m *MockTourRepo) DeleteDestinationItem(ctx context.Context, dayID, destinationID uuid.UUID) error {
	args := m.Called(ctx, dayID, destinationID)
	return args.Error(0)
}

func setupTourServiceTest() (*TourServiceImpl, *MockTourRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mockRepo := new(MockTourRepo)
	service := NewTourService(mockRepo, logger)
	return service, mockRepo
}

func TestTourServiceImpl_GetTour(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tourID := uuid.New()

	t.Run("public tour served anonymously", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).
			Return(types.Tour{ID: tourID, UserID: ownerID, IsPublic: true}, nil).Once()

		tour, err := service.GetTour(ctx, tourID, uuid.Nil, false)
		require.NoError(t, err)
		assert.Equal(t, tourID, tour.ID)
	})

	t.Run("private tour served to owner", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).
			Return(types.Tour{ID: tourID, UserID: ownerID, IsPublic: false}, nil).Once()

		_, err := service.GetTour(ctx, tourID, ownerID, false)
		require.NoError(t, err)
	})

	t.Run("private tour hidden from others", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).
			Return(types.Tour{ID: tourID, UserID: ownerID, IsPublic: false}, nil).Once()

		_, err := service.GetTour(ctx, tourID, uuid.New(), false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrForbidden))
	})

	t.Run("private tour served to admin", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).
			Return(types.Tour{ID: tourID, UserID: ownerID, IsPublic: false}, nil).Once()

		_, err := service.GetTour(ctx, tourID, uuid.New(), true)
		require.NoError(t, err)
	})
}

func TestTourServiceImpl_CreateTour(t *testing.T) {
	ctx := context.Background()

	t.Run("slug derived from name", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		params := types.CreateTourParams{Name: "Summer in Sapa", UserID: uuid.New()}
		mockRepo.On("CreateTour", mock.Anything, params, "summer-in-sapa").
			Return(types.Tour{Name: "Summer in Sapa", Slug: "summer-in-sapa"}, nil).Once()

		tour, err := service.CreateTour(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, "summer-in-sapa", tour.Slug)
		mockRepo.AssertExpectations(t)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		service, _ := setupTourServiceTest()
		_, err := service.CreateTour(ctx, types.CreateTourParams{Name: "  "})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})
}

func TestTourServiceImpl_AddDestination(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tourID := uuid.New()
	dayID := uuid.New()
	destID := uuid.New()
	owned := types.Tour{ID: tourID, UserID: ownerID}

	t.Run("note and icon travel into the item", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("EnsureDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("InsertItem", mock.Anything, dayID, mock.MatchedBy(func(it types.ItineraryItem) bool {
			return it.Kind == types.ItemKindDestination &&
				it.DestinationID != nil && *it.DestinationID == destID &&
				it.Title == "arrive before the tour buses" &&
				it.TimeOfDay == "08:00" &&
				it.IconType == types.IconRestaurant
		})).Return(nil).Once()

		_, err := service.AddDestination(ctx, tourID, types.AddDayDestinationParams{
			DayLabel:      "Day 1",
			DestinationID: destID,
			Note:          "arrive before the tour buses",
			TimeOfDay:     "08:00",
			IconType:      types.IconRestaurant,
		}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("icon defaults to place", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("EnsureDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("InsertItem", mock.Anything, dayID, mock.MatchedBy(func(it types.ItineraryItem) bool {
			return it.IconType == types.IconPlace
		})).Return(nil).Once()

		_, err := service.AddDestination(ctx, tourID, types.AddDayDestinationParams{
			DayLabel:      "Day 1",
			DestinationID: destID,
		}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown icon rejected", func(t *testing.T) {
		service, _ := setupTourServiceTest()
		_, err := service.AddDestination(ctx, tourID, types.AddDayDestinationParams{
			DayLabel:      "Day 1",
			DestinationID: destID,
			IconType:      "spaceship",
		}, ownerID, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("missing destination id rejected", func(t *testing.T) {
		service, _ := setupTourServiceTest()
		_, err := service.AddDestination(ctx, tourID, types.AddDayDestinationParams{
			DayLabel: "Day 1",
		}, ownerID, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})
}

func TestTourServiceImpl_AddNote(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tourID := uuid.New()
	dayID := uuid.New()
	owned := types.Tour{ID: tourID, UserID: ownerID}

	t.Run("title and icon default", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("EnsureDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("InsertItem", mock.Anything, dayID, mock.MatchedBy(func(it types.ItineraryItem) bool {
			return it.Kind == types.ItemKindNote &&
				it.Title == defaultNoteTitle &&
				it.IconType == types.IconPlace &&
				it.Content == "remember sunscreen"
		})).Return(nil).Once()

		_, err := service.AddNote(ctx, tourID, types.AddDayNoteParams{
			DayLabel: "Day 1",
			Content:  "remember sunscreen",
		}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown icon rejected", func(t *testing.T) {
		service, _ := setupTourServiceTest()
		_, err := service.AddNote(ctx, tourID, types.AddDayNoteParams{
			DayLabel: "Day 1",
			Content:  "x",
			IconType: "spaceship",
		}, ownerID, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("empty content rejected", func(t *testing.T) {
		service, _ := setupTourServiceTest()
		_, err := service.AddNote(ctx, tourID, types.AddDayNoteParams{
			DayLabel: "Day 1",
			Content:  "   ",
		}, ownerID, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Once()

		_, err := service.AddNote(ctx, tourID, types.AddDayNoteParams{
			DayLabel: "Day 1",
			Content:  "x",
		}, uuid.New(), false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrForbidden))
	})
}

func TestTourServiceImpl_UpdateNote(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tourID := uuid.New()
	dayID := uuid.New()
	owned := types.Tour{ID: tourID, UserID: ownerID}

	note := noteItem(1, "original")
	items := []types.ItineraryItem{destItem(0, "a"), note}

	t.Run("updates the nth note", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		newContent := "rewritten"
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("FindDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("ListDayItems", mock.Anything, dayID).Return(items, nil).Once()
		mockRepo.On("UpdateItem", mock.Anything, note.ID, (*string)(nil), &newContent, (*string)(nil), (*string)(nil)).Return(nil).Once()

		_, err := service.UpdateNote(ctx, tourID, types.UpdateDayNoteParams{
			DayLabel: "Day 1",
			Index:    0,
			Content:  &newContent,
		}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("out-of-range index is a no-op", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("FindDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("ListDayItems", mock.Anything, dayID).Return(items, nil).Once()

		tour, err := service.UpdateNote(ctx, tourID, types.UpdateDayNoteParams{
			DayLabel: "Day 1",
			Index:    5,
		}, ownerID, false)
		require.NoError(t, err)
		assert.Equal(t, tourID, tour.ID)
		mockRepo.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTourServiceImpl_UpdateDestination(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tourID := uuid.New()
	dayID := uuid.New()
	owned := types.Tour{ID: tourID, UserID: ownerID}

	first := destItem(0, "first")
	second := destItem(2, "second")
	items := []types.ItineraryItem{first, noteItem(1, "n"), second}

	t.Run("legacy index resolves the nth destination", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		idx := 1
		note := "renamed"
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("FindDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("ListDayItems", mock.Anything, dayID).Return(items, nil).Once()
		mockRepo.On("UpdateItem", mock.Anything, second.ID, &note, (*string)(nil), (*string)(nil), (*string)(nil)).Return(nil).Once()

		_, err := service.UpdateDestination(ctx, tourID, types.UpdateDayDestinationParams{
			DayLabel: "Day 1",
			Index:    &idx,
			Note:     &note,
		}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("index past the destinations is not found", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		idx := 4
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Once()
		mockRepo.On("FindDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("ListDayItems", mock.Anything, dayID).Return(items, nil).Once()

		_, err := service.UpdateDestination(ctx, tourID, types.UpdateDayDestinationParams{
			DayLabel: "Day 1",
			Index:    &idx,
		}, ownerID, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrNotFound))
	})

	t.Run("neither item id nor index rejected", func(t *testing.T) {
		service, _ := setupTourServiceTest()
		_, err := service.UpdateDestination(ctx, tourID, types.UpdateDayDestinationParams{
			DayLabel: "Day 1",
		}, ownerID, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})
}

func TestTourServiceImpl_RemoveNote(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tourID := uuid.New()
	dayID := uuid.New()
	owned := types.Tour{ID: tourID, UserID: ownerID}

	note := noteItem(0, "to remove")
	items := []types.ItineraryItem{note}

	t.Run("removes by note position", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("FindDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("ListDayItems", mock.Anything, dayID).Return(items, nil).Once()
		mockRepo.On("DeleteItem", mock.Anything, note.ID).Return(nil).Once()

		_, err := service.RemoveNote(ctx, tourID, types.RemoveDayNoteParams{
			DayLabel: "Day 1",
			Index:    0,
		}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("out-of-range index is a no-op", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).Return(owned, nil).Twice()
		mockRepo.On("FindDay", mock.Anything, tourID, "Day 1").Return(dayID, nil).Once()
		mockRepo.On("ListDayItems", mock.Anything, dayID).Return(items, nil).Once()

		_, err := service.RemoveNote(ctx, tourID, types.RemoveDayNoteParams{
			DayLabel: "Day 1",
			Index:    3,
		}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "DeleteItem", mock.Anything, mock.Anything)
	})
}

func TestTourServiceImpl_UpdateTour(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tourID := uuid.New()

	t.Run("rename re-slugs", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		existing := types.Tour{ID: tourID, UserID: ownerID, Name: "Old Name", Slug: "old-name"}
		name := "Fresh Name"

		mockRepo.On("GetTour", mock.Anything, tourID).Return(existing, nil).Twice()
		mockRepo.On("SaveTour", mock.Anything, mock.MatchedBy(func(saved types.Tour) bool {
			return saved.Name == "Fresh Name" && saved.Slug == "fresh-name"
		}), []uuid.UUID(nil)).Return(nil).Once()

		_, err := service.UpdateTour(ctx, tourID, types.UpdateTourParams{Name: &name}, ownerID, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		service, mockRepo := setupTourServiceTest()
		mockRepo.On("GetTour", mock.Anything, tourID).
			Return(types.Tour{ID: tourID, UserID: ownerID}, nil).Once()

		_, err := service.UpdateTour(ctx, tourID, types.UpdateTourParams{}, uuid.New(), false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrForbidden))
	})
}

package comment

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

type MockCommentRepo struct {
	mock.Mock
}

func (m *MockCommentRepo) CreateComment(ctx context.Context, params types.CreateCommentParams) (types.Comment, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.Comment), args.Error(1)
}

func (m *MockCommentRepo) GetComment(ctx context.Context, id uuid.UUID) (types.Comment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Comment), args.Error(1)
}

func (m *MockCommentRepo) ListComments(ctx context.Context, destinationID uuid.UUID, page, limit int) ([]types.Comment, int, error) {
	args := m.Called(ctx, destinationID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]types.Comment), args.Int(1), args.Error(2)
}

func (m *MockCommentRepo) DeleteComment(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupCommentServiceTest() (*CommentServiceImpl, *MockCommentRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mockRepo := new(MockCommentRepo)
	service := NewCommentService(mockRepo, logger)
	return service, mockRepo
}

func validDetail() types.CommentDetail {
	return types.CommentDetail{Position: 5, Price: 4, Quality: 4, Service: 5, Ambience: 3, Amenities: 4}
}

func TestCommentDetail_Average(t *testing.T) {
	d := types.CommentDetail{Position: 5, Price: 4, Quality: 4, Service: 5, Ambience: 3, Amenities: 3}
	assert.InDelta(t, 4.0, d.Average(), 0.0001)
}

func TestCommentServiceImpl_CreateComment(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo := setupCommentServiceTest()
		params := types.CreateCommentParams{
			DestinationID: uuid.New(),
			UserID:        uuid.New(),
			Content:       "Great spot, long queue though",
			Detail:        validDetail(),
		}
		mockRepo.On("CreateComment", mock.Anything, params).
			Return(types.Comment{ID: uuid.New(), Content: params.Content}, nil).Once()

		c, err := service.CreateComment(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, params.Content, c.Content)
		mockRepo.AssertExpectations(t)
	})

	t.Run("blank content rejected", func(t *testing.T) {
		service, _ := setupCommentServiceTest()
		_, err := service.CreateComment(ctx, types.CreateCommentParams{
			DestinationID: uuid.New(),
			Content:       "   ",
			Detail:        validDetail(),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("criterion out of range rejected", func(t *testing.T) {
		service, _ := setupCommentServiceTest()
		detail := validDetail()
		detail.Price = 6

		_, err := service.CreateComment(ctx, types.CreateCommentParams{
			DestinationID: uuid.New(),
			Content:       "x",
			Detail:        detail,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
		assert.Contains(t, err.Error(), "criteria2")
	})

	t.Run("zero criterion rejected", func(t *testing.T) {
		service, _ := setupCommentServiceTest()
		_, err := service.CreateComment(ctx, types.CreateCommentParams{
			DestinationID: uuid.New(),
			Content:       "x",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})
}

func TestCommentServiceImpl_DeleteComment(t *testing.T) {
	ctx := context.Background()
	commentID := uuid.New()
	authorID := uuid.New()
	stored := types.Comment{ID: commentID, UserID: authorID}

	t.Run("author deletes", func(t *testing.T) {
		service, mockRepo := setupCommentServiceTest()
		mockRepo.On("GetComment", mock.Anything, commentID).Return(stored, nil).Once()
		mockRepo.On("DeleteComment", mock.Anything, commentID).Return(nil).Once()

		require.NoError(t, service.DeleteComment(ctx, commentID, authorID, false))
		mockRepo.AssertExpectations(t)
	})

	t.Run("admin deletes someone else's", func(t *testing.T) {
		service, mockRepo := setupCommentServiceTest()
		mockRepo.On("GetComment", mock.Anything, commentID).Return(stored, nil).Once()
		mockRepo.On("DeleteComment", mock.Anything, commentID).Return(nil).Once()

		require.NoError(t, service.DeleteComment(ctx, commentID, uuid.New(), true))
	})

	t.Run("other caller forbidden", func(t *testing.T) {
		service, mockRepo := setupCommentServiceTest()
		mockRepo.On("GetComment", mock.Anything, commentID).Return(stored, nil).Once()

		err := service.DeleteComment(ctx, commentID, uuid.New(), false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrForbidden))
		mockRepo.AssertNotCalled(t, "DeleteComment", mock.Anything, mock.Anything)
	})
}

func TestCommentServiceImpl_ListComments(t *testing.T) {
	service, mockRepo := setupCommentServiceTest()
	ctx := context.Background()
	destID := uuid.New()

	// Page and limit are clamped before reaching the repository.
	mockRepo.On("ListComments", mock.Anything, destID, 1, 10).
		Return([]types.Comment{}, 0, nil).Once()

	_, _, err := service.ListComments(ctx, destID, 0, 500)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

package types

import (
	"time"

	"github.com/google/uuid"
)

// CommentDetail carries the six rating criteria of a review. Each
// criterion is scored 1..5.
type CommentDetail struct {
	Position  float64 `json:"criteria1"`
	Price     float64 `json:"criteria2"`
	Quality   float64 `json:"criteria3"`
	Service   float64 `json:"criteria4"`
	Ambience  float64 `json:"criteria5"`
	Amenities float64 `json:"criteria6"`
}

// Average is the per-comment contribution to a destination rating.
func (d CommentDetail) Average() float64 {
	return (d.Position + d.Price + d.Quality + d.Service + d.Ambience + d.Amenities) / 6
}

type Comment struct {
	ID            uuid.UUID     `json:"id"`
	DestinationID uuid.UUID     `json:"destinationId"`
	UserID        uuid.UUID     `json:"-"`
	Author        *UserSummary  `json:"user,omitempty"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	Detail        CommentDetail `json:"detail"`
	VisitDate     time.Time     `json:"visitDate"`
	Images        []string      `json:"images"`
	LikeCount     int64         `json:"likeCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type CreateCommentParams struct {
	DestinationID uuid.UUID     `json:"destinationId"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	Detail        CommentDetail `json:"detail"`
	VisitDate     *time.Time    `json:"visitDate,omitempty"`
	Images        []string      `json:"images"`
	UserID        uuid.UUID     `json:"-"`
}

// UserSummary is the author expansion embedded in comment payloads.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Avatar   string    `json:"avatar"`
}

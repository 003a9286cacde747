package types

import (
	"time"

	"github.com/google/uuid"
)

// SeasonWeather is one of the four seasonal entries a city must carry.
type SeasonWeather struct {
	Title   string   `json:"title"`
	MinTemp *float64 `json:"minTemp"`
	MaxTemp *float64 `json:"maxTemp"`
	Note    string   `json:"note"`
}

type InfoSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type City struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Types       []CityType      `json:"type"`
	Views       int64           `json:"views"`
	Images      []string        `json:"images"`
	Weather     []SeasonWeather `json:"weather"`
	Info        []InfoSection   `json:"info"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CitySummary is the reference expansion used inside other payloads.
type CitySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type CreateCityParams struct {
	Name        string          `json:"title"`
	Description string          `json:"description"`
	TypeIDs     []uuid.UUID     `json:"type"`
	Images      []string        `json:"images"`
	Weather     []SeasonWeather `json:"weather"`
	Info        []InfoSection   `json:"info"`
	CreatedBy   string          `json:"-"`
}

type UpdateCityParams struct {
	Name        *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	TypeIDs     []uuid.UUID     `json:"type,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Weather     []SeasonWeather `json:"weather,omitempty"`
	Info        []InfoSection   `json:"info,omitempty"`
	CreatedBy   string          `json:"-"`
}

// CityWithCount augments a city with its destination count for the
// admin listing.
type CityWithCount struct {
	City
	DestinationCount int64 `json:"destinationCount"`
}

// CityDeletionImpact previews what a city delete would cascade to.
type CityDeletionImpact struct {
	CityID           uuid.UUID `json:"cityId"`
	Name             string    `json:"name"`
	DestinationCount int64     `json:"destinationCount"`
	TourCount        int64     `json:"tourCount"`
}

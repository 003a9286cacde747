package types

import (
	"time"

	"github.com/google/uuid"
)

// DestinationAlbum groups the image URLs of a destination by section.
// Highlight doubles as the cover: its first entry is the thumbnail
// shown in summaries.
type DestinationAlbum struct {
	Highlight []string `json:"highlight"`
	Space     []string `json:"space"`
	FnB       []string `json:"fnb"`
	Extra     []string `json:"extra"`
}

type DestinationDetails struct {
	Description string   `json:"description"`
	Highlight   []string `json:"highlight"`
	Services    []string `json:"services"`
	CultureType []string `json:"cultureType"`
	Activities  []string `json:"activities"`
	Fee         []string `json:"fee"`
	UsefulInfo  []string `json:"usefulInfo"`
}

// DayHours is one weekday's opening window. Both fields empty means
// closed that day.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type OpenHours struct {
	Monday    DayHours `json:"mon"`
	Tuesday   DayHours `json:"tue"`
	Wednesday DayHours `json:"wed"`
	Thursday  DayHours `json:"thu"`
	Friday    DayHours `json:"fri"`
	Saturday  DayHours `json:"sat"`
	Sunday    DayHours `json:"sun"`
	AllDay    bool     `json:"allday"`
}

type ContactInfo struct {
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
	Address string `json:"address"`
}

type Destination struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	CityID        uuid.UUID          `json:"-"`
	City          *CitySummary       `json:"city,omitempty"`
	TypeID        *uuid.UUID         `json:"-"`
	Type          *DestinationType   `json:"type,omitempty"`
	Tags          []Tag              `json:"tags"`
	Address       string             `json:"address"`
	Latitude      *float64           `json:"lat"`
	Longitude     *float64           `json:"lng"`
	Album         DestinationAlbum   `json:"album"`
	Details       DestinationDetails `json:"details"`
	OpenHours     OpenHours          `json:"openHour"`
	ContactInfo   ContactInfo        `json:"contactInfo"`
	Views         int64              `json:"views"`
	TotalRate     int64              `json:"totalRate"`
	AverageRating float64            `json:"avgRating"`
	CreatedBy     string             `json:"createdBy"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type CreateDestinationParams struct {
	Name        string             `json:"name"`
	CityID      uuid.UUID          `json:"city"`
	TypeID      *uuid.UUID         `json:"type"`
	TagIDs      []uuid.UUID        `json:"tags"`
	Address     string             `json:"address"`
	Latitude    *float64           `json:"lat"`
	Longitude   *float64           `json:"lng"`
	Album       DestinationAlbum   `json:"album"`
	Details     DestinationDetails `json:"details"`
	OpenHours   OpenHours          `json:"openHour"`
	ContactInfo ContactInfo        `json:"contactInfo"`
	CreatedBy   string             `json:"-"`
}

type UpdateDestinationParams struct {
	Name        *string             `json:"name,omitempty"`
	CityID      *uuid.UUID          `json:"city,omitempty"`
	TypeID      *uuid.UUID          `json:"type,omitempty"`
	TagIDs      []uuid.UUID         `json:"tags,omitempty"`
	Address     *string             `json:"address,omitempty"`
	Latitude    *float64            `json:"lat,omitempty"`
	Longitude   *float64            `json:"lng,omitempty"`
	Album       *DestinationAlbum   `json:"album,omitempty"`
	Details     *DestinationDetails `json:"details,omitempty"`
	OpenHours   *OpenHours          `json:"openHour,omitempty"`
	ContactInfo *ContactInfo        `json:"contactInfo,omitempty"`
}

// DestinationFilter narrows the public search listing.
type DestinationFilter struct {
	Query  string
	CityID *uuid.UUID
	TypeID *uuid.UUID
	TagIDs []uuid.UUID
	Page   int
	Limit  int
}

// DestinationSummary is the compact shape embedded in itinerary items
// and chat suggestions.
type DestinationSummary struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	City          *CitySummary `json:"city,omitempty"`
	Address       string       `json:"address"`
	Image         string       `json:"image"`
	AverageRating float64      `json:"avgRating"`
}

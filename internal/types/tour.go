package types

import (
	"time"

	"github.com/google/uuid"
)

// Itinerary item kinds. Every item in a day is exactly one of these.
const (
	ItemKindDestination = "destination"
	ItemKindNote        = "note"
)

// Icon types a note may carry.
const (
	IconPlace      = "place"
	IconRestaurant = "restaurant"
	IconCoffee     = "coffee"
)

// ItineraryItem is the tagged union stored per day. Destination items
// carry DestinationID, note items carry Content and IconType.
type ItineraryItem struct {
	ID            uuid.UUID           `json:"id"`
	Kind          string              `json:"kind"`
	Order         int                 `json:"order"`
	DestinationID *uuid.UUID          `json:"destinationId,omitempty"`
	Destination   *DestinationSummary `json:"destination,omitempty"`
	Title         string              `json:"title,omitempty"`
	TimeOfDay     string              `json:"time,omitempty"`
	Content       string              `json:"content,omitempty"`
	IconType      string              `json:"iconType,omitempty"`
}

// DayDescription is the read-time projection of a destination item,
// kept for clients that still consume the split representation.
type DayDescription struct {
	Order       int                 `json:"order"`
	Note        string              `json:"note,omitempty"`
	TimeOfDay   string              `json:"time,omitempty"`
	Destination *DestinationSummary `json:"destination"`
}

// DayNote is the read-time projection of a note item.
type DayNote struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IconType string `json:"iconType"`
}

type TourDay struct {
	ID           uuid.UUID        `json:"id"`
	Label        string           `json:"label"`
	Items        []ItineraryItem  `json:"items"`
	Descriptions []DayDescription `json:"descriptions"`
	Notes        []DayNote        `json:"notes"`
}

type Tour struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	City        *CitySummary `json:"city,omitempty"`
	StartDay    *time.Time   `json:"startDay"`
	EndDay      *time.Time   `json:"endDay"`
	NumDays     int          `json:"numDays"`
	IsPublic    bool         `json:"isPublic"`
	UserID      uuid.UUID    `json:"-"`
	Owner       *UserSummary `json:"user,omitempty"`
	Tags        []Tag        `json:"tags"`
	Itinerary   []TourDay    `json:"itinerary"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type CreateTourParams struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CityID      *uuid.UUID  `json:"city,omitempty"`
	StartDay    *time.Time  `json:"startDay,omitempty"`
	EndDay      *time.Time  `json:"endDay,omitempty"`
	IsPublic    bool        `json:"isPublic"`
	TagIDs      []uuid.UUID `json:"tags"`
	DayLabels   []string    `json:"days"`
	UserID      uuid.UUID   `json:"-"`
}

type UpdateTourParams struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	CityID      *uuid.UUID  `json:"city,omitempty"`
	StartDay    *time.Time  `json:"startDay,omitempty"`
	EndDay      *time.Time  `json:"endDay,omitempty"`
	IsPublic    *bool       `json:"isPublic,omitempty"`
	TagIDs      []uuid.UUID `json:"tags,omitempty"`
}

// AddDayDestinationParams adds a destination item to the day named by
// DayLabel, creating the day on first use. Note is the stop's free
// text; IconType defaults to place.
type AddDayDestinationParams struct {
	DayLabel      string    `json:"day"`
	DestinationID uuid.UUID `json:"destinationId"`
	Note          string    `json:"note"`
	TimeOfDay     string    `json:"time"`
	IconType      string    `json:"iconType"`
}

type AddDayNoteParams struct {
	DayLabel string `json:"day"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	IconType string `json:"iconType"`
}

// UpdateDayNoteParams addresses a note by its position within the
// day's note subsequence, not by item id.
type UpdateDayNoteParams struct {
	DayLabel string  `json:"day"`
	Index    int     `json:"noteIndex"`
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	IconType *string `json:"iconType,omitempty"`
}

type RemoveDayNoteParams struct {
	DayLabel string `json:"day"`
	Index    int    `json:"noteIndex"`
}

// UpdateDayDestinationParams prefers ItemID; Index is the legacy
// positional fallback counting destination items only.
type UpdateDayDestinationParams struct {
	DayLabel  string     `json:"day"`
	ItemID    *uuid.UUID `json:"itemId,omitempty"`
	Index     *int       `json:"descriptionIndex,omitempty"`
	Note      *string    `json:"note,omitempty"`
	TimeOfDay *string    `json:"time,omitempty"`
}

// RemoveDayDestinationParams requires at least one of ItemID or
// DestinationID.
type RemoveDayDestinationParams struct {
	DayLabel      string     `json:"day"`
	ItemID        *uuid.UUID `json:"itemId,omitempty"`
	DestinationID *uuid.UUID `json:"destinationId,omitempty"`
}

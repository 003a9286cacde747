package types

import "github.com/google/uuid"

type CityViewStat struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Views            int       `json:"views"`
	DestinationViews int       `json:"destinationViews"`
}

type DestinationStat struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Views         int       `json:"views"`
	TotalRate     int       `json:"totalRate"`
	AverageRating float64   `json:"averageRating"`
}

// SignupCount is one day of the trailing signup window. Day is
// YYYY-MM-DD.
type SignupCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Statistics is the admin dashboard payload.
type Statistics struct {
	Users        int               `json:"users"`
	Admins       int               `json:"admins"`
	Cities       int               `json:"cities"`
	Destinations int               `json:"destinations"`
	Tours        int               `json:"tours"`
	CityViews    []CityViewStat    `json:"cityViews"`
	TopPlaces    []DestinationStat `json:"topPlaces"`
	Signups      []SignupCount     `json:"signups"`
}

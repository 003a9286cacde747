package tour

import (
	"github.com/vivutravel/vivu-backend/internal/types"
)

// The itinerary engine operates on the ordered item sequence of one
// day. Items are the single source of truth; the descriptions/notes
// lists older clients consume are projections computed at read time.

// projectDay splits the item sequence into the legacy representation:
// destination items become descriptions, note items become notes, both
// in item order.
func projectDay(items []types.ItineraryItem) ([]types.DayDescription, []types.DayNote) {
	descriptions := make([]types.DayDescription, 0, len(items))
	notes := make([]types.DayNote, 0)
	for _, it := range items {
		switch it.Kind {
		case types.ItemKindDestination:
			descriptions = append(descriptions, types.DayDescription{
				Order:       it.Order,
				Note:        it.Title,
				TimeOfDay:   it.TimeOfDay,
				Destination: it.Destination,
			})
		case types.ItemKindNote:
			notes = append(notes, types.DayNote{
				Title:    it.Title,
				Content:  it.Content,
				IconType: it.IconType,
			})
		}
	}
	return descriptions, notes
}

// noteAt resolves the nth note-kind item of the day. The index counts
// notes only, skipping destination items.
func noteAt(items []types.ItineraryItem, index int) (types.ItineraryItem, bool) {
	if index < 0 {
		return types.ItineraryItem{}, false
	}
	seen := 0
	for _, it := range items {
		if it.Kind != types.ItemKindNote {
			continue
		}
		if seen == index {
			return it, true
		}
		seen++
	}
	return types.ItineraryItem{}, false
}

// destinationAt resolves the nth destination-kind item of the day,
// the legacy positional addressing older clients still send.
func destinationAt(items []types.ItineraryItem, index int) (types.ItineraryItem, bool) {
	if index < 0 {
		return types.ItineraryItem{}, false
	}
	seen := 0
	for _, it := range items {
		if it.Kind != types.ItemKindDestination {
			continue
		}
		if seen == index {
			return it, true
		}
		seen++
	}
	return types.ItineraryItem{}, false
}

package tour

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/internal/types"
)

func destItem(order int, title string) types.ItineraryItem {
	id := uuid.New()
	return types.ItineraryItem{
		ID:            uuid.New(),
		Kind:          types.ItemKindDestination,
		Order:         order,
		DestinationID: &id,
		Title:         title,
	}
}

func noteItem(order int, content string) types.ItineraryItem {
	return types.ItineraryItem{
		ID:       uuid.New(),
		Kind:     types.ItemKindNote,
		Order:    order,
		Content:  content,
		IconType: types.IconPlace,
	}
}

func TestProjectDay(t *testing.T) {
	items := []types.ItineraryItem{
		destItem(0, "Hoan Kiem Lake"),
		noteItem(1, "bring an umbrella"),
		destItem(2, "Old Quarter"),
		noteItem(3, "dinner reservation at 7"),
	}

	descriptions, notes := projectDay(items)

	require.Len(t, descriptions, 2)
	require.Len(t, notes, 2)

	assert.Equal(t, "Hoan Kiem Lake", descriptions[0].Note)
	assert.Equal(t, 0, descriptions[0].Order)
	assert.Equal(t, "Old Quarter", descriptions[1].Note)
	assert.Equal(t, 2, descriptions[1].Order)

	assert.Equal(t, "bring an umbrella", notes[0].Content)
	assert.Equal(t, "dinner reservation at 7", notes[1].Content)
}

func TestProjectDay_EmptyDay(t *testing.T) {
	descriptions, notes := projectDay(nil)
	assert.Empty(t, descriptions)
	assert.Empty(t, notes)
}

func TestNoteAt(t *testing.T) {
	items := []types.ItineraryItem{
		destItem(0, "a"),
		noteItem(1, "first note"),
		destItem(2, "b"),
		noteItem(3, "second note"),
	}

	t.Run("index counts notes only", func(t *testing.T) {
		it, ok := noteAt(items, 0)
		require.True(t, ok)
		assert.Equal(t, "first note", it.Content)

		it, ok = noteAt(items, 1)
		require.True(t, ok)
		assert.Equal(t, "second note", it.Content)
	})

	t.Run("out of range", func(t *testing.T) {
		_, ok := noteAt(items, 2)
		assert.False(t, ok)
	})

	t.Run("negative index", func(t *testing.T) {
		_, ok := noteAt(items, -1)
		assert.False(t, ok)
	})
}

func TestDestinationAt(t *testing.T) {
	items := []types.ItineraryItem{
		noteItem(0, "n"),
		destItem(1, "first"),
		noteItem(2, "n2"),
		destItem(3, "second"),
	}

	t.Run("index counts destinations only", func(t *testing.T) {
		it, ok := destinationAt(items, 1)
		require.True(t, ok)
		assert.Equal(t, "second", it.Title)
	})

	t.Run("out of range", func(t *testing.T) {
		_, ok := destinationAt(items, 2)
		assert.False(t, ok)
	})
}

package destination

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/internal/types"
)

func TestIngestContent(t *testing.T) {
	d := types.Destination{
		Name:    "Chùa Thiên Mụ",
		Address: "Kim Long, Huế",
		City:    &types.CitySummary{Name: "Huế"},
		Details: types.DestinationDetails{
			Description: "Seven-storey pagoda on the Perfume River",
			Highlight:   []string{"river view", "pagoda tower"},
			Activities:  []string{"photography", ""},
			Services:    []string{"guided tours"},
		},
		Tags: []types.Tag{{Title: "temple"}},
	}

	content := ingestContent(d)

	assert.Contains(t, content, "Chùa Thiên Mụ")
	assert.Contains(t, content, "Seven-storey pagoda on the Perfume River")
	assert.Contains(t, content, "river view")
	assert.Contains(t, content, "guided tours")
	assert.Contains(t, content, "Huế")
	assert.Contains(t, content, "temple")
	assert.NotContains(t, content, "\n\n", "blank entries should be dropped")
}

func TestDestinationWireShapes(t *testing.T) {
	t.Run("album sections", func(t *testing.T) {
		raw, err := json.Marshal(types.DestinationAlbum{
			Highlight: []string{"cover.jpg"},
			Space:     []string{"hall.jpg"},
			FnB:       []string{"menu.jpg"},
			Extra:     []string{"map.jpg"},
		})
		require.NoError(t, err)

		var keys map[string][]string
		require.NoError(t, json.Unmarshal(raw, &keys))
		assert.Equal(t, []string{"cover.jpg"}, keys["highlight"])
		assert.Equal(t, []string{"hall.jpg"}, keys["space"])
		assert.Equal(t, []string{"menu.jpg"}, keys["fnb"])
		assert.Equal(t, []string{"map.jpg"}, keys["extra"])
	})

	t.Run("open hours per weekday with allday", func(t *testing.T) {
		raw, err := json.Marshal(types.OpenHours{
			Monday: types.DayHours{Open: "08:00", Close: "17:00"},
			AllDay: true,
		})
		require.NoError(t, err)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.JSONEq(t, `{"open":"08:00","close":"17:00"}`, string(decoded["mon"]))
		assert.JSONEq(t, `true`, string(decoded["allday"]))
	})
}

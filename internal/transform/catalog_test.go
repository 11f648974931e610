package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/searchsync/pkg/types"
)

func TestStore(t *testing.T) {
	rec := types.StoreRecord{
		ID:           9,
		Name:         str("Spice Hub"),
		Slug:         str("spice-hub"),
		Logo:         str(" "),
		CoverPhoto:   str("cover.png"),
		Latitude:     str("23.0225"),
		Longitude:    str("east"),
		Status:       str("1"),
		Active:       str("1"),
		Veg:          str("1"),
		NonVeg:       str("0"),
		Delivery:     str("0"),
		DeliveryTime: str("20-30 min"),
		ZoneID:       i64(3),
		ModuleID:     i64(4),
		OrderCount:   str("120"),
		Featured:     str("1"),
		CreatedAt:    str("2024-01-01 09:00:00"),
	}

	doc := Store(rec)
	assert.Equal(t, int64(9), doc.ID)
	assert.Equal(t, "spice-hub", doc.Slug)
	assert.Equal(t, "", doc.Logo)
	assert.Equal(t, "cover.png", doc.Image, "image falls back to the cover photo")
	require.NotNil(t, doc.Latitude)
	assert.InDelta(t, 23.0225, *doc.Latitude, 1e-9)
	assert.Nil(t, doc.Longitude)
	assert.Equal(t, 1, doc.Veg)
	assert.Equal(t, 0, doc.Delivery, "an explicit 0 is kept")
	assert.Equal(t, 1, doc.TakeAway, "a missing flag defaults to 1")
	assert.Equal(t, 120, doc.OrderCount)
	assert.Equal(t, 0, doc.TotalOrder)
	assert.Equal(t, int64(3), *doc.ZoneID)
}

func TestStoreDefaults(t *testing.T) {
	doc := Store(types.StoreRecord{ID: 1, Latitude: str("NaN")})

	assert.Equal(t, "", doc.Name)
	assert.Equal(t, "", doc.Image)
	assert.Equal(t, DefaultDeliveryTime, doc.DeliveryTime)
	assert.Equal(t, 1, doc.Delivery)
	assert.Equal(t, 1, doc.TakeAway)
	assert.Zero(t, doc.Status)
	assert.Zero(t, doc.AvgRating)
	assert.Nil(t, doc.Latitude)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "latitude")
	assert.Nil(t, m["latitude"])
	assert.NotContains(t, m, "created_at")
}

func TestCategory(t *testing.T) {
	tests := []struct {
		name       string
		parent     *int64
		wantParent *int64
	}{
		{"top level zero", i64(0), nil},
		{"top level null", nil, nil},
		{"child", i64(10), i64(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Category(types.CategoryRecord{
				ID:       20,
				Name:     str("Paneer"),
				ParentID: tt.parent,
				Position: str("3"),
				Status:   str("1"),
				ModuleID: i64(4),
			})
			assert.Equal(t, int64(20), doc.ID)
			assert.Equal(t, "Paneer", doc.Name)
			assert.Equal(t, "", doc.Slug)
			assert.Equal(t, 3, doc.Position)
			assert.Equal(t, 1, doc.Status)
			assert.Equal(t, tt.wantParent, doc.ParentID)
		})
	}
}

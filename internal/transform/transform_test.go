package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/searchsync/pkg/types"
)

func str(s string) *string { return &s }
func i64(v int64) *int64   { return &v }

func fullRecord() types.SourceRecord {
	return types.SourceRecord{
		ID:                  42,
		Name:                str("Paneer Tikka"),
		Description:         str("Smoky cottage cheese"),
		Price:               str("12.50"),
		Veg:                 str("1"),
		Status:              str("1"),
		AvgRating:           str("4.5"),
		RatingCount:         str("17"),
		Image:               str("paneer.png"),
		AvailableTimeStarts: str("10:00:00"),
		AvailableTimeEnds:   str("22:00:00"),
		CreatedAt:           str("2024-01-01T10:00:00Z"),
		ModuleID:            i64(4),
		StoreID:             i64(9),
		StoreName:           str("Spice Hub"),
		DeliveryTime:        str("20-30 min"),
		Latitude:            str("23.0225"),
		Longitude:           str("72.5714"),
		ZoneID:              i64(3),
		CategoryID:          i64(11),
		CategoryName:        str("Starters"),
	}
}

func TestFull(t *testing.T) {
	doc := Full(fullRecord())

	assert.Equal(t, int64(42), doc.ID)
	assert.Equal(t, "Paneer Tikka", doc.Name)
	assert.Equal(t, 12.5, doc.Price)
	assert.True(t, doc.Veg)
	assert.Equal(t, 1, doc.Status)
	assert.Equal(t, 4.5, doc.AvgRating)
	assert.Equal(t, 17, doc.RatingCount)
	assert.Equal(t, "20-30 min", doc.DeliveryTime)
	assert.Equal(t, "Starters", doc.CategoryName)
	assert.Equal(t, int64(3), *doc.ZoneID)

	require.NotNil(t, doc.StoreLocation)
	assert.Equal(t, types.GeoPoint{Lat: 23.0225, Lon: 72.5714}, *doc.StoreLocation)
	assert.Equal(t, 23.0225, *doc.StoreLatitude)
	assert.Equal(t, 72.5714, *doc.StoreLongitude)
}

func TestFullDefaults(t *testing.T) {
	doc := Full(types.SourceRecord{ID: 1})

	assert.Equal(t, "", doc.Name)
	assert.Equal(t, "", doc.Description)
	assert.Equal(t, "", doc.StoreName)
	assert.Equal(t, DefaultCategoryName, doc.CategoryName)
	assert.Equal(t, DefaultDeliveryTime, doc.DeliveryTime)
	assert.Equal(t, DefaultTimeStarts, doc.AvailableTimeStarts)
	assert.Equal(t, DefaultTimeEnds, doc.AvailableTimeEnds)
	assert.Zero(t, doc.Price)
	assert.Zero(t, doc.AvgRating)
	assert.Zero(t, doc.RatingCount)
	assert.False(t, doc.Veg)
	assert.Nil(t, doc.StoreLocation)
	assert.Nil(t, doc.StoreLatitude)
	assert.Nil(t, doc.StoreLongitude)
}

func TestPatchDefaults(t *testing.T) {
	doc := Patch(types.SourceRecord{ID: 1})

	assert.Equal(t, "", doc.Name)
	assert.Equal(t, "", doc.Description)
	assert.Equal(t, "", doc.StoreName)
	assert.Equal(t, "", doc.CategoryName, "category default belongs to full documents")
	assert.Equal(t, "", doc.DeliveryTime, "delivery time default belongs to full documents")
	assert.Equal(t, DefaultTimeStarts, doc.AvailableTimeStarts)
	assert.Equal(t, DefaultTimeEnds, doc.AvailableTimeEnds)
	assert.Zero(t, doc.Price)
	assert.Zero(t, doc.AvgRating)
	assert.Zero(t, doc.RatingCount)
	assert.Zero(t, doc.Veg)
	assert.Nil(t, doc.StoreID)
	assert.Nil(t, doc.ZoneID)
	assert.Nil(t, doc.StoreLocation)

	withStore := Patch(fullRecord())
	assert.Equal(t, "20-30 min", withStore.DeliveryTime)
	assert.Equal(t, "Starters", withStore.CategoryName)
}

func TestNumericCoercion(t *testing.T) {
	tests := []struct {
		name      string
		price     *string
		count     *string
		wantPrice float64
		wantCount int
	}{
		{"plain", str("9.99"), str("3"), 9.99, 3},
		{"padded", str(" 9.99 "), str(" 3 "), 9.99, 3},
		{"decimal count", str("10"), str("4.0"), 10, 4},
		{"leading zero count", str("10"), str("08"), 10, 8},
		{"garbage", str("free"), str("many"), 0, 0},
		{"empty", str(""), str(""), 0, 0},
		{"null", nil, nil, 0, 0},
		{"not a number", str("NaN"), str("Inf"), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := types.SourceRecord{ID: 1, Price: tt.price, RatingCount: tt.count}
			full := Full(rec)
			patch := Patch(rec)
			assert.Equal(t, tt.wantPrice, full.Price)
			assert.Equal(t, tt.wantCount, full.RatingCount)
			assert.Equal(t, tt.wantPrice, patch.Price)
			assert.Equal(t, tt.wantCount, patch.RatingCount)
		})
	}
}

func TestGeoFields(t *testing.T) {
	tests := []struct {
		name    string
		lat     *string
		lon     *string
		present bool
	}{
		{"both numeric", str("23.0"), str("72.5"), true},
		{"zero is a coordinate", str("0"), str("0"), true},
		{"latitude missing", nil, str("72.5"), false},
		{"longitude missing", str("23.0"), nil, false},
		{"latitude garbage", str("north"), str("72.5"), false},
		{"empty strings", str(""), str(""), false},
		{"out of range", str("123.0"), str("72.5"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := types.SourceRecord{ID: 1, Latitude: tt.lat, Longitude: tt.lon}
			for _, raw := range []any{Full(rec), Patch(rec)} {
				data, err := json.Marshal(raw)
				require.NoError(t, err)
				var doc map[string]any
				require.NoError(t, json.Unmarshal(data, &doc))

				_, hasLoc := doc["store_location"]
				_, hasLat := doc["store_latitude"]
				_, hasLon := doc["store_longitude"]
				assert.Equal(t, tt.present, hasLoc)
				assert.Equal(t, tt.present, hasLat)
				assert.Equal(t, tt.present, hasLon)
			}
		})
	}
}

func TestVegDiffersBetweenPaths(t *testing.T) {
	tests := []struct {
		raw       *string
		wantFull  bool
		wantPatch int
	}{
		{str("1"), true, 1},
		{str("0"), false, 0},
		{str("2"), true, 1},
		{nil, false, 0},
		{str("yes"), false, 0},
	}

	for _, tt := range tests {
		rec := types.SourceRecord{ID: 1, Veg: tt.raw}
		assert.Equal(t, tt.wantFull, Full(rec).Veg)
		assert.Equal(t, tt.wantPatch, Patch(rec).Veg)
	}

	data, err := json.Marshal(Patch(types.SourceRecord{ID: 1, Veg: str("1")}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"veg":1`)

	data, err = json.Marshal(Full(types.SourceRecord{ID: 1, Veg: str("1")}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"veg":true`)
}

func TestPatchOmitsIdentityAndEmptyVectors(t *testing.T) {
	data, err := json.Marshal(Patch(fullRecord()))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc, "id")
	assert.NotContains(t, doc, "created_at")
	assert.NotContains(t, doc, "name_vector")
	assert.Equal(t, "Spice Hub", doc["store_name"])
}

func TestTexts(t *testing.T) {
	tests := []struct {
		name string
		rec  types.SourceRecord
		want Channels
	}{
		{
			name: "all parts",
			rec:  types.SourceRecord{Name: str("Paneer Tikka"), CategoryName: str("Starters"), Description: str("Smoky")},
			want: Channels{Name: "Paneer Tikka", Description: "Smoky", Combined: "Paneer Tikka Starters Smoky"},
		},
		{
			name: "no description",
			rec:  types.SourceRecord{Name: str("Paneer Tikka"), CategoryName: str("Starters")},
			want: Channels{Name: "Paneer Tikka", Description: "Paneer Tikka", Combined: "Paneer Tikka Starters"},
		},
		{
			name: "no category",
			rec:  types.SourceRecord{Name: str("Paneer Tikka"), Description: str("Smoky")},
			want: Channels{Name: "Paneer Tikka", Description: "Smoky", Combined: "Paneer Tikka Other Smoky"},
		},
		{
			name: "name only",
			rec:  types.SourceRecord{Name: str("Paneer Tikka"), Description: str("  ")},
			want: Channels{Name: "Paneer Tikka", Description: "Paneer Tikka", Combined: "Paneer Tikka Other"},
		},
		{
			name: "nothing",
			rec:  types.SourceRecord{ID: 5},
			want: Channels{Name: "item 5", Description: "item 5", Combined: "Other"},
		},
		{
			name: "no name",
			rec:  types.SourceRecord{ID: 5, Description: str("Smoky")},
			want: Channels{Name: "Smoky", Description: "Smoky", Combined: "Other Smoky"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Texts(tt.rec))
		})
	}
}

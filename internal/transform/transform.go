package transform

import (
	"fmt"
	"strings"

	"github.com/dshills/searchsync/pkg/types"
)

// Full builds the complete document for an index action.
func Full(rec types.SourceRecord) types.FullDocument {
	loc, lat, lon := geo(rec)
	return types.FullDocument{
		ID:                  rec.ID,
		Name:                text(rec.Name, ""),
		Description:         text(rec.Description, ""),
		Price:               float(rec.Price),
		Veg:                 integer(rec.Veg) != 0,
		Status:              integer(rec.Status),
		AvgRating:           float(rec.AvgRating),
		RatingCount:         integer(rec.RatingCount),
		Image:               text(rec.Image, ""),
		AvailableTimeStarts: text(rec.AvailableTimeStarts, DefaultTimeStarts),
		AvailableTimeEnds:   text(rec.AvailableTimeEnds, DefaultTimeEnds),
		ModuleID:            rec.ModuleID,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,

		StoreID:      rec.StoreID,
		StoreName:    text(rec.StoreName, ""),
		DeliveryTime: text(rec.DeliveryTime, DefaultDeliveryTime),
		ZoneID:       rec.ZoneID,

		CategoryID:   rec.CategoryID,
		CategoryName: text(rec.CategoryName, DefaultCategoryName),

		StoreLocation:  loc,
		StoreLatitude:  lat,
		StoreLongitude: lon,
	}
}

// Patch builds the partial document for an update action. Fields it does not
// carry, such as id and stored vectors, are left alone by the merge. Missing
// store and category text is written empty rather than with the Full
// defaults.
func Patch(rec types.SourceRecord) types.PatchDocument {
	loc, lat, lon := geo(rec)
	veg := 0
	if integer(rec.Veg) != 0 {
		veg = 1
	}
	return types.PatchDocument{
		Name:                text(rec.Name, ""),
		Description:         text(rec.Description, ""),
		Price:               float(rec.Price),
		Veg:                 veg,
		Status:              integer(rec.Status),
		AvgRating:           float(rec.AvgRating),
		RatingCount:         integer(rec.RatingCount),
		Image:               text(rec.Image, ""),
		AvailableTimeStarts: text(rec.AvailableTimeStarts, DefaultTimeStarts),
		AvailableTimeEnds:   text(rec.AvailableTimeEnds, DefaultTimeEnds),
		ModuleID:            rec.ModuleID,

		StoreID:      rec.StoreID,
		StoreName:    text(rec.StoreName, ""),
		DeliveryTime: text(rec.DeliveryTime, ""),
		ZoneID:       rec.ZoneID,

		CategoryID:   rec.CategoryID,
		CategoryName: text(rec.CategoryName, ""),

		StoreLocation:  loc,
		StoreLatitude:  lat,
		StoreLongitude: lon,
	}
}

// Channels are the three texts embedded for one item.
type Channels struct {
	Name        string
	Description string
	Combined    string
}

// Texts derives the embedding texts. The description channel falls back to
// the name, and the combined channel joins name, category and description,
// skipping empty parts. The category is the one Full indexes, so an item
// without a category embeds "Other" in the combined channel. No channel is
// ever empty.
func Texts(rec types.SourceRecord) Channels {
	name := text(rec.Name, "")
	description := text(rec.Description, "")
	category := text(rec.CategoryName, "")

	combined := joinNonEmpty(name, text(rec.CategoryName, DefaultCategoryName), description)

	if name == "" {
		switch {
		case description != "":
			name = description
		case category != "":
			name = category
		default:
			name = fmt.Sprintf("item %d", rec.ID)
		}
	}
	if description == "" {
		description = name
	}
	return Channels{
		Name:        name,
		Description: description,
		Combined:    combined,
	}
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

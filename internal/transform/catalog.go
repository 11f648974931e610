package transform

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/dshills/searchsync/pkg/types"
)

// Store builds the document for a stores index. Missing delivery and
// take-away flags default to enabled. Ratings are not carried by the stores
// table in a numeric form, so avg_rating and rating_count start at zero.
func Store(rec types.StoreRecord) types.StoreDocument {
	logo := text(rec.Logo, "")
	cover := text(rec.CoverPhoto, "")
	image := logo
	if image == "" {
		image = cover
	}

	return types.StoreDocument{
		ID:         rec.ID,
		Name:       text(rec.Name, ""),
		Slug:       text(rec.Slug, ""),
		Phone:      text(rec.Phone, ""),
		Email:      text(rec.Email, ""),
		Logo:       logo,
		CoverPhoto: cover,
		Image:      image,
		Address:    text(rec.Address, ""),
		Latitude:   coordinate(rec.Latitude),
		Longitude:  coordinate(rec.Longitude),

		Status:   integer(rec.Status),
		Active:   integer(rec.Active),
		Veg:      integer(rec.Veg),
		NonVeg:   integer(rec.NonVeg),
		Delivery: flagDefault(rec.Delivery, 1),
		TakeAway: flagDefault(rec.TakeAway, 1),

		DeliveryTime: text(rec.DeliveryTime, DefaultDeliveryTime),
		ZoneID:       rec.ZoneID,
		ModuleID:     rec.ModuleID,
		OrderCount:   integer(rec.OrderCount),
		TotalOrder:   integer(rec.TotalOrder),
		Featured:     integer(rec.Featured),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// Category builds the document for a categories index. A parent id of 0
// marks a top-level category and is written as null.
func Category(rec types.CategoryRecord) types.CategoryDocument {
	parent := rec.ParentID
	if parent != nil && *parent == 0 {
		parent = nil
	}
	return types.CategoryDocument{
		ID:        rec.ID,
		Name:      text(rec.Name, ""),
		Slug:      text(rec.Slug, ""),
		Image:     text(rec.Image, ""),
		ParentID:  parent,
		Position:  integer(rec.Position),
		Status:    integer(rec.Status),
		Featured:  integer(rec.Featured),
		ModuleID:  rec.ModuleID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// coordinate parses a single coordinate, nil when missing or invalid.
func coordinate(s *string) *float64 {
	if s == nil {
		return nil
	}
	v, err := cast.ToFloat64E(strings.TrimSpace(*s))
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func flagDefault(s *string, def int) int {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return integer(s)
}

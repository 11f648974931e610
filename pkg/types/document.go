package types

import "strings"

// WriteMode selects how documents are written to the search index.
type WriteMode string

const (
	// WriteFull replaces the stored document.
	WriteFull WriteMode = "full"
	// WritePatch merges the document into the stored one.
	WritePatch WriteMode = "patch"
)

// ParseWriteMode parses a write mode name, case-insensitively.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(strings.ToLower(strings.TrimSpace(s))) {
	case WriteFull:
		return WriteFull, nil
	case WritePatch:
		return WritePatch, nil
	default:
		return "", ErrInvalidWriteMode
	}
}

// FullDocument is the complete searchable form of an item.
type FullDocument struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Price               float64 `json:"price"`
	Veg                 bool    `json:"veg"`
	Status              int     `json:"status"`
	AvgRating           float64 `json:"avg_rating"`
	RatingCount         int     `json:"rating_count"`
	Image               string  `json:"image"`
	AvailableTimeStarts string  `json:"available_time_starts"`
	AvailableTimeEnds   string  `json:"available_time_ends"`
	ModuleID            *int64  `json:"module_id"`
	CreatedAt           *string `json:"created_at"`
	UpdatedAt           *string `json:"updated_at"`

	StoreID      *int64 `json:"store_id"`
	StoreName    string `json:"store_name"`
	DeliveryTime string `json:"delivery_time"`
	ZoneID       *int64 `json:"zone_id"`

	CategoryID   *int64 `json:"category_id"`
	CategoryName string `json:"category_name"`

	StoreLocation  *GeoPoint `json:"store_location,omitempty"`
	StoreLatitude  *float64  `json:"store_latitude,omitempty"`
	StoreLongitude *float64  `json:"store_longitude,omitempty"`

	Vectors
}

// PatchDocument is the partial form merged into an existing document. It
// carries no id and the veg flag is numeric.
type PatchDocument struct {
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Price               float64 `json:"price"`
	Veg                 int     `json:"veg"`
	Status              int     `json:"status"`
	AvgRating           float64 `json:"avg_rating"`
	RatingCount         int     `json:"rating_count"`
	Image               string  `json:"image"`
	AvailableTimeStarts string  `json:"available_time_starts"`
	AvailableTimeEnds   string  `json:"available_time_ends"`
	ModuleID            *int64  `json:"module_id"`

	StoreID      *int64 `json:"store_id"`
	StoreName    string `json:"store_name"`
	DeliveryTime string `json:"delivery_time"`
	ZoneID       *int64 `json:"zone_id"`

	CategoryID   *int64 `json:"category_id"`
	CategoryName string `json:"category_name"`

	StoreLocation  *GeoPoint `json:"store_location,omitempty"`
	StoreLatitude  *float64  `json:"store_latitude,omitempty"`
	StoreLongitude *float64  `json:"store_longitude,omitempty"`

	Vectors
}

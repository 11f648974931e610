package types

// SourceRecord is one item row joined with its store and category.
//
// Columns that need numeric coercion are kept as raw strings. Foreign keys are
// kept as integers. A nil pointer means the column was NULL or the join found
// no row.
type SourceRecord struct {
	// Item
	ID                  int64
	Name                *string
	Description         *string
	Price               *string
	Veg                 *string
	Status              *string
	AvgRating           *string
	RatingCount         *string
	Image               *string
	AvailableTimeStarts *string
	AvailableTimeEnds   *string
	CreatedAt           *string
	UpdatedAt           *string
	ModuleID            *int64

	// Store
	StoreID      *int64
	StoreName    *string
	DeliveryTime *string
	Latitude     *string
	Longitude    *string
	ZoneID       *int64

	// Category
	CategoryID   *int64
	CategoryName *string
}

// Vectors holds the three embedding channels of a document. Empty channels
// are omitted from the serialized document.
type Vectors struct {
	Name        []float32 `json:"name_vector,omitempty"`
	Description []float32 `json:"description_vector,omitempty"`
	Combined    []float32 `json:"combined_vector,omitempty"`
}

// Complete reports whether all three channels carry a vector.
func (v Vectors) Complete() bool {
	return len(v.Name) > 0 && len(v.Description) > 0 && len(v.Combined) > 0
}

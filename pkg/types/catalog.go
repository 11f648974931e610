package types

// StoreRecord is one row of the stores table.
type StoreRecord struct {
	ID         int64
	Name       *string
	Slug       *string
	Phone      *string
	Email      *string
	Logo       *string
	CoverPhoto *string
	Address    *string
	Latitude   *string
	Longitude  *string

	Status   *string
	Active   *string
	Veg      *string
	NonVeg   *string
	Delivery *string
	TakeAway *string

	DeliveryTime *string
	ZoneID       *int64
	ModuleID     *int64
	OrderCount   *string
	TotalOrder   *string
	Featured     *string
	CreatedAt    *string
	UpdatedAt    *string
}

// CategoryRecord is one row of the categories table.
type CategoryRecord struct {
	ID        int64
	Name      *string
	Slug      *string
	Image     *string
	ParentID  *int64
	Position  *string
	Status    *string
	Featured  *string
	ModuleID  *int64
	CreatedAt *string
	UpdatedAt *string
}

// StoreDocument is the searchable form of a store. Flags are 0/1 integers.
type StoreDocument struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	Phone      string   `json:"phone"`
	Email      string   `json:"email"`
	Logo       string   `json:"logo"`
	CoverPhoto string   `json:"cover_photo"`
	Image      string   `json:"image"`
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`

	Status   int `json:"status"`
	Active   int `json:"active"`
	Veg      int `json:"veg"`
	NonVeg   int `json:"non_veg"`
	Delivery int `json:"delivery"`
	TakeAway int `json:"take_away"`

	DeliveryTime string  `json:"delivery_time"`
	ZoneID       *int64  `json:"zone_id"`
	ModuleID     *int64  `json:"module_id"`
	OrderCount   int     `json:"order_count"`
	TotalOrder   int     `json:"total_order"`
	Featured     int     `json:"featured"`
	AvgRating    float64 `json:"avg_rating"`
	RatingCount  int     `json:"rating_count"`
	CreatedAt    *string `json:"created_at,omitempty"`
	UpdatedAt    *string `json:"updated_at,omitempty"`
}

// CategoryDocument is the searchable form of a category. A top-level
// category has no parent_id.
type CategoryDocument struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Image     string  `json:"image"`
	ParentID  *int64  `json:"parent_id"`
	Position  int     `json:"position"`
	Status    int     `json:"status"`
	Featured  int     `json:"featured"`
	ModuleID  *int64  `json:"module_id"`
	CreatedAt *string `json:"created_at,omitempty"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

package source

import (
	"fmt"
	"strings"
)

// Kind names the catalog table a run reads.
type Kind string

const (
	KindItems      Kind = "items"
	KindStores     Kind = "stores"
	KindCategories Kind = "categories"
)

// ParseKind parses a record kind. Empty selects KindItems.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindItems:
		return KindItems, nil
	case KindStores:
		return KindStores, nil
	case KindCategories:
		return KindCategories, nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

// Query filters the rows selected for a run.
type Query struct {
	// Kind is set by the reader constructor.
	Kind Kind

	// ModuleIDs restricts rows to these modules. Empty selects all modules.
	ModuleIDs []int64

	// IncludeInactive also selects rows whose status is not 1.
	IncludeInactive bool

	// ActiveStoresOnly drops items whose store is missing or inactive.
	// Only items honour it.
	ActiveStoresOnly bool
}

const itemColumns = `SELECT i.id, i.name, i.description, i.price, i.veg, i.status,
	i.avg_rating, i.rating_count, i.image, i.available_time_starts, i.available_time_ends,
	i.created_at, i.updated_at, i.module_id,
	i.store_id, s.name, s.delivery_time, s.latitude, s.longitude, s.zone_id,
	i.category_id, c.name
FROM items i
LEFT JOIN stores s ON i.store_id = s.id
LEFT JOIN categories c ON i.category_id = c.id`

const storeColumns = `SELECT s.id, s.name, s.slug, s.phone, s.email, s.logo, s.cover_photo,
	s.address, s.latitude, s.longitude,
	s.status, s.active, s.veg, s.non_veg, s.delivery, s.take_away,
	s.delivery_time, s.zone_id, s.module_id,
	s.order_count, s.total_order, s.featured,
	s.created_at, s.updated_at
FROM stores s`

const categoryColumns = `SELECT c.id, c.name, c.slug, c.image, c.parent_id, c.position,
	c.status, c.featured, c.module_id,
	c.created_at, c.updated_at
FROM categories c`

// table returns the select list and the alias of the driving table.
func (k Kind) table() (string, string) {
	switch k {
	case KindStores:
		return storeColumns, "s"
	case KindCategories:
		return categoryColumns, "c"
	default:
		return itemColumns, "i"
	}
}

// page describes which slice of the ordered result a statement selects.
type page struct {
	afterID int64 // select ids strictly greater, 0 for no bound
	limit   int   // 0 for no limit
	offset  int64
}

// build renders the statement and its arguments for the dialect.
func (q Query) build(d Dialect, p page) (string, []any) {
	var (
		sb    strings.Builder
		args  []any
		conds []string
	)
	columns, alias := q.Kind.table()

	bind := func(v any) string {
		args = append(args, v)
		return d.Placeholder(len(args))
	}

	if len(q.ModuleIDs) > 0 {
		marks := make([]string, len(q.ModuleIDs))
		for i, id := range q.ModuleIDs {
			marks[i] = bind(id)
		}
		conds = append(conds, alias+".module_id IN ("+strings.Join(marks, ", ")+")")
	}
	if !q.IncludeInactive {
		conds = append(conds, alias+".status = 1")
	}
	if q.ActiveStoresOnly && alias == "i" {
		conds = append(conds, "s.status = 1")
	}
	if p.afterID > 0 {
		conds = append(conds, alias+".id > "+bind(p.afterID))
	}

	sb.WriteString(columns)
	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString("\nORDER BY " + alias + ".id")

	if p.limit > 0 {
		sb.WriteString("\nLIMIT " + bind(p.limit))
		if p.offset > 0 {
			sb.WriteString(" OFFSET " + bind(p.offset))
		}
	}

	return sb.String(), args
}

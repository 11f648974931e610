package geo

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dshills/searchsync/pkg/types"
)

// DefaultZoneQuery selects active zones with their geometry rendered as WKT.
const DefaultZoneQuery = "SELECT id, ST_AsText(coordinates) AS coordinates FROM zones WHERE status = 1"

// Store loads zone geometry from the relational source.
type Store struct {
	db     *sql.DB
	query  string
	logger *slog.Logger
}

// NewStore creates a zone store. An empty query selects DefaultZoneQuery.
// The query must return (id, wkt) rows.
func NewStore(db *sql.DB, query string, logger *slog.Logger) *Store {
	if query == "" {
		query = DefaultZoneQuery
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, query: query, logger: logger}
}

// LoadActive returns every zone whose geometry decodes to an enclosing ring.
// Zones with malformed geometry are logged and skipped.
func (s *Store) LoadActive(ctx context.Context) ([]types.Zone, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var zones []types.Zone
	skipped := 0
	for rows.Next() {
		var (
			id  int64
			wkt sql.NullString
		)
		if err := rows.Scan(&id, &wkt); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}

		poly, err := ParsePolygon(wkt.String)
		if err != nil {
			s.logger.Warn("skipping zone with malformed geometry", "zone_id", id, "error", err)
			skipped++
			continue
		}
		if !poly.Enclosing() {
			s.logger.Debug("skipping zone without polygon geometry", "zone_id", id)
			skipped++
			continue
		}

		zones = append(zones, types.Zone{ID: id, Polygon: poly})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}

	s.logger.Debug("zones loaded", "count", len(zones), "skipped", skipped)
	return zones, nil
}

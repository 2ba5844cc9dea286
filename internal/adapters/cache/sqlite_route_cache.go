package cache

import (
	"context"
	"database/sql"
	"delivery-trajectory-service/internal/domain"
	"errors"
	"fmt"
	"strings"
)

// SQLite backed store for planned route paths.
// Keys are expected to come from domain.RouteKey.
type SqliteRouteCache struct {
	DB *sql.DB
}

func NewSqliteRouteCache(db *sql.DB) *SqliteRouteCache {
	return &SqliteRouteCache{DB: db}
}

// Fetch the cached path for one origin|destination key.
func (s *SqliteRouteCache) GetRoute(ctx context.Context, key string) (domain.Path, bool, error) {
	if s.DB == nil {
		return nil, false, errors.New("route cache: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get route cache: key must not be empty")
	}

	q := `
	SELECT 
        path_json
    FROM route_cache
    WHERE route_key = ?;
	`

	var raw string
	if err := s.DB.QueryRowContext(ctx, q, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	path, err := decodePath(raw)
	if err != nil {
		return nil, false, fmt.Errorf("get route cache key=%q: %w", key, err)
	}

	return path, true, nil
}

// Store a planned path, replacing any previous entry for the key.
func (s *SqliteRouteCache) PutRoute(ctx context.Context, key string, path domain.Path) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert route cache: key must not be empty")
	}

	raw, err := encodePath(path)
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO route_cache (
        route_key,
        path_json,
        point_count
    )
    VALUES (?, ?, ?);
	`, key, raw, len(path))
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	return nil
}

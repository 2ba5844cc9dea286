package cache

import (
	"context"
	"database/sql"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/platform/obs"
	"errors"
	"fmt"
	"strings"
)

// SQLRouteCache is a Postgres-backed store for planned route paths.
type SQLRouteCache struct {
	DB *sql.DB
}

func NewSQLRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db}
}

// Fetch the cached path for one origin|destination key.
func (s *SQLRouteCache) GetRoute(ctx context.Context, key string) (_ domain.Path, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.sql.GetRoute")(&err)

	if s.DB == nil {
		return nil, false, errors.New("route cache: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get route cache: key must not be empty")
	}

	q := `
	SELECT path_json
    FROM route_cache
    WHERE route_key = $1;
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
func (s *SQLRouteCache) PutRoute(ctx context.Context, key string, path domain.Path) error {
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
	INSERT INTO route_cache (route_key, path_json, point_count)
    VALUES ($1, $2, $3)
	ON CONFLICT (route_key) DO UPDATE
	SET path_json = EXCLUDED.path_json,
		point_count = EXCLUDED.point_count;
	`, key, raw, len(path))
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	return nil
}

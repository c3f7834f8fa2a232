package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

// ResourceRepo handles resource year persistence
type ResourceRepo struct {
	client *Client
}

// NewResourceRepo creates a new resource repository
func NewResourceRepo(client *Client) *ResourceRepo {
	return &ResourceRepo{client: client}
}

// Save stores every stream of a series under a site name, replacing any
// earlier data for the site
func (r *ResourceRepo) Save(ctx context.Context, site string, series *model.ResourceSeries) error {
	if err := series.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid series: %w", err)
	}

	// deleted rows are committed first, duckdb rejects re-inserting a key
	// deleted in the same transaction
	if err := r.client.Exec(ctx, "DELETE FROM resource_hours WHERE site = ?", site); err != nil {
		return fmt.Errorf("failed to clear resource hours: %w", err)
	}

	return r.client.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO resource_sites (site, steps_per_hour) VALUES (?, ?)
			ON CONFLICT (site) DO UPDATE SET steps_per_hour = EXCLUDED.steps_per_hour, loaded_at = CURRENT_TIMESTAMP
		`, site, series.StepsPerHour); err != nil {
			return fmt.Errorf("failed to insert site: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO resource_hours (site, stream, step, value) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, stream := range model.Streams {
			values, ok := series.Get(stream)
			if !ok {
				continue
			}
			for step, v := range values {
				if _, err := stmt.ExecContext(ctx, site, string(stream), step, v); err != nil {
					return fmt.Errorf("failed to insert %s step %d: %w", stream, step, err)
				}
			}
		}
		return nil
	})
}

// Load reads the series stored for a site
func (r *ResourceRepo) Load(ctx context.Context, site string) (*model.ResourceSeries, error) {
	var sph int
	row := r.client.QueryRow(ctx, "SELECT steps_per_hour FROM resource_sites WHERE site = ?", site)
	if err := row.Scan(&sph); err != nil {
		return nil, fmt.Errorf("failed to query site %s: %w", site, err)
	}

	rows, err := r.client.Query(ctx, `
		SELECT stream, step, value
		FROM resource_hours
		WHERE site = ?
		ORDER BY stream, step ASC
	`, site)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource hours: %w", err)
	}
	defer rows.Close()

	series := model.NewResourceSeries(sph)
	for rows.Next() {
		var stream string
		var step int
		var v float64
		if err := rows.Scan(&stream, &step, &v); err != nil {
			return nil, fmt.Errorf("failed to scan resource hour: %w", err)
		}
		values, ok := series.Get(model.Stream(stream))
		if !ok {
			values = make([]float64, series.Steps())
			series.Set(model.Stream(stream), values)
		}
		if step < 0 || step >= len(values) {
			return nil, fmt.Errorf("stream %s step %d out of range", stream, step)
		}
		values[step] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

// Sites lists the stored sites
func (r *ResourceRepo) Sites(ctx context.Context) ([]string, error) {
	rows, err := r.client.Query(ctx, "SELECT site FROM resource_sites ORDER BY site")
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

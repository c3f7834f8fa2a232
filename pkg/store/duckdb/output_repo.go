package duckdb

import (
	"context"
	"database/sql"
	"fmt"
)

// OutputRepo handles simulator results and reconstructed annual series
type OutputRepo struct {
	client *Client
}

// NewOutputRepo creates a new output repository
func NewOutputRepo(client *Client) *OutputRepo {
	return &OutputRepo{client: client}
}

// insertSeries replaces the rows selected by where and inserts values
func (r *OutputRepo) insertSeries(ctx context.Context, table, where string, keys []interface{}, values []float64) error {
	if err := r.client.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), keys...); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	return r.client.inTx(ctx, func(tx *sql.Tx) error {
		placeholders := ""
		for range keys {
			placeholders += "?, "
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s?, ?)", table, placeholders))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for step, v := range values {
			args := append(append([]interface{}{}, keys...), step, v)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert step %d: %w", step, err)
			}
		}
		return nil
	})
}

// SaveClusterResult stores the production-day output of one exemplar
func (r *OutputRepo) SaveClusterResult(ctx context.Context, runID string, clusterID int, name string, values []float64) error {
	return r.insertSeries(ctx, "cluster_results", "run_id = ? AND cluster_id = ? AND name = ?",
		[]interface{}{runID, clusterID, name}, values)
}

// ClusterResults returns the stored exemplar outputs of a run by cluster id
func (r *OutputRepo) ClusterResults(ctx context.Context, runID, name string) (map[int][]float64, error) {
	rows, err := r.client.Query(ctx, `
		SELECT cluster_id, value
		FROM cluster_results
		WHERE run_id = ? AND name = ?
		ORDER BY cluster_id, step ASC
	`, runID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster results: %w", err)
	}
	defer rows.Close()

	results := make(map[int][]float64)
	for rows.Next() {
		var id int
		var v float64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, fmt.Errorf("failed to scan cluster result: %w", err)
		}
		results[id] = append(results[id], v)
	}
	return results, rows.Err()
}

// ConcatResults joins the outputs of clusters 0..n-1 in cluster order. It
// fails if any cluster is missing or the outputs differ in length.
func ConcatResults(results map[int][]float64, n int) ([]float64, error) {
	var out []float64
	for id := 0; id < n; id++ {
		values, ok := results[id]
		if !ok {
			return nil, fmt.Errorf("missing result for cluster %d", id)
		}
		if id > 0 && len(values) != len(results[0]) {
			return nil, fmt.Errorf("cluster %d has %d values, cluster 0 has %d", id, len(values), len(results[0]))
		}
		out = append(out, values...)
	}
	return out, nil
}

// SaveAnnual stores a reconstructed series
func (r *OutputRepo) SaveAnnual(ctx context.Context, runID, name string, values []float64) error {
	return r.insertSeries(ctx, "annual_outputs", "run_id = ? AND name = ?",
		[]interface{}{runID, name}, values)
}

// Annual returns a reconstructed series
func (r *OutputRepo) Annual(ctx context.Context, runID, name string) ([]float64, error) {
	rows, err := r.client.Query(ctx, `
		SELECT value
		FROM annual_outputs
		WHERE run_id = ? AND name = ?
		ORDER BY step ASC
	`, runID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query annual output: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan annual output: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

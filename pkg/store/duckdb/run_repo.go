package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jaredthomas68/HOPP/pkg/clustering"
	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
)

// runNamespace scopes run ids generated from configurations
var runNamespace = uuid.MustParse("5f0b6a2e-8c1d-4e47-9a39-1f4d2b7c9e10")

// Run is one stored clustering run
type Run struct {
	RunID       string
	Name        string
	Site        string
	Config      clustering.Config
	Descriptors []feature.Descriptor
	Clusters    model.ClusterSet
	Periods     []model.Period
	Windows     []model.SimulationWindow
	CreatedAt   time.Time
}

// RunID derives a stable run id from the site and configuration, so the
// same analysis always maps to the same id
func RunID(site string, cfg clustering.Config) (string, error) {
	raw, err := json.Marshal(struct {
		Site   string            `json:"site"`
		Config clustering.Config `json:"config"`
	}{site, cfg})
	if err != nil {
		return "", fmt.Errorf("failed to encode run config: %w", err)
	}
	return uuid.NewSHA1(runNamespace, raw).String(), nil
}

// NewRun collects the results of a clustering run for storage
func NewRun(name, site string, c *clustering.Clusterer) (*Run, error) {
	set, err := c.Clusters()
	if err != nil {
		return nil, err
	}
	windows, err := c.SimulationWindows()
	if err != nil {
		return nil, err
	}
	id, err := RunID(site, c.Config())
	if err != nil {
		return nil, err
	}
	return &Run{
		RunID:       id,
		Name:        name,
		Site:        site,
		Config:      c.Config(),
		Descriptors: c.Descriptors(),
		Clusters:    set,
		Periods:     c.Periods(),
		Windows:     windows,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// RunRepo handles clustering run persistence
type RunRepo struct {
	client *Client
}

// NewRunRepo creates a new run repository
func NewRunRepo(client *Client) *RunRepo {
	return &RunRepo{client: client}
}

// Save stores a run with its members and windows, replacing a run with the
// same id
func (r *RunRepo) Save(ctx context.Context, run *Run) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	descJSON, err := json.Marshal(run.Descriptors)
	if err != nil {
		return fmt.Errorf("failed to encode descriptors: %w", err)
	}
	if len(run.Periods) != run.Clusters.Periods() {
		return fmt.Errorf("run has %d periods but %d assignments", len(run.Periods), run.Clusters.Periods())
	}

	for _, table := range []string{"cluster_windows", "cluster_members", "cluster_runs"} {
		if err := r.client.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE run_id = ?", table), run.RunID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return r.client.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cluster_runs (run_id, name, site, config, descriptors, ndays, n_requested, n_cluster, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.RunID, run.Name, run.Site, string(cfgJSON), string(descJSON),
			run.Config.NDays, run.Clusters.Requested, run.Clusters.Len(), run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		members, err := tx.PrepareContext(ctx, `
			INSERT INTO cluster_members (run_id, period_index, start_day, start_hour, end_hour, cluster_id, is_exemplar)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer members.Close()

		for i, p := range run.Periods {
			id := run.Clusters.Assignments[i]
			_, err := members.ExecContext(ctx, run.RunID, p.Index, p.StartDay, p.StartHour, p.EndHour,
				id, run.Clusters.Exemplars[id] == i)
			if err != nil {
				return fmt.Errorf("failed to insert member: %w", err)
			}
		}

		weights := run.Clusters.Weights()
		for _, w := range run.Windows {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cluster_windows (run_id, cluster_id, start_hour, end_hour, wrapped, weight)
				VALUES (?, ?, ?, ?, ?, ?)
			`, run.RunID, w.ClusterID, w.StartHour, w.EndHour, w.Wrapped, weights[w.ClusterID])
			if err != nil {
				return fmt.Errorf("failed to insert window: %w", err)
			}
		}
		return nil
	})
}

// Exists checks if a run exists by id
func (r *RunRepo) Exists(ctx context.Context, runID string) (bool, error) {
	var count int
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM cluster_runs WHERE run_id = ?", runID)
	err := row.Scan(&count)
	return count > 0, err
}

// GetByID retrieves a run with its members and windows
func (r *RunRepo) GetByID(ctx context.Context, runID string) (*Run, error) {
	run := &Run{RunID: runID}
	var cfgJSON, descJSON string
	var nCluster int
	row := r.client.QueryRow(ctx, `
		SELECT name, site, config, descriptors, n_requested, n_cluster, created_at
		FROM cluster_runs
		WHERE run_id = ?
	`, runID)
	if err := row.Scan(&run.Name, &run.Site, &cfgJSON, &descJSON, &run.Clusters.Requested, &nCluster, &run.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := json.Unmarshal([]byte(descJSON), &run.Descriptors); err != nil {
		return nil, fmt.Errorf("failed to decode descriptors: %w", err)
	}

	if err := r.loadMembers(ctx, run, nCluster); err != nil {
		return nil, err
	}
	if err := r.loadWindows(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *RunRepo) loadMembers(ctx context.Context, run *Run, nCluster int) error {
	rows, err := r.client.Query(ctx, `
		SELECT period_index, start_day, start_hour, end_hour, cluster_id, is_exemplar
		FROM cluster_members
		WHERE run_id = ?
		ORDER BY period_index ASC
	`, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	run.Clusters.Count = make([]int, nCluster)
	run.Clusters.Exemplars = make([]int, nCluster)
	for rows.Next() {
		var p model.Period
		var id int
		var exemplar bool
		if err := rows.Scan(&p.Index, &p.StartDay, &p.StartHour, &p.EndHour, &id, &exemplar); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		if id < 0 || id >= nCluster {
			return fmt.Errorf("member %d has cluster %d outside %d clusters", p.Index, id, nCluster)
		}
		run.Periods = append(run.Periods, p)
		run.Clusters.Assignments = append(run.Clusters.Assignments, id)
		run.Clusters.Count[id]++
		if exemplar {
			run.Clusters.Exemplars[id] = p.Index
		}
	}
	return rows.Err()
}

func (r *RunRepo) loadWindows(ctx context.Context, run *Run) error {
	rows, err := r.client.Query(ctx, `
		SELECT cluster_id, start_hour, end_hour, wrapped
		FROM cluster_windows
		WHERE run_id = ?
		ORDER BY cluster_id ASC
	`, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to query windows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w model.SimulationWindow
		if err := rows.Scan(&w.ClusterID, &w.StartHour, &w.EndHour, &w.Wrapped); err != nil {
			return fmt.Errorf("failed to scan window: %w", err)
		}
		run.Windows = append(run.Windows, w)
	}
	return rows.Err()
}

// ListBySite returns the ids of the runs for a site, newest first
func (r *RunRepo) ListBySite(ctx context.Context, site string) ([]string, error) {
	rows, err := r.client.Query(ctx, "SELECT run_id FROM cluster_runs WHERE site = ? ORDER BY created_at DESC", site)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

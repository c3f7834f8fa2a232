package duckdb

import (
	"context"
	"fmt"
)

// CreateResourceSitesTable creates the resource year header table
const CreateResourceSitesTable = `
CREATE TABLE IF NOT EXISTS resource_sites (
    site VARCHAR PRIMARY KEY,
    steps_per_hour INTEGER NOT NULL,
    loaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// CreateResourceHoursTable creates the resource fact table, one row per
// site, stream and time step
const CreateResourceHoursTable = `
CREATE TABLE IF NOT EXISTS resource_hours (
    site VARCHAR NOT NULL,
    stream VARCHAR NOT NULL,
    step INTEGER NOT NULL,
    value DOUBLE NOT NULL,
    PRIMARY KEY (site, stream, step)
);
`

// CreateClusterRunsTable creates the clustering run table
const CreateClusterRunsTable = `
CREATE TABLE IF NOT EXISTS cluster_runs (
    run_id VARCHAR PRIMARY KEY,
    name VARCHAR,
    site VARCHAR NOT NULL,
    config VARCHAR NOT NULL,
    descriptors VARCHAR NOT NULL,
    ndays INTEGER NOT NULL,
    n_requested INTEGER NOT NULL,
    n_cluster INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_cluster_runs_site ON cluster_runs(site);
`

// CreateClusterMembersTable creates the period assignment table
const CreateClusterMembersTable = `
CREATE TABLE IF NOT EXISTS cluster_members (
    run_id VARCHAR NOT NULL,
    period_index INTEGER NOT NULL,
    start_day INTEGER NOT NULL,
    start_hour INTEGER NOT NULL,
    end_hour INTEGER NOT NULL,
    cluster_id INTEGER NOT NULL,
    is_exemplar BOOLEAN NOT NULL,
    PRIMARY KEY (run_id, period_index)
);
`

// CreateClusterWindowsTable creates the simulation window table
const CreateClusterWindowsTable = `
CREATE TABLE IF NOT EXISTS cluster_windows (
    run_id VARCHAR NOT NULL,
    cluster_id INTEGER NOT NULL,
    start_hour INTEGER NOT NULL,
    end_hour INTEGER NOT NULL,
    wrapped BOOLEAN NOT NULL,
    weight DOUBLE NOT NULL,
    PRIMARY KEY (run_id, cluster_id)
);
`

// CreateClusterResultsTable creates the table of simulator output for the
// production days of each exemplar
const CreateClusterResultsTable = `
CREATE TABLE IF NOT EXISTS cluster_results (
    run_id VARCHAR NOT NULL,
    cluster_id INTEGER NOT NULL,
    name VARCHAR NOT NULL,
    step INTEGER NOT NULL,
    value DOUBLE NOT NULL,
    PRIMARY KEY (run_id, cluster_id, name, step)
);
`

// CreateAnnualOutputsTable creates the reconstructed annual series table
const CreateAnnualOutputsTable = `
CREATE TABLE IF NOT EXISTS annual_outputs (
    run_id VARCHAR NOT NULL,
    name VARCHAR NOT NULL,
    step INTEGER NOT NULL,
    value DOUBLE NOT NULL,
    PRIMARY KEY (run_id, name, step)
);
`

// tables in drop order
var tables = []string{
	"annual_outputs", "cluster_results", "cluster_windows",
	"cluster_members", "cluster_runs", "resource_hours", "resource_sites",
}

// InitializeSchema creates all required tables
func InitializeSchema(c *Client) error {
	schemas := []string{
		CreateResourceSitesTable,
		CreateResourceHoursTable,
		CreateClusterRunsTable,
		CreateClusterMembersTable,
		CreateClusterWindowsTable,
		CreateClusterResultsTable,
		CreateAnnualOutputsTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(context.Background(), schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with caution)
func DropAllTables(c *Client) error {
	for _, table := range tables {
		if err := c.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Client wraps a Milvus connection holding period feature vectors
type Client struct {
	conn   client.Client
	addr   string
	nprobe int
}

// Config holds Milvus connection configuration
type Config struct {
	Address  string // e.g. "localhost:19530"
	Username string
	Password string
	NProbe   int // IVF lists scanned per search, 0 for default
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Address: "localhost:19530",
		NProbe:  16,
	}
}

// NewClient connects to Milvus
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	conn, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", cfg.Address, err)
	}

	nprobe := cfg.NProbe
	if nprobe <= 0 {
		nprobe = DefaultConfig().NProbe
	}
	return &Client{conn: conn, addr: cfg.Address, nprobe: nprobe}, nil
}

// Addr returns the server address
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the Milvus connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// HasCollection checks if a collection exists
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	return c.conn.HasCollection(ctx, name)
}

// CreateIndex creates an IVF_FLAT index with Euclidean distance, the metric
// the periods were clustered with
func (c *Client) CreateIndex(ctx context.Context, collectionName, fieldName string, nlist int) error {
	idx, err := entity.NewIndexIvfFlat(entity.L2, nlist)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := c.conn.CreateIndex(ctx, collectionName, fieldName, idx, false); err != nil {
		return fmt.Errorf("failed to create index on %s.%s: %w", collectionName, fieldName, err)
	}
	return nil
}

// LoadCollection loads a collection into memory so it can be searched
func (c *Client) LoadCollection(ctx context.Context, collectionName string) error {
	if err := c.conn.LoadCollection(ctx, collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", collectionName, err)
	}
	return nil
}

// DropCollection drops a collection
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	return c.conn.DropCollection(ctx, collectionName)
}

// DeleteRun removes every period of a run. Primary keys are not unique in
// Milvus, so a run is deleted before it is indexed again.
func (c *Client) DeleteRun(ctx context.Context, collectionName, runID string) error {
	if err := c.conn.Delete(ctx, collectionName, "", RunFilter(runID)); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

// Flush seals inserted segments
func (c *Client) Flush(ctx context.Context, collectionName string) error {
	return c.conn.Flush(ctx, collectionName, false)
}

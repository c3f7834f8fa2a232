package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"gonum.org/v1/gonum/mat"

	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
)

const (
	// DefaultCollectionName is the collection of period feature vectors
	DefaultCollectionName = "period_features"

	fieldKey       = "period_key"
	fieldRunID     = "run_id"
	fieldPeriod    = "period_index"
	fieldStartDay  = "start_day"
	fieldClusterID = "cluster_id"
	fieldExemplar  = "is_exemplar"
	fieldFeatures  = "features"
)

// CollectionConfig holds configuration for creating a collection
type CollectionConfig struct {
	Name      string
	Dimension int // feature vector length of the run
	Shards    int
	NList     int // IVF cluster count of the index
}

// DefaultCollectionConfig returns default collection configuration for
// vectors of the given dimension
func DefaultCollectionConfig(dim int) CollectionConfig {
	return CollectionConfig{
		Name:      DefaultCollectionName,
		Dimension: dim,
		Shards:    2,
		NList:     64,
	}
}

// Schema returns the collection schema
func (cfg CollectionConfig) Schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: cfg.Name,
		Description:    "Per-period resource feature vectors with their cluster",
		Fields: []*entity.Field{
			{
				Name:       fieldKey,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       fieldRunID,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "40"},
			},
			{Name: fieldPeriod, DataType: entity.FieldTypeInt32},
			{Name: fieldStartDay, DataType: entity.FieldTypeInt32},
			{Name: fieldClusterID, DataType: entity.FieldTypeInt32},
			{Name: fieldExemplar, DataType: entity.FieldTypeBool},
			{
				Name:       fieldFeatures,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", cfg.Dimension)},
			},
		},
	}
}

// CreateCollection creates, indexes and loads the collection if it does not
// exist yet
func (c *Client) CreateCollection(ctx context.Context, cfg CollectionConfig) error {
	exists, err := c.HasCollection(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		if err := c.conn.CreateCollection(ctx, cfg.Schema(), int32(cfg.Shards)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		if err := c.CreateIndex(ctx, cfg.Name, fieldFeatures, cfg.NList); err != nil {
			return err
		}
	}
	return c.LoadCollection(ctx, cfg.Name)
}

// PeriodRecord is one period's feature vector
type PeriodRecord struct {
	RunID     string
	Period    int
	StartDay  int
	ClusterID int
	Exemplar  bool
	Features  []float32
}

// Key returns the primary key of the record
func (r PeriodRecord) Key() string {
	return fmt.Sprintf("%s/%d", r.RunID, r.Period)
}

// Records builds one record per period of a clustering run
func Records(runID string, set model.ClusterSet, periods []model.Period, features *mat.Dense) ([]PeriodRecord, error) {
	rows, _ := features.Dims()
	if rows != len(periods) || rows != set.Periods() {
		return nil, fmt.Errorf("%d feature rows for %d periods and %d assignments", rows, len(periods), set.Periods())
	}
	records := make([]PeriodRecord, len(periods))
	for i, p := range periods {
		id := set.Assignments[i]
		records[i] = PeriodRecord{
			RunID:     runID,
			Period:    p.Index,
			StartDay:  p.StartDay,
			ClusterID: id,
			Exemplar:  set.Exemplars[id] == i,
			Features:  feature.ToFloat32(features.RawRowView(i)),
		}
	}
	return records, nil
}

// columns converts records to insert columns
func columns(records []PeriodRecord) []entity.Column {
	n := len(records)
	keys := make([]string, n)
	runIDs := make([]string, n)
	periods := make([]int32, n)
	days := make([]int32, n)
	clusters := make([]int32, n)
	exemplars := make([]bool, n)
	vectors := make([][]float32, n)
	for i, r := range records {
		keys[i] = r.Key()
		runIDs[i] = r.RunID
		periods[i] = int32(r.Period)
		days[i] = int32(r.StartDay)
		clusters[i] = int32(r.ClusterID)
		exemplars[i] = r.Exemplar
		vectors[i] = r.Features
	}

	return []entity.Column{
		entity.NewColumnVarChar(fieldKey, keys),
		entity.NewColumnVarChar(fieldRunID, runIDs),
		entity.NewColumnInt32(fieldPeriod, periods),
		entity.NewColumnInt32(fieldStartDay, days),
		entity.NewColumnInt32(fieldClusterID, clusters),
		entity.NewColumnBool(fieldExemplar, exemplars),
		entity.NewColumnFloatVector(fieldFeatures, len(vectors[0]), vectors),
	}
}

// InsertBatch inserts period records
func (c *Client) InsertBatch(ctx context.Context, collectionName string, records []PeriodRecord) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := c.conn.Insert(ctx, collectionName, "", columns(records)...); err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// SearchResult is one stored period close to the query vector
type SearchResult struct {
	RunID     string
	Period    int
	StartDay  int
	ClusterID int
	Exemplar  bool
	Distance  float32 // squared Euclidean distance
}

// RunFilter restricts a search to one run
func RunFilter(runID string) string {
	return fmt.Sprintf("%s == \"%s\"", fieldRunID, runID)
}

// Search returns the topK periods closest to vec
func (c *Client) Search(ctx context.Context, collectionName string, vec []float32, filter string, topK int) ([]SearchResult, error) {
	sp, err := entity.NewIndexIvfFlatSearchParam(c.nprobe)
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	outputFields := []string{fieldRunID, fieldPeriod, fieldStartDay, fieldClusterID, fieldExemplar}
	results, err := c.conn.Search(
		ctx,
		collectionName,
		nil, // partitions
		filter,
		outputFields,
		[]entity.Vector{entity.FloatVector(vec)},
		fieldFeatures,
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return parseResults(results[0].ResultCount, results[0].Scores, results[0].Fields), nil
}

// parseResults reads search hits from the returned columns
func parseResults(count int, scores []float32, fields []entity.Column) []SearchResult {
	out := make([]SearchResult, count)
	for i := range out {
		out[i].Distance = scores[i]
		for _, field := range fields {
			switch col := field.(type) {
			case *entity.ColumnVarChar:
				if col.Name() == fieldRunID {
					out[i].RunID, _ = col.ValueByIdx(i)
				}
			case *entity.ColumnInt32:
				v, _ := col.ValueByIdx(i)
				switch col.Name() {
				case fieldPeriod:
					out[i].Period = int(v)
				case fieldStartDay:
					out[i].StartDay = int(v)
				case fieldClusterID:
					out[i].ClusterID = int(v)
				}
			case *entity.ColumnBool:
				if col.Name() == fieldExemplar {
					out[i].Exemplar, _ = col.ValueByIdx(i)
				}
			}
		}
	}
	return out
}

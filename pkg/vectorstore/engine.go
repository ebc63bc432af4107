package vectorstore

import "context"

// Record is one embedded entry inside a named collection.
type Record struct {
	ID        string                 `json:"id"`
	Document  string                 `json:"document"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// QueryResult is a record paired with its cosine distance to the query vector.
type QueryResult struct {
	Record
	Distance float64 `json:"distance"`
}

// Engine is the nearest-neighbour backend behind the store facade. Filters
// are metadata equality maps; a "$and" key carries a list of such maps that
// must all match.
type Engine interface {
	Add(ctx context.Context, collection string, records []Record) error
	Get(ctx context.Context, collection, id string) (*Record, error)
	List(ctx context.Context, collection string) ([]Record, error)
	Query(ctx context.Context, collection string, vector []float32, limit int, filter map[string]interface{}) ([]QueryResult, error)
	Clear(ctx context.Context, collection string) error
}

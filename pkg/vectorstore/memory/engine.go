package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"course-assistant-be/pkg/vectorstore"
)

// Engine is an embedded brute-force cosine index. When constructed with a
// snapshot path it loads existing records on open and rewrites the snapshot
// after every mutation.
type Engine struct {
	mu          sync.RWMutex
	collections map[string]map[string]vectorstore.Record
	path        string
}

var _ vectorstore.Engine = &Engine{}

func NewEngine(path string) (*Engine, error) {
	e := &Engine{
		collections: make(map[string]map[string]vectorstore.Record),
		path:        path,
	}
	if path != "" {
		if err := e.load(); err != nil {
			return nil, fmt.Errorf("load vector snapshot: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) Add(ctx context.Context, collection string, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	col := e.collections[collection]
	if col == nil {
		col = make(map[string]vectorstore.Record)
		e.collections[collection] = col
	}
	for _, record := range records {
		col[record.ID] = record
	}

	return e.persistLocked()
}

func (e *Engine) Get(ctx context.Context, collection, id string) (*vectorstore.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	record, ok := e.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (e *Engine) List(ctx context.Context, collection string) ([]vectorstore.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	col := e.collections[collection]
	records := make([]vectorstore.Record, 0, len(col))
	for _, record := range col {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (e *Engine) Query(ctx context.Context, collection string, vector []float32, limit int, filter map[string]interface{}) ([]vectorstore.QueryResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []vectorstore.QueryResult
	for _, record := range e.collections[collection] {
		if !matchesFilter(record.Metadata, filter) {
			continue
		}
		similarity, err := cosineSimilarity(vector, record.Embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, vectorstore.QueryResult{
			Record:   record,
			Distance: 1 - similarity,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) Clear(ctx context.Context, collection string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.collections[collection] = make(map[string]vectorstore.Record)
	return e.persistLocked()
}

func matchesFilter(metadata, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}

	if clauses, ok := filter["$and"].([]map[string]interface{}); ok {
		for _, clause := range clauses {
			if !matchesFilter(metadata, clause) {
				return false
			}
		}
		return true
	}

	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares metadata values numerically where possible; JSON
// snapshot reloads turn ints into float64.
func valuesEqual(got, want interface{}) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok && wok {
		return gf == wf
	}
	return got == want
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

type snapshot struct {
	Collections map[string][]vectorstore.Record `json:"collections"`
}

func (e *Engine) load() error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	for collection, records := range snap.Collections {
		col := make(map[string]vectorstore.Record, len(records))
		for _, record := range records {
			col[record.ID] = record
		}
		e.collections[collection] = col
	}
	return nil
}

func (e *Engine) persistLocked() error {
	if e.path == "" {
		return nil
	}

	snap := snapshot{Collections: make(map[string][]vectorstore.Record)}
	for collection, col := range e.collections {
		records := make([]vectorstore.Record, 0, len(col))
		for _, record := range col {
			records = append(records, record)
		}
		sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
		snap.Collections[collection] = records
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(e.path, data, 0644)
}

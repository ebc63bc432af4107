package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-assistant-be/pkg/vectorstore"
)

// VectorRecord is the storage model for both logical collections. Metadata
// lives in a JSON column so the filter shape stays schema-free.
type VectorRecord struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Collection string          `gorm:"index:idx_vector_records_key,unique;not null"`
	RecordId   string          `gorm:"index:idx_vector_records_key,unique;not null"`
	Document   string          `gorm:"type:text"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)"`
	Metadata   datatypes.JSON
	CreatedAt  time.Time
}

func (VectorRecord) TableName() string {
	return "vector_records"
}

// Engine stores embeddings in Postgres and ranks by pgvector cosine
// distance.
type Engine struct {
	db *gorm.DB
}

var _ vectorstore.Engine = &Engine{}

func NewEngine(db *gorm.DB) (*Engine, error) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("enable pgvector extension: %w", err)
	}
	if err := db.AutoMigrate(&VectorRecord{}); err != nil {
		return nil, fmt.Errorf("migrate vector records: %w", err)
	}
	return &Engine{db: db}, nil
}

func (e *Engine) Add(ctx context.Context, collection string, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]*VectorRecord, 0, len(records))
	for _, record := range records {
		metadata, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("serialize metadata: %w", err)
		}
		models = append(models, &VectorRecord{
			Id:         uuid.New(),
			Collection: collection,
			RecordId:   record.ID,
			Document:   record.Document,
			Embedding:  pgvector.NewVector(record.Embedding),
			Metadata:   datatypes.JSON(metadata),
			CreatedAt:  time.Now(),
		})
	}

	return e.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "embedding", "metadata"}),
		}).
		Create(models).Error
}

func (e *Engine) Get(ctx context.Context, collection, id string) (*vectorstore.Record, error) {
	var m VectorRecord
	err := e.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	record, err := toRecord(&m)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (e *Engine) List(ctx context.Context, collection string) ([]vectorstore.Record, error) {
	var models []*VectorRecord
	err := e.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("record_id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]vectorstore.Record, 0, len(models))
	for _, m := range models {
		record, err := toRecord(m)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func (e *Engine) Query(ctx context.Context, collection string, vector []float32, limit int, filter map[string]interface{}) ([]vectorstore.QueryResult, error) {
	if limit <= 0 {
		limit = 5
	}

	type scored struct {
		VectorRecord
		Distance float64
	}
	var rows []scored

	queryVector := pgvector.NewVector(vector)
	query := e.db.WithContext(ctx).
		Table("vector_records").
		Select("vector_records.*, embedding <=> ? AS distance", queryVector).
		Where("collection = ?", collection)

	query, err := applyFilter(query, filter)
	if err != nil {
		return nil, err
	}

	err = query.Order("distance").Limit(limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]vectorstore.QueryResult, 0, len(rows))
	for i := range rows {
		record, err := toRecord(&rows[i].VectorRecord)
		if err != nil {
			return nil, err
		}
		results = append(results, vectorstore.QueryResult{
			Record:   *record,
			Distance: rows[i].Distance,
		})
	}
	return results, nil
}

func (e *Engine) Clear(ctx context.Context, collection string) error {
	return e.db.WithContext(ctx).
		Where("collection = ?", collection).
		Delete(&VectorRecord{}).Error
}

func applyFilter(query *gorm.DB, filter map[string]interface{}) (*gorm.DB, error) {
	if len(filter) == 0 {
		return query, nil
	}

	if clauses, ok := filter["$and"].([]map[string]interface{}); ok {
		var err error
		for _, c := range clauses {
			query, err = applyFilter(query, c)
			if err != nil {
				return nil, err
			}
		}
		return query, nil
	}

	for key, value := range filter {
		switch v := value.(type) {
		case string:
			query = query.Where("metadata ->> ? = ?", key, v)
		case int:
			query = query.Where("(metadata ->> ?)::numeric = ?", key, v)
		case int64:
			query = query.Where("(metadata ->> ?)::numeric = ?", key, v)
		case float64:
			query = query.Where("(metadata ->> ?)::numeric = ?", key, v)
		default:
			return nil, fmt.Errorf("unsupported filter value for %q", key)
		}
	}
	return query, nil
}

func toRecord(m *VectorRecord) (*vectorstore.Record, error) {
	var metadata map[string]interface{}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("deserialize metadata: %w", err)
		}
	}
	return &vectorstore.Record{
		ID:        m.RecordId,
		Document:  m.Document,
		Embedding: m.Embedding.Slice(),
		Metadata:  metadata,
	}, nil
}

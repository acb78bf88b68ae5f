package vectorstore

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"ragcore/internal/config"
	"ragcore/internal/helper"
	"ragcore/internal/models"
)

// ChromemStore is the embedded chromem-go backend. One chromem
// collection per user, cosine similarity, metadata equality filters.
type ChromemStore struct {
	db     *chromem.DB
	prefix string
}

var _ Store = (*ChromemStore)(nil)

func NewChromemStore(cfg *config.VectorStoreConfig) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
	}

	return &ChromemStore{
		db:     db,
		prefix: cfg.CollectionPrefix,
	}, nil
}

func (s *ChromemStore) CollectionName(userID string) string {
	return collectionName(s.prefix, userID)
}

func (s *ChromemStore) EnsureCollection(ctx context.Context, userID string) (string, error) {
	name := s.CollectionName(userID)

	// GetOrCreateCollection tolerates concurrent first use.
	_, err := s.db.GetOrCreateCollection(name, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create/get collection: %w", err)
	}
	return name, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, userID string, records []models.VectorRecord) (int, error) {
	name, err := s.EnsureCollection(ctx, userID)
	if err != nil {
		return 0, err
	}
	collection := s.db.GetCollection(name, nil)
	if collection == nil {
		return 0, models.ErrStoreUnavailable
	}

	docs := make([]chromem.Document, 0, len(records))
	for _, record := range records {
		id := record.ID
		if id == "" {
			id, err = helper.GenerateToken()
			if err != nil {
				return 0, err
			}
		}

		// Chunk text lives in the document content; everything else in
		// the metadata map.
		metadata := make(map[string]string, len(record.Payload))
		content := ""
		for k, v := range record.Payload {
			if k == models.PayloadText {
				content = v
				continue
			}
			metadata[k] = v
		}

		docs = append(docs, chromem.Document{
			ID:        id,
			Metadata:  metadata,
			Embedding: record.Vector,
			Content:   content,
		})
	}

	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents: %w", err)
	}

	log.Debug().
		Str("collection", name).
		Int("count", len(docs)).
		Msg("Upserted vectors")

	return len(docs), nil
}

func (s *ChromemStore) Search(ctx context.Context, userID string, queryVector []float32, limit int, scoreThreshold float32, filter map[string]string) ([]models.SearchHit, error) {
	collection := s.db.GetCollection(s.CollectionName(userID), nil)
	if collection == nil {
		return nil, nil
	}

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem rejects queries asking for more results than stored.
	if limit > count {
		limit = count
	}

	results, err := collection.QueryEmbedding(ctx, queryVector, limit, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(results))
	for _, result := range results {
		if result.Similarity < scoreThreshold {
			continue
		}
		payload := make(map[string]string, len(result.Metadata)+1)
		for k, v := range result.Metadata {
			payload[k] = v
		}
		payload[models.PayloadText] = result.Content

		hits = append(hits, models.SearchHit{
			ID:      result.ID,
			Score:   result.Similarity,
			Payload: payload,
		})
	}

	return hits, nil
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	collection := s.db.GetCollection(s.CollectionName(userID), nil)
	if collection == nil {
		return nil
	}

	where := map[string]string{models.PayloadDocumentID: documentID}
	if err := collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete document vectors: %w", err)
	}
	return nil
}

func (s *ChromemStore) DeleteCollection(ctx context.Context, userID string) (bool, error) {
	name := s.CollectionName(userID)
	if s.db.GetCollection(name, nil) == nil {
		return false, nil
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return false, fmt.Errorf("failed to drop collection: %w", err)
	}
	return true, nil
}

func (s *ChromemStore) Info(ctx context.Context, userID string) (*models.CollectionInfo, error) {
	name := s.CollectionName(userID)
	collection := s.db.GetCollection(name, nil)
	if collection == nil {
		return nil, nil
	}

	return &models.CollectionInfo{
		Name:        name,
		PointsCount: collection.Count(),
		Status:      "green",
	}, nil
}

func (s *ChromemStore) HealthCheck(ctx context.Context) bool {
	return s.db != nil
}

package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"ragcore/internal/config"
	"ragcore/internal/helper"
	"ragcore/internal/models"
)

// pgPoint is one stored vector in the shared rag_points table. The
// collection column carries the per-user isolation; embeddings are
// written as pgvector literals.
type pgPoint struct {
	bun.BaseModel `bun:"table:rag_points,alias:p"`

	ID         string            `bun:"id,pk"`
	Collection string            `bun:"collection,pk"`
	Embedding  string            `bun:"embedding,type:vector"`
	Payload    map[string]string `bun:"payload,type:jsonb"`
	Score      float32           `bun:"score,scanonly"`
}

// PGStore is the Postgres/pgvector backend.
type PGStore struct {
	db        *bun.DB
	prefix    string
	dimension int
}

var _ Store = (*PGStore)(nil)

// Every outbound database call is bounded; connectivity failures must
// surface as errors, not hangs.
const pgOpTimeout = 30 * time.Second

func opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, pgOpTimeout)
}

func NewPGStore(cfg *config.VectorStoreConfig, dimension int) (*PGStore, error) {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "sslmode=") {
		dsn += "?sslmode=disable"
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithPassword(cfg.Password),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(cfg.Debug)))

	return &PGStore{
		db:        db,
		prefix:    cfg.CollectionPrefix,
		dimension: dimension,
	}, nil
}

func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) CollectionName(userID string) string {
	return collectionName(s.prefix, userID)
}

// EnsureCollection creates the backing table on first use. The IF NOT
// EXISTS forms keep concurrent first writes race-free.
func (s *PGStore) EnsureCollection(ctx context.Context, userID string) (string, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return "", fmt.Errorf("failed to enable pgvector: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_points (
		id text NOT NULL,
		collection text NOT NULL,
		embedding vector(%d),
		payload jsonb,
		PRIMARY KEY (collection, id)
	)`, s.dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return "", fmt.Errorf("failed to create points table: %w", err)
	}

	return s.CollectionName(userID), nil
}

func (s *PGStore) Upsert(ctx context.Context, userID string, records []models.VectorRecord) (int, error) {
	name, err := s.EnsureCollection(ctx, userID)
	if err != nil {
		return 0, err
	}

	points := make([]pgPoint, 0, len(records))
	for _, record := range records {
		id := record.ID
		if id == "" {
			id, err = helper.GenerateToken()
			if err != nil {
				return 0, err
			}
		}
		points = append(points, pgPoint{
			ID:         id,
			Collection: name,
			Embedding:  vectorLiteral(record.Vector),
			Payload:    record.Payload,
		})
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err = s.db.NewInsert().
		Model(&points).
		On("CONFLICT (collection, id) DO UPDATE").
		Set("embedding = EXCLUDED.embedding").
		Set("payload = EXCLUDED.payload").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	log.Debug().
		Str("collection", name).
		Int("count", len(points)).
		Msg("Upserted vectors")

	return len(points), nil
}

func (s *PGStore) Search(ctx context.Context, userID string, queryVector []float32, limit int, scoreThreshold float32, filter map[string]string) ([]models.SearchHit, error) {
	name := s.CollectionName(userID)
	literal := vectorLiteral(queryVector)

	ctx, cancel := opCtx(ctx)
	defer cancel()

	var points []pgPoint
	q := s.db.NewSelect().
		Model(&points).
		Column("id", "payload").
		ColumnExpr("1 - (embedding <=> ?::vector) AS score", literal).
		Where("collection = ?", name)
	for key, value := range filter {
		q = q.Where("payload->>? = ?", key, value)
	}
	err := q.
		OrderExpr("embedding <=> ?::vector", literal).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		// Missing table means no ingestion has happened yet.
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(points))
	for _, point := range points {
		if point.Score < scoreThreshold {
			continue
		}
		hits = append(hits, models.SearchHit{
			ID:      point.ID,
			Score:   point.Score,
			Payload: point.Payload,
		})
	}

	return hits, nil
}

func (s *PGStore) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := s.db.NewDelete().
		Model((*pgPoint)(nil)).
		Where("collection = ?", s.CollectionName(userID)).
		Where("payload->>'document_id' = ?", documentID).
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil
		}
		return fmt.Errorf("failed to delete document vectors: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteCollection(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	result, err := s.db.NewDelete().
		Model((*pgPoint)(nil)).
		Where("collection = ?", s.CollectionName(userID)).
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return false, nil
		}
		return false, fmt.Errorf("failed to drop collection: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (s *PGStore) Info(ctx context.Context, userID string) (*models.CollectionInfo, error) {
	name := s.CollectionName(userID)

	ctx, cancel := opCtx(ctx)
	defer cancel()

	count, err := s.db.NewSelect().
		Model((*pgPoint)(nil)).
		Where("collection = ?", name).
		Count(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection info: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	return &models.CollectionInfo{
		Name:        name,
		PointsCount: count,
		Status:      "green",
	}, nil
}

func (s *PGStore) HealthCheck(ctx context.Context) bool {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		log.Debug().Err(err).Msg("Vector store not reachable")
		return false
	}
	return true
}

// vectorLiteral renders a pgvector input literal, e.g. [0.1,0.2].
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

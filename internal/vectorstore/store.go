package vectorstore

import (
	"context"

	"ragcore/internal/models"
)

// Store owns per-user vector collections: creation on demand, upsert,
// similarity search, filtered delete, and stats. Implementations must
// keep collection naming and payload shape stable, they are the external
// compatibility contract.
type Store interface {
	// CollectionName returns the deterministic collection name for a user.
	CollectionName(userID string) string

	// EnsureCollection creates the user's collection if missing and
	// returns its name. Safe to call concurrently for the same user.
	EnsureCollection(ctx context.Context, userID string) (string, error)

	// Upsert writes records into the user's collection, creating it on
	// first use. Records without an ID get a generated one. Returns the
	// number of records written.
	Upsert(ctx context.Context, userID string, records []models.VectorRecord) (int, error)

	// Search returns hits ordered by descending cosine similarity,
	// restricted to the user's collection. Filter entries are ANDed
	// equality matches on payload fields. A user without a collection
	// gets an empty result, not an error.
	Search(ctx context.Context, userID string, queryVector []float32, limit int, scoreThreshold float32, filter map[string]string) ([]models.SearchHit, error)

	// DeleteByDocument removes every vector tagged with documentID.
	// Deleting an unknown document or repeating the call is a no-op.
	DeleteByDocument(ctx context.Context, userID, documentID string) error

	// DeleteCollection drops the user's collection entirely. Returns
	// false if it did not exist.
	DeleteCollection(ctx context.Context, userID string) (bool, error)

	// Info returns collection stats, or nil if the user has none yet.
	Info(ctx context.Context, userID string) (*models.CollectionInfo, error)

	// HealthCheck reports store reachability, swallowing errors.
	HealthCheck(ctx context.Context) bool
}

const collectionSuffix = "_documents"

func collectionName(prefix, userID string) string {
	return prefix + userID + collectionSuffix
}

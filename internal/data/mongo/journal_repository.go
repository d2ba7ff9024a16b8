// Package mongo provides the MongoDB implementation of the transition
// journal. The journal is an append-only audit trail and never sits on
// the commit path of a state transition.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meridianbank/pix-engine/internal/domain/journal"
)

const (
	// JournalCollectionName is the name of the transition journal collection in MongoDB
	JournalCollectionName = "transition_journal"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) journal.Repository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one transition entry.
func (r *JournalRepository) Append(ctx context.Context, e *journal.Entry) error {
	collection := r.db.Collection(JournalCollectionName)

	_, err := collection.InsertOne(ctx, e)
	if err != nil {
		r.logger.Error("Failed to append journal entry",
			"entity", e.Entity,
			"entity_id", e.EntityID.String(),
			"error", err)
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	return nil
}

// ListByEntityID retrieves the transition history of one entity, oldest
// first, for audit and support tooling.
func (r *JournalRepository) ListByEntityID(ctx context.Context, entityID uuid.UUID) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.M{"at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list journal entries",
			"entity_id", entityID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"entity_id", entityID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

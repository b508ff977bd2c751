package datastore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChunkRepository persists uploaded chunk metadata.
type ChunkRepository struct {
	store *Store
}

func NewChunkRepository(store *Store) *ChunkRepository {
	return &ChunkRepository{store: store}
}

// Create inserts a new chunk row in QUEUED state. The ingest acceptor
// calls it with a nil tx after the blob write has completed, and
// removes the blob if the insert fails.
func (r *ChunkRepository) Create(ctx context.Context, tx *gorm.DB, c *Chunk) error {
	db := tx
	if db == nil {
		db = r.store.DB
	}
	c.Status = ChunkQueued
	return db.WithContext(ctx).Create(c).Error
}

// GetByID fetches a chunk by id, used by the internal fetch endpoint.
func (r *ChunkRepository) GetByID(ctx context.Context, id uuid.UUID) (*Chunk, error) {
	var c Chunk
	err := r.store.DB.WithContext(ctx).First(&c, "chunk_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChunkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

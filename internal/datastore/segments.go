package datastore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SegmentRepository persists VAD-detected speech spans.
type SegmentRepository struct {
	store *Store
}

func NewSegmentRepository(store *Store) *SegmentRepository {
	return &SegmentRepository{store: store}
}

// CreateBatch inserts all segments detected for one chunk in a single
// statement. Returns nil immediately for an empty slice.
func (r *SegmentRepository) CreateBatch(ctx context.Context, tx *gorm.DB, chunkID uuid.UUID, spans [][2]int) error {
	if len(spans) == 0 {
		return nil
	}
	db := tx
	if db == nil {
		db = r.store.DB
	}
	rows := make([]SpeechSegment, len(spans))
	for i, span := range spans {
		rows[i] = SpeechSegment{ChunkID: chunkID, StartMS: span[0], EndMS: span[1]}
	}
	return db.WithContext(ctx).Create(&rows).Error
}

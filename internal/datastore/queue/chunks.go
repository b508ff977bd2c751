package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salescontrol/pipeline/internal/datastore"
)

// ChunkQueue claims QUEUED chunks for W1 and recovers abandoned ones.
type ChunkQueue struct {
	DB *gorm.DB
}

func NewChunkQueue(db *gorm.DB) *ChunkQueue {
	return &ChunkQueue{DB: db}
}

// ClaimBatch selects up to batchSize QUEUED chunks oldest-first,
// locking them with SKIP LOCKED so concurrent workers never contend,
// and transitions them to PROCESSING in the same transaction.
func (q *ChunkQueue) ClaimBatch(ctx context.Context, batchSize int) ([]datastore.Chunk, error) {
	var claimed []datastore.Chunk

	err := q.DB.Transaction(func(tx *gorm.DB) error {
		var rows []datastore.Chunk
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", datastore.ChunkQueued).
			Order("start_ts ASC").
			Limit(batchSize).
			Find(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		now := time.Now().UTC()
		ids := make([]any, len(rows))
		for i, r := range rows {
			ids[i] = r.ChunkID
			rows[i].Status = datastore.ChunkProcessing
			rows[i].ProcessingStartedAt = &now
		}
		if err := tx.WithContext(ctx).Model(&datastore.Chunk{}).
			Where("chunk_id IN ?", ids).
			Updates(map[string]any{
				"status":                 datastore.ChunkProcessing,
				"processing_started_at": now,
			}).Error; err != nil {
			return err
		}
		claimed = rows
		return nil
	})

	return claimed, err
}

// Finish transitions a claimed chunk to its terminal state inside the
// caller's transaction tx. errMsg is ignored for ChunkDone.
func (q *ChunkQueue) Finish(ctx context.Context, tx *gorm.DB, chunkID any, status string, errMsg string) error {
	updates := map[string]any{
		"status":                 status,
		"processing_started_at": nil,
	}
	if status == datastore.ChunkError {
		updates["error_message"] = errMsg
	}
	return tx.WithContext(ctx).Model(&datastore.Chunk{}).
		Where("chunk_id = ?", chunkID).
		Updates(updates).Error
}

// RecoverStuck resets PROCESSING chunks whose processing_started_at is
// older than stuckTimeout back to QUEUED. Returns the count requeued.
func (q *ChunkQueue) RecoverStuck(ctx context.Context, stuckTimeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-stuckTimeout)
	result := q.DB.WithContext(ctx).Model(&datastore.Chunk{}).
		Where("status = ? AND processing_started_at < ?", datastore.ChunkProcessing, cutoff).
		Updates(map[string]any{
			"status":                 datastore.ChunkQueued,
			"processing_started_at": nil,
		})
	return result.RowsAffected, result.Error
}

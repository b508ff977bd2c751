package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salescontrol/pipeline/internal/datastore"
)

// ASRDialogueQueue claims dialogues with asr_status=PENDING for W2.
type ASRDialogueQueue struct {
	DB *gorm.DB
}

func NewASRDialogueQueue(db *gorm.DB) *ASRDialogueQueue {
	return &ASRDialogueQueue{DB: db}
}

// ClaimBatch selects and locks up to batchSize pending dialogues,
// oldest-first, transitioning them to asr_status=PROCESSING.
func (q *ASRDialogueQueue) ClaimBatch(ctx context.Context, batchSize int) ([]datastore.Dialogue, error) {
	var claimed []datastore.Dialogue

	err := q.DB.Transaction(func(tx *gorm.DB) error {
		var rows []datastore.Dialogue
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("asr_status = ?", datastore.DialoguePending).
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
			ids[i] = r.DialogueID
		}
		if err := tx.WithContext(ctx).Model(&datastore.Dialogue{}).
			Where("dialogue_id IN ?", ids).
			Updates(map[string]any{
				"asr_status":                 datastore.DialogueProcessing,
				"asr_processing_started_at": now,
				"asr_started_at":             now,
			}).Error; err != nil {
			return err
		}
		claimed = rows
		return nil
	})

	return claimed, err
}

// RecoverStuck resets dialogues stuck in asr_status=PROCESSING back to
// PENDING. Returns the count requeued.
func (q *ASRDialogueQueue) RecoverStuck(ctx context.Context, stuckTimeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-stuckTimeout)
	result := q.DB.WithContext(ctx).Model(&datastore.Dialogue{}).
		Where("asr_status = ? AND asr_processing_started_at < ?", datastore.DialogueProcessing, cutoff).
		Updates(map[string]any{
			"asr_status":                 datastore.DialoguePending,
			"asr_processing_started_at": nil,
			"asr_started_at":             nil,
		})
	return result.RowsAffected, result.Error
}

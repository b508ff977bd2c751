package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salescontrol/pipeline/internal/datastore"
)

// AnalysisDialogueQueue claims dialogues with analysis_status=PENDING
// and asr_status=DONE for W3.
type AnalysisDialogueQueue struct {
	DB *gorm.DB
}

func NewAnalysisDialogueQueue(db *gorm.DB) *AnalysisDialogueQueue {
	return &AnalysisDialogueQueue{DB: db}
}

// ClaimBatch selects and locks up to batchSize dialogues ready for
// analysis, oldest-first, transitioning them to analysis_status=PROCESSING.
func (q *AnalysisDialogueQueue) ClaimBatch(ctx context.Context, batchSize int) ([]datastore.Dialogue, error) {
	var claimed []datastore.Dialogue

	err := q.DB.Transaction(func(tx *gorm.DB) error {
		var rows []datastore.Dialogue
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("asr_status = ? AND analysis_status = ?", datastore.DialogueDone, datastore.DialoguePending).
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
				"analysis_status":                 datastore.DialogueProcessing,
				"analysis_processing_started_at": now,
				"analysis_started_at":             now,
			}).Error; err != nil {
			return err
		}
		claimed = rows
		return nil
	})

	return claimed, err
}

// RecoverStuck resets dialogues stuck in analysis_status=PROCESSING
// back to PENDING. Returns the count requeued.
func (q *AnalysisDialogueQueue) RecoverStuck(ctx context.Context, stuckTimeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-stuckTimeout)
	result := q.DB.WithContext(ctx).Model(&datastore.Dialogue{}).
		Where("analysis_status = ? AND analysis_processing_started_at < ?", datastore.DialogueProcessing, cutoff).
		Updates(map[string]any{
			"analysis_status":                 datastore.DialoguePending,
			"analysis_processing_started_at": nil,
			"analysis_started_at":             nil,
		})
	return result.RowsAffected, result.Error
}

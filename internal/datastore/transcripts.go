package datastore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranscriptRepository persists the single ASR transcript per dialogue.
type TranscriptRepository struct {
	store *Store
}

func NewTranscriptRepository(store *Store) *TranscriptRepository {
	return &TranscriptRepository{store: store}
}

// Upsert replaces any existing transcript for the dialogue (one row
// per dialogue.
func (r *TranscriptRepository) Upsert(ctx context.Context, tx *gorm.DB, t *Transcript) error {
	if t.TranscriptID == (uuid.UUID{}) {
		t.TranscriptID = uuid.New()
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "dialogue_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"language", "text", "segments_json", "avg_logprob", "no_speech_prob", "created_at",
		}),
	}).Create(t).Error
}

// GetByDialogueID fetches the transcript for a dialogue.
func (r *TranscriptRepository) GetByDialogueID(ctx context.Context, dialogueID uuid.UUID) (*Transcript, error) {
	var t Transcript
	err := r.store.DB.WithContext(ctx).First(&t, "dialogue_id = ?", dialogueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package datastore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalysisRepository persists the single upsell analysis per dialogue.
type AnalysisRepository struct {
	store *Store
}

func NewAnalysisRepository(store *Store) *AnalysisRepository {
	return &AnalysisRepository{store: store}
}

// Upsert replaces any existing analysis for the dialogue.
func (r *AnalysisRepository) Upsert(ctx context.Context, tx *gorm.DB, a *UpsellAnalysis) error {
	if a.AnalysisID == (uuid.UUID{}) {
		a.AnalysisID = uuid.New()
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "dialogue_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"attempted", "quality_score", "categories", "closing_question",
			"customer_reaction", "evidence_quotes", "summary", "confidence", "created_at",
		}),
	}).Create(a).Error
}

// GetByDialogueID fetches the analysis for a dialogue.
func (r *AnalysisRepository) GetByDialogueID(ctx context.Context, dialogueID uuid.UUID) (*UpsellAnalysis, error) {
	var a UpsellAnalysis
	err := r.store.DB.WithContext(ctx).First(&a, "dialogue_id = ?", dialogueID).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

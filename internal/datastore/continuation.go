package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContinuationRepository manages the single per-device row tracking an
// open dialogue's tail, the sole serialization point for cross-chunk
// stitching of a given device.
type ContinuationRepository struct {
	store *Store
}

func NewContinuationRepository(store *Store) *ContinuationRepository {
	return &ContinuationRepository{store: store}
}

// LockForUpdate reads (and locks, inside an open transaction) the
// continuation row for a device, returning a zero-value row with a nil
// OpenDialogueID if none exists yet.
func (r *ContinuationRepository) LockForUpdate(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID) (DeviceContinuation, error) {
	var dc DeviceContinuation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("device_id = ?", deviceID).
		First(&dc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DeviceContinuation{DeviceID: deviceID}, nil
	}
	if err != nil {
		return DeviceContinuation{}, err
	}
	return dc, nil
}

// Upsert writes the continuation state for a device, inserting on
// first use and overwriting on every subsequent chunk completion.
func (r *ContinuationRepository) Upsert(ctx context.Context, tx *gorm.DB, deviceID uuid.UUID, openDialogueID *uuid.UUID, lastSpeechEndTS *time.Time) error {
	dc := DeviceContinuation{
		DeviceID:        deviceID,
		OpenDialogueID:  openDialogueID,
		LastSpeechEndTS: lastSpeechEndTS,
		UpdatedAt:       time.Now().UTC(),
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"open_dialogue_id", "last_speech_end_ts", "updated_at"}),
	}).Create(&dc).Error
}

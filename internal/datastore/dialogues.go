package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DialogueRepository persists dialogues and their constituent segments.
type DialogueRepository struct {
	store *Store
}

func NewDialogueRepository(store *Store) *DialogueRepository {
	return &DialogueRepository{store: store}
}

// Create inserts a new dialogue in asr_state=PENDING, analysis_state=PENDING.
func (r *DialogueRepository) Create(ctx context.Context, tx *gorm.DB, d *Dialogue) error {
	d.ASRState = DialoguePending
	d.AnalysisState = DialoguePending
	if d.Source == "" {
		d.Source = "vad"
	}
	return tx.WithContext(ctx).Create(d).Error
}

// ExtendEndTS updates an existing dialogue's end_ts as segments are
// appended to it during continuation.
func (r *DialogueRepository) ExtendEndTS(ctx context.Context, tx *gorm.DB, dialogueID uuid.UUID, endTS time.Time) error {
	return tx.WithContext(ctx).Model(&Dialogue{}).
		Where("dialogue_id = ?", dialogueID).
		Update("end_ts", endTS).Error
}

// AddSegment inserts a DialogueSegment row, idempotent on the composite
// primary key (dialogue_id, chunk_id, start_ms, end_ms).
func (r *DialogueRepository) AddSegment(ctx context.Context, tx *gorm.DB, seg *DialogueSegment) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(seg).Error
}

// GetByID fetches a dialogue by id.
func (r *DialogueRepository) GetByID(ctx context.Context, id uuid.UUID) (*Dialogue, error) {
	var d Dialogue
	err := r.store.DB.WithContext(ctx).First(&d, "dialogue_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDialogueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SegmentsWithChunks returns every DialogueSegment for a dialogue
// joined to its chunk, ordered by (chunk.start_ts, segment.start_ms) —
// the order W2 concatenates audio in.
type SegmentWithChunk struct {
	ChunkID      uuid.UUID
	StartMS      int
	EndMS        int
	BlobPath     string
	ChunkStartTS time.Time
	SampleRate   int
	Channels     int
}

func (r *DialogueRepository) SegmentsWithChunks(ctx context.Context, dialogueID uuid.UUID) ([]SegmentWithChunk, error) {
	var rows []SegmentWithChunk
	err := r.store.DB.WithContext(ctx).
		Table("dialogue_segments AS ds").
		Select("ds.chunk_id AS chunk_id, ds.start_ms AS start_ms, ds.end_ms AS end_ms, "+
			"ac.blob_path AS blob_path, ac.start_ts AS chunk_start_ts, ac.sample_rate AS sample_rate, ac.channels AS channels").
		Joins("JOIN audio_chunks ac ON ds.chunk_id = ac.chunk_id").
		Where("ds.dialogue_id = ?", dialogueID).
		Order("ac.start_ts ASC, ds.start_ms ASC").
		Scan(&rows).Error
	return rows, err
}

// SegmentsDurationSec returns the summed speech-segment duration for a
// dialogue (the audio actually concatenated by W2), not end_ts-start_ts.
func (r *DialogueRepository) SegmentsDurationSec(ctx context.Context, dialogueID uuid.UUID) (float64, error) {
	var totalMS int64
	err := r.store.DB.WithContext(ctx).
		Table("dialogue_segments").
		Select("COALESCE(SUM(end_ms - start_ms), 0)").
		Where("dialogue_id = ?", dialogueID).
		Scan(&totalMS).Error
	return float64(totalMS) / 1000.0, err
}

// WallClockDurationSec returns end_ts-start_ts in seconds, used by the
// analysis prefilter.
func (r *DialogueRepository) WallClockDurationSec(ctx context.Context, dialogueID uuid.UUID) (float64, error) {
	d, err := r.GetByID(ctx, dialogueID)
	if err != nil {
		return 0, err
	}
	return d.EndTS.Sub(d.StartTS).Seconds(), nil
}

// MarkASRProcessing stamps the ASR processing-start timestamp.
func (r *DialogueRepository) MarkASRProcessing(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	now := time.Now().UTC()
	return tx.WithContext(ctx).Model(&Dialogue{}).Where("dialogue_id = ?", id).Updates(map[string]any{
		"asr_status":                 DialogueProcessing,
		"asr_processing_started_at": now,
		"asr_started_at":             now,
	}).Error
}

// MarkASRDone records a completed ASR pass.
func (r *DialogueRepository) MarkASRDone(ctx context.Context, tx *gorm.DB, id uuid.UUID, model, pass string) error {
	return tx.WithContext(ctx).Model(&Dialogue{}).Where("dialogue_id = ?", id).Updates(map[string]any{
		"asr_status":                 DialogueDone,
		"asr_finished_at":            time.Now().UTC(),
		"asr_model":                  model,
		"asr_pass":                   pass,
		"asr_processing_started_at": nil,
	}).Error
}

// MarkASRError records an ASR failure, truncated to the shared error length.
func (r *DialogueRepository) MarkASRError(ctx context.Context, tx *gorm.DB, id uuid.UUID, message string) error {
	return tx.WithContext(ctx).Model(&Dialogue{}).Where("dialogue_id = ?", id).Updates(map[string]any{
		"asr_status":                 DialogueError,
		"asr_error_message":          message,
		"asr_processing_started_at": nil,
	}).Error
}

// MarkAnalysisProcessing stamps the analysis processing-start timestamp.
func (r *DialogueRepository) MarkAnalysisProcessing(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	now := time.Now().UTC()
	return tx.WithContext(ctx).Model(&Dialogue{}).Where("dialogue_id = ?", id).Updates(map[string]any{
		"analysis_status":                 DialogueProcessing,
		"analysis_processing_started_at": now,
		"analysis_started_at":             now,
	}).Error
}

// MarkAnalysisDone records a completed analysis pass.
func (r *DialogueRepository) MarkAnalysisDone(ctx context.Context, tx *gorm.DB, id uuid.UUID, model, promptVersion string) error {
	return tx.WithContext(ctx).Model(&Dialogue{}).Where("dialogue_id = ?", id).Updates(map[string]any{
		"analysis_status":                 DialogueDone,
		"analysis_finished_at":            time.Now().UTC(),
		"analysis_model":                  model,
		"analysis_prompt_version":         promptVersion,
		"analysis_processing_started_at": nil,
	}).Error
}

// MarkAnalysisSkipped records a prefilter skip.
func (r *DialogueRepository) MarkAnalysisSkipped(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return tx.WithContext(ctx).Model(&Dialogue{}).Where("dialogue_id = ?", id).Updates(map[string]any{
		"analysis_status":                 DialogueSkipped,
		"analysis_finished_at":            time.Now().UTC(),
		"analysis_processing_started_at": nil,
	}).Error
}

// MarkAnalysisError records an analysis failure.
func (r *DialogueRepository) MarkAnalysisError(ctx context.Context, tx *gorm.DB, id uuid.UUID, message string) error {
	return tx.WithContext(ctx).Model(&Dialogue{}).Where("dialogue_id = ?", id).Updates(map[string]any{
		"analysis_status":                 DialogueError,
		"analysis_error_message":          message,
		"analysis_processing_started_at": nil,
	}).Error
}

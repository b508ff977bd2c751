// Package datastore implements the durable store: GORM models for every
// pipeline entity, connection/migration management, and per-entity
// repositories. It is the sole coordination point between the ingest
// acceptor and the three worker cohorts.
package datastore

import (
	"time"

	"github.com/google/uuid"
)

// Chunk state values. Textual and stable: matched by value across
// every worker that reads or writes this column.
const (
	ChunkQueued     = "QUEUED"
	ChunkProcessing = "PROCESSING"
	ChunkDone       = "DONE"
	ChunkError      = "ERROR"
)

// Dialogue ASR/Analysis state values.
const (
	DialoguePending    = "PENDING"
	DialogueProcessing = "PROCESSING"
	DialogueDone       = "DONE"
	DialogueError      = "ERROR"
	DialogueSkipped    = "SKIPPED" // analysis_state only
)

// Device is a registered point-of-sale microphone allowed to upload
// chunks. token_hash is the SHA-256 hex digest of its bearer secret;
// the plaintext secret is never persisted.
type Device struct {
	DeviceID   uuid.UUID `gorm:"column:device_id;type:uuid;primaryKey"`
	PointID    uuid.UUID `gorm:"column:point_id;type:uuid;not null;index:ix_devices_point"`
	RegisterID uuid.UUID `gorm:"column:register_id;type:uuid;not null"`
	TokenHash  string    `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	IsEnabled  bool      `gorm:"column:is_enabled;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	LastSeenAt *time.Time `gorm:"column:last_seen_at"`
}

func (Device) TableName() string { return "devices" }

// Chunk is one uploaded audio file's metadata row. The blob itself
// lives in the blob store at BlobPath; the row exists iff the blob
// exists.
type Chunk struct {
	ChunkID             uuid.UUID  `gorm:"column:chunk_id;type:uuid;primaryKey"`
	DeviceID            uuid.UUID  `gorm:"column:device_id;type:uuid;not null;index:ix_chunks_device_start,priority:1"`
	PointID             uuid.UUID  `gorm:"column:point_id;type:uuid;not null;index:ix_chunks_point_start,priority:1"`
	RegisterID          uuid.UUID  `gorm:"column:register_id;type:uuid;not null"`
	StartTS             time.Time  `gorm:"column:start_ts;not null;index:ix_chunks_point_start,priority:2;index:ix_chunks_device_start,priority:2"`
	EndTS               time.Time  `gorm:"column:end_ts;not null"`
	DurationSec         int        `gorm:"column:duration_sec;not null"`
	Codec               string     `gorm:"column:codec;type:varchar(32);not null"`
	SampleRate          int        `gorm:"column:sample_rate;not null"`
	Channels             int        `gorm:"column:channels;not null"`
	BlobPath            string     `gorm:"column:blob_path;type:text;not null"`
	FileSizeBytes       int64      `gorm:"column:file_size_bytes;not null"`
	Status              string     `gorm:"column:status;type:varchar(32);not null;index"`
	ProcessingStartedAt *time.Time `gorm:"column:processing_started_at"`
	ErrorMessage        *string    `gorm:"column:error_message;type:text"`
	CreatedAt           time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
}

func (Chunk) TableName() string { return "audio_chunks" }

// SpeechSegment is one voiced span detected within a Chunk, in
// milliseconds relative to the chunk's start.
type SpeechSegment struct {
	ID       int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ChunkID  uuid.UUID `gorm:"column:chunk_id;type:uuid;not null;index"`
	StartMS  int       `gorm:"column:start_ms;not null"`
	EndMS    int       `gorm:"column:end_ms;not null"`
}

func (SpeechSegment) TableName() string { return "speech_segments" }

// Dialogue groups contiguous speech that may span multiple chunks.
// asr_state and analysis_state are driven independently by W2 and W3.
type Dialogue struct {
	DialogueID  uuid.UUID `gorm:"column:dialogue_id;type:uuid;primaryKey"`
	DeviceID    uuid.UUID `gorm:"column:device_id;type:uuid;not null;index"`
	PointID     uuid.UUID `gorm:"column:point_id;type:uuid;not null"`
	RegisterID  uuid.UUID `gorm:"column:register_id;type:uuid;not null"`
	StartTS     time.Time `gorm:"column:start_ts;not null;index"`
	EndTS       time.Time `gorm:"column:end_ts;not null"`
	Source      string    `gorm:"column:source;type:varchar(32);not null;default:vad"`

	ASRState                   string     `gorm:"column:asr_status;type:varchar(32);not null;index"`
	ASRProcessingStartedAt     *time.Time `gorm:"column:asr_processing_started_at"`
	ASRStartedAt               *time.Time `gorm:"column:asr_started_at"`
	ASRFinishedAt              *time.Time `gorm:"column:asr_finished_at"`
	ASRModel                   *string    `gorm:"column:asr_model;type:varchar(64)"`
	ASRPass                    *string    `gorm:"column:asr_pass;type:varchar(16)"`
	ASRErrorMessage            *string    `gorm:"column:asr_error_message;type:text"`

	AnalysisState               string     `gorm:"column:analysis_status;type:varchar(32);not null;index"`
	AnalysisProcessingStartedAt *time.Time `gorm:"column:analysis_processing_started_at"`
	AnalysisStartedAt            *time.Time `gorm:"column:analysis_started_at"`
	AnalysisFinishedAt           *time.Time `gorm:"column:analysis_finished_at"`
	AnalysisModel                *string    `gorm:"column:analysis_model;type:varchar(64)"`
	AnalysisPromptVersion        *string    `gorm:"column:analysis_prompt_version;type:varchar(32)"`
	AnalysisErrorMessage         *string    `gorm:"column:analysis_error_message;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (Dialogue) TableName() string { return "dialogues" }

// DialogueSegment links a Dialogue back to the Chunk span it was
// stitched from. Idempotent on the composite key: re-inserting the
// same (dialogue_id, chunk_id, start_ms, end_ms) is a no-op.
type DialogueSegment struct {
	DialogueID uuid.UUID `gorm:"column:dialogue_id;type:uuid;primaryKey"`
	ChunkID    uuid.UUID `gorm:"column:chunk_id;type:uuid;primaryKey"`
	StartMS    int       `gorm:"column:start_ms;primaryKey"`
	EndMS      int       `gorm:"column:end_ms;primaryKey"`
}

func (DialogueSegment) TableName() string { return "dialogue_segments" }

// DeviceContinuation is the single per-device row W1 uses to decide
// whether newly-detected speech extends an already-open dialogue.
type DeviceContinuation struct {
	DeviceID         uuid.UUID  `gorm:"column:device_id;type:uuid;primaryKey"`
	OpenDialogueID   *uuid.UUID `gorm:"column:open_dialogue_id;type:uuid"`
	LastSpeechEndTS  *time.Time `gorm:"column:last_speech_end_ts"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (DeviceContinuation) TableName() string { return "device_dialogue_state" }

// Transcript is the single ASR result persisted per dialogue; a new
// transcode replaces the prior row (ON CONFLICT upsert by dialogue_id).
type Transcript struct {
	TranscriptID uuid.UUID `gorm:"column:transcript_id;type:uuid;primaryKey"`
	DialogueID   uuid.UUID `gorm:"column:dialogue_id;type:uuid;not null;uniqueIndex"`
	Language     string    `gorm:"column:language;type:varchar(16);not null"`
	FullText     string    `gorm:"column:text;type:text;not null"`
	SegmentsJSON []byte    `gorm:"column:segments_json;type:jsonb"`
	AvgLogprob   *float64  `gorm:"column:avg_logprob"`
	NoSpeechProb *float64  `gorm:"column:no_speech_prob"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (Transcript) TableName() string { return "dialogue_transcripts" }

// UpsellAnalysis is the single LLM evaluation persisted per dialogue.
type UpsellAnalysis struct {
	AnalysisID       uuid.UUID `gorm:"column:analysis_id;type:uuid;primaryKey"`
	DialogueID       uuid.UUID `gorm:"column:dialogue_id;type:uuid;not null;uniqueIndex"`
	Attempted        string    `gorm:"column:attempted;type:varchar(16);not null"`
	QualityScore     int       `gorm:"column:quality_score;not null"`
	Categories       []byte    `gorm:"column:categories;type:jsonb"`
	ClosingQuestion  bool      `gorm:"column:closing_question;not null"`
	CustomerReaction string    `gorm:"column:customer_reaction;type:varchar(16);not null"`
	EvidenceQuotes   []byte    `gorm:"column:evidence_quotes;type:jsonb"`
	Summary          string    `gorm:"column:summary;type:varchar(200);not null"`
	Confidence       *float64  `gorm:"column:confidence"`
	CreatedAt        time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (UpsellAnalysis) TableName() string { return "dialogue_upsell_analysis" }

// AllModels lists every model for AutoMigrate/tooling that needs the
// full set, e.g. integration test schema setup.
func AllModels() []any {
	return []any{
		&Device{},
		&Chunk{},
		&SpeechSegment{},
		&Dialogue{},
		&DialogueSegment{},
		&DeviceContinuation{},
		&Transcript{},
		&UpsellAnalysis{},
	}
}

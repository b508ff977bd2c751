package asr

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salescontrol/pipeline/internal/conf"
	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/datastore/queue"
	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

// Processor claims PENDING dialogues, assembles their audio, runs the
// fast/accurate transcription passes, and persists the transcript.
type Processor struct {
	Store       *datastore.Store
	Dialogues   *datastore.DialogueRepository
	Transcripts *datastore.TranscriptRepository
	Queue       *queue.ASRDialogueQueue
	Fetcher     *Fetcher
	Transcriber Transcriber
	FFmpegPath  string
	TmpDir      string
	Settings    conf.ASRSettings
	Metrics     *metrics.Recorder
}

func (p *Processor) log() *slog.Logger { return logging.ForService("asr") }

// ProcessBatch claims and fully processes up to the configured batch
// size of PENDING dialogues, matching the worker.Runner contract.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	dialogues, err := p.Queue.ClaimBatch(ctx, p.Settings.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(dialogues) == 0 {
		return 0, nil
	}
	if p.Metrics != nil {
		p.Metrics.IncClaimed("asr", len(dialogues))
	}

	for _, d := range dialogues {
		start := time.Now()
		if err := p.processOne(ctx, d); err != nil {
			p.log().Error("dialogue ASR failed", "dialogue_id", d.DialogueID, "error", err)
			p.finishError(ctx, d.DialogueID, err)
			if p.Metrics != nil {
				p.Metrics.IncProcessed("asr", "error")
			}
			continue
		}
		if p.Metrics != nil {
			p.Metrics.IncProcessed("asr", "done")
			p.Metrics.ObserveProcessingDuration("asr", time.Since(start).Seconds())
		}
	}
	return len(dialogues), nil
}

// RecoverStuck resets abandoned PROCESSING dialogues back to PENDING.
func (p *Processor) RecoverStuck(ctx context.Context) (int64, error) {
	return p.Queue.RecoverStuck(ctx, p.Settings.StuckTimeout)
}

func (p *Processor) finishError(ctx context.Context, dialogueID uuid.UUID, cause error) {
	msg := pipelineerrors.Truncate(cause.Error(), pipelineerrors.MaxMessageLength)
	_ = p.Store.Transaction(func(tx *gorm.DB) error {
		return p.Dialogues.MarkASRError(ctx, tx, dialogueID, msg)
	})
}

func (p *Processor) processOne(ctx context.Context, d datastore.Dialogue) error {
	segs, err := p.Dialogues.SegmentsWithChunks(ctx, d.DialogueID)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return pipelineerrors.Newf("dialogue %s has no segments", d.DialogueID).
			Component("asr").
			Category(pipelineerrors.CategoryValidation).
			Build()
	}

	seen := make(map[uuid.UUID]bool)
	var chunkIDs []uuid.UUID
	assembleSegs := make([]Segment, 0, len(segs))
	for _, s := range segs {
		path, err := p.Fetcher.Fetch(ctx, s.ChunkID)
		if err != nil {
			return err
		}
		if !seen[s.ChunkID] {
			seen[s.ChunkID] = true
			chunkIDs = append(chunkIDs, s.ChunkID)
		}
		assembleSegs = append(assembleSegs, Segment{
			ChunkID:   s.ChunkID,
			ChunkPath: path,
			StartMS:   s.StartMS,
			EndMS:     s.EndMS,
		})
	}
	defer p.Fetcher.Forget(chunkIDs)

	wavPath, durationSec, err := Assemble(ctx, p.FFmpegPath, p.TmpDir, assembleSegs)
	if err != nil {
		return err
	}
	defer os.Remove(wavPath)

	fastResult, err := p.Transcriber.Transcribe(ctx, wavPath, p.Settings.WhisperModelFast, p.Settings.Language, p.Settings.BeamSize)
	if err != nil {
		return err
	}

	decision := CheckNeedsAccuratePass(fastResult, durationSec, p.Settings.AvgLogprobThreshold, p.Settings.MinTextLengthRatio, p.Settings.MinDurationForAccurate.Seconds())

	finalResult := fastResult
	pass := PassFast
	if decision.NeedsAccuratePass {
		accResult, err := p.Transcriber.Transcribe(ctx, wavPath, p.Settings.WhisperModelAccurate, p.Settings.Language, p.Settings.BeamSize)
		if err != nil {
			return err
		}
		finalResult = accResult
		pass = PassAccurate
	}

	segmentsJSON, err := marshalSegments(finalResult.Segments)
	if err != nil {
		return err
	}

	return p.Store.Transaction(func(tx *gorm.DB) error {
		t := &datastore.Transcript{
			DialogueID:   d.DialogueID,
			Language:     finalResult.Language,
			FullText:     finalResult.Text,
			SegmentsJSON: segmentsJSON,
			AvgLogprob:   finalResult.AvgLogprob,
			NoSpeechProb: finalResult.NoSpeechProb,
		}
		if t.Language == "" {
			t.Language = p.Settings.Language
		}
		if err := p.Transcripts.Upsert(ctx, tx, t); err != nil {
			return err
		}
		return p.Dialogues.MarkASRDone(ctx, tx, d.DialogueID, finalResult.Model, pass)
	})
}

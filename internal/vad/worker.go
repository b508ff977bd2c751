package vad

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salescontrol/pipeline/internal/blobstore"
	"github.com/salescontrol/pipeline/internal/conf"
	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/datastore/queue"
	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

// MinVoicedMS and MinUnvoicedMS are the hysteresis thresholds from
// the speech-segment smoothing state machine.
const (
	MinVoicedMS   = 100
	MinUnvoicedMS = 300
)

// Processor claims QUEUED chunks, runs VAD over their audio, and
// stitches the resulting speech spans into dialogues.
type Processor struct {
	Store         *datastore.Store
	Chunks        *queue.ChunkQueue
	Segments      *datastore.SegmentRepository
	Continuations *datastore.ContinuationRepository
	Dialogues     *datastore.DialogueRepository
	Blobs         *blobstore.Store
	Detector      Detector
	FFmpegPath    string
	Settings      conf.VADSettings
	Metrics       *metrics.Recorder
}

func (p *Processor) log() *slog.Logger { return logging.ForService("vad") }

// ProcessBatch claims up to the configured batch size of QUEUED
// chunks and fully processes each, matching the worker.Runner
// ProcessBatch contract.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	chunks, err := p.Chunks.ClaimBatch(ctx, p.Settings.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if p.Metrics != nil {
		p.Metrics.IncClaimed("vad", len(chunks))
	}

	for _, chunk := range chunks {
		start := time.Now()
		if err := p.processOne(ctx, chunk); err != nil {
			p.log().Error("chunk processing failed", "chunk_id", chunk.ChunkID, "error", err)
			p.finishError(ctx, chunk.ChunkID, err)
			if p.Metrics != nil {
				p.Metrics.IncProcessed("vad", "error")
			}
			continue
		}
		if p.Metrics != nil {
			p.Metrics.IncProcessed("vad", "done")
			p.Metrics.ObserveProcessingDuration("vad", time.Since(start).Seconds())
		}
	}
	return len(chunks), nil
}

// RecoverStuck resets abandoned PROCESSING chunks back to QUEUED.
func (p *Processor) RecoverStuck(ctx context.Context) (int64, error) {
	return p.Chunks.RecoverStuck(ctx, p.Settings.StuckTimeout)
}

func (p *Processor) finishError(ctx context.Context, chunkID uuid.UUID, cause error) {
	msg := pipelineerrors.Truncate(cause.Error(), pipelineerrors.MaxMessageLength)
	_ = p.Store.Transaction(func(tx *gorm.DB) error {
		return p.Chunks.Finish(ctx, tx, chunkID, datastore.ChunkError, msg)
	})
}

func (p *Processor) processOne(ctx context.Context, chunk datastore.Chunk) error {
	audio, err := p.Blobs.Read(ctx, chunk.BlobPath)
	if err != nil {
		return err
	}

	pcm, err := Decode(ctx, p.FFmpegPath, audio)
	if err != nil {
		return err
	}

	spans, err := Detect(p.Detector, pcm, p.Settings.VADFrameMS, p.Settings.VADAggressiveness, MinVoicedMS, MinUnvoicedMS)
	if err != nil {
		return err
	}

	return p.Store.Transaction(func(tx *gorm.DB) error {
		return p.stitchAndFinish(ctx, tx, chunk, spans)
	})
}

func (p *Processor) stitchAndFinish(ctx context.Context, tx *gorm.DB, chunk datastore.Chunk, spans []Span) error {
	if err := p.Segments.CreateBatch(ctx, tx, chunk.ChunkID, spansToPairs(spans)); err != nil {
		return err
	}

	dc, err := p.Continuations.LockForUpdate(ctx, tx, chunk.DeviceID)
	if err != nil {
		return err
	}
	cont := toStitchContinuation(dc)

	abs := ProjectSpans(chunk.StartTS, spans)
	result := Stitch(chunk.EndTS, abs, cont, p.Settings.SilenceGap, p.Settings.MaxDialogue)

	consumed := 0
	var finalDialogueID *uuid.UUID

	for gi, g := range result.Groups {
		n := len(g.Segments)
		relSpans := spans[consumed : consumed+n]
		consumed += n

		var dialogueID uuid.UUID
		if g.IsNew {
			dialogueID = uuid.New()
			d := &datastore.Dialogue{
				DialogueID: dialogueID,
				DeviceID:   chunk.DeviceID,
				PointID:    chunk.PointID,
				RegisterID: chunk.RegisterID,
				StartTS:    g.Start,
				EndTS:      g.End,
				Source:     "vad",
			}
			if err := p.Dialogues.Create(ctx, tx, d); err != nil {
				return err
			}
		} else {
			dialogueID, _ = uuid.Parse(*g.DialogueID)
			if err := p.Dialogues.ExtendEndTS(ctx, tx, dialogueID, g.End); err != nil {
				return err
			}
		}

		for _, s := range relSpans {
			seg := &datastore.DialogueSegment{
				DialogueID: dialogueID,
				ChunkID:    chunk.ChunkID,
				StartMS:    s.StartMS,
				EndMS:      s.EndMS,
			}
			if err := p.Dialogues.AddSegment(ctx, tx, seg); err != nil {
				return err
			}
		}

		if gi == len(result.Groups)-1 {
			id := dialogueID
			finalDialogueID = &id
		}
	}

	var openID *uuid.UUID
	if result.KeepOpen {
		if finalDialogueID != nil {
			openID = finalDialogueID
		} else {
			// No segments this chunk: the dialogue that stays open is
			// whichever one was already open, unchanged.
			openID = dc.OpenDialogueID
		}
	}
	if err := p.Continuations.Upsert(ctx, tx, chunk.DeviceID, openID, result.LastSpeechEnd); err != nil {
		return err
	}

	return p.Chunks.Finish(ctx, tx, chunk.ChunkID, datastore.ChunkDone, "")
}

func spansToPairs(spans []Span) [][2]int {
	pairs := make([][2]int, len(spans))
	for i, s := range spans {
		pairs[i] = [2]int{s.StartMS, s.EndMS}
	}
	return pairs
}

func toStitchContinuation(dc datastore.DeviceContinuation) Continuation {
	var c Continuation
	if dc.OpenDialogueID != nil {
		s := dc.OpenDialogueID.String()
		c.OpenDialogueID = &s
	}
	c.LastSpeechEndTS = dc.LastSpeechEndTS
	return c
}

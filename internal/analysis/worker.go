package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/salescontrol/pipeline/internal/conf"
	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/datastore/queue"
	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

// evaluationConcurrency bounds how many dialogues in a claimed batch
// are sent to the LLM evaluator at once, so a large batch size doesn't
// translate into an unbounded burst of concurrent OpenAI requests.
const evaluationConcurrency = 4

// Evaluator is the LLM call boundary, injected so tests can swap in a
// fake without reaching the network.
type Evaluator interface {
	AnalyzeDialogue(ctx context.Context, transcriptText string, durationSec float64, pointID, registerID string) (LLMCallResult, error)
}

// Processor claims dialogues with a completed transcript, prefilters
// out calls not worth evaluating, and persists the LLM's upsell
// verdict for the rest.
type Processor struct {
	Store       *datastore.Store
	Dialogues   *datastore.DialogueRepository
	Transcripts *datastore.TranscriptRepository
	Analyses    *datastore.AnalysisRepository
	Queue       *queue.AnalysisDialogueQueue
	Evaluator   Evaluator
	Settings    conf.AnalysisSettings
	Metrics     *metrics.Recorder
}

func (p *Processor) log() *slog.Logger { return logging.ForService("analysis") }

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
		p.Metrics.IncClaimed("analysis", len(dialogues))
	}

	sem := semaphore.NewWeighted(evaluationConcurrency)
	var wg sync.WaitGroup
	for _, d := range dialogues {
		if err := sem.Acquire(ctx, 1); err != nil {
			// ctx cancelled; remaining dialogues are picked up by the
			// next claim once their PROCESSING lease expires.
			break
		}
		wg.Add(1)
		go func(d datastore.Dialogue) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			outcome, err := p.processOne(ctx, d)
			if err != nil {
				p.log().Error("dialogue analysis failed", "dialogue_id", d.DialogueID, "error", err)
				p.finishError(ctx, d.DialogueID, err)
				if p.Metrics != nil {
					p.Metrics.IncProcessed("analysis", "error")
				}
				return
			}
			if p.Metrics != nil {
				p.Metrics.IncProcessed("analysis", outcome)
				p.Metrics.ObserveProcessingDuration("analysis", time.Since(start).Seconds())
			}
		}(d)
	}
	wg.Wait()
	return len(dialogues), nil
}

// RecoverStuck resets abandoned PROCESSING dialogues back to PENDING.
func (p *Processor) RecoverStuck(ctx context.Context) (int64, error) {
	return p.Queue.RecoverStuck(ctx, p.Settings.StuckTimeout)
}

func (p *Processor) finishError(ctx context.Context, dialogueID uuid.UUID, cause error) {
	msg := pipelineerrors.Truncate(cause.Error(), pipelineerrors.MaxMessageLength)
	_ = p.Store.Transaction(func(tx *gorm.DB) error {
		return p.Dialogues.MarkAnalysisError(ctx, tx, dialogueID, msg)
	})
}

// processOne returns the outcome label used for the processed-count
// metric: "done" or "skipped".
func (p *Processor) processOne(ctx context.Context, d datastore.Dialogue) (string, error) {
	transcript, err := p.Transcripts.GetByDialogueID(ctx, d.DialogueID)
	if err != nil {
		return "", pipelineerrors.Newf("loading transcript for dialogue %s: %v", d.DialogueID, err).
			Component("analysis").
			Category(pipelineerrors.CategoryValidation).
			Build()
	}

	wallClockSec, err := p.Dialogues.WallClockDurationSec(ctx, d.DialogueID)
	if err != nil {
		return "", err
	}

	prefilter := checkShouldSkip(p.Settings, transcript.FullText, wallClockSec)
	if prefilter.Skip {
		p.log().Info("skipping dialogue analysis", "dialogue_id", d.DialogueID, "reason", prefilter.Reason)
		return "skipped", p.Store.Transaction(func(tx *gorm.DB) error {
			return p.Dialogues.MarkAnalysisSkipped(ctx, tx, d.DialogueID)
		})
	}

	result, err := p.Evaluator.AnalyzeDialogue(ctx, transcript.FullText, wallClockSec, d.PointID.String(), d.RegisterID.String())
	if err != nil {
		return "", pipelineerrors.New(err).
			Component("analysis").
			Category(pipelineerrors.CategoryNetwork).
			Context("dialogue_id", d.DialogueID.String()).
			Build()
	}
	if result.FallbackUsed {
		p.log().Warn("structured output unsupported, used json mode fallback", "dialogue_id", d.DialogueID, "model", result.Model)
	}

	categoriesJSON, err := json.Marshal(result.Analysis.Categories)
	if err != nil {
		return "", err
	}
	var quotesJSON []byte
	if len(result.Analysis.EvidenceQuotes) > 0 {
		quotesJSON, err = json.Marshal(result.Analysis.EvidenceQuotes)
		if err != nil {
			return "", err
		}
	}

	confidence := result.Analysis.Confidence
	return "done", p.Store.Transaction(func(tx *gorm.DB) error {
		a := &datastore.UpsellAnalysis{
			DialogueID:       d.DialogueID,
			Attempted:        result.Analysis.Attempted,
			QualityScore:     result.Analysis.QualityScore,
			Categories:       categoriesJSON,
			ClosingQuestion:  result.Analysis.ClosingQuestion,
			CustomerReaction: result.Analysis.CustomerReaction,
			EvidenceQuotes:   quotesJSON,
			Summary:          result.Analysis.Summary,
			Confidence:       &confidence,
		}
		if err := p.Analyses.Upsert(ctx, tx, a); err != nil {
			return err
		}
		return p.Dialogues.MarkAnalysisDone(ctx, tx, d.DialogueID, result.Model, p.Settings.PromptVersion)
	})
}

package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"call-audit-go/internal/logger"
	"call-audit-go/internal/speech"
	"call-audit-go/internal/store"
	"call-audit-go/internal/types"
)

// ErrNoAudioReference marks a call record missing its recording link.
// A data-completeness error: failed immediately, never retried.
var ErrNoAudioReference = errors.New("call has no audio reference")

// Downloader fetches a recording into a local file.
type Downloader interface {
	DownloadAudio(ctx context.Context, audioURL, dest string) error
}

// Scorer turns a transcript plus sentiment summary into a rubric result.
type Scorer interface {
	ScoreCall(ctx context.Context, transcript string, sentiment types.SentimentSummary) (*types.RubricResult, error)
}

// Processor drives selected calls through download -> speech analysis ->
// scoring -> persistence. Batches run strictly sequentially; one call's
// failure never aborts the batch.
type Processor struct {
	store      store.CallStore
	downloader Downloader
	analyzer   speech.Analyzer
	scorer     Scorer
	tempDir    string
	log        *logger.Logger
}

func New(st store.CallStore, dl Downloader, an speech.Analyzer, sc Scorer, tempDir string, log *logger.Logger) *Processor {
	return &Processor{
		store:      st,
		downloader: dl,
		analyzer:   an,
		scorer:     sc,
		tempDir:    tempDir,
		log:        log,
	}
}

// Process runs one call through the full pipeline and, on success,
// transitions it to PROCESSED. The scoped temp audio file is removed on
// every exit path once it was created. Panics are caught and converted
// to a per-call failure.
func (p *Processor) Process(ctx context.Context, call *types.CallRecord) (err error) {
	log := p.log.WithFields(logrus.Fields{
		"call_id":  call.ID,
		"operator": call.Operator,
		"duration": fmt.Sprintf("%d:%02d", call.Duration/60, call.Duration%60),
	})
	log.Info("processing call")

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("unexpected panic while processing call")
			err = fmt.Errorf("panic while processing call %s: %v", call.ID, r)
		}
	}()

	if call.AudioURL == "" {
		log.Error("no audio reference on record")
		return ErrNoAudioReference
	}

	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	audioPath := filepath.Join(p.tempDir, fmt.Sprintf("call_%s.mp3", call.ID))

	if err := p.downloader.DownloadAudio(ctx, call.AudioURL, audioPath); err != nil {
		log.WithError(err).Error("audio download failed")
		return fmt.Errorf("download audio: %w", err)
	}
	// Exactly one temp file per in-flight call; never leaks across calls.
	defer func() {
		if rmErr := os.Remove(audioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.WithError(rmErr).Warn("failed to remove temp audio file")
		}
	}()

	speechResult, err := p.analyzer.Analyze(ctx, audioPath)
	if err != nil {
		log.WithError(err).Error("speech analysis failed")
		return fmt.Errorf("speech analysis: %w", err)
	}

	result, err := p.scorer.ScoreCall(ctx, speechResult.Transcript, speechResult.Sentiment)
	if err != nil {
		log.WithError(err).Error("scoring failed")
		return fmt.Errorf("score call: %w", err)
	}

	call.Analysis = result
	call.Status = types.StatusProcessed
	if err := p.store.Upsert(ctx, call); err != nil {
		call.Analysis = nil
		call.Status = types.StatusNew
		log.WithError(err).Error("failed to persist processed call")
		return fmt.Errorf("persist call: %w", err)
	}

	log.WithField("score", fmt.Sprintf("%.1f", result.AggregateScore())).Info("call processed")
	return nil
}

// ProcessBatch runs calls in selector order, one at a time. Each failed
// call is written back as FAILED before the loop continues; per-call
// errors never propagate.
func (p *Processor) ProcessBatch(ctx context.Context, calls []*types.CallRecord) types.BatchStats {
	stats := types.BatchStats{Total: len(calls)}

	p.log.WithField("total", stats.Total).Info("starting batch processing")
	for i, call := range calls {
		p.log.WithField("progress", fmt.Sprintf("%d/%d", i+1, stats.Total)).Info("batch progress")

		if err := p.Process(ctx, call); err != nil {
			stats.Failed++
			call.Status = types.StatusFailed
			call.Analysis = nil
			if upErr := p.store.Upsert(ctx, call); upErr != nil {
				p.log.WithField("call_id", call.ID).WithError(upErr).Error("failed to persist FAILED status")
			}
			continue
		}
		stats.Successful++
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
	}
	p.log.WithFields(logrus.Fields{
		"successful":   stats.Successful,
		"failed":       stats.Failed,
		"success_rate": fmt.Sprintf("%.1f%%", stats.SuccessRate*100),
	}).Info("batch processing finished")

	return stats
}

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"whisperscribe/internal/audio"
	"whisperscribe/internal/transcript"
)

// ASRResult is what the transcription engine produces: chronologically
// ordered segments plus the detected language code.
type ASRResult struct {
	Segments []transcript.Segment
	Language string
}

// ASREngine is the mandatory transcription capability. It is always invoked
// without a language hint; a caller-supplied override only affects which
// alignment model is selected and what the metadata reports.
type ASREngine interface {
	Transcribe(ctx context.Context, samples []float32) (ASRResult, error)
}

// Aligner refines segment timestamps for a given language. Alignment may be
// unavailable for a language or fail outright; neither is fatal.
type Aligner interface {
	Align(ctx context.Context, language string, segments []transcript.Segment, samples []float32) ([]transcript.Segment, error)
}

// DiarizationOptions carries speaker-count hints passed through to the
// diarization engine. Zero means no hint.
type DiarizationOptions struct {
	MinSpeakers int
	MaxSpeakers int
}

// Diarizer partitions audio into speaker-attributed turns.
type Diarizer interface {
	Diarize(ctx context.Context, samples []float32, opts DiarizationOptions) ([]transcript.DiarizationTurn, error)
}

// Options configure a Pipeline.
type Options struct {
	// Model is the model identifier reported in result metadata.
	Model string
	// Language overrides the detected language for alignment-model
	// selection and metadata. Empty means use the detected language.
	Language string
	// MinSpeakers and MaxSpeakers are forwarded to the diarizer.
	MinSpeakers int
	MaxSpeakers int
	// StageTimeout bounds each stage individually. Zero disables the
	// bound. A timed-out optional stage degrades; a timed-out mandatory
	// stage is fatal.
	StageTimeout time.Duration
}

// Pipeline runs the three-stage speech-processing sequence for one audio
// file: transcription is mandatory, alignment and diarization each degrade
// independently without aborting the run.
type Pipeline struct {
	logger   *zap.Logger
	loader   audio.Loader
	asr      ASREngine
	aligner  Aligner
	diarizer Diarizer
	opts     Options
}

// New creates a Pipeline. A nil aligner marks alignment unavailable; a nil
// diarizer marks diarization skipped (typically because no credential is
// configured). Both cases follow the corresponding fallback path.
func New(logger *zap.Logger, loader audio.Loader, asr ASREngine, aligner Aligner, diarizer Diarizer, opts Options) *Pipeline {
	return &Pipeline{
		logger:   logger,
		loader:   loader,
		asr:      asr,
		aligner:  aligner,
		diarizer: diarizer,
		opts:     opts,
	}
}

// Run processes one audio file through validate, transcribe, align, diarize
// and assemble. On success the returned report records every stage outcome;
// on a fatal stage the error is returned alongside the partial report and
// no result is produced.
func (p *Pipeline) Run(ctx context.Context, audioPath string) (*transcript.TranscriptionResult, *RunReport, error) {
	report := &RunReport{}

	// Validate
	if err := audio.ValidatePath(audioPath); err != nil {
		report.record(StageValidate, StatusFatal, err.Error())
		return nil, report, err
	}
	report.record(StageValidate, StatusOK, "")

	// Transcribe (mandatory, includes audio decode)
	samples, asrResult, err := p.transcribe(ctx, audioPath)
	if err != nil {
		report.record(StageTranscribe, StatusFatal, err.Error())
		return nil, report, err
	}
	report.record(StageTranscribe, StatusOK, "")

	language := asrResult.Language
	if language == "" {
		language = "en"
	}
	if p.opts.Language != "" {
		language = p.opts.Language
		p.logger.Info("using specified language", zap.String("language", language))
	} else {
		p.logger.Info("detected language", zap.String("language", language))
	}

	segments := asrResult.Segments

	// Align (optional)
	segments = p.align(ctx, language, segments, samples, report)

	// Diarize (optional)
	segments = p.diarize(ctx, segments, samples, report)

	// Assemble
	result := transcript.NewResult(filepath.Base(audioPath), len(samples), p.opts.Model, language, segments)
	report.record(StageAssemble, StatusOK, "")

	p.logger.Info("transcription complete",
		zap.String("audio_file", result.Metadata.AudioFile),
		zap.Int("segments", len(result.Segments)),
		zap.Int("speakers_detected", result.Metadata.SpeakersDetected),
		zap.Float64("duration", result.Metadata.Duration))

	return result, report, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audioPath string) ([]float32, ASRResult, error) {
	stageCtx, cancel := p.stageContext(ctx)
	defer cancel()

	p.logger.Info("transcribing audio", zap.String("path", audioPath))

	samples, err := p.loader.Load(stageCtx, audioPath)
	if err != nil {
		return nil, ASRResult{}, fmt.Errorf("transcription failed: %w", err)
	}

	asrResult, err := p.asr.Transcribe(stageCtx, samples)
	if err != nil {
		return nil, ASRResult{}, fmt.Errorf("transcription failed: %w", err)
	}

	return samples, asrResult, nil
}

// align refines segment timestamps. Any failure keeps the segments exactly
// as produced by transcription.
func (p *Pipeline) align(ctx context.Context, language string, segments []transcript.Segment, samples []float32, report *RunReport) []transcript.Segment {
	if p.aligner == nil {
		p.logger.Warn("skipping alignment, no aligner available")
		report.record(StageAlign, StatusSkipped, "no aligner available")
		return segments
	}

	stageCtx, cancel := p.stageContext(ctx)
	defer cancel()

	p.logger.Info("performing word-level alignment", zap.String("language", language))

	aligned, err := p.aligner.Align(stageCtx, language, segments, samples)
	if err != nil {
		p.logger.Warn("alignment failed, continuing without", zap.Error(err))
		report.record(StageAlign, StatusDegraded, err.Error())
		return segments
	}

	report.record(StageAlign, StatusOK, "")
	return aligned
}

// diarize attributes a speaker to every segment. On skip or failure every
// segment gets the default label uniformly.
func (p *Pipeline) diarize(ctx context.Context, segments []transcript.Segment, samples []float32, report *RunReport) []transcript.Segment {
	if p.diarizer == nil {
		p.logger.Warn("skipping diarization, no diarizer configured")
		report.record(StageDiarize, StatusSkipped, "no diarization credential configured")
		return assignDefaultSpeaker(segments)
	}

	stageCtx, cancel := p.stageContext(ctx)
	defer cancel()

	p.logger.Info("performing speaker diarization")

	turns, err := p.diarizer.Diarize(stageCtx, samples, DiarizationOptions{
		MinSpeakers: p.opts.MinSpeakers,
		MaxSpeakers: p.opts.MaxSpeakers,
	})
	if err != nil {
		p.logger.Warn("speaker diarization failed", zap.Error(err))
		report.record(StageDiarize, StatusDegraded, err.Error())
		return assignDefaultSpeaker(segments)
	}

	assigned := make([]transcript.Segment, len(segments))
	for i, segment := range segments {
		segment.Speaker = transcript.AssignSpeaker(segment.Start, segment.End, turns)
		assigned[i] = segment
	}

	report.record(StageDiarize, StatusOK, "")
	return assigned
}

func assignDefaultSpeaker(segments []transcript.Segment) []transcript.Segment {
	labeled := make([]transcript.Segment, len(segments))
	for i, segment := range segments {
		segment.Speaker = transcript.DefaultSpeaker
		labeled[i] = segment
	}
	return labeled
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.StageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.opts.StageTimeout)
}

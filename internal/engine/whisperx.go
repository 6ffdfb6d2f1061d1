package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"whisperscribe/internal/audio"
	"whisperscribe/internal/pipeline"
	"whisperscribe/internal/transcript"
)

// DefaultCommand is the WhisperX helper executable invoked for every
// engine task.
const DefaultCommand = "whisperx-engine"

// Config captures runtime settings shared by the exec-backed engines.
type Config struct {
	// Command is the helper executable. Defaults to DefaultCommand.
	Command string
	// Model is the whisper model size (tiny ... large-v3).
	Model string
	// Device selects cpu or cuda; empty lets the helper auto-detect.
	Device string
	// HFToken is the HuggingFace credential for diarization. Empty means
	// diarization is unavailable.
	HFToken string
	// ModelsDir is where whisper weights are cached on disk.
	ModelsDir string
	// WorkDir receives temporary WAV spills. Defaults to os.TempDir().
	WorkDir string
}

// Engines builds the exec-backed engine adapters sharing one helper
// command, model cache and downloader.
type Engines struct {
	logger     *zap.Logger
	cfg        Config
	cache      *ModelCache
	downloader *ModelDownloader
}

// NewEngines creates the engine bundle. The cache is owned by the caller so
// its lifetime (and the model handles it amortizes) is explicit.
func NewEngines(logger *zap.Logger, cfg Config, cache *ModelCache) *Engines {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Engines{
		logger:     logger,
		cfg:        cfg,
		cache:      cache,
		downloader: NewModelDownloader(logger, cfg.ModelsDir),
	}
}

// Downloader exposes the shared model downloader for preloading.
func (e *Engines) Downloader() *ModelDownloader {
	return e.downloader
}

// ASR returns the mandatory transcription engine.
func (e *Engines) ASR() pipeline.ASREngine {
	return &asrEngine{engines: e}
}

// Aligner returns the word-alignment engine.
func (e *Engines) Aligner() pipeline.Aligner {
	return &alignEngine{engines: e}
}

// Diarizer returns the diarization engine, or nil when no HuggingFace
// token is configured. A missing token is a signal to skip diarization,
// not an error.
func (e *Engines) Diarizer() pipeline.Diarizer {
	if e.cfg.HFToken == "" {
		return nil
	}
	return &diarizeEngine{engines: e}
}

// Helper JSON payloads. Seconds arrive as decimal strings from the helper;
// decimal parsing avoids accumulating drift before the float64 conversion.
type helperSegment struct {
	Start decimal.Decimal `json:"start"`
	End   decimal.Decimal `json:"end"`
	Text  string          `json:"text"`
}

type transcribeOutput struct {
	Language string          `json:"language"`
	Segments []helperSegment `json:"segments"`
}

type alignOutput struct {
	Segments []helperSegment `json:"segments"`
}

type helperTurn struct {
	Start   decimal.Decimal `json:"start"`
	End     decimal.Decimal `json:"end"`
	Speaker string          `json:"speaker"`
}

type diarizeOutput struct {
	Turns []helperTurn `json:"turns"`
}

func segmentsFromHelper(raw []helperSegment) []transcript.Segment {
	segments := make([]transcript.Segment, len(raw))
	for i, s := range raw {
		segments[i] = transcript.Segment{
			Start: s.Start.InexactFloat64(),
			End:   s.End.InexactFloat64(),
			Text:  s.Text,
		}
	}
	return segments
}

// spillWAV writes samples to a temporary WAV file for the helper process
// and returns its path plus a cleanup function.
func (e *Engines) spillWAV(samples []float32) (string, func(), error) {
	tmp, err := os.CreateTemp(e.cfg.WorkDir, "whisperscribe-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp wav: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()

	if err := audio.WriteWAV(path, samples); err != nil {
		os.Remove(path)
		return "", nil, err
	}

	return path, func() { os.Remove(path) }, nil
}

// runHelper executes the helper command and returns its stdout. Stderr is
// folded into the error for diagnosis, matching how the helper reports
// model-load and inference failures.
func (e *Engines) runHelper(ctx context.Context, env []string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	cmd.Env = append(os.Environ(), env...)

	e.logger.Debug("invoking engine helper",
		zap.String("command", e.cfg.Command),
		zap.Strings("args", args))

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s %s: %s", e.cfg.Command, args[0],
				strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s %s: %w", e.cfg.Command, args[0], err)
	}
	return out, nil
}

type asrEngine struct {
	engines *Engines
}

// Transcribe runs the whisper model over the samples. The model weights are
// fetched through the shared cache, so a batch pays the download at most
// once per model/device pair.
func (a *asrEngine) Transcribe(ctx context.Context, samples []float32) (pipeline.ASRResult, error) {
	e := a.engines

	cacheKey := fmt.Sprintf("whisper:%s:%s", e.cfg.Model, e.cfg.Device)
	modelPath, err := e.cache.Load(cacheKey, func() (interface{}, error) {
		return e.downloader.EnsureModelExists(ctx, e.cfg.Model)
	})
	if err != nil {
		return pipeline.ASRResult{}, fmt.Errorf("failed to load whisper model: %w", err)
	}

	wavPath, cleanup, err := e.spillWAV(samples)
	if err != nil {
		return pipeline.ASRResult{}, err
	}
	defer cleanup()

	args := []string{"transcribe", "--model", modelPath.(string), "--audio", wavPath}
	if e.cfg.Device != "" {
		args = append(args, "--device", e.cfg.Device)
	}

	out, err := e.runHelper(ctx, nil, args...)
	if err != nil {
		return pipeline.ASRResult{}, err
	}

	var parsed transcribeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return pipeline.ASRResult{}, fmt.Errorf("failed to parse transcribe output: %w", err)
	}

	return pipeline.ASRResult{
		Segments: segmentsFromHelper(parsed.Segments),
		Language: parsed.Language,
	}, nil
}

type alignEngine struct {
	engines *Engines
}

// Align refines segment timestamps using the per-language alignment model.
// The helper exits non-zero when no alignment model exists for the
// language; the pipeline treats that as a degradation, not a failure.
func (a *alignEngine) Align(ctx context.Context, language string, segments []transcript.Segment, samples []float32) ([]transcript.Segment, error) {
	e := a.engines

	wavPath, cleanup, err := e.spillWAV(samples)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	segmentsJSON, err := json.Marshal(alignOutput{Segments: helperSegments(segments)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode segments for alignment: %w", err)
	}

	segmentsFile, err := os.CreateTemp(e.cfg.WorkDir, "whisperscribe-segments-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create segments file: %w", err)
	}
	segmentsPath := segmentsFile.Name()
	defer os.Remove(segmentsPath)

	if _, err := segmentsFile.Write(segmentsJSON); err != nil {
		_ = segmentsFile.Close()
		return nil, fmt.Errorf("failed to write segments file: %w", err)
	}
	if err := segmentsFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close segments file: %w", err)
	}

	args := []string{
		"align",
		"--language", language,
		"--audio", wavPath,
		"--segments", segmentsPath,
	}
	if e.cfg.Device != "" {
		args = append(args, "--device", e.cfg.Device)
	}

	out, err := e.runHelper(ctx, nil, args...)
	if err != nil {
		return nil, err
	}

	var parsed alignOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse align output: %w", err)
	}

	return segmentsFromHelper(parsed.Segments), nil
}

func helperSegments(segments []transcript.Segment) []helperSegment {
	raw := make([]helperSegment, len(segments))
	for i, s := range segments {
		raw[i] = helperSegment{
			Start: decimal.NewFromFloat(s.Start),
			End:   decimal.NewFromFloat(s.End),
			Text:  s.Text,
		}
	}
	return raw
}

type diarizeEngine struct {
	engines *Engines
}

// Diarize partitions the audio into speaker turns. The HuggingFace token is
// handed to the helper through its environment, never on the command line.
func (d *diarizeEngine) Diarize(ctx context.Context, samples []float32, opts pipeline.DiarizationOptions) ([]transcript.DiarizationTurn, error) {
	e := d.engines

	wavPath, cleanup, err := e.spillWAV(samples)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	args := []string{"diarize", "--audio", wavPath}
	if opts.MinSpeakers > 0 {
		args = append(args, "--min-speakers", fmt.Sprintf("%d", opts.MinSpeakers))
	}
	if opts.MaxSpeakers > 0 {
		args = append(args, "--max-speakers", fmt.Sprintf("%d", opts.MaxSpeakers))
	}
	if e.cfg.Device != "" {
		args = append(args, "--device", e.cfg.Device)
	}

	out, err := e.runHelper(ctx, []string{"HF_TOKEN=" + e.cfg.HFToken}, args...)
	if err != nil {
		return nil, err
	}

	var parsed diarizeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse diarize output: %w", err)
	}

	turns := make([]transcript.DiarizationTurn, len(parsed.Turns))
	for i, turn := range parsed.Turns {
		turns[i] = transcript.DiarizationTurn{
			Start:   turn.Start.InexactFloat64(),
			End:     turn.End.InexactFloat64(),
			Speaker: turn.Speaker,
		}
	}
	return turns, nil
}

// Preload downloads the whisper weights for the given model names so later
// runs start without network access. Unknown names are rejected; individual
// download failures are reported but do not stop the remaining models.
func (e *Engines) Preload(ctx context.Context, models []string) error {
	var failed []string
	for _, model := range models {
		if !IsSupportedModel(model) {
			return fmt.Errorf("invalid model: %s (supported: %s)",
				model, strings.Join(SupportedModels, ", "))
		}
		if _, err := e.downloader.EnsureModelExists(ctx, model); err != nil {
			e.logger.Error("failed to preload model",
				zap.String("model", model),
				zap.Error(err))
			failed = append(failed, model)
			continue
		}
		e.logger.Info("model preloaded", zap.String("model", model))
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to preload models: %s", strings.Join(failed, ", "))
	}
	return nil
}

// IsSupportedModel reports whether name is a known whisper model size.
func IsSupportedModel(name string) bool {
	for _, model := range SupportedModels {
		if model == name {
			return true
		}
	}
	return false
}

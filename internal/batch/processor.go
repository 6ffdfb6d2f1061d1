package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"whisperscribe/internal/audio"
	"whisperscribe/internal/pipeline"
)

// FileStatus classifies the outcome for one processed file.
type FileStatus string

const (
	FileSuccess FileStatus = "success"
	FileFailed  FileStatus = "failed"
	FileSkipped FileStatus = "skipped"
)

// FileResult summarizes one file's trip through the pipeline.
type FileResult struct {
	Path     string
	Status   FileStatus
	Error    string
	Language string
	Speakers int
	Segments int
	Degraded int
}

// Summary tallies a batch run.
type Summary struct {
	Results []FileResult
}

// Successful returns the number of successfully processed files.
func (s *Summary) Successful() int {
	return s.count(FileSuccess)
}

// Failed returns the number of failed files.
func (s *Summary) Failed() int {
	return s.count(FileFailed)
}

// Skipped returns the number of files skipped via the run index.
func (s *Summary) Skipped() int {
	return s.count(FileSkipped)
}

func (s *Summary) count(status FileStatus) int {
	n := 0
	for _, result := range s.Results {
		if result.Status == status {
			n++
		}
	}
	return n
}

// Processor runs the pipeline over single files or whole directories. One
// file's failure never aborts the rest of a batch.
type Processor struct {
	logger *zap.Logger
	pipe   *pipeline.Pipeline
	writer *Writer
	store  *Store
	format string
	model  string
	force  bool
}

// NewProcessor creates a Processor. The store may be nil to disable the
// run index; force bypasses skip decisions while still recording runs.
func NewProcessor(logger *zap.Logger, pipe *pipeline.Pipeline, writer *Writer, store *Store, format, model string, force bool) *Processor {
	return &Processor{
		logger: logger,
		pipe:   pipe,
		writer: writer,
		store:  store,
		format: format,
		model:  model,
		force:  force,
	}
}

// ProcessFile runs the pipeline for one audio file, writes the requested
// outputs and records the run. All errors are folded into the returned
// FileResult; callers decide whether a failure matters.
func (p *Processor) ProcessFile(ctx context.Context, audioPath string) FileResult {
	p.logger.Info("processing audio file", zap.String("path", audioPath))

	var audioHash string
	if p.store != nil {
		hash, err := HashFile(audioPath)
		if err != nil {
			p.logger.Warn("failed to hash audio file, run index disabled for this file",
				zap.String("path", audioPath), zap.Error(err))
		} else {
			audioHash = hash
		}
	}

	if audioHash != "" && !p.force {
		done, err := p.store.HasSucceeded(ctx, audioHash, p.model)
		if err != nil {
			p.logger.Warn("run index lookup failed", zap.Error(err))
		} else if done {
			p.logger.Info("skipping already transcribed file",
				zap.String("path", audioPath),
				zap.String("hash", audioHash))
			return FileResult{Path: audioPath, Status: FileSkipped}
		}
	}

	result, report, err := p.pipe.Run(ctx, audioPath)
	if err != nil {
		p.recordFailure(ctx, audioPath, audioHash, err)
		return FileResult{Path: audioPath, Status: FileFailed, Error: err.Error()}
	}

	if _, err := p.writer.WriteOutputs(result, audioPath, p.format); err != nil {
		p.recordFailure(ctx, audioPath, audioHash, err)
		return FileResult{Path: audioPath, Status: FileFailed, Error: err.Error()}
	}

	if p.store != nil && audioHash != "" {
		if err := p.store.RecordSuccess(ctx, audioPath, audioHash, result); err != nil {
			p.logger.Warn("failed to record run", zap.Error(err))
		}
	}

	return FileResult{
		Path:     audioPath,
		Status:   FileSuccess,
		Language: result.Metadata.Language,
		Speakers: result.Metadata.SpeakersDetected,
		Segments: len(result.Segments),
		Degraded: len(report.Degraded()),
	}
}

func (p *Processor) recordFailure(ctx context.Context, audioPath, audioHash string, cause error) {
	p.logger.Error("failed to process audio file",
		zap.String("path", audioPath),
		zap.Error(cause))

	if p.store != nil && audioHash != "" {
		if err := p.store.RecordFailure(ctx, audioPath, audioHash, p.model, cause.Error()); err != nil {
			p.logger.Warn("failed to record failed run", zap.Error(err))
		}
	}
}

// ProcessDirectory walks dir for supported audio files and processes them
// sequentially. Per-file failures are tallied, never propagated.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) (*Summary, error) {
	files, err := FindAudioFiles(dir)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		p.logger.Warn("no supported audio files found",
			zap.String("dir", dir),
			zap.Strings("supported", audio.SupportedExtensions()))
		return &Summary{}, nil
	}

	p.logger.Info("starting batch processing",
		zap.String("dir", dir),
		zap.Int("files", len(files)))

	summary := &Summary{Results: make([]FileResult, 0, len(files))}
	for _, file := range files {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		summary.Results = append(summary.Results, p.ProcessFile(ctx, file))
	}

	p.logger.Info("batch processing complete",
		zap.Int("successful", summary.Successful()),
		zap.Int("failed", summary.Failed()),
		zap.Int("skipped", summary.Skipped()))

	return summary, nil
}

// FindAudioFiles recursively collects supported audio files under dir,
// sorted for deterministic processing order.
func FindAudioFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("batch directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && audio.IsSupportedExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

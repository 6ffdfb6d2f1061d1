package pipeline

// Stage names, in execution order.
const (
	StageValidate   = "validate"
	StageTranscribe = "transcribe"
	StageAlign      = "align"
	StageDiarize    = "diarize"
	StageAssemble   = "assemble"
)

// StageStatus classifies how a pipeline stage ended.
type StageStatus string

const (
	// StatusOK means the stage ran and its output was used.
	StatusOK StageStatus = "ok"
	// StatusDegraded means the stage failed and a documented fallback was
	// applied; the pipeline continued.
	StatusDegraded StageStatus = "degraded"
	// StatusSkipped means the stage never ran (for example no diarization
	// credential is configured) and its fallback was applied.
	StatusSkipped StageStatus = "skipped"
	// StatusFatal means the stage failed and the pipeline produced no
	// result for this file.
	StatusFatal StageStatus = "fatal"
)

// StageOutcome records how one stage ended, with a reason for anything
// other than StatusOK.
type StageOutcome struct {
	Stage  string
	Status StageStatus
	Reason string
}

// RunReport accumulates the stage outcomes of a single pipeline run.
// Degradations are carried as explicit values so callers can inspect what
// actually happened to each stage.
type RunReport struct {
	Outcomes []StageOutcome
}

func (r *RunReport) record(stage string, status StageStatus, reason string) {
	r.Outcomes = append(r.Outcomes, StageOutcome{Stage: stage, Status: status, Reason: reason})
}

// Outcome returns the recorded outcome for a stage, if the stage ran.
func (r *RunReport) Outcome(stage string) (StageOutcome, bool) {
	for _, outcome := range r.Outcomes {
		if outcome.Stage == stage {
			return outcome, true
		}
	}
	return StageOutcome{}, false
}

// Degraded returns the outcomes of stages that fell back or were skipped.
func (r *RunReport) Degraded() []StageOutcome {
	var degraded []StageOutcome
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusDegraded || outcome.Status == StatusSkipped {
			degraded = append(degraded, outcome)
		}
	}
	return degraded
}

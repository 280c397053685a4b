package pipeline

import (
	"log/slog"
)

// Stage is a progress transition reported by the orchestrator.
type Stage string

const (
	StageSpecification Stage = "specification"
	StageDiagrams      Stage = "diagrams"
	StageAuxiliary     Stage = "auxiliary"
	StageVideo         Stage = "video"
	StageAudit         Stage = "audit"
	StageComplete      Stage = "complete"
	StageError         Stage = "error"
)

// Stages lists the transitions of a successful run in order.
var Stages = []Stage{StageSpecification, StageDiagrams, StageAuxiliary, StageVideo, StageAudit, StageComplete}

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool { return s == StageComplete || s == StageError }

// ProgressFunc receives stage transitions. It is advisory: it must return
// quickly and its behaviour never changes the run's outcome.
type ProgressFunc func(Stage)

func (f ProgressFunc) emit(logger *slog.Logger, stage Stage) {
	if f == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("progress sink panicked", slog.String("stage", string(stage)), slog.Any("panic", r))
		}
	}()
	f(stage)
}

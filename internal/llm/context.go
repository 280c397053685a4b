package llm

import "context"

// Phases tag each endpoint call with the pipeline stage that issued it.
const (
	PhaseSpecification = "specification"
	PhaseDiagram       = "diagram"
	PhaseCode          = "code"
	PhasePitch         = "pitch"
	PhaseVideo         = "video"
	PhaseAudit         = "audit"
)

type ctxKeyPhase struct{}

func WithPhase(ctx context.Context, phase string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if s, ok := ctx.Value(ctxKeyPhase{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}

package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"designforge/internal/llm"
)

type fakeClock struct {
	mu     sync.Mutex
	sleeps int
	total  time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
	c.total += d
	return nil
}

type progressRecorder struct {
	mu     sync.Mutex
	stages []Stage
}

func (r *progressRecorder) sink(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *progressRecorder) last() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stages) == 0 {
		return ""
	}
	return r.stages[len(r.stages)-1]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// structuredByPhase overrides structured responses for selected phases and
// falls back to the canned fake output for the rest.
func structuredByPhase(overrides map[string]func(req llm.StructuredRequest) (json.RawMessage, error)) func(context.Context, llm.StructuredRequest) (json.RawMessage, error) {
	return func(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
		if fn, ok := overrides[llm.PhaseFrom(ctx)]; ok {
			return fn(req)
		}
		return llm.FakeStructured(llm.PhaseFrom(ctx), req.Prompt)
	}
}

func newTestOrchestrator(client llm.Client, clock Clock) *Orchestrator {
	return New(client, Options{
		APIKey:            "test-key",
		Clock:             clock,
		VideoPollInterval: 10 * time.Second,
		VideoPollAttempts: 30,
		Logger:            quietLogger(),
	})
}

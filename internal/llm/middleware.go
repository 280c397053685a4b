package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, logging, etc.).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// -------- Rate limiting --------

// RateLimit throttles every endpoint call with a token bucket.
// If rps <= 0, the limiter is disabled and the client is returned as is.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		rl := newRPSLimiter(rps, burst)
		if rl == nil {
			return next
		}
		return &rateLimited{Client: next, rl: rl}
	}
}

type rateLimited struct {
	Client
	rl *rpsLimiter
}

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.Client.Close()
}

func (c *rateLimited) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.Client.GenerateStructured(ctx, req)
}

func (c *rateLimited) GenerateImage(ctx context.Context, req ImageRequest) (*InlineData, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.Client.GenerateImage(ctx, req)
}

func (c *rateLimited) SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*InlineData, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.Client.SynthesizeSpeech(ctx, req)
}

func (c *rateLimited) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.Client.StartVideo(ctx, req)
}

func (c *rateLimited) PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.Client.PollVideo(ctx, op)
}

// -------- Logging --------

// WithLogging logs request sizes, latency and errors per phase. A nil logger
// uses slog.Default().
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Client) Client {
		return &logging{Client: next, log: logger}
	}
}

type logging struct {
	Client
	log *slog.Logger
}

func (l *logging) done(ctx context.Context, op string, started time.Time, size int, err error) {
	attrs := []any{
		slog.String("phase", PhaseFrom(ctx)),
		slog.String("op", op),
		slog.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		l.log.Warn("llm call failed", append(attrs, slog.Any("error", err))...)
		return
	}
	l.log.Debug("llm call done", append(attrs, slog.Int("bytes", size))...)
}

func (l *logging) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	l.log.Debug("llm request", slog.String("phase", PhaseFrom(ctx)), slog.String("op", "structured"),
		slog.Int("bytes", len(req.Prompt)+len(req.SystemInstruction)))
	start := time.Now()
	raw, err := l.Client.GenerateStructured(ctx, req)
	l.done(ctx, "structured", start, len(raw), err)
	return raw, err
}

func (l *logging) GenerateImage(ctx context.Context, req ImageRequest) (*InlineData, error) {
	start := time.Now()
	img, err := l.Client.GenerateImage(ctx, req)
	size := 0
	if img != nil {
		size = len(img.Data)
	}
	l.done(ctx, "image", start, size, err)
	return img, err
}

func (l *logging) SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*InlineData, error) {
	start := time.Now()
	audio, err := l.Client.SynthesizeSpeech(ctx, req)
	size := 0
	if audio != nil {
		size = len(audio.Data)
	}
	l.done(ctx, "speech", start, size, err)
	return audio, err
}

func (l *logging) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	start := time.Now()
	op, err := l.Client.StartVideo(ctx, req)
	l.done(ctx, "video.start", start, 0, err)
	return op, err
}

func (l *logging) PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	start := time.Now()
	next, err := l.Client.PollVideo(ctx, op)
	l.done(ctx, "video.poll", start, 0, err)
	return next, err
}

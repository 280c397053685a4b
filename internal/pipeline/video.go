package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"designforge/internal/llm"
	"designforge/internal/types"
)

const (
	DefaultVideoPollInterval = 10 * time.Second
	DefaultVideoPollAttempts = 30
	DefaultVideoResolution   = "720p"
	DefaultVideoAspectRatio  = "16:9"
)

var (
	ErrVideoTimeout = errors.New("video operation did not finish within the poll budget")
	ErrVideoFailed  = errors.New("video operation failed")
)

// VideoState is the lifecycle of one long-running video job.
type VideoState string

const (
	VideoPending  VideoState = "pending"
	VideoPolling  VideoState = "polling"
	VideoDone     VideoState = "done"
	VideoFailed   VideoState = "failed"
	VideoTimedOut VideoState = "timed_out"
)

// Clock abstracts the wait between polls.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock sleeps on the wall clock and honours context cancellation.
var RealClock Clock = realClock{}

// VideoPoller drives a single video operation from start to a terminal
// state. Polls are strictly sequential: wait, then poll.
type VideoPoller struct {
	LLM         llm.Client
	Clock       Clock
	Interval    time.Duration
	MaxAttempts int

	state    VideoState
	attempts int
}

func (p *VideoPoller) State() VideoState { return p.state }
func (p *VideoPoller) Attempts() int     { return p.attempts }

// Run starts the job and polls until it reports completion, fails, or the
// attempt budget runs out. On success the returned operation has a URI.
func (p *VideoPoller) Run(ctx context.Context, req llm.VideoRequest) (*llm.VideoOperation, error) {
	clock := p.Clock
	if clock == nil {
		clock = RealClock
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultVideoPollInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultVideoPollAttempts
	}

	p.state = VideoPending
	p.attempts = 0
	op, err := p.LLM.StartVideo(ctx, req)
	if err != nil {
		return nil, p.fail(fmt.Errorf("start: %w", err))
	}
	if op == nil {
		return nil, p.fail(errors.New("start returned no operation"))
	}

	p.state = VideoPolling
	for !op.Done {
		if p.attempts >= maxAttempts {
			p.state = VideoTimedOut
			return nil, ErrVideoTimeout
		}
		if err := clock.Sleep(ctx, interval); err != nil {
			return nil, p.fail(err)
		}
		next, err := p.LLM.PollVideo(ctx, op)
		p.attempts++
		if err != nil {
			return nil, p.fail(fmt.Errorf("poll %d: %w", p.attempts, err))
		}
		if next == nil {
			return nil, p.fail(errors.New("poll returned no operation"))
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
	}

	if op.Error != "" {
		return nil, p.fail(fmt.Errorf("%w: %s", ErrVideoFailed, op.Error))
	}
	if strings.TrimSpace(op.URI) == "" {
		return nil, p.fail(fmt.Errorf("%w: finished without a video URI", ErrVideoFailed))
	}
	p.state = VideoDone
	return op, nil
}

func (p *VideoPoller) fail(err error) error {
	p.state = VideoFailed
	return err
}

type VideoStage struct {
	LLM llm.Client
	// APIKey is appended to the download URI; the file endpoint requires the
	// same credential that started the job.
	APIKey      string
	Clock       Clock
	Interval    time.Duration
	MaxAttempts int
	Resolution  string
	AspectRatio string
	Logger      *slog.Logger
}

// Run returns the downloadable video reference.
func (s *VideoStage) Run(ctx context.Context, spec *types.ProductSpecification) (string, error) {
	ctx = llm.WithPhase(ctx, llm.PhaseVideo)
	poller := &VideoPoller{LLM: s.LLM, Clock: s.Clock, Interval: s.Interval, MaxAttempts: s.MaxAttempts}
	op, err := poller.Run(ctx, llm.VideoRequest{
		Prompt:      VideoPrompt(spec),
		Resolution:  firstNonEmpty(s.Resolution, DefaultVideoResolution),
		AspectRatio: firstNonEmpty(s.AspectRatio, DefaultVideoAspectRatio),
	})
	if s.Logger != nil {
		s.Logger.Debug("video operation settled",
			slog.String("state", string(poller.State())),
			slog.Int("polls", poller.Attempts()))
	}
	if err != nil {
		return "", err
	}
	return WithCredential(op.URI, s.APIKey)
}

// VideoPrompt describes a short showcase clip of the product.
func VideoPrompt(spec *types.ProductSpecification) string {
	setting := "a clean modern studio"
	if spec.Constraints != nil && spec.Constraints.Environment != nil {
		setting = *spec.Constraints.Environment
	}
	if spec.ProductType == types.ProductDigital {
		return fmt.Sprintf("Cinematic product showcase of the app %q: %s Smooth screen transitions on a modern device held by a user, %s, soft lighting.",
			spec.ProductName, spec.Summary, setting)
	}
	return fmt.Sprintf("Cinematic product showcase of %q: %s Slow orbiting camera around the device in use, %s, soft studio lighting, photorealistic.",
		spec.ProductName, spec.Summary, setting)
}

// WithCredential adds key as the "key" query parameter, keeping any
// existing query. An empty key leaves the URI unchanged.
func WithCredential(uri, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse video uri: %w", err)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

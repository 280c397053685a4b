// Package design runs design pipelines on behalf of API and CLI callers:
// it tracks asynchronous runs, streams their progress and persists finished
// packets.
package design

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"designforge/internal/artifact"
	"designforge/internal/logging"
	"designforge/internal/pipeline"
	"designforge/internal/store"
	"designforge/internal/types"
)

var ErrRunNotFound = errors.New("run not found")

// Runner produces a packet; *pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, description string, productType types.ProductType, progress pipeline.ProgressFunc) (*types.DesignPacket, error)
}

type Options struct {
	Store store.Store
	// Assets is optional; without it packets keep their inline data URLs only.
	Assets artifact.Store
	Logger *slog.Logger
	// RunTTL bounds how long run state stays queryable. Default one hour.
	RunTTL  time.Duration
	MaxRuns int
	Now     func() time.Time
}

type Service struct {
	runner Runner
	store  store.Store
	assets artifact.Store
	ids    store.IDGenerator
	now    func() time.Time
	log    *slog.Logger

	runs *expirable.LRU[string, *run]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(runner Runner, opts Options) (*Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	ttl := opts.RunTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxRuns := opts.MaxRuns
	if maxRuns <= 0 {
		maxRuns = 1024
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		runner: runner,
		store:  opts.Store,
		assets: opts.Assets,
		now:    now,
		log:    logging.OrDefault(opts.Logger),
		runs:   expirable.NewLRU[string, *run](maxRuns, nil, ttl),
		ctx:    ctx,
		cancel: cancel,
	}
	if recent, err := opts.Store.ListRecent(ctx, 1); err == nil && len(recent) > 0 {
		s.ids.Observe(recent[0].ID)
	}
	return s, nil
}

func validate(description string, productType types.ProductType) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: description is empty", pipeline.ErrInvalidInput)
	}
	if !productType.Valid() {
		return fmt.Errorf("%w: unknown product type %q", pipeline.ErrInvalidInput, productType)
	}
	return nil
}

// Start launches a run in the background and returns its id. The run keeps
// going after ctx ends; it stops only when the service is closed.
func (s *Service) Start(ctx context.Context, description string, productType types.ProductType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.ctx.Err(); err != nil {
		return "", fmt.Errorf("service closed: %w", err)
	}
	if err := validate(description, productType); err != nil {
		return "", err
	}
	id := uuid.NewString()
	r := newRun(id, s.now())
	s.runs.Add(id, r)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(id, r, description, productType)
	}()
	return id, nil
}

func (s *Service) execute(id string, r *run, description string, productType types.ProductType) {
	log := s.log.With(slog.String("run_id", id))
	progress := func(stage pipeline.Stage) {
		if stage.Terminal() {
			return
		}
		r.publish(Event{Type: EventProgress, Stage: stage}, s.now())
	}

	packet, err := s.runner.Run(s.ctx, description, productType, progress)
	if err != nil {
		log.Error("run failed", slog.Any("error", err))
		r.publish(Event{Type: EventError, Stage: pipeline.StageError, Message: err.Error()}, s.now())
		s.runs.Add(id, r)
		return
	}

	ev := Event{Type: EventComplete, Stage: pipeline.StageComplete}
	rec, err := s.save(s.ctx, packet)
	if err != nil {
		log.Error("saving design failed", slog.Any("error", err))
		ev.Message = "design generated but not saved: " + err.Error()
	} else {
		ev.RecordID = rec.ID
		log.Info("design saved", slog.String("record_id", rec.ID))
	}
	r.publish(ev, s.now())
	// re-adding restarts the expiry clock from completion
	s.runs.Add(id, r)
}

// save persists packet as a new record and publishes its assets. Asset
// failures are logged only.
func (s *Service) save(ctx context.Context, packet *types.DesignPacket) (store.Record, error) {
	now := s.now()
	rec := store.NewRecord(s.ids.Next(now), now, packet)
	if err := s.store.Put(ctx, rec); err != nil {
		return store.Record{}, err
	}
	if s.assets != nil {
		paths, err := artifact.PublishAssets(ctx, s.assets, rec.ID, packet)
		if err != nil {
			s.log.Warn("publishing assets incomplete", slog.String("record_id", rec.ID), slog.Any("error", err))
		}
		s.log.Debug("assets published", slog.String("record_id", rec.ID), slog.Int("count", len(paths)))
	}
	return rec, nil
}

// Generate runs the pipeline synchronously and saves the result.
func (s *Service) Generate(ctx context.Context, description string, productType types.ProductType, progress pipeline.ProgressFunc) (store.Record, error) {
	if err := validate(description, productType); err != nil {
		return store.Record{}, err
	}
	packet, err := s.runner.Run(ctx, description, productType, progress)
	if err != nil {
		return store.Record{}, err
	}
	return s.save(ctx, packet)
}

// Snapshot returns the state of a known run.
func (s *Service) Snapshot(runID string) (Snapshot, error) {
	r, ok := s.runs.Get(runID)
	if !ok {
		return Snapshot{}, ErrRunNotFound
	}
	return r.snapshot(), nil
}

// Subscribe streams a run's events, replaying those already emitted. The
// channel closes after the terminal event or when cancel is called.
func (s *Service) Subscribe(runID string) (<-chan Event, func(), error) {
	r, ok := s.runs.Get(runID)
	if !ok {
		return nil, nil, ErrRunNotFound
	}
	ch, cancel := r.subscribe()
	return ch, cancel, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]store.Record, error) {
	return s.store.ListRecent(ctx, limit)
}

func (s *Service) Record(ctx context.Context, id string) (store.Record, error) {
	return s.store.Get(ctx, id)
}

// Asset returns a download URL for a stored asset when the backend offers
// one, and the blob bytes otherwise.
func (s *Service) Asset(ctx context.Context, recordID, path string) (string, []byte, error) {
	if s.assets == nil {
		return "", nil, artifact.ErrNotFound
	}
	u, err := s.assets.GetURL(ctx, recordID, path)
	if err != nil {
		return "", nil, err
	}
	if u != "" {
		return u, nil, nil
	}
	data, err := s.assets.Get(ctx, recordID, path)
	if err != nil {
		return "", nil, err
	}
	return "", data, nil
}

// Close cancels in-flight runs and waits for them to finish.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Package pipeline turns a product description into a design packet by
// sequencing the generative stages and merging their artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"designforge/internal/llm"
	"designforge/internal/types"
)

var (
	// ErrSpecification is the single fatal error of a run.
	ErrSpecification = errors.New("specification generation failed")
	ErrInvalidInput  = errors.New("invalid design request")
)

type Options struct {
	// APIKey is the credential appended to generated video URIs.
	APIKey string

	ImageAspectRatio string
	ImageSize        string
	Voice            string

	VideoResolution   string
	VideoAspectRatio  string
	VideoPollInterval time.Duration
	VideoPollAttempts int
	Clock             Clock

	Logger *slog.Logger
}

const (
	DefaultImageAspectRatio = "16:9"
	DefaultImageSize        = "1K"
)

// Orchestrator owns the fixed stage topology:
// spec -> diagrams -> code+pitch -> video -> audit.
type Orchestrator struct {
	spec     *SpecStage
	diagrams *DiagramStage
	aux      *AuxiliaryStage
	video    *VideoStage
	audit    *AuditStage
	log      *slog.Logger
}

func New(client llm.Client, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		spec: &SpecStage{LLM: client},
		diagrams: &DiagramStage{
			LLM:         client,
			AspectRatio: firstNonEmpty(opts.ImageAspectRatio, DefaultImageAspectRatio),
			Size:        firstNonEmpty(opts.ImageSize, DefaultImageSize),
			Logger:      logger,
		},
		aux: &AuxiliaryStage{
			Code:   &CodeStage{LLM: client},
			Pitch:  &PitchStage{LLM: client, Voice: opts.Voice},
			Logger: logger,
		},
		video: &VideoStage{
			LLM:         client,
			APIKey:      opts.APIKey,
			Clock:       opts.Clock,
			Interval:    opts.VideoPollInterval,
			MaxAttempts: opts.VideoPollAttempts,
			Resolution:  opts.VideoResolution,
			AspectRatio: opts.VideoAspectRatio,
			Logger:      logger,
		},
		audit: &AuditStage{LLM: client},
		log:   logger,
	}
}

// Run produces a design packet. It fails only when the input is invalid or
// the specification stage fails; every later stage degrades to a missing or
// defaulted artifact.
func (o *Orchestrator) Run(ctx context.Context, description string, productType types.ProductType, progress ProgressFunc) (*types.DesignPacket, error) {
	log := o.log.With(slog.String("product_type", string(productType)))

	description = strings.TrimSpace(description)
	if description == "" {
		progress.emit(log, StageError)
		return nil, fmt.Errorf("%w: description is empty", ErrInvalidInput)
	}
	if !productType.Valid() {
		progress.emit(log, StageError)
		return nil, fmt.Errorf("%w: unknown product type %q", ErrInvalidInput, productType)
	}

	progress.emit(log, StageSpecification)
	spec, err := o.spec.Run(ctx, description, productType)
	if err != nil {
		log.Error("specification stage failed", slog.Any("error", err))
		progress.emit(log, StageError)
		return nil, fmt.Errorf("%w: %w", ErrSpecification, err)
	}
	log = log.With(slog.String("product", spec.ProductName))

	progress.emit(log, StageDiagrams)
	images := o.diagrams.Run(ctx, spec.DiagramsPlan)
	log.Info("diagrams settled", slog.Int("planned", spec.TitledDiagrams()), slog.Int("produced", len(images)))

	progress.emit(log, StageAuxiliary)
	code, audioURL := o.aux.Run(ctx, spec)

	progress.emit(log, StageVideo)
	videoURL, err := o.video.Run(ctx, spec)
	if err != nil {
		log.Warn("video stage produced no video", slog.String("stage", string(StageVideo)), slog.Any("error", err))
		videoURL = ""
	}

	progress.emit(log, StageAudit)
	check, err := o.audit.Run(ctx, spec, images)
	if err != nil {
		log.Warn("audit stage failed, keeping original specification", slog.String("stage", string(StageAudit)), slog.Any("error", err))
		check = DefaultSelfCheck(spec)
	}

	resolved := check.Resolved(spec, len(images))
	if resolved == spec && check.CorrectedSpec != nil && check.CorrectedSpec != spec {
		log.Info("corrected specification not adopted",
			slog.Int("images", len(images)),
			slog.Int("corrected_titled", check.CorrectedSpec.TitledDiagrams()))
	}

	packet := &types.DesignPacket{
		Specification: resolved,
		Images:        images,
		SelfCheck:     check,
		Code:          code,
		AudioURL:      audioURL,
		VideoURL:      videoURL,
	}
	progress.emit(log, StageComplete)
	log.Info("design packet complete",
		slog.Int("images", len(images)),
		slog.Int("issues", len(check.Issues)),
		slog.Bool("code", code != nil),
		slog.Bool("audio", audioURL != ""),
		slog.Bool("video", videoURL != ""))
	return packet, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"designforge/internal/llm"
	"designforge/internal/types"
)

var errNoImage = errors.New("no image part in response")

const (
	hardwareStyle = "Professional technical engineering illustration, clean blueprint-inspired product diagram on a white background"
	screenStyle   = "High-fidelity user interface mockup, crisp flat design rendered as a product screenshot"
	renderQuality = "Precise linework, consistent proportions, clear part separation, labelled callouts where helpful, " +
		"even studio lighting, no watermarks, no photographic noise, high detail."
)

type DiagramStage struct {
	LLM         llm.Client
	AspectRatio string
	Size        string
	Logger      *slog.Logger
}

// Run renders every titled plan entry concurrently and returns the images
// that succeeded. Result order is not tied to the plan order.
func (s *DiagramStage) Run(ctx context.Context, plan []types.DiagramRequest) []types.GeneratedImage {
	ctx = llm.WithPhase(ctx, llm.PhaseDiagram)
	titled := make([]types.DiagramRequest, 0, len(plan))
	for _, d := range plan {
		if strings.TrimSpace(d.Title) == "" {
			s.logger().Debug("skipping untitled diagram", slog.String("type", string(d.Type)))
			continue
		}
		titled = append(titled, d)
	}
	return Settle(ctx, titled, s.render, func(d types.DiagramRequest, err error) {
		s.logger().Warn("diagram generation failed",
			slog.String("stage", string(StageDiagrams)),
			slog.String("title", d.Title),
			slog.Any("error", err))
	})
}

func (s *DiagramStage) render(ctx context.Context, d types.DiagramRequest) (types.GeneratedImage, error) {
	prompt := DiagramPrompt(d)
	img, err := s.LLM.GenerateImage(ctx, llm.ImageRequest{
		Prompt:      prompt,
		AspectRatio: s.AspectRatio,
		Size:        s.Size,
	})
	if err != nil {
		return types.GeneratedImage{}, err
	}
	if img == nil || len(img.Data) == 0 {
		return types.GeneratedImage{}, errNoImage
	}
	return types.GeneratedImage{
		DiagramType: d.Type,
		Title:       d.Title,
		DataURL:     img.DataURL(),
		Prompt:      prompt,
	}, nil
}

// DiagramPrompt builds the enriched image prompt for one plan entry.
func DiagramPrompt(d types.DiagramRequest) string {
	style := hardwareStyle
	if d.Type == types.DiagramUIScreen {
		style = screenStyle
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s.\n", style)
	fmt.Fprintf(&b, "View: %s.\n", d.Type.Label())
	fmt.Fprintf(&b, "Title: %s.\n", d.Title)
	if desc := strings.TrimSpace(d.Description); desc != "" {
		fmt.Fprintf(&b, "Subject: %s\n", desc)
	}
	b.WriteString(renderQuality)
	return b.String()
}

func (s *DiagramStage) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"designforge/internal/llm"
	"designforge/internal/schema"
	"designforge/internal/types"
	"designforge/internal/util/jsonutil"
)

const DefaultVoice = "Kore"

const codePromptTemplate = `Write a compact but complete reference implementation for this product.

Product: %s
Product type: %s
Summary: %s
Parts:
%s
Target: %s

Return JSON with "language" (short tag), "code" (the full source) and
"explanation" (markdown, how the code maps onto the design).`

const pitchPromptTemplate = `Say in an upbeat, confident presenter voice:
Meet %s. %s
Built for the people who need it most, %s is ready to change how you work.`

type CodeStage struct{ LLM llm.Client }

// Run asks for an implementation snippet suited to the product category.
func (s *CodeStage) Run(ctx context.Context, spec *types.ProductSpecification) (*types.GeneratedCode, error) {
	ctx = llm.WithPhase(ctx, llm.PhaseCode)
	raw, err := s.LLM.GenerateStructured(ctx, llm.StructuredRequest{
		Prompt: fmt.Sprintf(codePromptTemplate,
			spec.ProductName, spec.ProductType, spec.Summary, partLines(spec.PartsList), codeTarget(spec.ProductType)),
		Schema: schema.Code(),
	})
	if err != nil {
		return nil, err
	}
	var code types.GeneratedCode
	if err := jsonutil.UnmarshalFlex(raw, &code); err != nil {
		return nil, fmt.Errorf("code JSON invalid: %w", err)
	}
	code.Language = strings.ToLower(strings.TrimSpace(code.Language))
	if strings.TrimSpace(code.Code) == "" {
		return nil, errors.New("code response has no source")
	}
	return &code, nil
}

func codeTarget(pt types.ProductType) string {
	if pt == types.ProductDigital {
		return "application UI code (a single React + TypeScript component or equivalent) for the main screen"
	}
	return "embedded firmware (Arduino-style C++ or MicroPython) that drives the listed sensors and actuators"
}

func partLines(parts []types.Part) string {
	if len(parts) == 0 {
		return "- (none listed)"
	}
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

type PitchStage struct {
	LLM   llm.Client
	Voice string
}

// Run synthesizes a short narrated pitch and returns it as a data URL.
func (s *PitchStage) Run(ctx context.Context, spec *types.ProductSpecification) (string, error) {
	ctx = llm.WithPhase(ctx, llm.PhasePitch)
	voice := s.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	audio, err := s.LLM.SynthesizeSpeech(ctx, llm.SpeechRequest{
		Prompt: fmt.Sprintf(pitchPromptTemplate, spec.ProductName, spec.Summary, spec.ProductName),
		Voice:  voice,
	})
	if err != nil {
		return "", err
	}
	if audio == nil || len(audio.Data) == 0 {
		return "", errors.New("no audio part in response")
	}
	return playableAudio(audio).DataURL(), nil
}

// AuxiliaryStage runs the code and pitch requests concurrently. Both are
// optional; failures only leave the corresponding field empty.
type AuxiliaryStage struct {
	Code   *CodeStage
	Pitch  *PitchStage
	Logger *slog.Logger
}

func (s *AuxiliaryStage) Run(ctx context.Context, spec *types.ProductSpecification) (*types.GeneratedCode, string) {
	var (
		code  *types.GeneratedCode
		audio string
		g     errgroup.Group
	)
	g.Go(func() error {
		c, err := s.Code.Run(ctx, spec)
		if err != nil {
			s.logger().Warn("code generation failed", slog.String("stage", string(StageAuxiliary)), slog.Any("error", err))
			return nil
		}
		code = c
		return nil
	})
	g.Go(func() error {
		a, err := s.Pitch.Run(ctx, spec)
		if err != nil {
			s.logger().Warn("pitch audio failed", slog.String("stage", string(StageAuxiliary)), slog.Any("error", err))
			return nil
		}
		audio = a
		return nil
	})
	_ = g.Wait()
	return code, audio
}

func (s *AuxiliaryStage) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

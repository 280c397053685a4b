package pipeline

import (
	"context"
	"fmt"
	"strings"

	"designforge/internal/llm"
	"designforge/internal/schema"
	"designforge/internal/types"
)

const specSystemInstruction = `You are a senior product design engineer who turns rough product ideas
into buildable specifications. Be concrete: name real component families,
plausible dimensions and materials, and testable checks. Never invent
constraints the user did not imply; use null instead.`

const specPromptTemplate = `Create a complete product specification for the idea below.

Product type: %s
Idea:
%s

Rules:
- productType must be %q.
- partsList: every major part with name and description; dimensions, material,
  quantity and role when they can be estimated.
- diagramsPlan: 2 to 4 diagrams that best explain the design. For digital
  products prefer "ui_screen"; for hardware prefer "top", "side", "exploded"
  or "section". Each description must be a precise visual brief an image model
  can render without further context.
- constraints: null for anything that is not specified or implied.
- JSON only.`

type SpecStage struct{ LLM llm.Client }

// Run generates and normalizes the specification. Any failure is fatal for
// the pipeline, so errors are returned as is.
func (s *SpecStage) Run(ctx context.Context, description string, productType types.ProductType) (*types.ProductSpecification, error) {
	ctx = llm.WithPhase(ctx, llm.PhaseSpecification)
	raw, err := s.LLM.GenerateStructured(ctx, llm.StructuredRequest{
		Prompt:            fmt.Sprintf(specPromptTemplate, productType, strings.TrimSpace(description), productType),
		SystemInstruction: specSystemInstruction,
		Schema:            schema.Specification(),
	})
	if err != nil {
		return nil, err
	}
	spec, err := types.DecodeSpecification(raw, productType)
	if err != nil {
		return nil, fmt.Errorf("specification JSON invalid: %w", err)
	}
	return spec, nil
}

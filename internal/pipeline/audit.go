package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"designforge/internal/llm"
	"designforge/internal/schema"
	"designforge/internal/types"
	"designforge/internal/util/jsonutil"
)

const auditSystemInstruction = `You are a meticulous design reviewer. You compare a product specification
with the diagrams that were actually produced and fix the specification so
that it is internally consistent and matches those diagrams.`

const auditPromptTemplate = `Review this product specification.

Product type: %s
Specification:
%s

Diagrams actually produced:
%s

Tasks:
1. List every inconsistency: parts that the diagrams cannot show, planned
   views that were not produced, requirements that contradict constraints,
   steps that reference unknown parts.
2. Return correctedSpec: the full specification with every issue fixed, in
   the same structure. Keep productType %q. diagramsPlan must describe only
   the diagrams listed above.
JSON only.`

const noDiagramsProduced = "No diagrams were produced."

type AuditStage struct{ LLM llm.Client }

// Run reviews spec against the produced images.
func (s *AuditStage) Run(ctx context.Context, spec *types.ProductSpecification, images []types.GeneratedImage) (types.SelfCheckResult, error) {
	ctx = llm.WithPhase(ctx, llm.PhaseAudit)
	specJSON, err := jsonutil.MarshalNoEscape(spec)
	if err != nil {
		return types.SelfCheckResult{}, err
	}
	raw, err := s.LLM.GenerateStructured(ctx, llm.StructuredRequest{
		Prompt:            fmt.Sprintf(auditPromptTemplate, spec.ProductType, specJSON, DiagramSummary(images), spec.ProductType),
		SystemInstruction: auditSystemInstruction,
		Schema:            schema.Audit(),
	})
	if err != nil {
		return types.SelfCheckResult{}, err
	}

	var out struct {
		Issues        []string        `json:"issues"`
		CorrectedSpec json.RawMessage `json:"correctedSpec"`
	}
	if err := jsonutil.UnmarshalFlex(raw, &out); err != nil {
		return types.SelfCheckResult{}, fmt.Errorf("audit JSON invalid: %w", err)
	}

	result := types.SelfCheckResult{Issues: make([]string, 0, len(out.Issues))}
	for _, issue := range out.Issues {
		if issue = strings.TrimSpace(issue); issue != "" {
			result.Issues = append(result.Issues, issue)
		}
	}
	result.CorrectedSpec = spec
	if len(out.CorrectedSpec) > 0 && string(out.CorrectedSpec) != "null" {
		if corrected, err := types.DecodeSpecification(out.CorrectedSpec, spec.ProductType); err == nil {
			// The requested category is authoritative.
			corrected.ProductType = spec.ProductType
			result.CorrectedSpec = corrected
		}
	}
	return result, nil
}

// DefaultSelfCheck is the audit result used when the audit could not run.
func DefaultSelfCheck(spec *types.ProductSpecification) types.SelfCheckResult {
	return types.SelfCheckResult{Issues: []string{}, CorrectedSpec: spec}
}

// DiagramSummary lists the produced diagrams for the audit prompt.
func DiagramSummary(images []types.GeneratedImage) string {
	if len(images) == 0 {
		return noDiagramsProduced
	}
	var b strings.Builder
	for _, img := range images {
		fmt.Fprintf(&b, "- %s: %s\n", img.DiagramType, img.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

package types

import (
	"fmt"
	"strings"
)

// ProductType is the closed category set a design is generated for.
type ProductType string

const (
	ProductPhysical   ProductType = "physical"
	ProductRobotic    ProductType = "robotic"
	ProductMechanical ProductType = "mechanical"
	ProductDigital    ProductType = "digital"
)

// ProductTypes lists every accepted category in display order.
var ProductTypes = []ProductType{ProductPhysical, ProductRobotic, ProductMechanical, ProductDigital}

func (p ProductType) Valid() bool {
	switch p {
	case ProductPhysical, ProductRobotic, ProductMechanical, ProductDigital:
		return true
	default:
		return false
	}
}

// ParseProductType accepts any casing and surrounding whitespace.
func ParseProductType(s string) (ProductType, error) {
	p := ProductType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown product type %q (want one of %s)", s, joinProductTypes())
	}
	return p, nil
}

func joinProductTypes() string {
	names := make([]string, 0, len(ProductTypes))
	for _, p := range ProductTypes {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// DiagramType is the view a planned diagram should render.
type DiagramType string

const (
	DiagramTop      DiagramType = "top"
	DiagramSide     DiagramType = "side"
	DiagramExploded DiagramType = "exploded"
	DiagramSection  DiagramType = "section"
	DiagramUIScreen DiagramType = "ui_screen"
)

var DiagramTypes = []DiagramType{DiagramTop, DiagramSide, DiagramExploded, DiagramSection, DiagramUIScreen}

func (d DiagramType) Valid() bool {
	switch d {
	case DiagramTop, DiagramSide, DiagramExploded, DiagramSection, DiagramUIScreen:
		return true
	default:
		return false
	}
}

// Label is the human-facing name of a view type.
func (d DiagramType) Label() string {
	switch d {
	case DiagramTop:
		return "top view"
	case DiagramSide:
		return "side view"
	case DiagramExploded:
		return "exploded view"
	case DiagramSection:
		return "cross-section view"
	case DiagramUIScreen:
		return "UI screen"
	default:
		return "diagram"
	}
}

// Constraints holds optional design limits. A nil field means "not specified".
type Constraints struct {
	Environment  *string `json:"environment"`
	SizeLimits   *string `json:"sizeLimits"`
	WeightLimits *string `json:"weightLimits"`
	Power        *string `json:"power"`
	Safety       *string `json:"safety"`
	Budget       *string `json:"budget"`
}

type Part struct {
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	EstimatedDimensions  *string `json:"estimatedDimensions,omitempty"`
	MaterialOrTechnology *string `json:"materialOrTechnology,omitempty"`
	Quantity             *int    `json:"quantity,omitempty"`
	Role                 *string `json:"role,omitempty"`
}

type DiagramRequest struct {
	Type        DiagramType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

// ProductSpecification is the central artifact of a design packet.
// After Normalize, Constraints, PartsList and DiagramsPlan are never nil.
type ProductSpecification struct {
	ProductName                   string           `json:"productName"`
	ProductType                   ProductType      `json:"productType"`
	Summary                       string           `json:"summary"`
	UseCases                      []string         `json:"useCases"`
	Requirements                  []string         `json:"requirements"`
	Constraints                   *Constraints     `json:"constraints"`
	PartsList                     []Part           `json:"partsList"`
	DiagramsPlan                  []DiagramRequest `json:"diagramsPlan"`
	AssemblyOrImplementationSteps []string         `json:"assemblyOrImplementationSteps"`
	RisksAndTradeoffs             []string         `json:"risksAndTradeoffs"`
	ValidationChecks              []string         `json:"validationChecks"`
}

// TitledDiagrams counts plan entries that would be sent to the image model.
func (s *ProductSpecification) TitledDiagrams() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, d := range s.DiagramsPlan {
		if strings.TrimSpace(d.Title) != "" {
			n++
		}
	}
	return n
}

type GeneratedImage struct {
	DiagramType DiagramType `json:"diagramType"`
	Title       string      `json:"title"`
	DataURL     string      `json:"dataUrl"`
	Prompt      string      `json:"prompt"`
}

type GeneratedCode struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// SelfCheckResult is the audit output. CorrectedSpec may be nil; use Resolved.
type SelfCheckResult struct {
	Issues        []string              `json:"issues"`
	CorrectedSpec *ProductSpecification `json:"correctedSpec"`
}

// Resolved returns the corrected specification when it is usable and its
// plan still titles at least rendered diagrams, and the original otherwise.
func (r SelfCheckResult) Resolved(original *ProductSpecification, rendered int) *ProductSpecification {
	c := r.CorrectedSpec
	if c == nil || c.Validate() != nil || c.TitledDiagrams() < rendered {
		return original
	}
	return c
}

// DesignPacket is the merged output of one pipeline run.
type DesignPacket struct {
	Specification *ProductSpecification `json:"specification"`
	Images        []GeneratedImage      `json:"images"`
	SelfCheck     SelfCheckResult       `json:"selfCheck"`
	Code          *GeneratedCode        `json:"code,omitempty"`
	AudioURL      string                `json:"audioUrl,omitempty"`
	VideoURL      string                `json:"videoUrl,omitempty"`
}

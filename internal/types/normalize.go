package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"designforge/internal/util/jsonutil"
)

var ErrInvalidSpecification = errors.New("invalid product specification")

// DecodeSpecification parses untrusted model output into a normalized
// specification. fallback replaces a missing or unknown product type.
func DecodeSpecification(raw json.RawMessage, fallback ProductType) (*ProductSpecification, error) {
	var spec ProductSpecification
	if err := jsonutil.UnmarshalFlex(raw, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpecification, err)
	}
	Normalize(&spec, fallback)
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate reports whether a normalized specification is usable downstream.
func (s *ProductSpecification) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: empty", ErrInvalidSpecification)
	}
	if strings.TrimSpace(s.ProductName) == "" {
		return fmt.Errorf("%w: productName is required", ErrInvalidSpecification)
	}
	if !s.ProductType.Valid() {
		return fmt.Errorf("%w: productType %q", ErrInvalidSpecification, s.ProductType)
	}
	if s.Constraints == nil || s.PartsList == nil || s.DiagramsPlan == nil {
		return fmt.Errorf("%w: not normalized", ErrInvalidSpecification)
	}
	return nil
}

// Normalize fills defaults in place: nil collections become empty,
// strings are trimmed and unnamed parts are dropped. Unknown view types
// become ui_screen for digital products and top otherwise.
func Normalize(s *ProductSpecification, fallback ProductType) {
	if s == nil {
		return
	}
	s.ProductName = strings.TrimSpace(s.ProductName)
	s.Summary = strings.TrimSpace(s.Summary)

	pt := ProductType(strings.ToLower(strings.TrimSpace(string(s.ProductType))))
	if !pt.Valid() {
		pt = fallback
	}
	s.ProductType = pt

	s.UseCases = cleanList(s.UseCases)
	s.Requirements = cleanList(s.Requirements)
	s.AssemblyOrImplementationSteps = cleanList(s.AssemblyOrImplementationSteps)
	s.RisksAndTradeoffs = cleanList(s.RisksAndTradeoffs)
	s.ValidationChecks = cleanList(s.ValidationChecks)

	if s.Constraints == nil {
		s.Constraints = &Constraints{}
	}
	c := s.Constraints
	for _, f := range []**string{&c.Environment, &c.SizeLimits, &c.WeightLimits, &c.Power, &c.Safety, &c.Budget} {
		*f = cleanOptional(*f)
	}

	parts := make([]Part, 0, len(s.PartsList))
	for _, p := range s.PartsList {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		p.Description = strings.TrimSpace(p.Description)
		p.EstimatedDimensions = cleanOptional(p.EstimatedDimensions)
		p.MaterialOrTechnology = cleanOptional(p.MaterialOrTechnology)
		p.Role = cleanOptional(p.Role)
		if p.Quantity != nil && *p.Quantity <= 0 {
			p.Quantity = nil
		}
		parts = append(parts, p)
	}
	s.PartsList = parts

	fallbackView := DiagramTop
	if pt == ProductDigital {
		fallbackView = DiagramUIScreen
	}
	plan := make([]DiagramRequest, 0, len(s.DiagramsPlan))
	for _, d := range s.DiagramsPlan {
		d.Type = DiagramType(strings.ToLower(strings.TrimSpace(string(d.Type))))
		if !d.Type.Valid() {
			d.Type = fallbackView
		}
		d.Title = strings.TrimSpace(d.Title)
		d.Description = strings.TrimSpace(d.Description)
		plan = append(plan, d)
	}
	s.DiagramsPlan = plan
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cleanOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

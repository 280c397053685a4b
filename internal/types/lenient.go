package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// looseString decodes any JSON scalar as text. null, objects and arrays
// decode to nil.
type looseString struct{ v *string }

func (l *looseString) UnmarshalJSON(b []byte) error {
	l.v = scalarText(b)
	return nil
}

func (l looseString) String() string {
	if l.v == nil {
		return ""
	}
	return *l.v
}

// looseList accepts an array of scalars or a single bare scalar.
type looseList []string

func (l *looseList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			*l = nil
			return nil
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if v := scalarText(it); v != nil {
				out = append(out, *v)
			}
		}
		*l = out
		return nil
	}
	if v := scalarText(b); v != nil {
		*l = []string{*v}
		return nil
	}
	*l = nil
	return nil
}

// looseInt accepts a JSON number or a numeric string. Fractions and
// anything else decode to nil.
type looseInt struct{ v *int }

func (l *looseInt) UnmarshalJSON(b []byte) error {
	l.v = nil
	s := scalarText(b)
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	n := int(f)
	l.v = &n
	return nil
}

func scalarText(b []byte) *string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		return &s
	case 'n', '{', '[':
		return nil
	default:
		s := string(b)
		return &s
	}
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

// UnmarshalJSON keeps every constraint best-effort: scalars become text and
// other shapes are treated as unspecified.
func (c *Constraints) UnmarshalJSON(data []byte) error {
	*c = Constraints{}
	if !isObject(data) {
		return nil
	}
	var aux struct {
		Environment  looseString `json:"environment"`
		SizeLimits   looseString `json:"sizeLimits"`
		WeightLimits looseString `json:"weightLimits"`
		Power        looseString `json:"power"`
		Safety       looseString `json:"safety"`
		Budget       looseString `json:"budget"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Constraints{
		Environment:  aux.Environment.v,
		SizeLimits:   aux.SizeLimits.v,
		WeightLimits: aux.WeightLimits.v,
		Power:        aux.Power.v,
		Safety:       aux.Safety.v,
		Budget:       aux.Budget.v,
	}
	return nil
}

// UnmarshalJSON accepts a bare string as the part name. Optional fields
// with the wrong shape decode to nil.
func (p *Part) UnmarshalJSON(data []byte) error {
	*p = Part{}
	if !isObject(data) {
		if v := scalarText(data); v != nil {
			p.Name = *v
		}
		return nil
	}
	var aux struct {
		Name                 looseString `json:"name"`
		Description          looseString `json:"description"`
		EstimatedDimensions  looseString `json:"estimatedDimensions"`
		MaterialOrTechnology looseString `json:"materialOrTechnology"`
		Quantity             looseInt    `json:"quantity"`
		Role                 looseString `json:"role"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Part{
		Name:                 aux.Name.String(),
		Description:          aux.Description.String(),
		EstimatedDimensions:  aux.EstimatedDimensions.v,
		MaterialOrTechnology: aux.MaterialOrTechnology.v,
		Quantity:             aux.Quantity.v,
		Role:                 aux.Role.v,
	}
	return nil
}

func (d *DiagramRequest) UnmarshalJSON(data []byte) error {
	*d = DiagramRequest{}
	if !isObject(data) {
		return nil
	}
	var aux struct {
		Type        looseString `json:"type"`
		Title       looseString `json:"title"`
		Description looseString `json:"description"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = DiagramRequest{
		Type:        DiagramType(aux.Type.String()),
		Title:       aux.Title.String(),
		Description: aux.Description.String(),
	}
	return nil
}

// UnmarshalJSON decodes the text fields and string lists leniently.
// partsList and diagramsPlan must still be arrays.
func (s *ProductSpecification) UnmarshalJSON(data []byte) error {
	type plain ProductSpecification
	aux := struct {
		*plain
		ProductName                   looseString `json:"productName"`
		ProductType                   looseString `json:"productType"`
		Summary                       looseString `json:"summary"`
		UseCases                      looseList   `json:"useCases"`
		Requirements                  looseList   `json:"requirements"`
		AssemblyOrImplementationSteps looseList   `json:"assemblyOrImplementationSteps"`
		RisksAndTradeoffs             looseList   `json:"risksAndTradeoffs"`
		ValidationChecks              looseList   `json:"validationChecks"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ProductName = aux.ProductName.String()
	s.ProductType = ProductType(aux.ProductType.String())
	s.Summary = aux.Summary.String()
	s.UseCases = aux.UseCases
	s.Requirements = aux.Requirements
	s.AssemblyOrImplementationSteps = aux.AssemblyOrImplementationSteps
	s.RisksAndTradeoffs = aux.RisksAndTradeoffs
	s.ValidationChecks = aux.ValidationChecks
	return nil
}

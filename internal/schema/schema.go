// Package schema holds the response shapes the text model is asked to
// conform to. They are generation hints: decoded output is still normalized
// by types.DecodeSpecification.
package schema

import (
	genai "google.golang.org/genai"

	"designforge/internal/types"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func nullableStr(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc, Nullable: genai.Ptr(true)}
}

func strList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

func productTypeEnum() []string {
	out := make([]string, 0, len(types.ProductTypes))
	for _, p := range types.ProductTypes {
		out = append(out, string(p))
	}
	return out
}

func diagramTypeEnum() []string {
	out := make([]string, 0, len(types.DiagramTypes))
	for _, d := range types.DiagramTypes {
		out = append(out, string(d))
	}
	return out
}

// Specification describes types.ProductSpecification.
func Specification() *genai.Schema {
	constraints := &genai.Schema{
		Type:        genai.TypeObject,
		Description: "Known limits. Use null for anything not specified.",
		Nullable:    genai.Ptr(true),
		Properties: map[string]*genai.Schema{
			"environment":  nullableStr("Operating environment"),
			"sizeLimits":   nullableStr("Maximum size"),
			"weightLimits": nullableStr("Maximum weight"),
			"power":        nullableStr("Power source or battery requirements"),
			"safety":       nullableStr("Safety requirements"),
			"budget":       nullableStr("Target cost"),
		},
		PropertyOrdering: []string{"environment", "sizeLimits", "weightLimits", "power", "safety", "budget"},
	}
	part := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":                 str("Part name"),
			"description":          str("What the part is"),
			"estimatedDimensions":  nullableStr("Approximate dimensions"),
			"materialOrTechnology": nullableStr("Material, component family or technology"),
			"quantity":             {Type: genai.TypeInteger, Nullable: genai.Ptr(true)},
			"role":                 nullableStr("Function within the product"),
		},
		Required:         []string{"name", "description"},
		PropertyOrdering: []string{"name", "description", "estimatedDimensions", "materialOrTechnology", "quantity", "role"},
	}
	diagram := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":        {Type: genai.TypeString, Enum: diagramTypeEnum()},
			"title":       str("Short diagram title"),
			"description": str("Detailed visual description for an image generator"),
		},
		Required:         []string{"type", "title", "description"},
		PropertyOrdering: []string{"type", "title", "description"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"productName":  str("Product name"),
			"productType":  {Type: genai.TypeString, Enum: productTypeEnum()},
			"summary":      str("One paragraph summary"),
			"useCases":     strList("Primary use cases"),
			"requirements": strList("Functional and non-functional requirements"),
			"constraints":  constraints,
			"partsList":    {Type: genai.TypeArray, Items: part},
			"diagramsPlan": {
				Type:        genai.TypeArray,
				Description: "2-4 technical diagrams that best explain the design",
				Items:       diagram,
			},
			"assemblyOrImplementationSteps": strList("Ordered build or implementation steps"),
			"risksAndTradeoffs":             strList("Known risks and design tradeoffs"),
			"validationChecks":              strList("Tests that validate the design"),
		},
		Required: []string{"productName", "productType", "summary", "partsList", "diagramsPlan"},
		PropertyOrdering: []string{
			"productName", "productType", "summary", "useCases", "requirements", "constraints",
			"partsList", "diagramsPlan", "assemblyOrImplementationSteps", "risksAndTradeoffs", "validationChecks",
		},
	}
}

// Audit wraps the specification shape so a corrected spec can replace the
// original without adaptation.
func Audit() *genai.Schema {
	corrected := Specification()
	corrected.Nullable = genai.Ptr(true)
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"issues":        strList("Inconsistencies found between the specification and the diagrams"),
			"correctedSpec": corrected,
		},
		Required:         []string{"issues", "correctedSpec"},
		PropertyOrdering: []string{"issues", "correctedSpec"},
	}
}

// Code describes types.GeneratedCode.
func Code() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"language":    str("Language tag, e.g. cpp, python, tsx"),
			"code":        str("Complete source code"),
			"explanation": str("How the code works, markdown allowed"),
		},
		Required:         []string{"language", "code", "explanation"},
		PropertyOrdering: []string{"language", "code", "explanation"},
	}
}

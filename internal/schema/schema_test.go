package schema

import (
	"reflect"
	"testing"

	genai "google.golang.org/genai"
)

func TestAuditEmbedsSpecificationShape(t *testing.T) {
	spec := Specification()
	audit := Audit()

	corrected := audit.Properties["correctedSpec"]
	if corrected == nil {
		t.Fatalf("audit schema missing correctedSpec")
	}
	if !reflect.DeepEqual(corrected.Properties, spec.Properties) {
		t.Fatalf("correctedSpec properties differ from specification schema")
	}
	if !reflect.DeepEqual(corrected.Required, spec.Required) {
		t.Fatalf("required = %v, want %v", corrected.Required, spec.Required)
	}
}

func TestSpecificationEnums(t *testing.T) {
	spec := Specification()
	got := spec.Properties["productType"].Enum
	want := []string{"physical", "robotic", "mechanical", "digital"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("productType enum = %v, want %v", got, want)
	}
	diagram := spec.Properties["diagramsPlan"].Items
	if diagram.Type != genai.TypeObject {
		t.Fatalf("diagram item type = %v", diagram.Type)
	}
	if len(diagram.Properties["type"].Enum) != 5 {
		t.Fatalf("diagram type enum = %v", diagram.Properties["type"].Enum)
	}
	env := spec.Properties["constraints"].Properties["environment"]
	if env.Nullable == nil || !*env.Nullable {
		t.Fatalf("constraint fields must be nullable")
	}
}

func TestCodeRequiresAllFields(t *testing.T) {
	code := Code()
	if len(code.Required) != 3 {
		t.Fatalf("required = %v", code.Required)
	}
}

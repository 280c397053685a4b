package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"sync"
)

// FakeClient returns deterministic payloads per phase for offline runs and
// tests. Any handler left nil falls back to a canned response.
type FakeClient struct {
	Structured func(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
	Image      func(ctx context.Context, req ImageRequest) (*InlineData, error)
	Speech     func(ctx context.Context, req SpeechRequest) (*InlineData, error)
	Start      func(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	Poll       func(ctx context.Context, op *VideoOperation) (*VideoOperation, error)

	mu    sync.Mutex
	calls map[string]int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{calls: map[string]int{}}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls reports how many endpoint calls were made for a phase.
func (f *FakeClient) Calls(phase string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[phase]
}

func (f *FakeClient) record(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[PhaseFrom(ctx)]++
}

func (f *FakeClient) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	f.record(ctx)
	if f.Structured != nil {
		return f.Structured(ctx, req)
	}
	return FakeStructured(PhaseFrom(ctx), req.Prompt)
}

func (f *FakeClient) GenerateImage(ctx context.Context, req ImageRequest) (*InlineData, error) {
	f.record(ctx)
	if f.Image != nil {
		return f.Image(ctx, req)
	}
	return &InlineData{MIMEType: "image/png", Data: fakePNG()}, nil
}

func (f *FakeClient) SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*InlineData, error) {
	f.record(ctx)
	if f.Speech != nil {
		return f.Speech(ctx, req)
	}
	return &InlineData{MIMEType: "audio/L16;codec=pcm;rate=24000", Data: make([]byte, 480)}, nil
}

func (f *FakeClient) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	f.record(ctx)
	if f.Start != nil {
		return f.Start(ctx, req)
	}
	return &VideoOperation{Name: "operations/fake-video"}, nil
}

func (f *FakeClient) PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	f.record(ctx)
	if f.Poll != nil {
		return f.Poll(ctx, op)
	}
	return &VideoOperation{Name: op.Name, Done: true, URI: "https://generativelanguage.googleapis.com/v1beta/files/fake-video:download?alt=media"}, nil
}

var productTypeLine = regexp.MustCompile(`(?m)^Product type:\s*([a-z_]+)`)

// FakeStructured is the canned structured output for a phase. The product
// type is echoed from a "Product type: x" line of the prompt when present.
func FakeStructured(phase, prompt string) (json.RawMessage, error) {
	productType := "physical"
	if m := productTypeLine.FindStringSubmatch(prompt); len(m) == 2 {
		productType = m[1]
	}
	spec := FakeSpecification(productType)
	var obj any
	switch phase {
	case PhaseCode:
		obj = map[string]any{
			"language":    "cpp",
			"code":        "void setup() {}\nvoid loop() {}\n",
			"explanation": "Minimal firmware skeleton.",
		}
	case PhaseAudit:
		obj = map[string]any{
			"issues":        []string{"fake audit: no inconsistencies checked"},
			"correctedSpec": spec,
		}
	default:
		obj = spec
	}
	return json.Marshal(obj)
}

// FakeSpecification returns a small but complete specification document.
func FakeSpecification(productType string) map[string]any {
	return map[string]any{
		"productName":  "Haptic Wayfinder Band",
		"productType":  productType,
		"summary":      "A wrist-worn band that vibrates when obstacles are near.",
		"useCases":     []string{"Walking in crowded streets", "Navigating unfamiliar rooms"},
		"requirements": []string{"Detect obstacles within 2 m", "Run 12 h per charge"},
		"constraints": map[string]any{
			"environment":  "Indoor and outdoor, splash resistant",
			"sizeLimits":   nil,
			"weightLimits": "Under 60 g",
			"power":        "Rechargeable Li-Po",
			"safety":       nil,
			"budget":       "Under $80 BOM",
		},
		"partsList": []map[string]any{
			{"name": "ToF sensor", "description": "Time-of-flight distance sensor", "quantity": 2, "role": "Obstacle detection"},
			{"name": "Vibration motor", "description": "Coin ERM motor", "quantity": 1},
		},
		"diagramsPlan": []map[string]any{
			{"type": "top", "title": "Band top view", "description": "Top view of the band with sensor windows"},
			{"type": "exploded", "title": "Module exploded view", "description": "Exploded housing, PCB, battery and motor"},
			{"type": "side", "title": "Side profile", "description": "Side profile showing thickness"},
		},
		"assemblyOrImplementationSteps": []string{"Mount sensors", "Fit battery", "Seal housing"},
		"risksAndTradeoffs":             []string{"Sensor blind spots at wrist angles"},
		"validationChecks":              []string{"Detect a wall at 1.5 m in 95% of trials"},
	}
}

// 1x1 transparent PNG.
const fakePNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func fakePNG() []byte {
	b, _ := base64.StdEncoding.DecodeString(fakePNGBase64)
	return b
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	SpeechModel string
	VideoModel  string
}

const (
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVideoModel  = "veo-3.1-fast-generate-preview"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, logging) are applied via Middleware.
type GeminiClient struct {
	cli *genai.Client
	cfg GeminiConfig
}

// NewGeminiClient builds a client bound to cfg.APIKey. An empty key is not an
// error here: every call then fails with ErrMissingCredential so the failure
// stays local to the stage that made it.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = DefaultVideoModel
	}
	g := &GeminiClient{cfg: cfg}
	if cfg.APIKey == "" {
		return g, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	g.cli = cli
	return g, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.cfg.TextModel }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) ready() error {
	if g == nil || g.cli == nil {
		return ErrMissingCredential
	}
	return nil
}

// GenerateStructured asks for application/json constrained by req.Schema and
// returns the model's JSON text verbatim.
func (g *GeminiClient) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if s := strings.TrimSpace(req.SystemInstruction); s != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: s}}}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}
	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return nil, ErrNoContent
	}
	return json.RawMessage(txt), nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) (*InlineData, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
			ImageSize:   req.Size,
		},
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.cfg.ImageModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}
	return firstInline(resp, "image/"), nil
}

func (g *GeminiClient) SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*InlineData, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: req.Voice},
			},
		},
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.cfg.SpeechModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}
	return firstInline(resp, "audio/"), nil
}

func (g *GeminiClient) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	op, err := g.cli.Models.GenerateVideos(ctx, g.cfg.VideoModel, req.Prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return nil, err
	}
	return videoOperation(op), nil
}

func (g *GeminiClient) PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	if op == nil || op.Name == "" {
		return nil, fmt.Errorf("llm: video operation has no name")
	}
	next, err := g.cli.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		return nil, err
	}
	return videoOperation(next), nil
}

func videoOperation(op *genai.GenerateVideosOperation) *VideoOperation {
	if op == nil {
		return &VideoOperation{}
	}
	out := &VideoOperation{Name: op.Name, Done: op.Done}
	if len(op.Error) > 0 {
		if msg, ok := op.Error["message"]; ok {
			out.Error = fmt.Sprint(msg)
		} else {
			out.Error = fmt.Sprint(op.Error)
		}
	}
	if op.Response != nil {
		for _, v := range op.Response.GeneratedVideos {
			if v != nil && v.Video != nil && v.Video.URI != "" {
				out.URI = v.Video.URI
				break
			}
		}
	}
	return out
}

func firstInline(resp *genai.GenerateContentResponse, mimePrefix string) *InlineData {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if mimePrefix != "" && !strings.HasPrefix(part.InlineData.MIMEType, mimePrefix) {
				continue
			}
			return &InlineData{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}
		}
	}
	return nil
}

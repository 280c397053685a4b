// Package llm is the capability client for the hosted generative endpoints:
// structured text, image, speech and long-running video generation.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

var (
	// ErrMissingCredential is returned by every call when no API key was configured.
	ErrMissingCredential = errors.New("llm: missing API credential")
	// ErrNoContent means the endpoint answered without a usable payload.
	ErrNoContent = errors.New("llm: empty response from model")
)

// Client is the set of endpoint operations the pipeline depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	Name() string
	GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
	// GenerateImage returns nil, nil when the response carried no image part.
	GenerateImage(ctx context.Context, req ImageRequest) (*InlineData, error)
	// SynthesizeSpeech returns nil, nil when the response carried no audio part.
	SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*InlineData, error)
	StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error)
	Close() error
}

type StructuredRequest struct {
	Prompt            string
	SystemInstruction string
	Schema            *genai.Schema
}

type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Size        string
}

type SpeechRequest struct {
	Prompt string
	Voice  string
}

type VideoRequest struct {
	Prompt      string
	Resolution  string
	AspectRatio string
}

// InlineData is an embedded binary payload returned by the image and speech models.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the payload as a data: URI.
func (d *InlineData) DataURL() string {
	if d == nil {
		return ""
	}
	mime := strings.TrimSpace(d.MIMEType)
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// VideoOperation is a handle to a long-running video generation job.
type VideoOperation struct {
	Name  string
	Done  bool
	URI   string
	Error string
}

// Package capabilities declares the provider boundaries consumed by the engines.
// Each interface is satisfied by a REST binding under internal/providers.
package capabilities

import (
	"context"

	"github.com/goccy/go-json"
)

// FunctionSchema describes a structured-output function offered to the vision model.
type FunctionSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Analysis carries whatever the vision model produced: function-call arguments
// when it used the declared function, free text otherwise (or both).
type Analysis struct {
	StructuredArgs json.RawMessage
	Text           string
}

type VisionRecommender interface {
	Analyze(ctx context.Context, image []byte, mimeType, prompt string, schema FunctionSchema) (*Analysis, error)
}

type TextDescriber interface {
	Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// TextGenerator answers a plain text prompt; used for connection self-tests.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Chunk is one element of an image-edit stream. Exactly one of Data or Text is set.
type Chunk struct {
	Data     []byte
	MimeType string
	Text     string
}

// ChunkStream yields chunks until Next returns io.EOF.
type ChunkStream interface {
	Next() (Chunk, error)
	Close() error
}

type ImageEditor interface {
	Edit(ctx context.Context, image []byte, mimeType, instruction string) (ChunkStream, error)
}

type VideoRequest struct {
	ImageDataURI  string
	Prompt        string
	Duration      string
	Resolution    string
	GenerateAudio bool
}

type GeneratedVideo struct {
	URL string
}

// VideoGenerator is long-running: Generate blocks until the provider returns a result URL.
type VideoGenerator interface {
	Generate(ctx context.Context, req VideoRequest) (*GeneratedVideo, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type SearchHit struct {
	URL   string
	Title string
	Text  string
}

type WebSearch interface {
	Search(ctx context.Context, query string, numResults int) ([]SearchHit, error)
	Configured() bool
}

// Package whisperapi provides a Transcriber backed by the OpenAI audio
// transcription API (Whisper).
package whisperapi

import (
	"context"
	"fmt"
	"io"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/otoscribe/otoscribe/pkg/provider/stt"
)

const defaultLanguage = "ja"

// Provider implements stt.Transcriber using the OpenAI Whisper API.
type Provider struct {
	client   oai.Client
	model    string
	language string
}

// Compile-time interface check.
var _ stt.Transcriber = (*Provider)(nil)

// Option is a functional option for Provider.
type Option func(*Provider)

// WithLanguage sets the expected audio language. Default: "ja".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// New constructs a Whisper API Transcriber. model is typically
// "whisper-1".
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisperapi: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("whisperapi: model must not be empty")
	}

	p := &Provider{
		client:   oai.NewClient(option.WithAPIKey(apiKey)),
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Transcriber.
func (p *Provider) Transcribe(ctx context.Context, audio io.Reader, filename string) (*stt.Transcript, error) {
	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(audio, filename, "application/octet-stream"),
		Model: oai.AudioModel(p.model),
	}
	if p.language != "" {
		params.Language = param.NewOpt(p.language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: transcribe: %w", err)
	}

	return &stt.Transcript{
		Text:     resp.Text,
		Language: p.language,
	}, nil
}

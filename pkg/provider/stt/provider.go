// Package stt defines the Transcriber interface for Speech-to-Text
// backends.
//
// The correction pipeline treats transcription as an opaque collaborator:
// audio goes in, Japanese text comes out. Implementations must be safe
// for concurrent use.
package stt

import (
	"context"
	"io"
)

// Transcript is the result of one transcription call.
type Transcript struct {
	// Text is the full transcribed text.
	Text string

	// Language is the detected or requested language code (e.g., "ja").
	Language string
}

// Transcriber is the abstraction over any STT backend.
type Transcriber interface {
	// Transcribe converts the audio stream to text. filename carries the
	// original name so the backend can infer the container format.
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*Transcript, error)
}

// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/otoscribe/otoscribe/pkg/provider/stt"
)

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Transcript is returned from Transcribe when Err is nil.
	Transcript *stt.Transcript

	// Err, if non-nil, is returned instead of Transcript.
	Err error

	// Filenames records the filename of each call in order.
	Filenames []string
}

// Compile-time interface check.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (*stt.Transcript, error) {
	t.mu.Lock()
	t.Filenames = append(t.Filenames, filename)
	t.mu.Unlock()

	if t.Err != nil {
		return nil, t.Err
	}
	if t.Transcript != nil {
		return t.Transcript, nil
	}
	return &stt.Transcript{}, nil
}

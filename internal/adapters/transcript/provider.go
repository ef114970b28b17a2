// Package transcript supplies optional transcript text for week
// inference. The provider is a compile-time strategy: callers that do
// not configure one get NullProvider, and the pipeline simply loses the
// transcript inference method, never an error.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"coachledger/internal/domain/model"
)

// Provider fetches transcript text for an event. ok=false means no
// transcript exists; err is reserved for genuine collaborator failures.
type Provider interface {
	Text(ctx context.Context, event model.RecordingEvent) (text string, ok bool, err error)
}

// NullProvider is the explicit no-transcripts default.
type NullProvider struct{}

// Text implements Provider; it never has a transcript.
func (NullProvider) Text(context.Context, model.RecordingEvent) (string, bool, error) {
	return "", false, nil
}

// DirProvider reads plain-text transcripts from a directory, one file
// per recording named <externalID>.txt.
type DirProvider struct {
	dir string
}

// NewDirProvider creates a directory-backed provider.
func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{dir: dir}
}

// Text implements Provider.
func (p *DirProvider) Text(_ context.Context, event model.RecordingEvent) (string, bool, error) {
	id := strings.TrimSpace(event.ExternalID)
	if id == "" {
		return "", false, nil
	}
	// External IDs come from upstream; keep path traversal out.
	id = filepath.Base(id)

	data, err := os.ReadFile(filepath.Join(p.dir, id+".txt"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read transcript for %s: %w", id, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

// MapProvider serves transcripts from a fixed map keyed by external ID.
// Tests use it to pin transcript-based inference.
type MapProvider map[string]string

// Text implements Provider.
func (m MapProvider) Text(_ context.Context, event model.RecordingEvent) (string, bool, error) {
	text, ok := m[event.ExternalID]
	return text, ok && text != "", nil
}

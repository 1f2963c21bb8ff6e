package judge0

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FileBundle lazily loads the constant additional-files bundle attached to
// LanguageSQLite submissions. The bundle is fetched at most once per
// successful load and then served from memory; a failed fetch is not cached.
type FileBundle struct {
	source string
	client *http.Client

	mu     sync.RWMutex
	data   string
	loaded bool
	group  singleflight.Group
}

// NewFileBundle creates a bundle loaded from source, which is either an
// http(s) URL or a local file path holding the base64 zip.
func NewFileBundle(source string, client *http.Client) *FileBundle {
	if client == nil {
		client = http.DefaultClient
	}
	return &FileBundle{source: source, client: client}
}

// StaticFileBundle returns a bundle that is already loaded.
func StaticFileBundle(data string) *FileBundle {
	return &FileBundle{data: data, loaded: true}
}

// Get returns the bundle, loading it on first use.
func (b *FileBundle) Get(ctx context.Context) (string, error) {
	b.mu.RLock()
	if b.loaded {
		data := b.data
		b.mu.RUnlock()
		return data, nil
	}
	b.mu.RUnlock()

	v, err, _ := b.group.Do("bundle", func() (any, error) {
		data, err := b.load(ctx)
		if err != nil {
			return "", err
		}
		b.mu.Lock()
		b.data, b.loaded = data, true
		b.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *FileBundle) load(ctx context.Context) (string, error) {
	if b.source == "" {
		return "", &TransportError{Op: "additional_files", Err: fmt.Errorf("no additional files source configured")}
	}

	if !strings.HasPrefix(b.source, "http://") && !strings.HasPrefix(b.source, "https://") {
		data, err := os.ReadFile(b.source)
		if err != nil {
			return "", &TransportError{Op: "additional_files", Err: err}
		}
		return strings.TrimSpace(string(data)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.source, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", networkError(ctx, "additional_files", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", httpError("additional_files", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "additional_files", StatusCode: resp.StatusCode, Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

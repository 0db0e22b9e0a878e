package overlay

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/framecast/framecast/internal/models"
)

// LoadError reports a failed overlay fetch or decode. It is non-fatal to the
// pipeline: the compositor skips the overlay draw until an asset resolves.
type LoadError struct {
	URI string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("overlay %s: %v", e.URI, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Asset holds the decoded overlay images for both orientations. Immutable
// once loaded; safe to share across the render loop and exporters.
type Asset struct {
	portrait  image.Image
	landscape image.Image
}

// Select returns the overlay image for exactly one orientation, or nil if
// that orientation never loaded.
func (a *Asset) Select(o models.Orientation) image.Image {
	if a == nil {
		return nil
	}
	if o == models.Portrait {
		return a.portrait
	}
	return a.landscape
}

// Loader fetches overlay images from remote URIs or local paths. Failures are
// recorded, not thrown: Asset() keeps returning whatever has loaded so far
// and Retry() re-attempts missing orientations at most once per interval.
type Loader struct {
	client        *http.Client
	portraitURI   string
	landscapeURI  string
	retryInterval time.Duration

	mu        sync.Mutex
	asset     Asset
	lastErr   error
	lastRetry time.Time
}

// NewLoader creates a loader for the campaign's overlay URIs. Either URI may
// be empty, in which case that orientation simply has no overlay.
func NewLoader(portraitURI, landscapeURI string) *Loader {
	return &Loader{
		client:        &http.Client{Timeout: 15 * time.Second},
		portraitURI:   portraitURI,
		landscapeURI:  landscapeURI,
		retryInterval: 2 * time.Second,
	}
}

// SetRetryInterval adjusts the minimum spacing between Retry attempts.
func (l *Loader) SetRetryInterval(d time.Duration) {
	l.mu.Lock()
	l.retryInterval = d
	l.mu.Unlock()
}

// Load fetches and decodes both orientations. A failure on one orientation
// does not prevent the other from loading; the first error is returned so
// callers can warn, but the pipeline continues either way.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadMissingLocked(ctx)
}

// Retry re-attempts any orientation that has not loaded yet, rate limited to
// one attempt per retry interval so a dead URI cannot stall the render loop.
func (l *Loader) Retry(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastRetry) < l.retryInterval {
		return
	}
	l.lastRetry = time.Now()
	_ = l.loadMissingLocked(ctx)
}

// Asset returns the current snapshot of loaded overlays.
func (l *Loader) Asset() *Asset {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.asset
	return &a
}

// Err returns the most recent load error, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Loader) loadMissingLocked(ctx context.Context) error {
	var firstErr error

	if l.asset.portrait == nil && l.portraitURI != "" {
		img, err := l.fetch(ctx, l.portraitURI)
		if err != nil {
			firstErr = err
		} else {
			l.asset.portrait = img
		}
	}

	if l.asset.landscape == nil && l.landscapeURI != "" {
		img, err := l.fetch(ctx, l.landscapeURI)
		if err != nil && firstErr == nil {
			firstErr = err
		} else if err == nil {
			l.asset.landscape = img
		}
	}

	l.lastErr = firstErr
	return firstErr
}

// fetch retrieves and decodes a single overlay image.
func (l *Loader) fetch(ctx context.Context, uri string) (image.Image, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return l.fetchRemote(ctx, uri)
	}
	return loadLocal(uri)
}

func (l *Loader) fetchRemote(ctx context.Context, uri string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &LoadError{URI: uri, Err: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &LoadError{URI: uri, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &LoadError{URI: uri, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, &LoadError{URI: uri, Err: err}
	}

	return img, nil
}

func loadLocal(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{URI: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &LoadError{URI: path, Err: err}
	}

	return img, nil
}

package imagesource

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"azure-face-go/config"

	log "github.com/sirupsen/logrus"
)

// Source designates one way of obtaining an image payload. A source is
// resolved into a byte buffer exactly once, before any validation or remote
// call happens. The variant set is closed.
type Source interface {
	resolve(ctx context.Context, r *Resolver) ([]byte, error)
}

// Base64 is an inline base64-encoded image payload.
type Base64 string

// File is a path to an image on the local filesystem.
type File string

// URL is a remote image fetched over HTTP.
type URL string

// Camera names a configured camera whose snapshot URL is fetched.
type Camera string

// Pick chooses a source from the optional request fields. Inline data wins
// over a file path, which wins over a URL.
func Pick(imageData, imagePath, imageURL string) (Source, error) {
	switch {
	case imageData != "":
		return Base64(imageData), nil
	case imagePath != "":
		return File(imagePath), nil
	case imageURL != "":
		return URL(imageURL), nil
	}
	return nil, fmt.Errorf("must provide either image_data, image_path, or image_url")
}

// Resolver turns sources into image bytes. Acquisition failures are plain
// errors; only the downstream validator and API client produce typed ones.
type Resolver struct {
	cameras    map[string]config.CameraConfig
	httpClient *http.Client
}

// NewResolver creates a resolver for the configured cameras.
func NewResolver(cameras map[string]config.CameraConfig) *Resolver {
	return &Resolver{
		cameras: cameras,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Resolve fetches the image bytes for src.
func (r *Resolver) Resolve(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("no image source provided")
	}
	return src.resolve(ctx, r)
}

func (b Base64) resolve(_ context.Context, _ *Resolver) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	return data, nil
}

func (f File) resolve(_ context.Context, _ *Resolver) ([]byte, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file %s: %w", string(f), err)
	}
	return data, nil
}

func (u URL) resolve(ctx context.Context, r *Resolver) ([]byte, error) {
	return r.fetch(ctx, string(u))
}

func (c Camera) resolve(ctx context.Context, r *Resolver) ([]byte, error) {
	camera, ok := r.cameras[string(c)]
	if !ok {
		return nil, fmt.Errorf("unknown camera %q", string(c))
	}
	return r.fetch(ctx, camera.SnapshotURL)
}

// fetch downloads an image into memory.
func (r *Resolver) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	log.Debugf("Downloading image from: %s", imageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image from %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image from %s, status code: %d", imageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image from %s: %w", imageURL, err)
	}
	return data, nil
}

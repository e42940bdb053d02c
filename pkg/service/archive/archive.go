package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/hera-health/hera/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultPrefix is the object name prefix used when none is configured
const DefaultPrefix = "scraped"

// ObjectName returns the object path of the content scraped from url during
// the ingestion run runID
func ObjectName(prefix, runID, url string) string {
	sum := sha256.Sum256([]byte(url))
	return path.Join(prefix, runID, hex.EncodeToString(sum[:16])+".md")
}

// GCS stores raw scraped markdown in a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.Archive = &GCS{}

// GCSOption is a functional option for GCS configuration
type GCSOption func(*GCS)

// WithPrefix sets the object name prefix
func WithPrefix(prefix string) GCSOption {
	return func(g *GCS) {
		g.prefix = prefix
	}
}

// NewGCS creates a Cloud Storage archive writing into bucket
func NewGCS(ctx context.Context, bucket string, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	g := &GCS{
		client: client,
		bucket: bucket,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Put writes content as one object per run and URL
func (g *GCS) Put(ctx context.Context, runID, url, content string) error {
	name := ObjectName(g.prefix, runID, url)

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/markdown; charset=utf-8"
	w.Metadata = map[string]string{
		"source_url": url,
		"run_id":     runID,
	}

	if _, err := io.WriteString(w, content); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archive object",
			goerr.V("bucket", g.bucket),
			goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive object",
			goerr.V("bucket", g.bucket),
			goerr.V("object", name))
	}
	return nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}

// Noop discards content. It is used when no bucket is configured.
type Noop struct{}

var _ interfaces.Archive = Noop{}

func (Noop) Put(ctx context.Context, runID, url, content string) error {
	return nil
}

// Package watch loads files from disk into the retrieval index and keeps
// a directory in sync with it as files are created, changed or removed.
package watch

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: path fingerprint, not security.
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/logger"
	"github.com/custodia-labs/newsdesk/internal/normalisers"
)

const (
	// DefaultMaxFileBytes is the largest file read from disk.
	DefaultMaxFileBytes int64 = 32 << 20

	// DefaultConcurrency is the number of files loaded in parallel by IngestDir.
	DefaultConcurrency = 4
)

// Ingester reads files, extracts their text and indexes them under a
// stable ID derived from the absolute path. Files that cannot be read
// as text are recorded as error stubs, one per path.
type Ingester struct {
	index        driving.IndexService
	registry     driven.NormaliserRegistry
	maxFileBytes int64
	concurrency  int

	mu    sync.Mutex
	stubs map[string]string // abs path -> stub document ID
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithMaxFileBytes sets the largest file that is read.
func WithMaxFileBytes(n int64) IngesterOption {
	return func(i *Ingester) {
		if n > 0 {
			i.maxFileBytes = n
		}
	}
}

// WithConcurrency sets the number of files IngestDir loads in parallel.
func WithConcurrency(n int) IngesterOption {
	return func(i *Ingester) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// NewIngester creates an ingester. A nil registry uses the built-in normalisers.
func NewIngester(index driving.IndexService, registry driven.NormaliserRegistry, opts ...IngesterOption) *Ingester {
	if registry == nil {
		registry = normalisers.NewDefaultRegistry()
	}
	i := &Ingester{
		index:        index,
		registry:     registry,
		maxFileBytes: DefaultMaxFileBytes,
		concurrency:  DefaultConcurrency,
		stubs:        make(map[string]string),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// DocumentID returns the stable document ID of a file path.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := md5.Sum([]byte(path)) //nolint:gosec // G401: fingerprint only.
	return "file-" + hex.EncodeToString(sum[:8])
}

// IngestFile indexes one file. An unsupported or oversized file is
// recorded as a stub and returned without error; its Status is error.
func (i *Ingester) IngestFile(ctx context.Context, path string, kind domain.SourceKind) (*domain.DocumentRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > i.maxFileBytes {
		return i.stub(ctx, path, fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), i.maxFileBytes))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := i.registry.Normalise(ctx, domain.SourceFile{Path: path, Content: content})
	if errors.Is(err, domain.ErrUnsupportedFormat) {
		return i.stub(ctx, path, "unsupported format")
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	doc.ID = DocumentID(path)
	doc.SourceKind = kind
	indexed, err := i.index.Index(ctx, *doc)
	if err != nil {
		return nil, err
	}
	i.clearStub(ctx, path)
	return indexed, nil
}

// RemoveFile removes the document and any stub recorded for a path.
func (i *Ingester) RemoveFile(ctx context.Context, path string) error {
	i.clearStub(ctx, path)
	return i.index.Remove(ctx, DocumentID(path))
}

// IngestDir indexes every visible regular file below dir. Failures of
// single files are logged and joined into the returned error; the
// remaining files are still indexed.
func (i *Ingester) IngestDir(ctx context.Context, dir string, kind domain.SourceKind) ([]domain.DocumentRecord, error) {
	paths, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.DocumentRecord, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for n, path := range paths {
		g.Go(func() error {
			doc, err := i.IngestFile(gctx, path, kind)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Skipping %s: %v", path, err)
				failures[n] = err
				return nil
			}
			results[n] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]domain.DocumentRecord, 0, len(paths))
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	logger.Info("Loaded %d of %d files from %s", len(docs), len(paths), dir)
	return docs, errors.Join(failures...)
}

func (i *Ingester) stub(ctx context.Context, path, reason string) (*domain.DocumentRecord, error) {
	i.clearStub(ctx, path)
	doc, err := i.index.RegisterStub(ctx, filepath.Base(path), normalisers.FormatLabel(path), reason)
	if err != nil {
		return nil, err
	}
	i.mu.Lock()
	i.stubs[absPath(path)] = doc.ID
	i.mu.Unlock()
	logger.Debug("Recorded %s as unsupported: %s", path, reason)
	return doc, nil
}

func (i *Ingester) clearStub(ctx context.Context, path string) {
	key := absPath(path)
	i.mu.Lock()
	id, ok := i.stubs[key]
	delete(i.stubs, key)
	i.mu.Unlock()
	if ok {
		if err := i.index.Remove(ctx, id); err != nil {
			logger.Warn("Failed to remove stub %s: %v", id, err)
		}
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// listFiles returns the visible regular files below dir in lexical order.
func listFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return paths, nil
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

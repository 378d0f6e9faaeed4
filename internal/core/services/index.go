package services

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: content fingerprint, not a security boundary.
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// previewLength is the number of characters kept as a document preview.
const previewLength = 400

// Defaults applied when options are not given.
const (
	defaultEmbedTimeout     = 10 * time.Second
	defaultEmbedConcurrency = 4
)

// IndexService is the retrieval index. It owns documents and their chunks,
// and answers top-K queries with vector scoring where vectors exist and
// keyword scoring everywhere else.
type IndexService struct {
	store            driven.ChunkStore
	chunker          driven.Chunker
	embeddingService driven.EmbeddingService

	maxChunks        int
	embedTimeout     time.Duration
	embedConcurrency int

	locks *keyedMutex
}

// IndexOption configures the index service.
type IndexOption func(*IndexService)

// WithEmbeddingService enables vector scoring. A nil service is allowed.
func WithEmbeddingService(svc driven.EmbeddingService) IndexOption {
	return func(s *IndexService) {
		s.embeddingService = svc
	}
}

// WithMaxChunks rejects documents producing more chunks. Zero disables the limit.
func WithMaxChunks(n int) IndexOption {
	return func(s *IndexService) {
		s.maxChunks = n
	}
}

// WithEmbedTimeout bounds every embedding call.
func WithEmbedTimeout(d time.Duration) IndexOption {
	return func(s *IndexService) {
		if d > 0 {
			s.embedTimeout = d
		}
	}
}

// WithEmbedConcurrency sets how many chunks are embedded in parallel.
func WithEmbedConcurrency(n int) IndexOption {
	return func(s *IndexService) {
		if n > 0 {
			s.embedConcurrency = n
		}
	}
}

// NewIndexService creates a new index service over an initialised store.
func NewIndexService(store driven.ChunkStore, chunker driven.Chunker, opts ...IndexOption) *IndexService {
	s := &IndexService{
		store:            store,
		chunker:          chunker,
		embedTimeout:     defaultEmbedTimeout,
		embedConcurrency: defaultEmbedConcurrency,
		locks:            newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Index chunks and embeds a document, then replaces any prior version.
// Writers of the same document ID are serialised; other IDs proceed in parallel.
func (s *IndexService) Index(ctx context.Context, doc domain.DocumentRecord) (*domain.DocumentRecord, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Name == "" {
		doc.Name = doc.ID
	}
	if doc.SourceKind == "" {
		doc.SourceKind = domain.SourceUploaded
	}
	if !doc.SourceKind.IsValid() {
		return nil, fmt.Errorf("%w: source kind %q", domain.ErrInvalidInput, doc.SourceKind)
	}
	if doc.Type == "" {
		doc.Type = "TEXT"
	}

	unlock := s.locks.Lock(doc.ID)
	defer unlock()

	hash := contentHash(doc.RawText)
	if existing, err := s.store.Get(ctx, doc.ID); err == nil {
		if existing.Status == domain.StatusIndexed && existing.ContentHash == hash {
			logger.Debug("Index %s: content unchanged, skipping", doc.ID)
			return existing, nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get document %s: %w", doc.ID, err)
	}

	windows := s.chunker.Chunk(doc.RawText)
	if s.maxChunks > 0 && len(windows) > s.maxChunks {
		return nil, fmt.Errorf("%w: %s produces %d chunks, limit is %d",
			domain.ErrTooLarge, doc.ID, len(windows), s.maxChunks)
	}

	chunks := make([]domain.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.Chunk{
			DocumentID:          doc.ID,
			Sequence:            w.Sequence,
			Text:                w.Text,
			OverlapWithPrevious: w.Overlap,
		}
	}

	if err := s.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	doc.Status = domain.StatusIndexed
	doc.Message = ""
	doc.ContentHash = hash
	doc.ChunkCount = len(chunks)
	doc.Preview = ""
	if len(chunks) > 0 {
		doc.Preview = truncateRunes(chunks[0].Text, previewLength)
	}
	doc.UpdatedAt = time.Now()

	if err := s.store.Put(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("store document %s: %w", doc.ID, err)
	}

	logger.Debug("Indexed %s (%q): %d chunks", doc.ID, doc.Name, len(chunks))
	return &doc, nil
}

// embedChunks attaches vectors to chunks in place. Failures leave the
// chunk without a vector; only cancellation of ctx is returned.
func (s *IndexService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if s.embeddingService == nil || len(chunks) == 0 {
		return nil
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)

	for i := range chunks {
		g.Go(func() error {
			vec, err := s.embed(gctx, chunks[i].Text)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				return nil
			}
			chunks[i].Embedding = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		logger.Warn("Embedding unavailable for %d of %d chunks, using keyword scoring", n, len(chunks))
	}
	return nil
}

// embed calls the embedding service under the configured timeout.
func (s *IndexService) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	vec, err := s.embeddingService.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return vec, nil
}

// Search returns the top hits for a query. Embedding failure degrades
// every chunk to keyword scoring and is never returned as an error.
func (s *IndexService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	logger.Section("Index Search")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchHit{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	docs, err := s.store.Snapshot(ctx, opts.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var queryVec []float32
	if s.embeddingService != nil {
		queryVec, err = s.embed(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Query embedding failed, keyword scoring only: %v", err)
		}
	}

	scorers := []chunkScorer{vectorScorer{query: queryVec}, newKeywordScorer(query)}
	lists := make(map[domain.ScoreMethod][]scoredChunk)

	for _, d := range docs {
		if d.Document.Status != domain.StatusIndexed {
			continue
		}
		for _, c := range d.Chunks {
			for _, scorer := range scorers {
				if !scorer.Applies(c) {
					continue
				}
				if score := scorer.Score(c); score > 0 {
					lists[scorer.Method()] = append(lists[scorer.Method()], scoredChunk{
						docID:   d.Document.ID,
						docName: d.Document.Name,
						chunk:   c,
						raw:     score,
						method:  scorer.Method(),
					})
				}
				break
			}
		}
	}

	vectorList, keywordList := lists[domain.ScoreVector], lists[domain.ScoreKeyword]
	rankList(vectorList)
	rankList(keywordList)
	logger.Debug("Scored chunks: vector=%d, keyword=%d", len(vectorList), len(keywordList))

	merged := reciprocalRankFusion(rrfK, vectorList, keywordList)
	if len(merged) > topK {
		merged = merged[:topK]
	}

	hits := make([]domain.SearchHit, len(merged))
	for i, sc := range merged {
		hits[i] = domain.SearchHit{
			DocumentID:   sc.docID,
			DocumentName: sc.docName,
			ChunkIndex:   sc.chunk.Sequence,
			Score:        sc.fused,
			RawScore:     sc.raw,
			Method:       sc.method,
			Text:         sc.chunk.Text,
		}
	}

	logger.Info("Search results: %d", len(hits))
	return hits, nil
}

// Remove deletes a document and all its chunks.
func (s *IndexService) Remove(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Get retrieves a document by ID.
func (s *IndexService) Get(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	return s.store.Get(ctx, id)
}

// List returns every document.
func (s *IndexService) List(ctx context.Context) ([]domain.DocumentRecord, error) {
	return s.store.List(ctx)
}

// RegisterStub records a document that could not be read.
func (s *IndexService) RegisterStub(ctx context.Context, name, docType, message string) (*domain.DocumentRecord, error) {
	doc := domain.DocumentRecord{
		ID:         uuid.NewString(),
		Name:       strings.TrimSuffix(name, filepath.Ext(name)),
		SourceKind: domain.SourceUploaded,
		Type:       docType,
		Status:     domain.StatusError,
		Message:    message,
		UpdatedAt:  time.Now(),
	}
	if err := s.store.Put(ctx, doc, nil); err != nil {
		return nil, fmt.Errorf("store stub %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func contentHash(text string) string {
	sum := md5.Sum([]byte(text)) //nolint:gosec // G401: fingerprint only.
	return hex.EncodeToString(sum[:])
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

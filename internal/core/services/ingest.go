package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campfire-labs/campfire/internal/chunker"
	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/core/ports/driving"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService loads source files into the corpus: extract, chunk, store.
// A failure after the document row is written rolls the document back so the
// corpus never holds a half-ingested file.
type IngestService struct {
	store      driven.CorpusStore
	extractors []driven.Extractor
	chunker    *chunker.Chunker
}

// NewIngestService creates an ingestion service. Extractors are consulted in
// order; the first one supporting a file's extension wins.
func NewIngestService(store driven.CorpusStore, extractors []driven.Extractor, c *chunker.Chunker) *IngestService {
	if c == nil {
		c = chunker.New()
	}
	return &IngestService{store: store, extractors: extractors, chunker: c}
}

// IngestFile extracts, chunks, and stores one file. An empty title defaults
// to the file name without its extension. An empty docID mints a fresh one;
// a docID already in the corpus is skipped, not re-indexed.
func (s *IngestService) IngestFile(ctx context.Context, path, docID, title string) (*driving.IngestReport, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor := s.extractorFor(ext)
	if extractor == nil {
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidInput, ext)
	}

	if docID == "" {
		docID = uuid.New().String()
	} else {
		existing, err := s.store.GetDocument(ctx, docID)
		switch {
		case err == nil:
			logger.Info("skipping %s: document %s already ingested", path, docID)
			return &driving.IngestReport{
				DocID:   docID,
				Title:   existing.Title,
				Path:    path,
				Skipped: true,
			}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("checking document %s: %w", docID, err)
		}
	}

	logger.Info("ingesting %s", path)

	segments, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}

	totalBytes := 0
	for _, seg := range segments {
		totalBytes += len(seg.Text)
	}
	if totalBytes == 0 {
		return nil, fmt.Errorf("%w: %s contains no text", domain.ErrInvalidInput, path)
	}

	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	doc := &domain.Document{
		ID:        docID,
		Title:     title,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	chunks := s.chunker.ChunkSegments(doc.ID, segments)
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		// Roll back so no document row exists without its chunks.
		if delErr := s.store.DeleteDocument(ctx, doc.ID); delErr != nil {
			logger.Warn("rollback of %s failed: %v", doc.ID, delErr)
		}
		return nil, fmt.Errorf("saving chunks: %w", err)
	}

	logger.Info("ingested %s: %d chunks, %d bytes", title, len(chunks), totalBytes)
	return &driving.IngestReport{
		DocID:  doc.ID,
		Title:  title,
		Path:   path,
		Chunks: len(chunks),
		Bytes:  totalBytes,
	}, nil
}

// IngestDir walks dir and ingests every supported file. Per-file failures
// become reports with Err set; only the walk itself can fail the call.
func (s *IngestService) IngestDir(ctx context.Context, dir string) ([]driving.IngestReport, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if s.extractorFor(strings.ToLower(filepath.Ext(path))) != nil {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	reports := make([]driving.IngestReport, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.IngestFile(ctx, path, "", "")
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			reports = append(reports, driving.IngestReport{Path: path, Err: err.Error()})
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// Remove deletes a document and its chunks.
func (s *IngestService) Remove(ctx context.Context, docID string) error {
	return s.store.DeleteDocument(ctx, docID)
}

// maxChunkGap is the largest hole tolerated between consecutive chunks.
// Boundary trimming drops whitespace between chunks, never content, so a
// larger gap means text went missing during ingestion.
const maxChunkGap = 100

// Validate checks a stored document's chunk coverage.
func (s *IngestService) Validate(ctx context.Context, docID string) error {
	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		return err
	}

	chunks, err := s.store.ChunksFrom(ctx, docID, 0)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: document %s has no chunks", domain.ErrInvalidInput, docID)
	}

	prevEnd := 0
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			return fmt.Errorf("%w: chunk %d of %s is empty", domain.ErrInvalidInput, ch.Index, docID)
		}
		if ch.EndOffset-ch.StartOffset != len(ch.Text) {
			return fmt.Errorf("%w: chunk %d of %s has inconsistent offsets", domain.ErrInvalidInput, ch.Index, docID)
		}
		if gap := ch.StartOffset - prevEnd; gap > maxChunkGap {
			return fmt.Errorf("%w: %d byte gap before chunk %d of %s", domain.ErrInvalidInput, gap, ch.Index, docID)
		}
		if ch.EndOffset > prevEnd {
			prevEnd = ch.EndOffset
		}
	}
	return nil
}

// Documents lists the corpus contents.
func (s *IngestService) Documents(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Stats reports corpus-wide counts.
func (s *IngestService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	return s.store.Stats(ctx)
}

func (s *IngestService) extractorFor(ext string) driven.Extractor {
	for _, e := range s.extractors {
		if e.Supports(ext) {
			return e
		}
	}
	return nil
}

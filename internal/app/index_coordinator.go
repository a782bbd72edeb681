package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"gopherai-docqa/internal/vectorindex"
)

const vectorIndexProvider = "vector-index"

var errEmbeddingShape = errors.New("embedding provider returned an unexpected number of vectors")

var tracer = otel.Tracer("gopherai-docqa/internal/app")

// IndexCoordinator turns document text into indexed chunks. Chunk IDs are
// derived from the index handle and chunk position, so re-running Ingest for
// the same text rewrites the same chunks instead of adding new ones.
type IndexCoordinator struct {
	registry DocumentRegistry
	splitter Splitter
	embedder EmbeddingProvider
	index    VectorIndex
	logger   *zap.Logger
}

func NewIndexCoordinator(
	registry DocumentRegistry,
	splitter Splitter,
	embedder EmbeddingProvider,
	index VectorIndex,
	logger *zap.Logger,
) *IndexCoordinator {
	return &IndexCoordinator{
		registry: registry,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		logger:   logger.Named("index_coordinator"),
	}
}

// Ingest returns the number of chunks written. On failure the document is
// left pending so a later call can finish the job.
func (c *IndexCoordinator) Ingest(ctx context.Context, documentID, text, handle string) (n int, err error) {
	ctx, span := tracer.Start(ctx, "IndexCoordinator.Ingest")
	span.SetAttributes(attribute.String("document_id", documentID), attribute.String("index_handle", handle))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	chunks := c.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, ErrNoContent
	}

	vectors, err := c.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, dependencyError(c.embedder.Name(), "embed", err)
	}
	if len(vectors) != len(chunks) {
		return 0, dependencyError(c.embedder.Name(), "embed",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	records := make([]vectorindex.Record, len(chunks))
	for i := range chunks {
		records[i] = vectorindex.Record{
			ID:       ChunkID(handle, i),
			Vector:   vectors[i],
			Text:     chunks[i],
			Metadata: vectorindex.Metadata{DocumentID: documentID, ChunkIndex: i},
		}
	}

	if err := c.index.Insert(ctx, handle, records); err != nil {
		if !errors.Is(err, vectorindex.ErrChunksExist) {
			return 0, dependencyError(vectorIndexProvider, "insert", err)
		}
		c.logger.Info("chunks already indexed, upserting", zap.String("document_id", documentID))
		if err := c.index.Upsert(ctx, handle, records); err != nil {
			return 0, dependencyError(vectorIndexProvider, "upsert", err)
		}
	}

	if err := c.registry.MarkCompleted(ctx, documentID, len(chunks)); err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))
	c.logger.Info("document indexed", zap.String("document_id", documentID), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

func ChunkID(handle string, index int) string {
	return fmt.Sprintf("%s:%d", handle, index)
}

package ai

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Embedder splits inputs into provider-sized batches and embeds them
// concurrently, keeping input order.
type Embedder struct {
	client      *OpenAICompatibleClient
	cfg         EmbeddingConfig
	batchSize   int
	concurrency int
}

func NewEmbedder(client *OpenAICompatibleClient, cfg EmbeddingConfig, batchSize, concurrency int) *Embedder {
	if batchSize <= 0 {
		batchSize = 10
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Embedder{client: client, cfg: cfg, batchSize: batchSize, concurrency: concurrency}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vectors, err := e.client.EmbedBatch(gctx, e.cfg, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Embedder) Name() string {
	return "embedding:" + e.cfg.Model
}

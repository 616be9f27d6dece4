package corpus

import (
	"context"
	"fmt"
	"time"

	"recipe-recommender/internal/core/index"
	"recipe-recommender/internal/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BatchEmbedder 批次計算文件向量
type BatchEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// BuildOptions 建置參數
type BuildOptions struct {
	Model     string
	Metric    string
	BatchSize int

	// BatchesPerSecond 限制呼叫 embedding 的頻率，0 表示不限制
	BatchesPerSecond float64
}

// Build 為每筆食譜計算食材文字的向量並組成索引檔
func Build(ctx context.Context, rows []Row, embedder BatchEmbedder, opts BuildOptions) (*index.Artifact, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no recipes to index")
	}
	if opts.Metric == "" {
		opts.Metric = index.MetricEuclidean
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.BatchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.BatchesPerSecond), 1)
	}

	artifact := &index.Artifact{
		Version:   index.ArtifactVersion,
		Model:     opts.Model,
		Metric:    opts.Metric,
		Documents: make([]index.Document, 0, len(rows)),
	}

	start := time.Now()
	for offset := 0; offset < len(rows); offset += opts.BatchSize {
		end := offset + opts.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[offset:end]

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		texts := make([]string, len(batch))
		for i, row := range batch {
			texts[i] = row.Ingredients
		}
		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", offset, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors", offset, end, len(vectors))
		}

		for i, row := range batch {
			if artifact.Dimension == 0 {
				artifact.Dimension = len(vectors[i])
			}
			if len(vectors[i]) != artifact.Dimension {
				return nil, fmt.Errorf("recipe %q: embedding has %d dimensions, want %d",
					row.Name, len(vectors[i]), artifact.Dimension)
			}
			artifact.Documents = append(artifact.Documents, index.Document{
				ID:           uuid.NewString(),
				Name:         row.Name,
				Ingredients:  row.Ingredients,
				Instructions: row.Steps,
				Embedding:    vectors[i],
			})
		}

		common.LogInfo("批次向量完成",
			zap.Int("done", len(artifact.Documents)),
			zap.Int("total", len(rows)),
		)
	}

	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	common.LogInfo("索引建置完成",
		zap.Int("documents", len(artifact.Documents)),
		zap.Int("dimension", artifact.Dimension),
		zap.Duration("耗時", time.Since(start)),
	)
	return artifact, nil
}

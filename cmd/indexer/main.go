package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"recipe-recommender/internal/core/corpus"
	"recipe-recommender/internal/core/embedding"
	"recipe-recommender/internal/core/index"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if err := config.Bind(v); err != nil {
		return err
	}

	flags := pflag.NewFlagSet("indexer", pflag.ContinueOnError)
	flags.String("input", "archive/RAW_recipes.csv", "recipe CSV with name, ingredients and steps columns")
	flags.String("output", v.GetString("index.path"), "where to write the index artifact")
	flags.Int("limit", corpus.DefaultLimit, "maximum number of recipes to index (0 = all)")
	flags.Int("batch", embedding.MaxBatchSize, "texts per embedding request")
	flags.String("metric", index.MetricEuclidean, "distance metric: euclidean or cosine")
	flags.Float64("rate", 0, "maximum embedding requests per second (0 = unlimited)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	if err := common.InitLogger(cfg.LogLevel, ""); err != nil {
		return err
	}
	defer common.Sync()

	if cfg.Embedding.APIKey == "" {
		return fmt.Errorf("embedding api key is required (GEMINI_API_KEY)")
	}

	metric := v.GetString("metric")
	if metric != index.MetricEuclidean && metric != index.MetricCosine {
		return fmt.Errorf("unsupported metric %q", metric)
	}
	batch := v.GetInt("batch")
	if batch <= 0 || batch > embedding.MaxBatchSize {
		return fmt.Errorf("batch must be between 1 and %d", embedding.MaxBatchSize)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(v.GetString("input"))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	rows, err := corpus.ReadRecipes(f, v.GetInt("limit"))
	if err != nil {
		return err
	}

	// 建置時不經過斷路器，錯誤直接回報
	client := embedding.NewGeminiClient(cfg.Embedding, nil, nil)
	artifact, err := corpus.Build(ctx, rows, client, corpus.BuildOptions{
		Model:            client.Model(),
		Metric:           metric,
		BatchSize:        batch,
		BatchesPerSecond: v.GetFloat64("rate"),
	})
	if err != nil {
		return err
	}

	output := v.GetString("output")
	if err := index.Save(output, artifact); err != nil {
		return err
	}

	common.LogInfo("索引已寫入",
		zap.String("output", output),
		zap.Int("documents", len(artifact.Documents)),
	)
	return nil
}

package corpus

import (
	"context"
	"errors"
	"testing"

	"recipe-recommender/internal/core/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchEmbedder struct {
	batches [][]string
	err     error
	dims    int
}

func (f *fakeBatchEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dims)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func sampleRows() []Row {
	return []Row{
		{Name: "a", Ingredients: "egg", Steps: "fry"},
		{Name: "b", Ingredients: "egg, milk", Steps: "mix. bake"},
		{Name: "c", Ingredients: "rice", Steps: "boil"},
	}
}

func TestBuild(t *testing.T) {
	emb := &fakeBatchEmbedder{dims: 4}

	artifact, err := Build(context.Background(), sampleRows(), emb, BuildOptions{Model: "models/embedding-001", BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"egg", "egg, milk"}, {"rice"}}, emb.batches)
	assert.Equal(t, index.MetricEuclidean, artifact.Metric)
	assert.Equal(t, 4, artifact.Dimension)
	assert.Equal(t, "models/embedding-001", artifact.Model)
	require.Len(t, artifact.Documents, 3)
	assert.Equal(t, "mix. bake", artifact.Documents[1].Instructions)
	assert.NotEqual(t, artifact.Documents[0].ID, artifact.Documents[1].ID)
	assert.NoError(t, artifact.Validate())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), nil, &fakeBatchEmbedder{dims: 2}, BuildOptions{})
	assert.Error(t, err)

	boom := errors.New("quota")
	_, err = Build(context.Background(), sampleRows(), &fakeBatchEmbedder{err: boom, dims: 2}, BuildOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestBuildHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, sampleRows(), &fakeBatchEmbedder{dims: 2}, BuildOptions{BatchesPerSecond: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

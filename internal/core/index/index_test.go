package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"recipe-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapEmbedder 依文字回傳固定向量
type mapEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mapEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func sampleArtifact(metric string) *Artifact {
	return &Artifact{
		Version:   ArtifactVersion,
		Model:     "models/embedding-001",
		Metric:    metric,
		Dimension: 3,
		Documents: []Document{
			{ID: "a", Name: "Omelette", Ingredients: "egg, butter, salt", Instructions: "beat eggs. fry", Embedding: []float32{1, 0, 0}},
			{ID: "b", Name: "Fried Rice", Ingredients: "rice, egg, onion", Instructions: "cook rice. fry", Embedding: []float32{0.9, 0.1, 0}},
			{ID: "c", Name: "Salad", Ingredients: "lettuce, tomato", Instructions: "chop. toss", Embedding: []float32{0, 1, 0}},
			{ID: "d", Name: "Soup", Ingredients: "tomato, onion, water", Instructions: "boil", Embedding: []float32{0, 0.8, 0.6}},
			{ID: "e", Name: "Twin Omelette", Ingredients: "egg, butter", Instructions: "fry", Embedding: []float32{1, 0, 0}},
		},
	}
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestSearchEuclidean(t *testing.T) {
	idx, err := New(sampleArtifact(MetricEuclidean), &mapEmbedder{})
	require.NoError(t, err)

	docs, err := idx.Search([]float32{1, 0, 0}, 3)
	require.NoError(t, err)
	// a 與 e 距離相同，依語料順序
	assert.Equal(t, []string{"a", "e", "b"}, ids(docs))
}

func TestSearchCosine(t *testing.T) {
	idx, err := New(sampleArtifact(MetricCosine), &mapEmbedder{})
	require.NoError(t, err)

	docs, err := idx.Search([]float32{0, 2, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(docs))
}

func TestSearchKLargerThanCorpus(t *testing.T) {
	idx, err := New(sampleArtifact(MetricEuclidean), &mapEmbedder{})
	require.NoError(t, err)

	docs, err := idx.Search([]float32{0, 0, 1}, 20)
	require.NoError(t, err)
	assert.Len(t, docs, 5)
	assert.Equal(t, "d", docs[0].ID)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, err := New(sampleArtifact(MetricEuclidean), &mapEmbedder{})
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0}, 3)
	assert.ErrorIs(t, err, common.ErrRetrievalService)
}

func TestQueryNonPositiveK(t *testing.T) {
	emb := &mapEmbedder{}
	idx, err := New(sampleArtifact(MetricEuclidean), emb)
	require.NoError(t, err)

	docs, err := idx.Query(context.Background(), "egg", 0)
	assert.NoError(t, err)
	assert.Nil(t, docs)
	assert.Equal(t, 0, emb.calls)
}

func TestQueryEmbedderFailure(t *testing.T) {
	idx, err := New(sampleArtifact(MetricEuclidean), &mapEmbedder{err: errors.New("quota exceeded")})
	require.NoError(t, err)

	_, err = idx.Query(context.Background(), "egg", 20)
	assert.ErrorIs(t, err, common.ErrRetrievalService)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestQueryRoundTripFindsOwnDocument(t *testing.T) {
	artifact := sampleArtifact(MetricEuclidean)
	emb := &mapEmbedder{vectors: map[string][]float32{}}
	for _, doc := range artifact.Documents {
		emb.vectors[doc.Ingredients] = doc.Embedding
	}
	idx, err := New(artifact, emb)
	require.NoError(t, err)

	for _, doc := range artifact.Documents {
		got, err := idx.Query(context.Background(), doc.Ingredients, 20)
		require.NoError(t, err)
		assert.Contains(t, ids(got), doc.ID)
	}
}

func TestNewCopiesVectors(t *testing.T) {
	artifact := sampleArtifact(MetricEuclidean)
	idx, err := New(artifact, &mapEmbedder{})
	require.NoError(t, err)

	artifact.Documents[2].Embedding[0] = 100
	docs, err := idx.Search([]float32{100, 1, 0}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, "c", docs[0].ID)
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, 3, idx.Dimension())
	assert.Equal(t, MetricEuclidean, idx.Metric())
	assert.Equal(t, "models/embedding-001", idx.Model())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"no documents", func(a *Artifact) { a.Documents = nil }},
		{"bad metric", func(a *Artifact) { a.Metric = "manhattan" }},
		{"bad version", func(a *Artifact) { a.Version = 99 }},
		{"dimension mismatch", func(a *Artifact) { a.Documents[1].Embedding = []float32{1} }},
		{"duplicate id", func(a *Artifact) { a.Documents[1].ID = "a" }},
		{"missing id", func(a *Artifact) { a.Documents[0].ID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sampleArtifact(MetricEuclidean)
			tt.mutate(a)
			assert.Error(t, a.Validate())
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.json")
	require.NoError(t, Save(path, sampleArtifact(MetricCosine)))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleArtifact(MetricCosine), loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadErrorsWrapIndexLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, common.ErrIndexLoad)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0644))
	_, err = Load(garbage)
	assert.ErrorIs(t, err, common.ErrIndexLoad)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"version":1,"metric":"cosine","dimension":3,"documents":[]}`), 0644))
	_, err = Load(empty)
	assert.ErrorIs(t, err, common.ErrIndexLoad)
}

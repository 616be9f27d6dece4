package index

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"recipe-recommender/internal/pkg/common"
)

// Embedder 將查詢文字轉為向量
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index 唯讀的食譜向量索引，建立後可併發使用
type Index struct {
	model     string
	metric    string
	dimension int
	docs      []Document
	vectors   [][]float32
	norms     []float64
	embedder  Embedder
}

// New 由索引檔建立索引
func New(artifact *Artifact, embedder Embedder) (*Index, error) {
	if artifact == nil {
		return nil, fmt.Errorf("%w: nil artifact", common.ErrIndexLoad)
	}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIndexLoad, err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("index requires an embedder")
	}

	idx := &Index{
		model:     artifact.Model,
		metric:    artifact.Metric,
		dimension: artifact.Dimension,
		docs:      make([]Document, len(artifact.Documents)),
		vectors:   make([][]float32, len(artifact.Documents)),
		norms:     make([]float64, len(artifact.Documents)),
		embedder:  embedder,
	}
	for i, doc := range artifact.Documents {
		vec := make([]float32, len(doc.Embedding))
		copy(vec, doc.Embedding)
		doc.Embedding = vec
		idx.docs[i] = doc
		idx.vectors[i] = vec
		idx.norms[i] = norm(vec)
	}
	return idx, nil
}

// Query 以文字查詢最相近的 k 筆食譜，最相近者在前
func (x *Index) Query(ctx context.Context, text string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := x.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", common.ErrRetrievalService, err)
	}
	return x.Search(vec, k)
}

// Search 以向量做精確 kNN 搜尋；分數相同時依語料順序
func (x *Index) Search(vector []float32, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			common.ErrRetrievalService, len(vector), x.dimension)
	}

	qnorm := norm(vector)
	h := &hitHeap{}
	for i := range x.vectors {
		heap.Push(h, hit{pos: i, score: x.score(vector, qnorm, i)})
		if h.Len() > k {
			heap.Pop(h)
		}
	}

	out := make([]Document, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = x.docs[heap.Pop(h).(hit).pos]
	}
	return out, nil
}

// score 越大越相近
func (x *Index) score(q []float32, qnorm float64, i int) float64 {
	v := x.vectors[i]
	if x.metric == MetricCosine {
		if qnorm == 0 || x.norms[i] == 0 {
			return 0
		}
		var dot float64
		for j := range q {
			dot += float64(q[j]) * float64(v[j])
		}
		return dot / (qnorm * x.norms[i])
	}
	var sum float64
	for j := range q {
		d := float64(q[j]) - float64(v[j])
		sum += d * d
	}
	return -sum
}

// Len 文件數
func (x *Index) Len() int { return len(x.docs) }

// Dimension 向量維度
func (x *Index) Dimension() int { return x.dimension }

// Metric 距離度量
func (x *Index) Metric() string { return x.metric }

// Model 建置時使用的 embedding 模型
func (x *Index) Model() string { return x.model }

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

type hit struct {
	pos   int
	score float64
}

// hitHeap 堆頂為目前最差的結果
type hitHeap []hit

func (h hitHeap) Len() int { return len(h) }

func (h hitHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].pos > h[j].pos
}

func (h hitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x interface{}) {
	*h = append(*h, x.(hit))
}

func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

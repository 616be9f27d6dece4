// Package recommend 兩階段食譜推薦：語意檢索後依食材重疊過濾與排序
package recommend

import (
	"context"
	"fmt"
	"sort"

	"recipe-recommender/internal/core/index"
	"recipe-recommender/internal/core/ingredient"
	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/metrics"

	"go.uber.org/zap"
)

// 預設檢索參數
const (
	KCandidates = 20
	KResults    = 3
	MinOverlap  = 1
)

// Retriever 語意檢索
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]index.Document, error)
}

// Policy 檢索參數
type Policy struct {
	Candidates int
	Results    int
	MinOverlap int
}

// DefaultPolicy 預設參數
func DefaultPolicy() Policy {
	return Policy{Candidates: KCandidates, Results: KResults, MinOverlap: MinOverlap}
}

// Candidate 語意檢索後的候選食譜
type Candidate struct {
	Document index.Document
	Overlap  int
	Rank     int
}

// Recommendation 推薦結果
type Recommendation struct {
	Recipe       string `json:"recipe"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	Steps        []Step `json:"steps,omitempty"`
}

// Ranker 推薦器
type Ranker struct {
	retriever Retriever
	policy    Policy
	metrics   *metrics.Metrics
}

// NewRanker 建立推薦器；policy 中非正值使用預設
func NewRanker(retriever Retriever, policy Policy, m *metrics.Metrics) *Ranker {
	def := DefaultPolicy()
	if policy.Candidates <= 0 {
		policy.Candidates = def.Candidates
	}
	if policy.Results <= 0 {
		policy.Results = def.Results
	}
	if policy.MinOverlap <= 0 {
		policy.MinOverlap = def.MinOverlap
	}
	return &Ranker{retriever: retriever, policy: policy, metrics: m}
}

// Policy 目前使用的參數
func (r *Ranker) Policy() Policy {
	return r.policy
}

// Recommend 依使用者食材推薦食譜
//
// 查詢以原始文字送入語意檢索；空白輸入仍會檢索，但結果必為空切片。
func (r *Ranker) Recommend(ctx context.Context, raw string) ([]Recommendation, error) {
	candidates, err := r.Candidates(ctx, raw)
	if err != nil {
		r.metrics.ObserveRecommend(0, 0, err)
		return nil, err
	}

	kept := Rank(candidates, r.policy.MinOverlap, r.policy.Results)

	out := make([]Recommendation, 0, len(kept))
	for _, c := range kept {
		out = append(out, Recommendation{
			Recipe:       c.Document.Name,
			Ingredients:  c.Document.Ingredients,
			Instructions: c.Document.Instructions,
		})
	}

	r.metrics.ObserveRecommend(len(candidates), len(out), nil)
	common.LogDebug("推薦完成",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// Candidates 執行語意檢索並計算每個候選的食材重疊數
func (r *Ranker) Candidates(ctx context.Context, raw string) ([]Candidate, error) {
	user := ingredient.Parse(raw)

	docs, err := r.retriever.Query(ctx, raw, r.policy.Candidates)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: semantic search returned no candidates", common.ErrRetrievalService)
	}

	candidates := make([]Candidate, len(docs))
	for i, doc := range docs {
		candidates[i] = Candidate{
			Document: doc,
			Overlap:  ingredient.Overlap(user, ingredient.Parse(doc.Ingredients)),
			Rank:     i,
		}
	}
	return candidates, nil
}

// Rank 過濾重疊數不足的候選，依重疊數遞減穩定排序後取前 limit 筆
func Rank(candidates []Candidate, minOverlap, limit int) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Overlap >= minOverlap {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Overlap > kept[j].Overlap
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

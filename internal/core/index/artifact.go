package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"recipe-recommender/internal/pkg/common"
)

// ArtifactVersion 目前的索引檔格式版本
const ArtifactVersion = 1

// 支援的距離度量
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// Document 索引中的一筆食譜
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Ingredients  string    `json:"ingredients"`
	Instructions string    `json:"instructions"`
	Embedding    []float32 `json:"embedding"`
}

// Artifact 離線建置的索引檔內容
type Artifact struct {
	Version   int        `json:"version"`
	Model     string     `json:"model"`
	Metric    string     `json:"metric"`
	Dimension int        `json:"dimension"`
	Documents []Document `json:"documents"`
}

// Load 讀取並驗證索引檔，任何失敗都包裝 common.ErrIndexLoad
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIndexLoad, err)
	}
	defer f.Close()

	var artifact Artifact
	if err := common.DecodeJSON(f, &artifact); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", common.ErrIndexLoad, path, err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrIndexLoad, path, err)
	}
	return &artifact, nil
}

// Validate 檢查索引檔一致性
func (a *Artifact) Validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if a.Metric != MetricEuclidean && a.Metric != MetricCosine {
		return fmt.Errorf("unsupported metric %q", a.Metric)
	}
	if a.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", a.Dimension)
	}
	if len(a.Documents) == 0 {
		return fmt.Errorf("artifact contains no documents")
	}

	seen := make(map[string]struct{}, len(a.Documents))
	for i, doc := range a.Documents {
		if doc.ID == "" {
			return fmt.Errorf("document %d has no id", i)
		}
		if _, dup := seen[doc.ID]; dup {
			return fmt.Errorf("duplicate document id %q", doc.ID)
		}
		seen[doc.ID] = struct{}{}
		if len(doc.Embedding) != a.Dimension {
			return fmt.Errorf("document %q has %d dimensions, want %d", doc.ID, len(doc.Embedding), a.Dimension)
		}
	}
	return nil
}

// Save 寫入索引檔（先寫暫存檔再 rename）
func Save(path string, artifact *Artifact) error {
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(artifact); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultLimit 預設讀取的食譜筆數
const DefaultLimit = 1000

// 資料集必要欄位
const (
	ColumnName        = "name"
	ColumnIngredients = "ingredients"
	ColumnSteps       = "steps"
)

// Row 整理後的一筆食譜
type Row struct {
	Name        string
	Ingredients string
	Steps       string
}

// ReadRecipes 讀取食譜 CSV
//
// 任一必要欄位為空的列會被略過；食材以 ", " 串接，步驟以 ". " 串接。
// limit <= 0 時讀取全部。
func ReadRecipes(r io.Reader, limit int) ([]Row, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	skipped := 0
	for limit <= 0 || len(rows) < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		name := strings.TrimSpace(record[cols[ColumnName]])
		rawIngredients := strings.TrimSpace(record[cols[ColumnIngredients]])
		rawSteps := strings.TrimSpace(record[cols[ColumnSteps]])
		if name == "" || rawIngredients == "" || rawSteps == "" {
			skipped++
			continue
		}

		line, _ := reader.FieldPos(0)
		ingredients, err := ParseListLiteral(rawIngredients)
		if err != nil {
			return nil, fmt.Errorf("line %d: ingredients: %w", line, err)
		}
		steps, err := ParseListLiteral(rawSteps)
		if err != nil {
			return nil, fmt.Errorf("line %d: steps: %w", line, err)
		}
		if len(ingredients) == 0 {
			skipped++
			continue
		}

		rows = append(rows, Row{
			Name:        name,
			Ingredients: strings.Join(ingredients, ", "),
			Steps:       strings.Join(steps, ". "),
		})
	}

	common.LogInfo("食譜資料讀取完成",
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped),
	)
	return rows, nil
}

func columnIndexes(header []string) (map[string]int, error) {
	cols := make(map[string]int, 3)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, want := range []string{ColumnName, ColumnIngredients, ColumnSteps} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("CSV header missing column %q", want)
		}
	}
	return cols, nil
}

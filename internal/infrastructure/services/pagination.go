package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/PaesslerAG/jsonpath"
)

// PaginationEnvelope names the fields of a paginated response.
type PaginationEnvelope struct {
	DataField        string
	PageField        string
	SizeField        string
	TotalItemsField  string
	TotalPagesField  string
	HasNextField     string
	HasPreviousField string
}

// PaginationConfig controls how artifact arrays are sliced.
type PaginationConfig struct {
	// Style is "page_size" (default) or "offset_limit".
	Style       string
	PageParam   string
	SizeParam   string
	OffsetParam string
	LimitParam  string
	DefaultSize int
	MaxSize     int
	Envelope    PaginationEnvelope
}

// DefaultPagination returns page/size pagination with 50 items per page.
func DefaultPagination() PaginationConfig {
	return PaginationConfig{
		Style:       "page_size",
		PageParam:   "page",
		SizeParam:   "size",
		OffsetParam: "offset",
		LimitParam:  "limit",
		DefaultSize: 50,
		MaxSize:     1000,
		Envelope: PaginationEnvelope{
			DataField:        "data",
			PageField:        "page",
			SizeField:        "size",
			TotalItemsField:  "total_items",
			TotalPagesField:  "total_pages",
			HasNextField:     "has_next",
			HasPreviousField: "has_previous",
		},
	}
}

// Paginate slices the array found at dataPath inside value and wraps the
// slice in a pagination envelope. value is anything that marshals to JSON;
// dataPath is a JSONPath expression, "$" meaning value itself.
func Paginate(value any, dataPath string, cfg PaginationConfig, queryParams map[string]string) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode artifact JSON: %w", err)
	}

	items, err := extractArray(doc, dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract array at %q: %w", dataPath, err)
	}

	totalItems := len(items)
	offset, limit := resolveSliceBounds(cfg, queryParams)

	offset = min(offset, totalItems)
	end := min(offset+limit, totalItems)

	totalPages := max(int(math.Ceil(float64(totalItems)/float64(limit))), 1)

	env := cfg.Envelope
	return map[string]any{
		env.DataField:        items[offset:end],
		env.PageField:        offset/limit + 1,
		env.SizeField:        limit,
		env.TotalItemsField:  totalItems,
		env.TotalPagesField:  totalPages,
		env.HasNextField:     end < totalItems,
		env.HasPreviousField: offset > 0,
	}, nil
}

// WantsPagination reports whether the query asks for a page.
func WantsPagination(cfg PaginationConfig, queryParams map[string]string) bool {
	for _, p := range []string{cfg.PageParam, cfg.SizeParam, cfg.OffsetParam, cfg.LimitParam} {
		if _, ok := queryParams[p]; ok {
			return true
		}
	}
	return false
}

// resolveSliceBounds extracts offset and limit from query parameters
// according to the configured pagination style.
func resolveSliceBounds(cfg PaginationConfig, qp map[string]string) (offset, limit int) {
	limit = cfg.DefaultSize

	switch cfg.Style {
	case "offset_limit":
		if n, ok := positiveParam(qp, cfg.OffsetParam, 0); ok {
			offset = n
		}
		if n, ok := positiveParam(qp, cfg.LimitParam, 1); ok {
			limit = n
		}
	default:
		page := 1
		if n, ok := positiveParam(qp, cfg.PageParam, 1); ok {
			page = n
		}
		if n, ok := positiveParam(qp, cfg.SizeParam, 1); ok {
			limit = n
		}
		offset = (page - 1) * limit
	}

	if cfg.MaxSize > 0 && limit > cfg.MaxSize {
		limit = cfg.MaxSize
	}
	if limit <= 0 {
		limit = 10
	}
	return offset, limit
}

func positiveParam(qp map[string]string, name string, minimum int) (int, bool) {
	v, ok := qp[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minimum {
		return 0, false
	}
	return n, true
}

func extractArray(data any, dataPath string) ([]any, error) {
	if dataPath == "" || dataPath == "$" {
		arr, ok := data.([]any)
		if !ok {
			return nil, fmt.Errorf("expected root to be an array")
		}
		return arr, nil
	}

	result, err := jsonpath.Get(dataPath, data)
	if err != nil {
		return nil, fmt.Errorf("jsonpath extraction failed: %w", err)
	}

	arr, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("value at %q is not an array", dataPath)
	}
	return arr, nil
}

// Package pagination filters, sorts and slices lists that are already in memory.
package pagination

import (
	"slices"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Params describes the requested page
type Params struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Search   string `query:"q"`
	SortBy   string `query:"sort_by"`
	SortDesc bool   `query:"sort_desc"`
}

// Accessors tells Paginate how to search and sort T
type Accessors[T any] struct {
	// SearchFields are matched case-insensitively against Params.Search
	SearchFields []func(T) string
	// SortKeys maps a sort name to a comparison returning <0, 0 or >0
	SortKeys map[string]func(a, b T) int
}

type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Normalize applies the default and maximum page size and a minimum page of 1
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// Paginate returns one page of items. The input slice is not modified.
func Paginate[T any](items []T, params Params, acc Accessors[T]) Page[T] {
	params = params.Normalize()

	filtered := filter(items, params.Search, acc.SearchFields)

	if cmp, ok := acc.SortKeys[params.SortBy]; ok {
		if params.SortDesc {
			asc := cmp
			cmp = func(a, b T) int { return asc(b, a) }
		}
		slices.SortStableFunc(filtered, cmp)
	}

	total := len(filtered)
	totalPages := (total + params.PageSize - 1) / params.PageSize

	page := params.Page
	if totalPages == 0 {
		page = 1
	} else if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * params.PageSize
	end := min(start+params.PageSize, total)

	pageItems := make([]T, 0, end-start)
	pageItems = append(pageItems, filtered[start:end]...)

	return Page[T]{
		Items:      pageItems,
		Page:       page,
		PageSize:   params.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func filter[T any](items []T, search string, fields []func(T) string) []T {
	out := make([]T, 0, len(items))
	if search == "" || len(fields) == 0 {
		return append(out, items...)
	}

	needle := strings.ToLower(search)
	for _, item := range items {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(item)), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

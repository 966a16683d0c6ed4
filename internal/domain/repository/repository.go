// Package repository 声明持久化端口，实现位于 infrastructure/persistence
package repository

import "context"

// TxKey 事务句柄在 context 中的键
type TxKey struct{}

// Transactor 在单个事务内执行 fn；嵌套调用复用外层事务
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination 页码从 1 开始
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 越界值被夹到合法范围
func NewPagination(page, pageSize int) Pagination {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return Pagination{Page: page, PageSize: min(pageSize, maxPageSize)}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }
func (p Pagination) Limit() int  { return p.PageSize }

// PagedResult 一页数据及总数
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPagedResult Items 为空时序列化为 []
func NewPagedResult[T any](items []T, total int64, p Pagination) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	res := &PagedResult[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}
	if p.PageSize > 0 {
		res.TotalPages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return res
}

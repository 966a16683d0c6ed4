package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/domain/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest 查询串中的分页参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// BindPage 读取 page/page_size，非法值回落到默认值
func BindPage(c *gin.Context) PageRequest {
	req := PageRequest{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", defaultPageSize),
	}
	if req.Page < 1 {
		req.Page = 1
	}
	switch {
	case req.PageSize < 1:
		req.PageSize = defaultPageSize
	case req.PageSize > maxPageSize:
		req.PageSize = maxPageSize
	}
	return req
}

// Pagination 转换为仓储分页参数
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func BindProjectID(c *gin.Context) string      { return c.Param("pid") }
func BindConversationID(c *gin.Context) string { return c.Param("cid") }
func BindDocumentID(c *gin.Context) string     { return c.Param("did") }

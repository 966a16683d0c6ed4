// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/domain/repository"
)

// Response 成功响应信封
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PageMetaFrom 由仓储分页结果生成元数据
func PageMetaFrom[T any](res *repository.PagedResult[T]) *PageMeta {
	return &PageMeta{
		Page:       res.Page,
		PageSize:   res.PageSize,
		Total:      int(res.Total),
		TotalPages: res.TotalPages,
	}
}

// ErrorDetail 机器可读的错误信息
type ErrorDetail struct {
	ErrorCode   string   `json:"error_code,omitempty"`
	Details     string   `json:"details,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ErrorResponse 错误响应信封
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

func write[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:    status,
		Message: message,
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	write(c, http.StatusOK, "success", data, nil)
}

// SuccessWithPage 200，附带分页信息
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	write(c, http.StatusOK, "success", data, meta)
}

// Created 201
func Created[T any](c *gin.Context, data T) {
	write(c, http.StatusCreated, "created", data, nil)
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithDetail 写出错误响应，detail 可为空
func ErrorWithDetail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error:   detail,
		TraceID: c.GetString("trace_id"),
	})
}

func BadRequest(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusBadRequest, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusUnauthorized, message, nil)
}

func Conflict(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusConflict, message, nil)
}

func InternalError(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusInternalServerError, message, nil)
}

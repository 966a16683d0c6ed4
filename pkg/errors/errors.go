// Package errors 对外错误码及其 HTTP 状态
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
)

// ErrorCode 稳定的机器可读错误码，写在响应 error.error_code 中
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	CodeTokenExpired ErrorCode = "2001"
	CodeTokenInvalid ErrorCode = "2002"

	CodeProjectNotFound      ErrorCode = "3001"
	CodeConversationNotFound ErrorCode = "3002"
	CodeDocumentNotFound     ErrorCode = "3003"
	CodeFileNotFound         ErrorCode = "3004"

	CodeQuotaExceeded       ErrorCode = "4001"
	CodeProjectLimitReached ErrorCode = "4002"
	CodeToolNotPermitted    ErrorCode = "4003"
	CodeUnknownTool         ErrorCode = "4004"
	CodeInvalidArguments    ErrorCode = "4005"
	CodePrerequisiteMissing ErrorCode = "4006"
	CodeAlreadyComplete     ErrorCode = "4007"

	CodeDatabaseError     ErrorCode = "5001"
	CodeModelUnavailable  ErrorCode = "5005"
	CodeRemoteUnreachable ErrorCode = "5006"
)

// httpStatus 未列出的错误码按 500 处理
var httpStatus = map[ErrorCode]int{
	CodeInvalidParam:     http.StatusBadRequest,
	CodeUnknownTool:      http.StatusBadRequest,
	CodeInvalidArguments: http.StatusBadRequest,

	CodeUnauthorized: http.StatusUnauthorized,
	CodeTokenExpired: http.StatusUnauthorized,
	CodeTokenInvalid: http.StatusUnauthorized,

	CodeForbidden:           http.StatusForbidden,
	CodeToolNotPermitted:    http.StatusForbidden,
	CodeProjectLimitReached: http.StatusForbidden,

	CodeNotFound:             http.StatusNotFound,
	CodeProjectNotFound:      http.StatusNotFound,
	CodeConversationNotFound: http.StatusNotFound,
	CodeDocumentNotFound:     http.StatusNotFound,
	CodeFileNotFound:         http.StatusNotFound,

	CodeConflict:            http.StatusConflict,
	CodePrerequisiteMissing: http.StatusConflict,
	CodeAlreadyComplete:     http.StatusConflict,

	CodeTooManyRequests: http.StatusTooManyRequests,
	CodeQuotaExceeded:   http.StatusTooManyRequests,

	CodeModelUnavailable:  http.StatusBadGateway,
	CodeRemoteUnreachable: http.StatusBadGateway,

	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// StatusOf 错误码对应的 HTTP 状态
func StatusOf(code ErrorCode) int {
	if s, ok := httpStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError 面向客户端的错误。预定义实例是共享的，修改前先复制
type AppError struct {
	Code        ErrorCode
	Message     string
	Detail      string
	Suggestions []string
	HTTPStatus  int
	Err         error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) clone() *AppError {
	cp := *e
	cp.Suggestions = slices.Clone(e.Suggestions)
	return &cp
}

// WithDetail 返回带详情的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := e.clone()
	cp.Detail = detail
	return cp
}

// WithSuggestions 返回追加了处理建议的副本
func (e *AppError) WithSuggestions(s ...string) *AppError {
	cp := e.clone()
	cp.Suggestions = append(cp.Suggestions, s...)
	return cp
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: StatusOf(code)}
}

// As 在错误链中查找 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

var (
	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrInternalError = New(CodeInternalError, "internal server error")

	ErrProjectNotFound      = New(CodeProjectNotFound, "project not found")
	ErrConversationNotFound = New(CodeConversationNotFound, "conversation not found")
	ErrDocumentNotFound     = New(CodeDocumentNotFound, "document not found")
	ErrFileNotFound         = New(CodeFileNotFound, "file not found")

	ErrQuotaExceeded       = New(CodeQuotaExceeded, "daily message quota exceeded")
	ErrProjectLimitReached = New(CodeProjectLimitReached, "active project limit reached")
	ErrAlreadyComplete     = New(CodeAlreadyComplete, "project already completed")
)

// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/application/chat"
	"plc-agent-api/internal/application/lifecycle"
	"plc-agent-api/internal/application/project"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/infrastructure/bridge"
	"plc-agent-api/internal/infrastructure/storage"
	"plc-agent-api/internal/interfaces/http/dto"
	apperrors "plc-agent-api/pkg/errors"
	"plc-agent-api/pkg/logger"
)

// toAppError 把领域错误映射为 AppError，未知错误返回 nil
func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	var (
		exceeded    *quota.ExceededError
		limit       *project.LimitReachedError
		invalid     *project.ValidationError
		missing     *lifecycle.PrerequisiteMissingError
		unavailable *agent.ModelUnavailableError
	)
	switch {
	case errors.As(err, &exceeded):
		return apperrors.ErrQuotaExceeded.
			WithDetail(fmt.Sprintf("used %d of %d messages today", exceeded.Used, exceeded.Limit)).
			WithSuggestions("wait for the daily reset", "upgrade your subscription tier")
	case errors.As(err, &limit):
		return apperrors.ErrProjectLimitReached.
			WithDetail(limit.Error()).
			WithSuggestions("archive a finished project", "upgrade your subscription tier")
	case errors.As(err, &invalid):
		return apperrors.ErrInvalidParam.WithDetail(invalid.Error())
	case errors.As(err, &missing):
		return apperrors.New(apperrors.CodePrerequisiteMissing, missing.Error())
	case errors.As(err, &unavailable):
		return apperrors.New(apperrors.CodeModelUnavailable, unavailable.Error())
	case errors.Is(err, lifecycle.ErrAlreadyComplete):
		return apperrors.ErrAlreadyComplete
	case errors.Is(err, lifecycle.ErrProjectNotFound):
		return apperrors.ErrProjectNotFound
	case errors.Is(err, lifecycle.ErrDocumentNotFound):
		return apperrors.ErrDocumentNotFound
	case errors.Is(err, chat.ErrConversationNotFound):
		return apperrors.ErrConversationNotFound
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.ErrFileNotFound
	case errors.Is(err, bridge.ErrUnreachable):
		return apperrors.New(apperrors.CodeRemoteUnreachable, "automation bridge unreachable")
	case errors.Is(err, lifecycle.ErrInvalidDocType),
		errors.Is(err, lifecycle.ErrInvalidStage),
		errors.Is(err, lifecycle.ErrEmptyContent),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrModelNotAllowed),
		errors.Is(err, chat.ErrEmptyTitle),
		errors.Is(err, storage.ErrInvalidName):
		return apperrors.ErrInvalidParam.WithDetail(err.Error())
	}
	return nil
}

// respondError 统一错误响应
func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr == nil {
		logger.Error(c.Request.Context(), "request failed", err, "path", c.FullPath())
		dto.ErrorWithDetail(c, 500, "internal server error", &dto.ErrorDetail{
			ErrorCode: string(apperrors.CodeInternalError),
		})
		return
	}
	if appErr.HTTPStatus >= 500 {
		logger.Warn(c.Request.Context(), "upstream failure", "code", appErr.Code, "error", err)
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode:   string(appErr.Code),
		Details:     appErr.Detail,
		Suggestions: appErr.Suggestions,
	})
}

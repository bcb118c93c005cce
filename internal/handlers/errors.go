package handlers

import (
	"errors"
	"net/http"
	"taskBot/internal/logger"
	"taskBot/internal/service"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode),
		zap.Error(businessErr.Err))

	responseWithJSON(w, statusCode,
		toPayload("ephemeral", true),
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

// respondError отвечает бизнес-ошибкой, а всё прочее превращает в 500
func respondError(w http.ResponseWriter, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}
	logger.Error("HTTP: Ошибка Service", err, zap.String("operation", operation))
	responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeTaskNotFound:
		return http.StatusNotFound
	case service.CodeValidation, service.CodeInvalidChoice:
		return http.StatusBadRequest
	case service.CodeDuplicateTaskName, service.CodeNoCheckinChannel:
		return http.StatusConflict
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeCollaboratorUnavailable:
		return http.StatusBadGateway
	case service.CodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

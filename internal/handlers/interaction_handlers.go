package handlers

import (
	"net/http"
	"taskBot/internal/handlers/dto"
	"taskBot/internal/logger"
	"taskBot/internal/messenger"
	"taskBot/internal/service"
	"time"

	"go.uber.org/zap"
)

// Interaction разбирает нажатие на кнопку чекина или выбор в меню статуса.
// Компонент несёт только id задачи, вся логика в сервисе чекинов.
func (h *TaskHandler) Interaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.InteractionRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, err, "interaction")
		return
	}

	if request.GuildID <= 0 {
		respondError(w, service.NewValidationError("guild_id", "guild_id is required"), "interaction")
		return
	}
	if request.UserID <= 0 {
		respondError(w, service.NewValidationError("user_id", "user_id is required"), "interaction")
		return
	}

	prefix, taskID, err := messenger.ParseCustomID(request.CustomID)
	if err != nil {
		logger.Warn("HTTP: Неизвестный компонент", zap.String("custom_id", request.CustomID))
		respondError(w, service.NewValidationError("custom_id", err.Error()), "interaction")
		return
	}

	switch prefix {
	case messenger.CheckinButtonPrefix:
		msg, err := h.Checkins.PromptCheckin(r.Context(), request.GuildID, taskID)
		if err != nil {
			respondError(w, err, "prompt_checkin")
			return
		}
		reply(w, http.StatusOK, msg.Content, toPayload("select", msg.Select))

	case messenger.CheckinSelectPrefix:
		if len(request.Values) == 0 {
			respondError(w, service.NewValidationError("values", "a check-in choice is required"), "record_checkin")
			return
		}
		if _, err := h.Checkins.RecordCheckin(r.Context(), request.GuildID, taskID, request.UserID, request.Values[0]); err != nil {
			respondError(w, err, "record_checkin")
			return
		}
		reply(w, http.StatusOK, service.CheckinRecordedText)

	default:
		respondError(w, service.NewValidationError("custom_id", "unknown component "+prefix), "interaction")
		return
	}

	logger.Info("HTTP_OUT: Взаимодействие обработано",
		zap.String("component", prefix),
		zap.Int64("task_id", taskID),
		zap.Duration("ms", time.Since(start)))
}

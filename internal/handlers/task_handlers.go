package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"taskBot/internal/handlers/dto"
	"taskBot/internal/logger"
	"taskBot/internal/messenger"
	"taskBot/internal/models/task"
	"taskBot/internal/service"
	"time"

	"go.uber.org/zap"
)

const (
	deniedSetChannel     = "Only team captains can set a checkin channel tasks, sorry! Bug a captain to do their thing."
	deniedAssign         = "Only team captains can assign tasks, go and bug someone to do it for you 🥺"
	deniedCleanup        = "Only team captains can cleanup tasks. Go ping the captains!"
	deniedDeleteArchived = "Only team captains can delete tasks! Don't go ruining people's productvity now, or else I'll report you! ...or I would if I could"
)

type TaskHandler struct {
	Tasks       TaskService
	Checkins    CheckinService
	Members     MemberResolver
	CaptainRole string
}

func NewTaskHandler(tasks TaskService, checkins CheckinService, members MemberResolver, captainRole string) TaskHandler {
	if captainRole == "" {
		captainRole = "SE"
	}
	return TaskHandler{
		Tasks:       tasks,
		Checkins:    checkins,
		Members:     members,
		CaptainRole: captainRole,
	}
}

// requireCaptain пускает дальше только обладателя роли капитана; вызывается до обращения к хранилищу
func (h *TaskHandler) requireCaptain(ctx context.Context, guildID, userID int64, denied string) error {
	if userID <= 0 {
		return service.NewValidationError("user_id", "required")
	}

	member, err := h.Members.ResolveMember(ctx, guildID, userID)
	if err != nil {
		if errors.Is(err, messenger.ErrNotFound) {
			return service.NewForbidden(denied)
		}
		return service.NewCollaboratorUnavailable("resolve_member", err)
	}
	if !member.HasRole(h.CaptainRole) {
		logger.Info("HTTP: Отказ не капитану",
			zap.Int64("guild_id", guildID),
			zap.Int64("user_id", userID))
		return service.NewForbidden(denied)
	}
	return nil
}

func (h *TaskHandler) SetCheckinChannel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	guildID, err := guildIDParam(r)
	if err != nil {
		respondError(w, err, "set_checkin_channel")
		return
	}

	var request dto.SetCheckinChannelRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, err, "set_checkin_channel")
		return
	}

	if err := h.requireCaptain(r.Context(), guildID, request.UserID, deniedSetChannel); err != nil {
		respondError(w, err, "set_checkin_channel")
		return
	}

	channelID, err := messenger.ParseChannelID(request.Channel)
	if err != nil {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "channel"),
			zap.String("value", request.Channel))
		responseWithJSON(w, http.StatusBadRequest,
			toPayload("ephemeral", true),
			toPayload("error", service.CodeValidation),
			toPayload("message", "Please use a valid channel id, or reference one using `#channel`"))
		return
	}

	changed, err := h.Tasks.SetCheckinChannel(r.Context(), guildID, channelID)
	if err != nil {
		respondError(w, err, "set_checkin_channel")
		return
	}

	logger.Info("HTTP_OUT: Канал чекинов обработан",
		zap.Bool("changed", changed),
		zap.Duration("ms", time.Since(start)))

	if !changed {
		reply(w, http.StatusOK, "This channel has already been set as the checkin channel!")
		return
	}
	reply(w, http.StatusOK, "Channel set successfully!")
}

func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	guildID, err := guildIDParam(r)
	if err != nil {
		respondError(w, err, "assign_task")
		return
	}

	var request dto.AssignTaskRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, err, "assign_task")
		return
	}

	if err := h.requireCaptain(r.Context(), guildID, request.UserID, deniedAssign); err != nil {
		respondError(w, err, "assign_task")
		return
	}

	if request.ChannelID <= 0 {
		respondError(w, service.NewValidationError("channel_id",
			"This command must be used in a text channel or a poll channel."), "assign_task")
		return
	}

	hours := 0
	if request.ReminderHours != nil {
		if !task.ValidDueIntervalHours(*request.ReminderHours) {
			respondError(w, service.NewValidationError("reminder_hours",
				fmt.Sprintf("must be between 1 and %d hours", task.MaxDueIntervalHours)), "assign_task")
			return
		}
		hours = *request.ReminderHours
	}

	result, err := h.Tasks.AssignTask(r.Context(), service.AssignRequest{
		GuildID:          guildID,
		ChannelID:        request.ChannelID,
		CaptainID:        request.UserID,
		Name:             request.Name,
		Assignees:        messenger.ParseUserIDs(request.Assignees),
		DueIntervalHours: hours,
	})
	if err != nil {
		respondError(w, err, "assign_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", result.TaskID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	reply(w, http.StatusCreated,
		fmt.Sprintf("Task `%s` created and assigned in %s! Woo!",
			strings.TrimSpace(request.Name), messenger.ChannelMention(result.ThreadID)),
		toPayload("task", dto.AssignTaskResponse{
			TaskID:           result.TaskID,
			ThreadID:         result.ThreadID,
			Assignees:        result.Assignees,
			DueIntervalHours: result.DueIntervalHours,
		}))
}

func (h *TaskHandler) CleanupTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	guildID, err := guildIDParam(r)
	if err != nil {
		respondError(w, err, "cleanup_tasks")
		return
	}

	var request dto.CleanupTasksRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, err, "cleanup_tasks")
		return
	}

	if err := h.requireCaptain(r.Context(), guildID, request.UserID, deniedCleanup); err != nil {
		respondError(w, err, "cleanup_tasks")
		return
	}

	report, err := h.Tasks.CleanupTasks(r.Context(), guildID, splitNames(request.TaskNames, ";"), request.DeleteThread)
	if err != nil {
		respondError(w, err, "cleanup_tasks")
		return
	}

	logger.Info("HTTP_OUT: Очистка задач",
		zap.Int("completed", len(report.Completed)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("ms", time.Since(start)))

	reply(w, http.StatusOK, report.Summary(),
		toPayload("completed", report.Completed),
		toPayload("failed", len(report.Failed)))
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	guildID, err := guildIDParam(r)
	if err != nil {
		respondError(w, err, "list_tasks")
		return
	}

	archived := false
	if raw := r.URL.Query().Get("archived"); raw != "" {
		archived, err = strconv.ParseBool(raw)
		if err != nil {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "archived"),
				zap.String("value", raw))
			respondError(w, service.NewValidationError("archived", "must be true or false"), "list_tasks")
			return
		}
	}

	filter := strings.TrimSpace(r.URL.Query().Get("filter"))
	captains := messenger.ParseUserIDs(filter)
	if filter != "" && len(captains) == 0 {
		reply(w, http.StatusOK, emptyListMessage(true, archived), toPayload("tasks", []dto.TaskResponse{}))
		return
	}

	listings, err := h.Tasks.ListTasks(r.Context(), guildID, archived, captains)
	if err != nil {
		respondError(w, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(listings)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	if len(listings) == 0 {
		reply(w, http.StatusOK, emptyListMessage(filter != "", archived), toPayload("tasks", []dto.TaskResponse{}))
		return
	}
	replyEmbed(w, http.StatusOK, listingsEmbed(listings, archived), toPayload("tasks", dto.FromListings(listings)))
}

func emptyListMessage(filtered, archived bool) string {
	switch {
	case filtered && archived:
		return "There are no archived tasks in this guild created by this user(s)."
	case filtered:
		return "There are no open tasks in this guild created by this user(s). What a shame... they should set some up."
	case archived:
		return "There are no archived tasks in this guild."
	default:
		return "There are no open tasks in this guild. Woo!!! No work!!"
	}
}

func listingsEmbed(listings []task.Listing, archived bool) *messenger.Embed {
	desc, color := "active", messenger.ColorBlurple
	if archived {
		desc, color = "archived", messenger.ColorDarkGray
	}
	embed := &messenger.Embed{
		Title:       "Open Tasks",
		Description: fmt.Sprintf("There are currently %d %s task(s) in this server.", len(listings), desc),
		Color:       color,
	}

	for _, l := range listings {
		assignees := "Nobody... Where is everyone? 😭"
		if len(l.Assignees) > 0 {
			mentions := make([]string, 0, len(l.Assignees))
			for _, id := range l.Assignees {
				mentions = append(mentions, messenger.UserMention(id))
			}
			assignees = strings.Join(mentions, ", ")
		}
		embed.AddField("Name: "+l.Name, fmt.Sprintf(
			"Thread: %s\nCaptain: %s\nAssignees: %s\nReminder (hours): %d",
			messenger.ChannelMention(l.ThreadID),
			messenger.UserMention(l.CaptainID),
			assignees,
			l.DueIntervalHours))
	}
	return embed
}

func (h *TaskHandler) DeleteArchivedTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	guildID, err := guildIDParam(r)
	if err != nil {
		respondError(w, err, "delete_archived_tasks")
		return
	}

	var request dto.DeleteArchivedTasksRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, err, "delete_archived_tasks")
		return
	}

	if err := h.requireCaptain(r.Context(), guildID, request.UserID, deniedDeleteArchived); err != nil {
		respondError(w, err, "delete_archived_tasks")
		return
	}

	names := splitNames(request.TaskNames, ",")
	if !request.DeleteAll && len(names) == 0 {
		responseWithJSON(w, http.StatusBadRequest,
			toPayload("ephemeral", true),
			toPayload("error", service.CodeValidation),
			toPayload("message", "Please provide a comma separated list of task names to delete, or specify delete_all. Otherwise, uh... I can't read."))
		return
	}

	report, err := h.Tasks.PurgeArchivedTasks(r.Context(), guildID, names, request.DeleteAll)
	if err != nil {
		respondError(w, err, "delete_archived_tasks")
		return
	}

	logger.Info("HTTP_OUT: Архивные задачи удалены",
		zap.Int("removed", report.Removed),
		zap.Int("threads_deleted", report.ThreadsDeleted),
		zap.Duration("ms", time.Since(start)))

	if report.Removed == 0 {
		reply(w, http.StatusOK, "No matching archived tasks found to delete... so that probably means you spelled it wrong.")
		return
	}
	reply(w, http.StatusOK, fmt.Sprintf(
		"Deleted %d thread(s) and removed %d task(s) from the archive! This cannot be undone, so I hope you know what you were doing.",
		report.ThreadsDeleted, report.Removed))
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис нездоров", err)
		responseWithJSON(w, http.StatusServiceUnavailable, toPayload("status", "unavailable"))
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

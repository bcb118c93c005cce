package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"taskBot/internal/logger"
	"taskBot/internal/messenger"
	"taskBot/internal/models/task"
	repo "taskBot/internal/repository"
	"time"

	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	repo      TaskRepository
	messenger messenger.Messenger
	opts      options
}

func NewTaskService(repo TaskRepository, m messenger.Messenger, opts ...Option) *TaskService {
	return &TaskService{
		repo:      repo,
		messenger: m,
		opts:      applyOptions(opts),
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return NewStorageFailure("health_check", err)
	}
	return nil
}

func (s *TaskService) requireCheckinChannel(ctx context.Context, guildID int64) error {
	_, err := s.repo.GetCheckinChannel(ctx, guildID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: Канал чекинов не настроен", zap.Int64("guild_id", guildID))
			return NewNoCheckinChannel(guildID)
		}
		logger.Error("Service: Ошибка чтения канала чекинов", err, zap.Int64("guild_id", guildID))
		return NewStorageFailure("get_checkin_channel", err)
	}
	return nil
}

func validateReminderHours(hours int) error {
	if !task.ValidDueIntervalHours(hours) {
		return NewValidationError("reminder_hours",
			fmt.Sprintf("must be between 1 and %d hours", task.MaxDueIntervalHours))
	}
	return nil
}

// CreateTask создаёт активную задачу; 0 часов означает интервал по умолчанию
func (s *TaskService) CreateTask(ctx context.Context, guildID, threadID, captainID int64, name string, assignees []int64, dueIntervalHours int) (int64, error) {
	if err := s.requireCheckinChannel(ctx, guildID); err != nil {
		return 0, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, NewValidationError("name", "task name can't be empty")
	}
	if dueIntervalHours == 0 {
		dueIntervalHours = s.opts.defaultReminderHour
	}
	if err := validateReminderHours(dueIntervalHours); err != nil {
		return 0, err
	}

	newTask := task.New(guildID, captainID, s.opts.now(),
		task.WithName(name),
		task.WithThread(threadID),
		task.WithDueIntervalHours(dueIntervalHours))

	id, err := s.repo.CreateTask(ctx, newTask, assignees)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateTaskName) {
			logger.Info("Service: Задача с таким именем уже есть",
				zap.Int64("guild_id", guildID), zap.String("name", name))
			return 0, NewDuplicateTaskName(name)
		}
		logger.Error("Service: Ошибка создания задачи", err, zap.String("name", name))
		return 0, NewStorageFailure("create_task", err)
	}

	logger.Info("Service: Задача создана",
		zap.Int64("task_id", id),
		zap.Int64("guild_id", guildID),
		zap.Time("next_check_time", newTask.NextCheckTime))
	return id, nil
}

// CompleteTask снимает задачу с активных и возвращает id её треда; тред не трогает
func (s *TaskService) CompleteTask(ctx context.Context, guildID int64, name string, deleteThread bool) (int64, error) {
	name = strings.TrimSpace(name)

	id, err := s.repo.GetTaskIDByName(ctx, guildID, name)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, NewTaskNotFound(name)
		}
		logger.Error("Service: Ошибка поиска задачи", err, zap.String("name", name))
		return 0, NewStorageFailure("get_task_id_by_name", err)
	}

	removed, err := s.repo.ArchiveAndRemoveTask(ctx, id, !deleteThread)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, NewTaskNotFound(name)
		}
		logger.Error("Service: Ошибка завершения задачи", err, zap.Int64("task_id", id))
		return 0, NewStorageFailure("archive_and_remove_task", err)
	}

	logger.Info("Service: Задача завершена",
		zap.Int64("task_id", id),
		zap.Bool("archived", !deleteThread))
	return removed.ThreadID, nil
}

func (s *TaskService) ListTasks(ctx context.Context, guildID int64, archived bool, captains []int64) ([]task.Listing, error) {
	if archived {
		rows, err := s.repo.ListArchivedTasks(ctx, guildID, captains)
		if err != nil {
			logger.Error("Service: Ошибка чтения архива", err, zap.Int64("guild_id", guildID))
			return nil, NewStorageFailure("list_archived_tasks", err)
		}
		listings := make([]task.Listing, 0, len(rows))
		for _, a := range rows {
			listings = append(listings, task.ListingFromArchived(a))
		}
		return listings, nil
	}

	rows, err := s.repo.ListActiveTasks(ctx, guildID, captains)
	if err != nil {
		logger.Error("Service: Ошибка чтения задач", err, zap.Int64("guild_id", guildID))
		return nil, NewStorageFailure("list_active_tasks", err)
	}

	listings := make([]task.Listing, 0, len(rows))
	for _, t := range rows {
		assignees, err := s.repo.GetAssignees(ctx, t.ID)
		if err != nil {
			// список всё равно полезен без исполнителей
			logger.Warn("Service: Не удалось получить исполнителей", zap.Int64("task_id", t.ID), zap.Error(err))
			assignees = nil
		}
		listings = append(listings, task.ListingFromTask(t, assignees))
	}
	return listings, nil
}

func (s *TaskService) DeleteArchivedTasks(ctx context.Context, guildID int64, names []string, deleteAll bool) ([]*task.ArchivedTask, error) {
	names = cleanNames(names)
	if !deleteAll && len(names) == 0 {
		return nil, NewValidationError("task_names",
			"provide a list of task names to delete, or specify delete_all")
	}

	deleted, err := s.repo.DeleteArchivedTasks(ctx, guildID, names, deleteAll)
	if err != nil {
		logger.Error("Service: Ошибка удаления архива", err, zap.Int64("guild_id", guildID))
		return nil, NewStorageFailure("delete_archived_tasks", err)
	}

	logger.Info("Service: Архивные задачи удалены",
		zap.Int64("guild_id", guildID),
		zap.Int("count", len(deleted)))
	return deleted, nil
}

// SetCheckinChannel возвращает false, если этот канал уже установлен
func (s *TaskService) SetCheckinChannel(ctx context.Context, guildID, channelID int64) (bool, error) {
	if channelID <= 0 {
		return false, NewValidationError("channel", "channel id must be positive")
	}

	current, err := s.repo.GetCheckinChannel(ctx, guildID)
	switch {
	case err == nil && current == channelID:
		return false, nil
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		logger.Warn("Service: Не удалось прочитать текущий канал", zap.Error(err))
	}

	if err := s.repo.SetCheckinChannel(ctx, guildID, channelID); err != nil {
		logger.Error("Service: Ошибка сохранения канала чекинов", err, zap.Int64("guild_id", guildID))
		return false, NewStorageFailure("set_checkin_channel", err)
	}

	logger.Info("Service: Канал чекинов установлен",
		zap.Int64("guild_id", guildID),
		zap.Int64("channel_id", channelID))
	return true, nil
}

type AssignRequest struct {
	GuildID          int64
	ChannelID        int64
	CaptainID        int64
	Name             string
	Assignees        []int64
	DueIntervalHours int
}

type AssignResult struct {
	TaskID           int64
	ThreadID         int64
	Assignees        []int64
	DueIntervalHours int
}

// AssignTask заводит тред, задачу и постоянную кнопку чекина
func (s *TaskService) AssignTask(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	if err := s.requireCheckinChannel(ctx, req.GuildID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("name", "task name can't be empty")
	}
	hours := req.DueIntervalHours
	if hours == 0 {
		hours = s.opts.defaultReminderHour
	}
	if err := validateReminderHours(hours); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetTaskIDByName(ctx, req.GuildID, name); err == nil {
		return nil, NewDuplicateTaskName(name)
	} else if !errors.Is(err, repo.ErrNotFound) {
		logger.Error("Service: Ошибка поиска задачи", err, zap.String("name", name))
		return nil, NewStorageFailure("get_task_id_by_name", err)
	}

	assignees := s.resolveAssignees(ctx, req.GuildID, req.Assignees)

	thread, err := s.messenger.CreateThread(ctx, req.ChannelID, "Task: "+name)
	if err != nil {
		logger.Error("Service: Не удалось создать тред", err, zap.Int64("channel_id", req.ChannelID))
		return nil, NewCollaboratorUnavailable("create_thread", err)
	}

	taskID, err := s.CreateTask(ctx, req.GuildID, thread.ID, req.CaptainID, name, assignees, hours)
	if err != nil {
		if delErr := s.messenger.DeleteThread(ctx, thread.ID); delErr != nil {
			logger.Warn("Service: Не удалось удалить осиротевший тред",
				zap.Int64("thread_id", thread.ID), zap.Error(delErr))
		}
		return nil, err
	}

	msg := messenger.Message{
		Embed:  taskEmbed(name, assignees, hours),
		Button: messenger.CheckinButton(taskID),
		Pin:    true,
	}
	if _, err := s.messenger.SendMessage(ctx, thread.ID, msg); err != nil {
		logger.Warn("Service: Не удалось отправить карточку задачи",
			zap.Int64("thread_id", thread.ID), zap.Error(err))
	}

	if err := s.messenger.RegisterPersistentControl(ctx, messenger.CheckinControl{TaskID: taskID, TaskName: name}); err != nil {
		logger.Warn("Service: Не удалось зарегистрировать кнопку чекина",
			zap.Int64("task_id", taskID), zap.Error(err))
	}

	return &AssignResult{
		TaskID:           taskID,
		ThreadID:         thread.ID,
		Assignees:        assignees,
		DueIntervalHours: hours,
	}, nil
}

// неизвестные участники молча пропускаются
func (s *TaskService) resolveAssignees(ctx context.Context, guildID int64, ids []int64) []int64 {
	resolved := make([]int64, 0, len(ids))
	for _, id := range ids {
		member, err := s.messenger.ResolveMember(ctx, guildID, id)
		if err != nil {
			logger.Info("Service: Исполнитель не найден в гильдии",
				zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		resolved = append(resolved, member.UserID)
	}
	return resolved
}

func taskEmbed(name string, assignees []int64, hours int) *messenger.Embed {
	mentions := make([]string, 0, len(assignees))
	for _, id := range assignees {
		mentions = append(mentions, messenger.UserMention(id))
	}
	embed := &messenger.Embed{
		Title:       "Task: " + name,
		Description: "Use the Check-in button to report your progress today!",
		Color:       messenger.ColorBlue,
		Footer:      fmt.Sprintf("Daily check-ins required within %d hours.", hours),
	}
	embed.AddField("Assignees", strings.Join(mentions, ", "))
	return embed
}

type CleanupFailure struct {
	Name   string
	Reason string
}

type CleanupReport struct {
	Completed []string
	Failed    []CleanupFailure
}

// Summary собирает ответ капитану: сначала успехи, потом неудачи
func (r CleanupReport) Summary() string {
	var parts []string
	if len(r.Completed) > 0 {
		lines := make([]string, 0, len(r.Completed))
		for _, name := range r.Completed {
			lines = append(lines, fmt.Sprintf(
				"Task \"%s\" marked complete! Assignees will no longer be prompted for check-ins. Woot Woot!", name))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if len(r.Failed) > 0 {
		lines := make([]string, 0, len(r.Failed))
		for _, f := range r.Failed {
			lines = append(lines, f.Reason)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// CleanupTasks завершает задачи по одной; ошибка одной не мешает остальным
func (s *TaskService) CleanupTasks(ctx context.Context, guildID int64, names []string, deleteThread bool) (CleanupReport, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return CleanupReport{}, NewValidationError("task_names", "provide at least one task name")
	}

	report := CleanupReport{}
	for _, name := range names {
		threadID, err := s.CompleteTask(ctx, guildID, name, deleteThread)
		if err != nil {
			reason := fmt.Sprintf("Failed to remove task \"%s\", dw things will still work.", name)
			if IsCode(err, CodeTaskNotFound) {
				reason = fmt.Sprintf("Task \"%s\" doesn't exist, you sure you spelled it right?", name)
			}
			report.Failed = append(report.Failed, CleanupFailure{Name: name, Reason: reason})
			continue
		}

		s.closeThread(ctx, threadID, deleteThread)
		report.Completed = append(report.Completed, name)
	}

	logger.Info("Service: Очистка задач завершена",
		zap.Int64("guild_id", guildID),
		zap.Int("completed", len(report.Completed)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// сбои платформы при закрытии треда только логируются
func (s *TaskService) closeThread(ctx context.Context, threadID int64, deleteThread bool) {
	if threadID == 0 {
		return
	}
	var err error
	if deleteThread {
		err = s.messenger.DeleteThread(ctx, threadID)
	} else {
		err = s.messenger.ArchiveThread(ctx, threadID)
	}
	if err != nil {
		logger.Warn("Service: Не удалось закрыть тред",
			zap.Int64("thread_id", threadID),
			zap.Bool("delete", deleteThread),
			zap.Error(err))
	}
}

type PurgeReport struct {
	Removed        int
	ThreadsDeleted int
}

// PurgeArchivedTasks удаляет архивные записи и их треды
func (s *TaskService) PurgeArchivedTasks(ctx context.Context, guildID int64, names []string, deleteAll bool) (PurgeReport, error) {
	deleted, err := s.DeleteArchivedTasks(ctx, guildID, names, deleteAll)
	if err != nil {
		return PurgeReport{}, err
	}

	report := PurgeReport{Removed: len(deleted)}
	for _, a := range deleted {
		if err := s.messenger.DeleteThread(ctx, a.ThreadID); err != nil {
			logger.Warn("Service: Не удалось удалить тред архивной задачи",
				zap.Int64("thread_id", a.ThreadID), zap.Error(err))
			continue
		}
		report.ThreadsDeleted++
	}
	return report, nil
}

// RestoreControls заново регистрирует кнопки чекина всех активных задач после рестарта
func (s *TaskService) RestoreControls(ctx context.Context) (int, error) {
	start := time.Now()

	tasks, err := s.repo.ListAllActiveTasks(ctx)
	if err != nil {
		logger.Error("Service: Ошибка чтения активных задач", err)
		return 0, NewStorageFailure("list_all_active_tasks", err)
	}

	restored := 0
	for _, t := range tasks {
		control := messenger.CheckinControl{TaskID: t.ID, TaskName: t.Name}
		if err := s.messenger.RegisterPersistentControl(ctx, control); err != nil {
			logger.Warn("Service: Кнопка чекина не восстановлена", zap.Int64("task_id", t.ID), zap.Error(err))
			continue
		}
		restored++
	}

	logger.Info("Service: Кнопки чекина восстановлены",
		zap.Int("restored", restored),
		zap.Int("total", len(tasks)),
		zap.Duration("ms", time.Since(start)))
	return restored, nil
}

func cleanNames(names []string) []string {
	res := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			res = append(res, n)
		}
	}
	return res
}

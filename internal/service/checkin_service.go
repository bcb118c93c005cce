package service

import (
	"context"
	"errors"
	"taskBot/internal/logger"
	"taskBot/internal/messenger"
	"taskBot/internal/models/task"
	repo "taskBot/internal/repository"
	"time"

	"go.uber.org/zap"
)

const (
	CheckinPromptText   = "What's your progress for today looking like?"
	CheckinRecordedText = "Check-in recorded successfully!"
)

type CheckinService struct {
	repo      TaskRepository
	messenger messenger.Messenger
	opts      options
}

func NewCheckinService(repo TaskRepository, m messenger.Messenger, opts ...Option) *CheckinService {
	return &CheckinService{
		repo:      repo,
		messenger: m,
		opts:      applyOptions(opts),
	}
}

// PromptCheckin - ответ на нажатие кнопки: меню выбора статуса для этой задачи
func (s *CheckinService) PromptCheckin(ctx context.Context, guildID, taskID int64) (messenger.Message, error) {
	if _, err := s.getTask(ctx, guildID, taskID); err != nil {
		return messenger.Message{}, err
	}
	return messenger.Message{
		Content: CheckinPromptText,
		Select:  messenger.CheckinSelect(taskID),
	}, nil
}

// RecordCheckin сохраняет чекин и пересылает отчёт в канал чекинов гильдии.
// Сбой пересылки не отменяет сохранённый чекин.
func (s *CheckinService) RecordCheckin(ctx context.Context, guildID, taskID, userID int64, rawChoice string) (*task.Checkin, error) {
	choice, err := task.ParseChoice(rawChoice)
	if err != nil {
		logger.Info("Service: Неизвестный вариант чекина", zap.String("choice", rawChoice))
		return nil, NewInvalidChoice(rawChoice)
	}

	t, err := s.getTask(ctx, guildID, taskID)
	if err != nil {
		return nil, err
	}

	checkin, err := s.repo.InsertCheckin(ctx, taskID, userID, choice)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewTaskIDNotFound(taskID)
		}
		logger.Error("Service: Ошибка сохранения чекина", err, zap.Int64("task_id", taskID))
		return nil, NewStorageFailure("insert_checkin", err)
	}

	logger.Info("Service: Чекин записан",
		zap.Int64("task_id", taskID),
		zap.Int64("user_id", userID),
		zap.String("choice", string(choice)))

	s.forward(ctx, t, userID, choice)
	return checkin, nil
}

// задача чужой гильдии для взаимодействия не существует
func (s *CheckinService) getTask(ctx context.Context, guildID, taskID int64) (*task.Task, error) {
	t, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewTaskIDNotFound(taskID)
		}
		logger.Error("Service: Ошибка чтения задачи", err, zap.Int64("task_id", taskID))
		return nil, NewStorageFailure("get_task_by_id", err)
	}
	if t.GuildID != guildID {
		logger.Warn("Service: Задача из другой гильдии",
			zap.Int64("task_id", taskID),
			zap.Int64("guild_id", guildID))
		return nil, NewTaskIDNotFound(taskID)
	}
	return t, nil
}

func (s *CheckinService) forward(ctx context.Context, t *task.Task, userID int64, choice task.Choice) {
	channelID, err := s.repo.GetCheckinChannel(ctx, t.GuildID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			logger.Warn("Service: Не удалось прочитать канал чекинов", zap.Int64("guild_id", t.GuildID), zap.Error(err))
		}
		return
	}

	now := s.opts.now()
	embed := ReportEmbed(t, userID, choice, now)
	if _, err := s.messenger.SendMessage(ctx, channelID, messenger.Message{Embed: embed}); err != nil {
		logger.Warn("Service: Отчёт не доставлен в канал чекинов",
			zap.Int64("channel_id", channelID),
			zap.Int64("task_id", t.ID),
			zap.Error(err))
	}
}

func ReportEmbed(t *task.Task, userID int64, choice task.Choice, at time.Time) *messenger.Embed {
	embed := &messenger.Embed{
		Title:       "New report on Task: " + t.Name + "!",
		Description: "Check-in from " + messenger.UserMention(userID),
		Color:       messenger.ColorBlue,
		Footer:      at.Format(time.ANSIC),
		Timestamp:   &at,
	}
	embed.AddField("Captain:", messenger.UserMention(t.CaptainID))
	embed.AddField("Report:", choice.Report())
	embed.AddField("Thread:", messenger.ChannelMention(t.ThreadID))
	return embed
}

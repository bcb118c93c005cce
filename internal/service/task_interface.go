package service

import (
	"context"
	"taskBot/internal/models/task"
	"time"
)

type TaskRepository interface {
	HealthCheck(ctx context.Context) error

	CreateTask(ctx context.Context, t *task.Task, assignees []int64) (int64, error)
	GetTaskIDByName(ctx context.Context, guildID int64, name string) (int64, error)
	GetTaskByID(ctx context.Context, id int64) (*task.Task, error)
	ListActiveTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.Task, error)
	ListAllActiveTasks(ctx context.Context) ([]*task.Task, error)
	ListArchivedTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.ArchivedTask, error)
	ArchiveAndRemoveTask(ctx context.Context, taskID int64, keepArchiveRow bool) (*task.Task, error)
	DeleteArchivedTasks(ctx context.Context, guildID int64, names []string, all bool) ([]*task.ArchivedTask, error)

	InsertCheckin(ctx context.Context, taskID, userID int64, content task.Choice) (*task.Checkin, error)
	ListCheckins(ctx context.Context, taskID int64) ([]*task.Checkin, error)
	GetAssignees(ctx context.Context, taskID int64) ([]int64, error)

	GetCheckinChannel(ctx context.Context, guildID int64) (int64, error)
	SetCheckinChannel(ctx context.Context, guildID, channelID int64) error

	ListDueTasks(ctx context.Context, asOf time.Time) ([]*task.Task, error)
	AdvanceNextCheckTime(ctx context.Context, taskID int64, next time.Time) error
}

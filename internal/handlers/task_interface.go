package handlers

import (
	"context"
	"taskBot/internal/messenger"
	"taskBot/internal/models/task"
	"taskBot/internal/service"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	SetCheckinChannel(ctx context.Context, guildID, channelID int64) (bool, error)
	AssignTask(ctx context.Context, req service.AssignRequest) (*service.AssignResult, error)
	CleanupTasks(ctx context.Context, guildID int64, names []string, deleteThread bool) (service.CleanupReport, error)
	ListTasks(ctx context.Context, guildID int64, archived bool, captains []int64) ([]task.Listing, error)
	PurgeArchivedTasks(ctx context.Context, guildID int64, names []string, deleteAll bool) (service.PurgeReport, error)
}

type CheckinService interface {
	PromptCheckin(ctx context.Context, guildID, taskID int64) (messenger.Message, error)
	RecordCheckin(ctx context.Context, guildID, taskID, userID int64, rawChoice string) (*task.Checkin, error)
}

type MemberResolver interface {
	ResolveMember(ctx context.Context, guildID, userID int64) (*messenger.Member, error)
}

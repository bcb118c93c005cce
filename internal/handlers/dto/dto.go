package dto

import (
	"taskBot/internal/models/task"
)

type SetCheckinChannelRequest struct {
	UserID  int64  `json:"user_id,string"`
	Channel string `json:"channel"`
}

type AssignTaskRequest struct {
	UserID        int64  `json:"user_id,string"`
	ChannelID     int64  `json:"channel_id,string"`
	Name          string `json:"name"`
	Assignees     string `json:"assignees"`
	ReminderHours *int   `json:"reminder_hours,omitempty"`
}

type CleanupTasksRequest struct {
	UserID       int64  `json:"user_id,string"`
	TaskNames    string `json:"task_names"`
	DeleteThread bool   `json:"delete_thread"`
}

type DeleteArchivedTasksRequest struct {
	UserID    int64  `json:"user_id,string"`
	TaskNames string `json:"task_names"`
	DeleteAll bool   `json:"delete_all"`
}

// InteractionRequest - нажатие на компонент сообщения
type InteractionRequest struct {
	GuildID  int64    `json:"guild_id,string"`
	UserID   int64    `json:"user_id,string"`
	CustomID string   `json:"custom_id"`
	Values   []string `json:"values,omitempty"`
}

type TaskResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ThreadID         int64   `json:"thread_id"`
	CaptainID        int64   `json:"captain_id"`
	DueIntervalHours int     `json:"due_interval_hours"`
	Assignees        []int64 `json:"assignees"`
	Archived         bool    `json:"archived"`
}

func FromListing(l task.Listing) TaskResponse {
	assignees := l.Assignees
	if assignees == nil {
		assignees = []int64{}
	}
	return TaskResponse{
		ID:               l.ID,
		Name:             l.Name,
		ThreadID:         l.ThreadID,
		CaptainID:        l.CaptainID,
		DueIntervalHours: l.DueIntervalHours,
		Assignees:        assignees,
		Archived:         l.Archived,
	}
}

func FromListings(listings []task.Listing) []TaskResponse {
	result := make([]TaskResponse, len(listings))
	for i, l := range listings {
		result[i] = FromListing(l)
	}
	return result
}

type AssignTaskResponse struct {
	TaskID           int64   `json:"task_id"`
	ThreadID         int64   `json:"thread_id"`
	Assignees        []int64 `json:"assignees"`
	DueIntervalHours int     `json:"due_interval_hours"`
}

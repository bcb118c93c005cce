package task

import (
	"time"
)

type Task struct {
	ID               int64     `json:"id" db:"id"`
	GuildID          int64     `json:"guild_id" db:"guild_id"`
	ThreadID         int64     `json:"thread_id" db:"thread_id"`
	Name             string    `json:"name" db:"name"`
	CaptainID        int64     `json:"captain_id" db:"captain_id"`
	DueIntervalHours int       `json:"due_interval_hours" db:"due_interval_hours"`
	NextCheckTime    time.Time `json:"next_check_time" db:"next_check_time"`
	Active           bool      `json:"active" db:"active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// период напоминаний
func (t *Task) DueInterval() time.Duration {
	return time.Duration(t.DueIntervalHours) * time.Hour
}

// пора ли отправлять напоминание
func (t *Task) IsDue(now time.Time) bool {
	return t.Active && !t.NextCheckTime.After(now)
}

type ArchivedTask struct {
	ID               int64     `json:"id" db:"id"`
	OriginalTaskID   int64     `json:"original_task_id" db:"original_task_id"`
	GuildID          int64     `json:"guild_id" db:"guild_id"`
	ThreadID         int64     `json:"thread_id" db:"thread_id"`
	Name             string    `json:"name" db:"name"`
	CaptainID        int64     `json:"captain_id" db:"captain_id"`
	DueIntervalHours int       `json:"due_interval_hours" db:"due_interval_hours"`
	ArchivedAt       time.Time `json:"archived_at" db:"archived_at"`
}

// снимок задачи для архива при завершении без удаления треда
func Snapshot(t *Task, at time.Time) *ArchivedTask {
	return &ArchivedTask{
		OriginalTaskID:   t.ID,
		GuildID:          t.GuildID,
		ThreadID:         t.ThreadID,
		Name:             t.Name,
		CaptainID:        t.CaptainID,
		DueIntervalHours: t.DueIntervalHours,
		ArchivedAt:       at,
	}
}

type Checkin struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Content   Choice    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// строка списка задач, общая для активных и архивных
type Listing struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ThreadID         int64   `json:"thread_id"`
	CaptainID        int64   `json:"captain_id"`
	DueIntervalHours int     `json:"due_interval_hours"`
	Assignees        []int64 `json:"assignees,omitempty"`
	Archived         bool    `json:"archived"`
}

func ListingFromTask(t *Task, assignees []int64) Listing {
	return Listing{
		ID:               t.ID,
		Name:             t.Name,
		ThreadID:         t.ThreadID,
		CaptainID:        t.CaptainID,
		DueIntervalHours: t.DueIntervalHours,
		Assignees:        assignees,
	}
}

func ListingFromArchived(a *ArchivedTask) Listing {
	return Listing{
		ID:               a.ID,
		Name:             a.Name,
		ThreadID:         a.ThreadID,
		CaptainID:        a.CaptainID,
		DueIntervalHours: a.DueIntervalHours,
		Archived:         true,
	}
}

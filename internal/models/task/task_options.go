package task

import (
	"strings"
	"time"
)

type TaskOption func(*Task)

// новая активная задача, next_check_time = now + интервал
func New(guildID, captainID int64, now time.Time, options ...TaskOption) *Task {
	t := &Task{
		GuildID:          guildID,
		CaptainID:        captainID,
		DueIntervalHours: DefaultDueIntervalHours,
		Active:           true,
		CreatedAt:        now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	t.NextCheckTime = now.Add(t.DueInterval())
	return t
}

const DefaultDueIntervalHours = 26

// MaxDueIntervalHours - год; больше не принимаем, иначе time.Duration переполняется
const MaxDueIntervalHours = 24 * 365

// ValidDueIntervalHours - интервал, который можно сохранить
func ValidDueIntervalHours(hours int) bool {
	return hours > 0 && hours <= MaxDueIntervalHours
}

func WithName(name string) TaskOption {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return func(task *Task) {
		task.Name = name
	}
}

func WithDueIntervalHours(hours int) TaskOption {
	if !ValidDueIntervalHours(hours) {
		return nil
	}
	return func(task *Task) {
		task.DueIntervalHours = hours
	}
}

func WithThread(threadID int64) TaskOption {
	if threadID == 0 {
		return nil
	}
	return func(task *Task) {
		task.ThreadID = threadID
	}
}

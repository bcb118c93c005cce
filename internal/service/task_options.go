package service

import (
	"taskBot/internal/models/task"
	"time"
)

// Option настраивает сервисы при создании
type Option func(*options)

type options struct {
	now                 func() time.Time
	defaultReminderHour int
}

func defaultOptions() options {
	return options{
		now:                 time.Now,
		defaultReminderHour: task.DefaultDueIntervalHours,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithClock подменяет источник времени, нужен в тестах
func WithClock(now func() time.Time) Option {
	if now == nil {
		return nil
	}
	return func(o *options) {
		o.now = now
	}
}

func WithDefaultReminderHours(hours int) Option {
	if !task.ValidDueIntervalHours(hours) {
		return nil
	}
	return func(o *options) {
		o.defaultReminderHour = hours
	}
}

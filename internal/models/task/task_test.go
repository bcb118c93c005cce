package task_test

import (
	"taskBot/internal/models/task"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ComputesNextCheckTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	created := task.New(1, 3, now,
		task.WithName(" Docs "),
		task.WithThread(2),
		task.WithDueIntervalHours(16))

	assert.True(t, created.Active)
	assert.Equal(t, "Docs", created.Name)
	assert.Equal(t, int64(2), created.ThreadID)
	assert.Equal(t, int64(3), created.CaptainID)
	assert.Equal(t, 16, created.DueIntervalHours)
	assert.Equal(t, now.Add(16*time.Hour), created.NextCheckTime)
}

func TestNew_DefaultsAndIgnoredOptions(t *testing.T) {
	now := time.Now()

	created := task.New(1, 3, now,
		task.WithName("Docs"),
		task.WithName("   "),
		task.WithThread(0),
		task.WithDueIntervalHours(0))

	assert.Equal(t, task.DefaultDueIntervalHours, created.DueIntervalHours)
	assert.Equal(t, "Docs", created.Name)
	assert.Zero(t, created.ThreadID)
}

func TestNew_IntervalOverCapIgnored(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	created := task.New(1, 3, now, task.WithDueIntervalHours(3_000_000))

	assert.Equal(t, task.DefaultDueIntervalHours, created.DueIntervalHours)
	assert.True(t, created.NextCheckTime.After(now))
}

func TestValidDueIntervalHours(t *testing.T) {
	tests := []struct {
		hours int
		want  bool
	}{
		{hours: -1, want: false},
		{hours: 0, want: false},
		{hours: 1, want: true},
		{hours: task.MaxDueIntervalHours, want: true},
		{hours: task.MaxDueIntervalHours + 1, want: false},
		{hours: 3_000_000, want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, task.ValidDueIntervalHours(tt.hours), "hours=%d", tt.hours)
	}
}

func TestTask_IsDue(t *testing.T) {
	now := time.Now()
	tk := &task.Task{Active: true, NextCheckTime: now}

	assert.True(t, tk.IsDue(now))
	assert.False(t, tk.IsDue(now.Add(-time.Second)))

	tk.Active = false
	assert.False(t, tk.IsDue(now.Add(time.Hour)))
}

func TestParseChoice(t *testing.T) {
	for _, c := range task.Choices {
		parsed, err := task.ParseChoice(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
		assert.NotEmpty(t, parsed.Label())
		assert.NotEmpty(t, parsed.Report())
	}

	_, err := task.ParseChoice("bogus")
	assert.Error(t, err)
	assert.False(t, task.Choice("bogus").Valid())
	assert.True(t, task.ChoiceSkipped.Valid())
}

func TestSnapshot(t *testing.T) {
	at := time.Now()
	tk := &task.Task{ID: 7, GuildID: 1, ThreadID: 9, Name: "Docs", CaptainID: 5, DueIntervalHours: 16}

	a := task.Snapshot(tk, at)

	assert.Equal(t, int64(7), a.OriginalTaskID)
	assert.Equal(t, "Docs", a.Name)
	assert.Equal(t, int64(5), a.CaptainID)
	assert.Equal(t, 16, a.DueIntervalHours)
	assert.Equal(t, at, a.ArchivedAt)
}

package inmemory_test

import (
	"context"
	"taskBot/internal/models/task"
	"taskBot/internal/repository/repotest"
	"taskBot/internal/repository/task/inmemory"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStorage_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Store {
		return inmemory.NewTaskStorage()
	})
}

func TestTaskStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestTaskStorage_ReturnsCopies проверяет, что вызывающий не может изменить хранилище через результат
func TestTaskStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	id, err := storage.CreateTask(ctx, &task.Task{
		GuildID:          1,
		Name:             "Docs",
		CaptainID:        10,
		DueIntervalHours: 16,
		NextCheckTime:    time.Now(),
	}, []int64{100})
	require.NoError(t, err)

	got, err := storage.GetTaskByID(ctx, id)
	require.NoError(t, err)
	got.Name = "Changed"

	again, err := storage.GetTaskByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Docs", again.Name)

	assignees, err := storage.GetAssignees(ctx, id)
	require.NoError(t, err)
	assignees[0] = 999

	again2, err := storage.GetAssignees(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, again2)
}

// TestTaskStorage_CreateFillsInput проверяет, что CreateTask проставляет id и активность во входной задаче
func TestTaskStorage_CreateFillsInput(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	in := &task.Task{GuildID: 1, Name: "Docs", DueIntervalHours: 26}

	id, err := storage.CreateTask(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, id, in.ID)
	assert.True(t, in.Active)
	assert.False(t, in.CreatedAt.IsZero())
}

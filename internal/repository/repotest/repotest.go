// Package repotest содержит общий набор проверок для всех реализаций хранилища задач.
package repotest

import (
	"context"
	"sync"
	"taskBot/internal/models/task"
	repo "taskBot/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
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

// Run прогоняет все проверки; newStore должен возвращать пустое хранилище
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("DuplicateName", func(t *testing.T) { testDuplicateName(t, newStore(t)) })
	t.Run("ListActiveWithCaptainFilter", func(t *testing.T) { testListActive(t, newStore(t)) })
	t.Run("ArchiveKeepsSnapshot", func(t *testing.T) { testArchive(t, newStore(t)) })
	t.Run("RemoveWithoutSnapshot", func(t *testing.T) { testRemoveWithoutSnapshot(t, newStore(t)) })
	t.Run("NameReusableAfterCompletion", func(t *testing.T) { testNameReuse(t, newStore(t)) })
	t.Run("DeleteArchived", func(t *testing.T) { testDeleteArchived(t, newStore(t)) })
	t.Run("Checkins", func(t *testing.T) { testCheckins(t, newStore(t)) })
	t.Run("CheckinChannel", func(t *testing.T) { testCheckinChannel(t, newStore(t)) })
	t.Run("DueTasksAndAdvance", func(t *testing.T) { testDueTasks(t, newStore(t)) })
	t.Run("ConcurrentCheckins", func(t *testing.T) { testConcurrentCheckins(t, newStore(t)) })
}

func newTask(guild int64, name string, captain int64, next time.Time) *task.Task {
	return &task.Task{
		GuildID:          guild,
		ThreadID:         guild*1000 + int64(len(name)),
		Name:             name,
		CaptainID:        captain,
		DueIntervalHours: 16,
		NextCheckTime:    next,
		Active:           true,
	}
}

func mustCreate(t *testing.T, s Store, tk *task.Task, assignees ...int64) int64 {
	id, err := s.CreateTask(context.Background(), tk, assignees)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func testCreateAndGet(t *testing.T, s Store) {
	ctx := context.Background()
	next := time.Now().Add(16 * time.Hour).Truncate(time.Microsecond)

	id := mustCreate(t, s, newTask(1, "Docs", 10, next), 100, 101, 100)

	got, err := s.GetTaskByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Docs", got.Name)
	assert.Equal(t, int64(10), got.CaptainID)
	assert.Equal(t, 16, got.DueIntervalHours)
	assert.True(t, got.Active)
	assert.WithinDuration(t, next, got.NextCheckTime, time.Millisecond)

	byName, err := s.GetTaskIDByName(ctx, 1, "Docs")
	require.NoError(t, err)
	assert.Equal(t, id, byName)

	assignees, err := s.GetAssignees(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101}, assignees)

	_, err = s.GetTaskByID(ctx, id+1000)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = s.GetTaskIDByName(ctx, 2, "Docs")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testDuplicateName(t *testing.T, s Store) {
	ctx := context.Background()
	first := mustCreate(t, s, newTask(1, "Docs", 10, time.Now()))

	_, err := s.CreateTask(ctx, newTask(1, "Docs", 11, time.Now()), []int64{5})
	assert.ErrorIs(t, err, repo.ErrDuplicateTaskName)

	// другая гильдия - другое пространство имён
	mustCreate(t, s, newTask(2, "Docs", 10, time.Now()))

	active, err := s.ListActiveTasks(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first, active[0].ID)
}

func testListActive(t *testing.T, s Store) {
	ctx := context.Background()
	a := mustCreate(t, s, newTask(1, "A", 10, time.Now()))
	b := mustCreate(t, s, newTask(1, "B", 11, time.Now()))
	c := mustCreate(t, s, newTask(1, "C", 10, time.Now()))
	mustCreate(t, s, newTask(2, "D", 10, time.Now()))

	all, err := s.ListActiveTasks(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a, b, c}, []int64{all[0].ID, all[1].ID, all[2].ID})

	filtered, err := s.ListActiveTasks(ctx, 1, []int64{10})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, a, filtered[0].ID)
	assert.Equal(t, c, filtered[1].ID)

	none, err := s.ListActiveTasks(ctx, 1, []int64{999})
	require.NoError(t, err)
	assert.Empty(t, none)

	everywhere, err := s.ListAllActiveTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, everywhere, 4)
}

func testArchive(t *testing.T, s Store) {
	ctx := context.Background()
	id := mustCreate(t, s, newTask(1, "Docs", 10, time.Now()), 100)
	_, err := s.InsertCheckin(ctx, id, 100, task.ChoiceDone)
	require.NoError(t, err)

	removed, err := s.ArchiveAndRemoveTask(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, id, removed.ID)
	assert.False(t, removed.Active)

	_, err = s.GetTaskByID(ctx, id)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	active, err := s.ListActiveTasks(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, active)

	archived, err := s.ListArchivedTasks(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, id, archived[0].OriginalTaskID)
	assert.Equal(t, "Docs", archived[0].Name)
	assert.Equal(t, int64(10), archived[0].CaptainID)
	assert.Equal(t, 16, archived[0].DueIntervalHours)
	assert.False(t, archived[0].ArchivedAt.IsZero())

	// каскад: исполнители и чекины ушли вместе с задачей
	assignees, err := s.GetAssignees(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, assignees)
	checkins, err := s.ListCheckins(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, checkins)

	_, err = s.ArchiveAndRemoveTask(ctx, id, true)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testRemoveWithoutSnapshot(t *testing.T, s Store) {
	ctx := context.Background()
	id := mustCreate(t, s, newTask(1, "Docs", 10, time.Now()))

	_, err := s.ArchiveAndRemoveTask(ctx, id, false)
	require.NoError(t, err)

	archived, err := s.ListArchivedTasks(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func testNameReuse(t *testing.T, s Store) {
	ctx := context.Background()
	first := mustCreate(t, s, newTask(1, "Docs", 10, time.Now()))
	_, err := s.ArchiveAndRemoveTask(ctx, first, true)
	require.NoError(t, err)

	second := mustCreate(t, s, newTask(1, "Docs", 10, time.Now()))
	_, err = s.ArchiveAndRemoveTask(ctx, second, true)
	require.NoError(t, err)

	// одинаковые имена в архиве допустимы
	archived, err := s.ListArchivedTasks(ctx, 1, []int64{10})
	require.NoError(t, err)
	assert.Len(t, archived, 2)
}

func testDeleteArchived(t *testing.T, s Store) {
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		id := mustCreate(t, s, newTask(1, name, 10, time.Now()))
		_, err := s.ArchiveAndRemoveTask(ctx, id, true)
		require.NoError(t, err)
	}
	other := mustCreate(t, s, newTask(2, "A", 10, time.Now()))
	_, err := s.ArchiveAndRemoveTask(ctx, other, true)
	require.NoError(t, err)

	deleted, err := s.DeleteArchivedTasks(ctx, 1, []string{"A", "missing"}, false)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "A", deleted[0].Name)

	nothing, err := s.DeleteArchivedTasks(ctx, 1, nil, false)
	require.NoError(t, err)
	assert.Empty(t, nothing)

	rest, err := s.DeleteArchivedTasks(ctx, 1, nil, true)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	remaining, err := s.ListArchivedTasks(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	otherGuild, err := s.ListArchivedTasks(ctx, 2, nil)
	require.NoError(t, err)
	assert.Len(t, otherGuild, 1)
}

func testCheckins(t *testing.T, s Store) {
	ctx := context.Background()
	id := mustCreate(t, s, newTask(1, "Docs", 10, time.Now()), 100)

	c, err := s.InsertCheckin(ctx, id, 100, task.ChoiceAlmost)
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, task.ChoiceAlmost, c.Content)

	_, err = s.InsertCheckin(ctx, id, 100, task.ChoiceSkipped)
	require.NoError(t, err)

	list, err := s.ListCheckins(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, task.ChoiceAlmost, list[0].Content)
	assert.Equal(t, task.ChoiceSkipped, list[1].Content)

	_, err = s.InsertCheckin(ctx, id+1000, 100, task.ChoiceDone)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testCheckinChannel(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetCheckinChannel(ctx, 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, s.SetCheckinChannel(ctx, 1, 500))
	ch, err := s.GetCheckinChannel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), ch)

	require.NoError(t, s.SetCheckinChannel(ctx, 1, 501))
	ch, err = s.GetCheckinChannel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(501), ch)
}

func testDueTasks(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond)

	due := mustCreate(t, s, newTask(1, "Due", 10, now.Add(-time.Minute)))
	edge := mustCreate(t, s, newTask(1, "Edge", 10, now))
	mustCreate(t, s, newTask(1, "Later", 10, now.Add(time.Hour)))

	list, err := s.ListDueTasks(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []int64{due, edge}, []int64{list[0].ID, list[1].ID})

	next := now.Add(16 * time.Hour)
	require.NoError(t, s.AdvanceNextCheckTime(ctx, due, next))

	got, err := s.GetTaskByID(ctx, due)
	require.NoError(t, err)
	assert.WithinDuration(t, next, got.NextCheckTime, time.Millisecond)

	list, err = s.ListDueTasks(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, edge, list[0].ID)

	_, err = s.ArchiveAndRemoveTask(ctx, edge, false)
	require.NoError(t, err)
	assert.ErrorIs(t, s.AdvanceNextCheckTime(ctx, edge, next), repo.ErrNotFound)
}

func testConcurrentCheckins(t *testing.T, s Store) {
	ctx := context.Background()
	id := mustCreate(t, s, newTask(1, "Docs", 10, time.Now()), 100, 101)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.InsertCheckin(ctx, id, int64(100+i%2), task.ChoiceDone)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := s.ListCheckins(ctx, id)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

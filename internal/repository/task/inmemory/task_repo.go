package inmemory

import (
	"context"
	"sort"
	"sync"
	"taskBot/internal/logger"
	"taskBot/internal/models/task"
	repo "taskBot/internal/repository"
	"time"
)

// TaskStorage хранит все сущности в памяти, один мьютекс на всё хранилище
type TaskStorage struct {
	mtx *sync.RWMutex

	tasks     map[int64]*task.Task
	ids       []int64
	assignees map[int64][]int64
	checkins  map[int64][]*task.Checkin
	archived  []*task.ArchivedTask
	channels  map[int64]int64

	nextTaskID     int64
	nextCheckinID  int64
	nextArchivedID int64

	now func() time.Time
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		mtx:       &sync.RWMutex{},
		tasks:     make(map[int64]*task.Task),
		ids:       []int64{},
		assignees: make(map[int64][]int64),
		checkins:  make(map[int64][]*task.Checkin),
		channels:  make(map[int64]int64),
		now:       time.Now,
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Close() {}

func (s *TaskStorage) CreateTask(ctx context.Context, taskToCreate *task.Task, assignees []int64) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, id := range s.ids {
		existing := s.tasks[id]
		if existing.Active && existing.GuildID == taskToCreate.GuildID && existing.Name == taskToCreate.Name {
			return 0, repo.ErrDuplicateTaskName
		}
	}

	s.nextTaskID++
	stored := *taskToCreate
	stored.ID = s.nextTaskID
	stored.Active = true
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}

	s.tasks[stored.ID] = &stored
	s.ids = append(s.ids, stored.ID)
	s.assignees[stored.ID] = uniqueIDs(assignees)

	taskToCreate.ID = stored.ID
	taskToCreate.Active = true
	taskToCreate.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

func (s *TaskStorage) GetTaskIDByName(ctx context.Context, guildID int64, name string) (int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, id := range s.ids {
		t := s.tasks[id]
		if t.Active && t.GuildID == guildID && t.Name == name {
			return t.ID, nil
		}
	}
	return 0, repo.ErrNotFound
}

func (s *TaskStorage) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

// активные задачи гильдии, опционально только от указанных капитанов
func (s *TaskStorage) ListActiveTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	filter := idSet(captains)
	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.tasks[id]
		if !t.Active || t.GuildID != guildID {
			continue
		}
		if filter != nil && !filter[t.CaptainID] {
			continue
		}
		copied := *t
		res = append(res, &copied)
	}
	return res, nil
}

func (s *TaskStorage) ListAllActiveTasks(ctx context.Context) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.tasks[id]
		if !t.Active {
			continue
		}
		copied := *t
		res = append(res, &copied)
	}
	return res, nil
}

func (s *TaskStorage) ListArchivedTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.ArchivedTask, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	filter := idSet(captains)
	res := []*task.ArchivedTask{}
	for _, a := range s.archived {
		if a.GuildID != guildID {
			continue
		}
		if filter != nil && !filter[a.CaptainID] {
			continue
		}
		copied := *a
		res = append(res, &copied)
	}
	return res, nil
}

// завершение задачи: снимок в архив (по желанию) и удаление вместе с зависимыми строками
func (s *TaskStorage) ArchiveAndRemoveTask(ctx context.Context, taskID int64, keepArchiveRow bool) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, repo.ErrNotFound
	}

	if keepArchiveRow {
		s.nextArchivedID++
		snapshot := task.Snapshot(t, s.now())
		snapshot.ID = s.nextArchivedID
		s.archived = append(s.archived, snapshot)
	}

	delete(s.tasks, taskID)
	delete(s.assignees, taskID)
	delete(s.checkins, taskID)
	for ind, val := range s.ids {
		if val == taskID {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}

	removed := *t
	removed.Active = false
	return &removed, nil
}

func (s *TaskStorage) DeleteArchivedTasks(ctx context.Context, guildID int64, names []string, all bool) ([]*task.ArchivedTask, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	deleted := []*task.ArchivedTask{}
	kept := s.archived[:0]
	for _, a := range s.archived {
		if a.GuildID == guildID && (all || wanted[a.Name]) {
			deleted = append(deleted, a)
			continue
		}
		kept = append(kept, a)
	}
	s.archived = kept
	return deleted, nil
}

func (s *TaskStorage) InsertCheckin(ctx context.Context, taskID, userID int64, content task.Choice) (*task.Checkin, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return nil, repo.ErrNotFound
	}

	s.nextCheckinID++
	c := &task.Checkin{
		ID:        s.nextCheckinID,
		TaskID:    taskID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.checkins[taskID] = append(s.checkins[taskID], c)

	copied := *c
	return &copied, nil
}

func (s *TaskStorage) ListCheckins(ctx context.Context, taskID int64) ([]*task.Checkin, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Checkin{}
	for _, c := range s.checkins[taskID] {
		copied := *c
		res = append(res, &copied)
	}
	return res, nil
}

func (s *TaskStorage) GetAssignees(ctx context.Context, taskID int64) ([]int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]int64, len(s.assignees[taskID]))
	copy(res, s.assignees[taskID])
	return res, nil
}

func (s *TaskStorage) GetCheckinChannel(ctx context.Context, guildID int64) (int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	channelID, ok := s.channels[guildID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	return channelID, nil
}

func (s *TaskStorage) SetCheckinChannel(ctx context.Context, guildID, channelID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.channels[guildID] = channelID
	return nil
}

func (s *TaskStorage) ListDueTasks(ctx context.Context, asOf time.Time) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.tasks[id]
		if t.IsDue(asOf) {
			copied := *t
			res = append(res, &copied)
		}
	}
	return res, nil
}

func (s *TaskStorage) AdvanceNextCheckTime(ctx context.Context, taskID int64, next time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || !t.Active {
		return repo.ErrNotFound
	}
	t.NextCheckTime = next
	return nil
}

func idSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func uniqueIDs(ids []int64) []int64 {
	set := idSet(ids)
	res := make([]int64, 0, len(set))
	for id := range set {
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"taskBot/internal/logger"
	"taskBot/internal/models/task"
	repo "taskBot/internal/repository"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool       *pgxpool.Pool
	connString string
}

func New(ctx context.Context, connString string, opts ...Options) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if len(opts) > 0 {
		if opts[0].MaxConns > 0 {
			config.MaxConns = opts[0].MaxConns
		}
		if opts[0].MinConns > 0 {
			config.MinConns = opts[0].MinConns
		}
		if opts[0].MaxConnIdleTime > 0 {
			config.MaxConnIdleTime = opts[0].MaxConnIdleTime
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool, connString: connString}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Info("Repository: Соединение стабильно")
	return nil
}

// задача и исполнители пишутся одной транзакцией
func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task, assignees []int64) (int64, error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO tasks
				(guild_id, thread_id, name, captain_id, due_interval_hours, next_check_time, active)
				VALUES ($1, $2, $3, $4, $5, $6, TRUE)
				RETURNING id, created_at`

	err = tx.QueryRow(ctx, query,
		taskToCreate.GuildID,
		taskToCreate.ThreadID,
		taskToCreate.Name,
		taskToCreate.CaptainID,
		taskToCreate.DueIntervalHours,
		taskToCreate.NextCheckTime,
	).Scan(&taskToCreate.ID, &taskToCreate.CreatedAt)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			logger.Warn("Repository: Дубликат имени задачи",
				zap.Int64("guild_id", taskToCreate.GuildID),
				zap.String("name", taskToCreate.Name))
			return 0, repo.ErrDuplicateTaskName
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("добавление задачи: %w", err)
	}

	if len(assignees) > 0 {
		batch := &pgx.Batch{}
		for _, userID := range assignees {
			batch.Queue(`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, taskToCreate.ID, userID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			logger.Error("Repository: Не удалось добавить исполнителей", err, zap.Int64("task_id", taskToCreate.ID))
			return 0, fmt.Errorf("добавление исполнителей: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("коммит транзакции: %w", err)
	}

	taskToCreate.Active = true
	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return taskToCreate.ID, nil
}

func (s *Storage) GetTaskIDByName(ctx context.Context, guildID int64, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM tasks WHERE guild_id = $1 AND name = $2 AND active LIMIT 1`,
		guildID, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repo.ErrNotFound
		}
		return 0, fmt.Errorf("поиск задачи по имени: %w", err)
	}
	return id, nil
}

const taskColumns = `id,
				guild_id,
				thread_id,
				name,
				captain_id,
				due_interval_hours,
				next_check_time,
				active,
				created_at`

func (s *Storage) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()

	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

// активные задачи гильдии, фильтр по капитанам применяется в запросе
func (s *Storage) ListActiveTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.Task, error) {
	if len(captains) == 0 {
		return s.queryTasks(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE guild_id = $1 AND active ORDER BY id`, guildID)
	}
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE guild_id = $1 AND active AND captain_id = ANY($2) ORDER BY id`,
		guildID, captains)
}

func (s *Storage) ListAllActiveTasks(ctx context.Context) ([]*task.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE active ORDER BY id`)
}

func (s *Storage) ListDueTasks(ctx context.Context, asOf time.Time) ([]*task.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE active AND next_check_time <= $1 ORDER BY id`, asOf)
}

const archivedColumns = `id,
				original_task_id,
				guild_id,
				thread_id,
				name,
				captain_id,
				due_interval_hours,
				archived_at`

func (s *Storage) ListArchivedTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.ArchivedTask, error) {
	query := `SELECT ` + archivedColumns + ` FROM archived_tasks WHERE guild_id = $1 ORDER BY id`
	args := []any{guildID}
	if len(captains) > 0 {
		query = `SELECT ` + archivedColumns + ` FROM archived_tasks WHERE guild_id = $1 AND captain_id = ANY($2) ORDER BY id`
		args = append(args, captains)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить архивные задачи", err)
		return nil, fmt.Errorf("получение архивных задач: %w", err)
	}
	defer rows.Close()
	return scanArchivedRows(rows)
}

// снимок в архив (если нужен) и удаление задачи, каскад убирает исполнителей и чекины
func (s *Storage) ArchiveAndRemoveTask(ctx context.Context, taskID int64, keepArchiveRow bool) (*task.Task, error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	if keepArchiveRow {
		_, err := tx.Exec(ctx, `INSERT INTO archived_tasks
				(original_task_id, guild_id, thread_id, name, captain_id, due_interval_hours)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.GuildID, t.ThreadID, t.Name, t.CaptainID, t.DueIntervalHours)
		if err != nil {
			logger.Error("Repository: Не удалось архивировать задачу", err, zap.Int64("task_id", taskID))
			return nil, fmt.Errorf("архивирование задачи: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		logger.Error("Repositry: Удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("удаление задачи: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("коммит транзакции: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}

	t.Active = false
	return t, nil
}

func (s *Storage) DeleteArchivedTasks(ctx context.Context, guildID int64, names []string, all bool) ([]*task.ArchivedTask, error) {
	if !all && len(names) == 0 {
		return []*task.ArchivedTask{}, nil
	}

	rows, err := s.pool.Query(ctx, `DELETE FROM archived_tasks
				WHERE guild_id = $1 AND ($2 OR name = ANY($3))
				RETURNING `+archivedColumns, guildID, all, names)
	if err != nil {
		logger.Error("Repository: Не удалось удалить архивные задачи", err)
		return nil, fmt.Errorf("удаление архивных задач: %w", err)
	}
	defer rows.Close()

	deleted, err := scanArchivedRows(rows)
	if err != nil {
		return nil, err
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i].ID < deleted[j].ID })
	return deleted, nil
}

func (s *Storage) InsertCheckin(ctx context.Context, taskID, userID int64, content task.Choice) (*task.Checkin, error) {
	c := &task.Checkin{TaskID: taskID, UserID: userID, Content: content}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO checkins (task_id, user_id, content) VALUES ($1, $2, $3) RETURNING id, created_at`,
		taskID, userID, string(content)).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось сохранить чекин", err, zap.Int64("task_id", taskID))
		return nil, fmt.Errorf("добавление чекина: %w", err)
	}
	return c, nil
}

func (s *Storage) ListCheckins(ctx context.Context, taskID int64) ([]*task.Checkin, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, user_id, content, created_at FROM checkins WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение чекинов: %w", err)
	}
	defer rows.Close()

	res := []*task.Checkin{}
	for rows.Next() {
		c := &task.Checkin{}
		var content string
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("сканирование чекина: %w", err)
		}
		c.Content = task.Choice(content)
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return res, nil
}

func (s *Storage) GetAssignees(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY user_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение исполнителей: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("сканирование исполнителей: %w", err)
	}
	return ids, nil
}

func (s *Storage) GetCheckinChannel(ctx context.Context, guildID int64) (int64, error) {
	var channelID int64
	err := s.pool.QueryRow(ctx,
		`SELECT channel_id FROM checkin_channels WHERE guild_id = $1`, guildID).Scan(&channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repo.ErrNotFound
		}
		return 0, fmt.Errorf("получение канала чекинов: %w", err)
	}
	return channelID, nil
}

func (s *Storage) SetCheckinChannel(ctx context.Context, guildID, channelID int64) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO checkin_channels (guild_id, channel_id) VALUES ($1, $2)
				ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id`, guildID, channelID)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить канал чекинов", err, zap.Int64("guild_id", guildID))
		return fmt.Errorf("сохранение канала чекинов: %w", err)
	}
	return nil
}

func (s *Storage) AdvanceNextCheckTime(ctx context.Context, taskID int64, next time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET next_check_time = $1 WHERE id = $2 AND active`, next, taskID)
	if err != nil {
		return fmt.Errorf("перенос напоминания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.GuildID,
		&t.ThreadID,
		&t.Name,
		&t.CaptainID,
		&t.DueIntervalHours,
		&t.NextCheckTime,
		&t.Active,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanArchivedRows(rows pgx.Rows) ([]*task.ArchivedTask, error) {
	res := []*task.ArchivedTask{}
	for rows.Next() {
		a := &task.ArchivedTask{}
		err := rows.Scan(
			&a.ID,
			&a.OriginalTaskID,
			&a.GuildID,
			&a.ThreadID,
			&a.Name,
			&a.CaptainID,
			&a.DueIntervalHours,
			&a.ArchivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("сканирование архивной задачи: %w", err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return res, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

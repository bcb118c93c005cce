package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"taskBot/internal/logger"
	"taskBot/internal/models/task"
	repo "taskBot/internal/repository"
	"time"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Storage - однопользовательское хранилище на SQLite, время хранится в unix nano
type Storage struct {
	db *sql.DB
}

func New(ctx context.Context, path string) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			logger.Error("Repository: Не удалось создать каталог базы", err)
			return nil, fmt.Errorf("создание каталога: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("Repository: Ошибка открытия SQLite", err)
		return nil, fmt.Errorf("открытие базы: %w", err)
	}
	// одно соединение: прагмы и транзакции не расходятся между коннектами
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	s := &Storage{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Repository: Успешное подключение к SQLite", zap.String("path", path))
	return s, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			logger.Error("Repository: Ошибка применения схемы", err)
			return fmt.Errorf("применение схемы: %w", err)
		}
	}
	return nil
}

func (s *Storage) Close() {
	s.db.Close()
	logger.Info("Repository: Закрытие SQLite")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task, assignees []int64) (int64, error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback()

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO tasks
				(guild_id, thread_id, name, captain_id, due_interval_hours, next_check_time, active, created_at)
				VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
		taskToCreate.GuildID,
		taskToCreate.ThreadID,
		taskToCreate.Name,
		taskToCreate.CaptainID,
		taskToCreate.DueIntervalHours,
		taskToCreate.NextCheckTime.UnixNano(),
		taskToCreate.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrDuplicateTaskName
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("добавление задачи: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("получение id задачи: %w", err)
	}

	for _, userID := range assignees {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)`, id, userID)
		if err != nil {
			logger.Error("Repository: Не удалось добавить исполнителя", err, zap.Int64("task_id", id))
			return 0, fmt.Errorf("добавление исполнителей: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("коммит транзакции: %w", err)
	}

	taskToCreate.ID = id
	taskToCreate.Active = true
	slowQuery(start, 50*time.Millisecond)
	return id, nil
}

func (s *Storage) GetTaskIDByName(ctx context.Context, guildID int64, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tasks WHERE guild_id = ? AND name = ? AND active = 1 LIMIT 1`,
		guildID, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repo.ErrNotFound
		}
		return 0, fmt.Errorf("поиск задачи по имени: %w", err)
	}
	return id, nil
}

const taskColumns = `id, guild_id, thread_id, name, captain_id, due_interval_hours, next_check_time, active, created_at`

func (s *Storage) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

func (s *Storage) ListActiveTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE guild_id = ? AND active = 1`
	args := []any{guildID}
	if len(captains) > 0 {
		query += ` AND captain_id IN (` + placeholders(len(captains)) + `)`
		for _, c := range captains {
			args = append(args, c)
		}
	}
	query += ` ORDER BY id`
	return s.queryTasks(ctx, query, args...)
}

func (s *Storage) ListAllActiveTasks(ctx context.Context) ([]*task.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE active = 1 ORDER BY id`)
}

func (s *Storage) ListDueTasks(ctx context.Context, asOf time.Time) ([]*task.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE active = 1 AND next_check_time <= ? ORDER BY id`,
		asOf.UnixNano())
}

const archivedColumns = `id, original_task_id, guild_id, thread_id, name, captain_id, due_interval_hours, archived_at`

func (s *Storage) ListArchivedTasks(ctx context.Context, guildID int64, captains []int64) ([]*task.ArchivedTask, error) {
	query := `SELECT ` + archivedColumns + ` FROM archived_tasks WHERE guild_id = ?`
	args := []any{guildID}
	if len(captains) > 0 {
		query += ` AND captain_id IN (` + placeholders(len(captains)) + `)`
		for _, c := range captains {
			args = append(args, c)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("получение архивных задач: %w", err)
	}
	defer rows.Close()
	return scanArchivedRows(rows)
}

func (s *Storage) ArchiveAndRemoveTask(ctx context.Context, taskID int64, keepArchiveRow bool) (*task.Task, error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	if keepArchiveRow {
		_, err := tx.ExecContext(ctx, `INSERT INTO archived_tasks
				(original_task_id, guild_id, thread_id, name, captain_id, due_interval_hours, archived_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.GuildID, t.ThreadID, t.Name, t.CaptainID, t.DueIntervalHours, time.Now().UnixNano())
		if err != nil {
			logger.Error("Repository: Не удалось архивировать задачу", err, zap.Int64("task_id", taskID))
			return nil, fmt.Errorf("архивирование задачи: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err, zap.Int64("task_id", taskID))
		return nil, fmt.Errorf("удаление задачи: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("коммит транзакции: %w", err)
	}

	slowQuery(start, 100*time.Millisecond)
	t.Active = false
	return t, nil
}

func (s *Storage) DeleteArchivedTasks(ctx context.Context, guildID int64, names []string, all bool) ([]*task.ArchivedTask, error) {
	if !all && len(names) == 0 {
		return []*task.ArchivedTask{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback()

	where := `guild_id = ?`
	args := []any{guildID}
	if !all {
		where += ` AND name IN (` + placeholders(len(names)) + `)`
		for _, n := range names {
			args = append(args, n)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+archivedColumns+` FROM archived_tasks WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("выборка архивных задач: %w", err)
	}
	deleted, err := scanArchivedRows(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM archived_tasks WHERE `+where, args...); err != nil {
		return nil, fmt.Errorf("удаление архивных задач: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("коммит транзакции: %w", err)
	}
	return deleted, nil
}

func (s *Storage) InsertCheckin(ctx context.Context, taskID, userID int64, content task.Choice) (*task.Checkin, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checkins (task_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		taskID, userID, string(content), now.UnixNano())
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось сохранить чекин", err, zap.Int64("task_id", taskID))
		return nil, fmt.Errorf("добавление чекина: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("получение id чекина: %w", err)
	}

	return &task.Checkin{ID: id, TaskID: taskID, UserID: userID, Content: content, CreatedAt: now}, nil
}

func (s *Storage) ListCheckins(ctx context.Context, taskID int64) ([]*task.Checkin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, user_id, content, created_at FROM checkins WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение чекинов: %w", err)
	}
	defer rows.Close()

	res := []*task.Checkin{}
	for rows.Next() {
		c := &task.Checkin{}
		var content string
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("сканирование чекина: %w", err)
		}
		c.Content = task.Choice(content)
		c.CreatedAt = time.Unix(0, createdAt)
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return res, nil
}

func (s *Storage) GetAssignees(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM task_assignees WHERE task_id = ? ORDER BY user_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение исполнителей: %w", err)
	}
	defer rows.Close()

	res := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("сканирование исполнителя: %w", err)
		}
		res = append(res, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return res, nil
}

func (s *Storage) GetCheckinChannel(ctx context.Context, guildID int64) (int64, error) {
	var channelID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id FROM checkin_channels WHERE guild_id = ?`, guildID).Scan(&channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repo.ErrNotFound
		}
		return 0, fmt.Errorf("получение канала чекинов: %w", err)
	}
	return channelID, nil
}

func (s *Storage) SetCheckinChannel(ctx context.Context, guildID, channelID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO checkin_channels (guild_id, channel_id) VALUES (?, ?)
				ON CONFLICT(guild_id) DO UPDATE SET channel_id = excluded.channel_id`, guildID, channelID)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить канал чекинов", err, zap.Int64("guild_id", guildID))
		return fmt.Errorf("сохранение канала чекинов: %w", err)
	}
	return nil
}

func (s *Storage) AdvanceNextCheckTime(ctx context.Context, taskID int64, next time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET next_check_time = ? WHERE id = ? AND active = 1`, next.UnixNano(), taskID)
	if err != nil {
		return fmt.Errorf("перенос напоминания: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("перенос напоминания: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	slowQuery(start, 100*time.Millisecond)
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	t := &task.Task{}
	var next, created int64
	var active int
	err := row.Scan(&t.ID, &t.GuildID, &t.ThreadID, &t.Name, &t.CaptainID, &t.DueIntervalHours, &next, &active, &created)
	if err != nil {
		return nil, err
	}
	t.NextCheckTime = time.Unix(0, next)
	t.CreatedAt = time.Unix(0, created)
	t.Active = active == 1
	return t, nil
}

func scanArchivedRows(rows *sql.Rows) ([]*task.ArchivedTask, error) {
	res := []*task.ArchivedTask{}
	for rows.Next() {
		a := &task.ArchivedTask{}
		var archivedAt int64
		err := rows.Scan(&a.ID, &a.OriginalTaskID, &a.GuildID, &a.ThreadID, &a.Name, &a.CaptainID, &a.DueIntervalHours, &archivedAt)
		if err != nil {
			return nil, fmt.Errorf("сканирование архивной задачи: %w", err)
		}
		a.ArchivedAt = time.Unix(0, archivedAt)
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return res, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

func slowQuery(start time.Time, limit time.Duration) {
	if time.Since(start) > limit {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
}

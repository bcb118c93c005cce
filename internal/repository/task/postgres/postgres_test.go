package postgres_test

import (
	"context"
	"fmt"
	"taskBot/internal/models/task"
	"taskBot/internal/repository/repotest"
	"taskBot/internal/repository/task/postgres"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	connString string
	ctx        context.Context
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(s.T(), postgres.MigrateUp(s.connString))

	s.storage, err = postgres.New(s.ctx, s.connString)
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresTestSuite) SetupTest() {
	s.cleanupDatabase()
}

// cleanupDatabase очищает все таблицы и сбрасывает последовательности
func (s *PostgresTestSuite) cleanupDatabase() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx,
		`TRUNCATE tasks, task_assignees, checkins, checkin_channels, archived_tasks RESTART IDENTITY CASCADE`)
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) TestContract() {
	repotest.Run(s.T(), func(t *testing.T) repotest.Store {
		s.cleanupDatabase()
		return s.storage
	})
}

func (s *PostgresTestSuite) TestHealthCheck() {
	assert.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

func (s *PostgresTestSuite) TestMigrateUpIsIdempotent() {
	assert.NoError(s.T(), postgres.MigrateUp(s.connString))
}

func (s *PostgresTestSuite) TestCheckConstraintOnInterval() {
	_, err := s.storage.CreateTask(s.ctx, &task.Task{
		GuildID:          1,
		ThreadID:         2,
		Name:             "Broken",
		CaptainID:        10,
		DueIntervalHours: 0,
		NextCheckTime:    time.Now(),
	}, nil)
	assert.Error(s.T(), err)
}

// при сбое записи снимка транзакция откатывается целиком
func (s *PostgresTestSuite) TestArchiveFailureKeepsTask() {
	id, err := s.storage.CreateTask(s.ctx, &task.Task{
		GuildID:          1,
		ThreadID:         2,
		Name:             "Docs",
		CaptainID:        10,
		DueIntervalHours: 16,
		NextCheckTime:    time.Now().Add(time.Hour),
	}, []int64{100, 101})
	require.NoError(s.T(), err)

	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, `ALTER TABLE archived_tasks RENAME TO archived_tasks_off`)
	require.NoError(s.T(), err)
	defer func() {
		_, err := conn.Exec(s.ctx, `ALTER TABLE archived_tasks_off RENAME TO archived_tasks`)
		require.NoError(s.T(), err)
	}()

	_, err = s.storage.ArchiveAndRemoveTask(s.ctx, id, true)
	require.Error(s.T(), err)

	gotID, err := s.storage.GetTaskIDByName(s.ctx, 1, "Docs")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id, gotID)

	assignees, err := s.storage.GetAssignees(s.ctx, id)
	require.NoError(s.T(), err)
	assert.ElementsMatch(s.T(), []int64{100, 101}, assignees)
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в short режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func TestStorage_New_BadConnString(t *testing.T) {
	_, err := postgres.New(context.Background(), "postgres://nobody@127.0.0.1:1/none?connect_timeout=1")
	assert.Error(t, err)
}

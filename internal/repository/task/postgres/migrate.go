package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"taskBot/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// драйвер pgx/v5 у golang-migrate регистрируется под схемой pgx5
func migrateURL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}

func newMigrator(connString string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(connString))
	if err != nil {
		return nil, fmt.Errorf("инициализация миграций: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		logger.Warn("Repository: Ошибка закрытия мигратора",
			zap.NamedError("source", srcErr),
			zap.NamedError("database", dbErr))
	}
}

// MigrateUp применяет все миграции, отсутствие изменений не ошибка
func MigrateUp(connString string) error {
	logger.Info("Попытка миграций")

	m, err := newMigrator(connString)
	if err != nil {
		logger.Error("Repository: Мигратор не создан", err)
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Не удалось применить миграции", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("версия схемы: %w", err)
	}
	logger.Info("Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func MigrateDown(connString string) error {
	logger.Info("Откат миграций")

	m, err := newMigrator(connString)
	if err != nil {
		logger.Error("Repository: Мигратор не создан", err)
		return err
	}
	defer closeMigrator(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Не удалось откатить миграции", err)
		return fmt.Errorf("откат миграций: %w", err)
	}

	logger.Info("Migrations rolled back successfully!")
	return nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	return MigrateUp(s.connString)
}

func (s *Storage) Down(ctx context.Context) error {
	return MigrateDown(s.connString)
}

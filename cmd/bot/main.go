package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"taskBot/internal/app"
	"taskBot/internal/config"
	"taskBot/internal/logger"
	"taskBot/internal/repository/task/postgres"

	"github.com/spf13/cobra"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskbot",
		Short:   "Бот учёта задач и ежедневных чекинов",
		Version: Version,
		// без подкоманды запускаем сервер
		RunE: runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "путь к config.yml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер команд и планировщик напоминаний",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if _, err := a.Init(ctx); err != nil {
		a.Shutdown()
		return err
	}
	return a.Run(ctx)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы postgres",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := postgresURL()
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(url); err != nil {
				return err
			}
			fmt.Println("Миграции применены")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Откатить все миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := postgresURL()
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(url); err != nil {
				return err
			}
			fmt.Println("Миграции откачены")
			return nil
		},
	})

	return cmd
}

func postgresURL() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if err := logger.Init(cfg.Logging.Development, cfg.Logging.Level); err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", errors.New("database.url не задан (TASKBOT_DATABASE_URL)")
	}
	return cfg.Database.URL, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"taskBot/internal/config"
	"taskBot/internal/handlers"
	"taskBot/internal/logger"
	"taskBot/internal/messenger"
	"taskBot/internal/messenger/gateway"
	"taskBot/internal/middleware"
	"taskBot/internal/repository/task/inmemory"
	"taskBot/internal/repository/task/postgres"
	"taskBot/internal/repository/task/sqlite"
	"taskBot/internal/service"
	"taskBot/internal/worker"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository
	messenger  messenger.Messenger
	tasks      *service.TaskService
	checkins   *service.CheckinService
	worker     *worker.ReminderWorker
	shutdowns  []func() // выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// WithMessenger подменяет шлюз, используется в тестах
func (a *App) WithMessenger(m messenger.Messenger) *App {
	a.messenger = m
	return a
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.config.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация: %w", err)
	}

	if err := a.initRepository(ctx); err != nil {
		return nil, err
	}

	if a.messenger == nil {
		a.messenger = gateway.New(gateway.Options{
			BaseURL:         a.config.Gateway.URL,
			Token:           a.config.Gateway.Token,
			Timeout:         a.config.Gateway.Timeout,
			MaxRetries:      a.config.Gateway.MaxRetries,
			InitialInterval: a.config.Gateway.RetryInitialInterval,
			MaxInterval:     a.config.Gateway.RetryMaxInterval,
		})
	}

	opts := []service.Option{service.WithDefaultReminderHours(a.config.Tasks.DefaultReminderHours)}
	a.tasks = service.NewTaskService(a.repository, a.messenger, opts...)
	a.checkins = service.NewCheckinService(a.repository, a.messenger, opts...)

	hours, err := a.config.Scheduler.Hours()
	if err != nil {
		return nil, err
	}
	a.worker = worker.NewReminderWorker(a.repository, a.messenger, worker.Options{
		Interval:    a.config.Scheduler.PollInterval,
		SendTimeout: a.config.Scheduler.SendTimeout,
		Concurrency: a.config.Scheduler.Concurrency,
		Hours:       hours,
	})

	a.initRouter()

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("addr", a.server.Addr))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		if err := postgres.MigrateUp(a.config.Database.URL); err != nil {
			return fmt.Errorf("миграции postgres: %w", err)
		}
		store, err := postgres.New(ctx, a.config.Database.URL, postgres.Options{
			MaxConns:        int32(a.config.Database.MaxConnections),
			MinConns:        int32(a.config.Database.MinConnections),
			MaxConnIdleTime: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.repository = store
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие пула postgres...")
			store.Close()
		})

	case config.RepositorySQLite:
		store, err := sqlite.New(ctx, a.config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("открытие sqlite: %w", err)
		}
		a.repository = store
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие sqlite...")
			store.Close()
		})

	case config.RepositoryInMemory:
		logger.Warn("Хранилище в памяти: данные пропадут при перезапуске")
		a.repository = inmemory.NewTaskStorage()

	default:
		return fmt.Errorf("неизвестный тип хранилища %q", a.config.Repository.Type)
	}
	return nil
}

func (a *App) initRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	if len(a.config.Server.CORSOrigins) > 0 {
		r.Use(middleware.CORS(a.config.Server.CORSOrigins))
	}
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimitRPM))

	h := handlers.NewTaskHandler(a.tasks, a.checkins, a.messenger, a.config.Tasks.CaptainRole)
	h.Register(r)

	a.router = r
}

func (a *App) Router() http.Handler {
	return a.router
}

// Run восстанавливает кнопки чекина, запускает напоминания и сервер; блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	// кнопки должны работать до первого взаимодействия
	if restored, err := a.tasks.RestoreControls(ctx); err != nil {
		logger.Error("Не удалось восстановить кнопки чекина", err)
	} else {
		logger.Info("Кнопки чекина восстановлены", zap.Int("count", restored))
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.worker.Start(workerCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Получен сигнал остановки")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Сервер остановился с ошибкой", err)
			runErr = fmt.Errorf("http сервер: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", err)
	}

	stopWorker()
	wg.Wait()
	return runErr
}

func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

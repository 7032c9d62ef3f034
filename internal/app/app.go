package app

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/config"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/postgres"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/Freeeeeet/tutor_scheduler/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Services командная и запросная поверхность ядра
type Services struct {
	Users        *service.UserService
	Documents    *service.DocumentService
	Requests     *service.RequestService
	Availability *service.AvailabilityService
	Booking      *service.BookingService
	Sessions     *service.SessionService
	Matching     *service.MatchingService
	Queries      *service.QueryService
}

// App собранное приложение: хранилище, сервисы и фоновые задачи
type App struct {
	Services

	cfg       *config.Config
	logger    *zap.Logger
	store     *repository.Store
	pool      *pgxpool.Pool
	queue     *notify.Queue
	scheduler *Scheduler
}

// New собирает приложение по конфигурации
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}

	storeOpts := []repository.Option{repository.WithLogger(logger)}
	if cfg.UsesDatabase() {
		opts, err := a.connectDatabase(ctx)
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, opts...)
	} else {
		logger.Warn("DB_DSN is not set, state is kept in memory only")
	}
	a.store = repository.NewStore(storeOpts...)

	users := service.NewUserService(a.store, logger)

	var delivery notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.TelegramToken != "" {
		b, err := notify.NewTelegramBot(cfg.TelegramToken)
		if err != nil {
			a.Close()
			return nil, err
		}
		delivery = notify.NewTelegramNotifier(b, users, logger)
		logger.Info("Telegram notifications enabled")
	}
	a.queue = notify.NewQueue(delivery, cfg.NotifyQueueSize, logger)

	a.Services = Services{
		Users:        users,
		Documents:    service.NewDocumentService(a.store, logger),
		Requests:     service.NewRequestService(a.store, a.queue, logger),
		Availability: service.NewAvailabilityService(a.store, a.queue, logger),
		Booking:      service.NewBookingService(a.store, a.queue, logger),
		Sessions:     service.NewSessionService(a.store, a.queue, loc, logger),
		Matching:     service.NewMatchingService(a.store, a.queue, loc, logger),
		Queries:      service.NewQueryService(a.store),
	}
	a.scheduler = NewScheduler(a.Sessions, cfg.CompletionInterval, logger)

	return a, nil
}

// connectDatabase подключает PostgreSQL, применяет миграции и загружает сохранённое состояние
func (a *App) connectDatabase(ctx context.Context) ([]repository.Option, error) {
	pool, err := postgres.Connect(ctx, a.cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.pool = pool
	a.logger.Info("Connected to database")

	db := postgres.NewDB(pool)

	if a.cfg.Migrate {
		migrator, err := NewMigrator(db.DB, migrations.FS, a.logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := migrator.Run(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	entities := postgres.NewEntityRepository(db)
	snap, err := entities.Load(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	a.logger.Info("State loaded from database", zap.Int("entities", snap.Len()))

	return []repository.Option{
		repository.WithSnapshot(snap),
		repository.WithPersister(entities),
	}, nil
}

// Run запускает фоновые задачи и ждёт отмены контекста
func (a *App) Run(ctx context.Context) error {
	go a.queue.Run(context.WithoutCancel(ctx))
	a.scheduler.Start(ctx)

	<-ctx.Done()

	a.scheduler.Stop()
	a.queue.Close()
	return nil
}

// Close освобождает соединения с базой
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

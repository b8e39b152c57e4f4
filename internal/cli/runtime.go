package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/config"
	"github.com/terraincognita07/mealplans/internal/db"
	"github.com/terraincognita07/mealplans/internal/i18n"
	"github.com/terraincognita07/mealplans/internal/locks"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
	"github.com/terraincognita07/mealplans/internal/notify"
	"github.com/terraincognita07/mealplans/internal/services"
)

// activationLockTTL bounds how long a crashed process can hold a client's
// activation lock in redis.
const activationLockTTL = 30 * time.Second

// runtime is everything a command needs, opened from configuration.
type runtime struct {
	cfg     *config.Config
	logger  *logrus.Logger
	repos   *db.Repositories
	closers []func() error
}

func openRuntime(options *rootOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if options.dbPath != "" {
		cfg.DBPath = options.dbPath
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)

	database, err := db.OpenSQLite(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		repos:   db.NewRepositories(database),
		closers: []func() error{sqlDB.Close},
	}, nil
}

// engine wires the lifecycle engine with the configured lock backend and
// delivery channels.
func (rt *runtime) engine(ctx context.Context) (*services.Engine, error) {
	catalog, err := i18n.NewManager()
	if err != nil {
		return nil, fmt.Errorf("i18n init failed: %w", err)
	}
	locker, err := rt.locker(ctx)
	if err != nil {
		return nil, err
	}
	dispatcher, err := rt.dispatcher()
	if err != nil {
		return nil, err
	}

	return services.NewEngine(services.EngineDependencies{
		Plans:         rt.repos.Plans,
		Mirrors:       rt.repos.Mirrors,
		Reminders:     rt.repos.Reminders,
		Clients:       rt.repos.Clients,
		Notifications: rt.repos.Notifications,
		Dispatcher:    dispatcher,
		Catalog:       catalog,
		Locker:        locker,
	}, services.EngineOptions{
		Logger:      rt.logger,
		Location:    rt.cfg.Location,
		CallTimeout: rt.cfg.CascadeTimeout,
	}), nil
}

func (rt *runtime) locker(ctx context.Context) (services.ClientLocker, error) {
	if rt.cfg.RedisAddress == "" {
		return locks.NewLocalLocker(), nil
	}
	client, err := locks.Connect(ctx, rt.cfg.RedisAddress)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, client.Close)
	rt.logger.WithField("address", rt.cfg.RedisAddress).Info("cli: using redis activation locks")
	return locks.NewRedisLocker(client, activationLockTTL, rt.logger), nil
}

func (rt *runtime) dispatcher() (services.NotificationDispatcher, error) {
	logDispatcher := notify.NewLogDispatcher(rt.logger)
	router := notify.NewRouter(logDispatcher)
	router.Register(models.ChannelLog, logDispatcher)

	if rt.cfg.TelegramBotToken == "" {
		rt.logger.Warn("cli: TELEGRAM_BOT_TOKEN not set, telegram messages go to the log")
		return router, nil
	}
	telegram, err := notify.NewTelegramDispatcher(rt.cfg.TelegramBotToken, rt.cfg.CascadeTimeout, rt.repos.Clients, rt.logger)
	if err != nil {
		return nil, err
	}
	router.Register(models.ChannelTelegram, telegram)
	return router, nil
}

func (rt *runtime) Close() {
	for index := len(rt.closers) - 1; index >= 0; index-- {
		if err := rt.closers[index](); err != nil {
			rt.logger.WithError(err).Warn("cli: close failed")
		}
	}
}

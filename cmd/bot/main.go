package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uniportal_bot/internal/app"
	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/domain/reminder"
	"uniportal_bot/internal/infra/cache"
	"uniportal_bot/internal/infra/config"
	idb "uniportal_bot/internal/infra/database"
	"uniportal_bot/internal/infra/email"
	"uniportal_bot/internal/infra/logger"
	"uniportal_bot/internal/infra/memory"
	"uniportal_bot/internal/infra/scheduler"
	"uniportal_bot/internal/infra/telegram"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const leaderLockTTL = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":    cfg.Environment,
		"ledger":         cfg.LedgerBackend,
		"session_ledger": cfg.SessionBackend,
		"channel":        cfg.NotifyChannel,
	}).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startupCancel()

	db, err := idb.NewPostgresConnection(startupCtx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(startupCtx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not prepare database schema")
	}
	mainLogger.Info("Database connection established")

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewClient(startupCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger.Component("redis"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		defer redisClient.Close()
	}

	dashboardService, err := app.NewDashboardService(startupCtx, idb.NewPostgresDashboardRepository(db, cfg.DashboardID), logger.Component("dashboard"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load dashboard")
	}

	sessionStore, durableStore := markerStores(cfg, db, redisClient)
	ledger := app.NewLedger(sessionStore, durableStore, logger.Component("ledger"))

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"text": c.Text(), "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	tgClient := telegram.NewTelebotAdapter(bot, cfg.TelegramRatePerSecond)

	var direct notification.Notifier = telegram.NewNotifier(tgClient, cfg.StudentTelegramID)
	if cfg.NotifyChannel == config.ChannelEmail {
		direct = email.NewNotifier(cfg.SendgridAPIKey, cfg.EmailFromName, cfg.EmailFrom, cfg.EmailTo)
	}

	var agent notification.Agent
	if redisClient != nil {
		agent = cache.NewAgentPublisher(redisClient, cfg.AgentChannel, logger.Component("agent"))
	}

	stored := app.NewStoredPermissionProbe(dashboardService, notification.ParsePermission(cfg.NotifyPermission))
	prompter := telegram.NewPermissionPrompter(stored, tgClient, cfg.StudentTelegramID)
	gate := app.NewPermissionGate(startupCtx, prompter, logger.Component("permission"))

	feed := app.NewFeed(startupCtx, dashboardService, logger.Component("feed"))
	delivery := app.NewDeliveryService(feed, gate, agent, direct, cfg.AgentIcon, logger.Component("delivery"))

	var leader app.Leader
	var leaderLock *cache.LeaderLock
	if cfg.LeaderLock {
		leaderLock = cache.NewLeaderLock(redisClient, "uniportal:leader:"+cfg.DashboardID, leaderLockTTL)
		leader = leaderLock
	}

	engine := app.NewEngine(dashboardService, ledger, delivery, leader, cfg.LedgerRetention, logger.Component("engine"))
	driver, err := scheduler.NewDriver(engine, cfg.CronSpecReminderCheck, cfg.InitialCheckDelay, logger.Component("driver"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Invalid reminder check schedule")
	}

	handlerLogger := logger.Component("telegram")
	telegram.RegisterBotCommands(bot, cfg.StudentTelegramID, dashboardService.UserName, handlerLogger)
	telegram.RegisterStudentHandlers(ctx, bot, dashboardService, feed, delivery, gate, driver, prompter, cfg.StudentTelegramID, handlerLogger)
	telegram.RegisterPermissionHandlers(ctx, bot, gate, dashboardService, delivery, cfg.StudentTelegramID, handlerLogger)

	go bot.Start()
	gate.RequestIfUndecided(ctx)
	driver.Start()
	mainLogger.Info("Application setup complete, bot and driver are running")

	// SIGUSR1 plays the part of "the user came back": run a pass right away.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	for sig := range signals {
		if sig == syscall.SIGUSR1 {
			mainLogger.Info("Resume signal received")
			go driver.Resume()
			continue
		}
		break
	}

	mainLogger.Info("Shutting down application...")
	driver.Stop()
	bot.Stop()
	if leaderLock != nil {
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := leaderLock.Release(releaseCtx); err != nil {
			mainLogger.WithError(err).Warn("Failed to release leader lock")
		}
		releaseCancel()
	}
	mainLogger.Info("Application shut down gracefully")
}

func markerStores(cfg *config.AppConfig, db *sql.DB, client *redis.Client) (session, durable reminder.MarkerStore) {
	if cfg.SessionBackend == config.BackendRedis {
		session = cache.NewMarkerStore(client, reminder.ScopeSession, scheduler.UntilNextMidnight)
	} else {
		session = memory.NewMarkerStore()
	}
	if cfg.LedgerBackend == config.BackendRedis {
		durable = cache.NewMarkerStore(client, reminder.ScopeDurable, nil)
	} else {
		durable = idb.NewPostgresMarkerRepository(db, reminder.ScopeDurable)
	}
	return session, durable
}

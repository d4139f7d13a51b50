package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/infra/cache"
	"uniportal_bot/internal/infra/config"
	"uniportal_bot/internal/infra/email"
	"uniportal_bot/internal/infra/logger"
	"uniportal_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// The agent shows notifications handed off by the bot over Redis pub/sub.
func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load agent configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("agent_main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := cache.NewClient(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger.Component("redis"))
	connectCancel()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to Redis")
	}
	defer client.Close()

	var notifier notification.Notifier
	switch cfg.NotifyChannel {
	case config.ChannelEmail:
		notifier = email.NewNotifier(cfg.SendgridAPIKey, cfg.EmailFromName, cfg.EmailFrom, cfg.EmailTo)
	default:
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken, Offline: true})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		notifier = telegram.NewNotifier(telegram.NewTelebotAdapter(bot, cfg.TelegramRatePerSecond), cfg.StudentTelegramID)
	}

	subscriber := cache.NewAgentSubscriber(client, cfg.AgentChannel, notifier, logger.Component("agent"))
	if err := subscriber.Run(ctx); err != nil {
		mainLogger.WithError(err).Fatal("Agent stopped with an error")
	}
	mainLogger.Info("Agent shut down gracefully")
}

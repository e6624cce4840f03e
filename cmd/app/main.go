package main

import (
	"context"
	"embed"

	"clubbot/internal/application"
	"clubbot/internal/delivery/discord"
	"clubbot/internal/delivery/telegram"
	"clubbot/internal/repository"
	"clubbot/internal/workers"
	"clubbot/pkg/config"
	"clubbot/pkg/logger"
	service "clubbot/pkg/services"
	"clubbot/pkg/sheets"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.ReadEnvConfig(&cfg); err != nil {
		panic(err)
	}

	log := logger.NewLogger(&logger.Config{Level: cfg.LogLevel})

	db, err := repository.NewPostgresDB(&cfg.Repo)
	if err != nil {
		log.Error("failed to init db: %s", err.Error())
		return
	}
	defer db.Close()

	log.Info("Running migrations...")
	version, err := repository.RunMigrations(db, migrationFS, "migrations")
	if err != nil {
		log.Error("failed to run migrations: %s", err.Error())
		return
	}
	log.Info("Migrations applied successfully, schema version %d", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.NewRepository(db)
	cache := repository.NewBalanceCache()

	var sheetsClient sheets.Client
	if cfg.GoogleCredentialsFile != "" {
		client, err := sheets.NewGoogleSheetsClient(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			log.Error("failed to init google sheets: %s", err.Error())
			return
		}
		sheetsClient = client
	} else {
		log.Warn("GOOGLE_CREDENTIALS_FILE is not set, sheets sync disabled")
	}

	manager := service.NewManager(log)

	var notifier application.Notifier
	if cfg.TelegramToken != "" {
		tg, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatIDs, log.With("component", "telegram"))
		if err != nil {
			log.Error("failed to init telegram: %s", err.Error())
			return
		}
		notifier = tg
		manager.AddService(tg)
	}

	services := application.NewService(application.Deps{
		Store:         repo,
		Cache:         cache,
		Sheets:        sheetsClient,
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		Notifier:      notifier,
		Logger:        log,
	})

	if n, err := services.Ledger.ResyncCache(ctx); err != nil {
		log.Warn("failed to warm balance cache: %s", err.Error())
	} else {
		log.Info("balance cache warmed with %d entries", n)
	}

	var leaderboard workers.LeaderboardSyncer
	if sheetsClient != nil {
		leaderboard = services.Reports
	}
	scheduler := workers.NewScheduler(services.Ledger, leaderboard, cfg.AutosaveInterval, log.With("component", "scheduler"))

	bot, err := discord.NewBot(&cfg, services, log.With("component", "discord"))
	if err != nil {
		log.Error("failed to init bot: %s", err.Error())
		return
	}

	manager.AddService(bot, scheduler)
	if err := manager.Run(ctx); err != nil {
		log.Error("service error: %s", err.Error())
	}
	log.Info("Bot Stopped")
}

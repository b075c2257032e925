package app

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	httpapp "bookMarketBot/internal/app/http"
	"bookMarketBot/internal/repository/postgres"
	catalogservice "bookMarketBot/internal/service/catalog"
	listingservice "bookMarketBot/internal/service/listing"
	notifyservice "bookMarketBot/internal/service/notify"
	userservice "bookMarketBot/internal/service/user"
	"bookMarketBot/internal/session"
	"bookMarketBot/internal/telegram"
)

type App struct {
	HTTPServer *httpapp.App
	Bot        *telegram.Handler
}

type Config struct {
	BotToken      string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	UpdateTimeout int    `yaml:"update_timeout" env-default:"60"`
	PageSize      int    `yaml:"page_size" env-default:"10"`
}

func New(
	log *slog.Logger,
	appConfig *Config,
	httpConfig *httpapp.Config,
	postgresConfig *postgres.Config,
) *App {
	pool, err := postgres.NewConnPool(context.Background(), postgresConfig)
	if err != nil {
		panic(err)
	}

	storage := postgres.New(pool)

	users := userservice.New(log, storage)
	catalog := catalogservice.New(log, storage)
	listings := listingservice.New(log, storage, storage)

	bot, err := tgbotapi.NewBotAPI(appConfig.BotToken)
	if err != nil {
		panic(err)
	}

	notifier := notifyservice.New(log, telegram.NewBotSender(bot))

	engine := telegram.NewEngine(
		log,
		session.NewMemoryStore(),
		users,
		catalog,
		listings,
		notifier,
		appConfig.PageSize,
	)

	botHandler := telegram.NewHandler(log, bot, engine, appConfig.UpdateTimeout)

	httpApp := httpapp.New(log, httpConfig, catalog)

	return &App{
		HTTPServer: httpApp,
		Bot:        botHandler,
	}
}

// Run запускает HTTP-фасад и long polling бота; блокирует до отмены контекста
func (a *App) Run(ctx context.Context) {
	go a.HTTPServer.MustRun()

	a.Bot.Start(ctx)
}

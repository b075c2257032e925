package httpapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bookMarketBot/internal/http/handler"
	"bookMarketBot/internal/pkg/logger/sl"
	catalogservice "bookMarketBot/internal/service/catalog"
)

type Config struct {
	Port    int           `yaml:"port" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// App — HTTP-фасад каталога, только чтение
type App struct {
	log        *slog.Logger
	httpServer *http.Server
	port       int
}

func New(
	log *slog.Logger,
	config *Config,
	catalog *catalogservice.Service,
) *App {
	router := http.NewServeMux()

	router.HandleFunc("GET /books", handler.NewListBooksHandler(log, catalog))
	router.HandleFunc("GET /healthz", handler.NewHealthzHandler())

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(config.Port),
		Handler:      router,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
	}

	return &App{log: log, httpServer: srv, port: config.Port}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "httpapp.Run"

	a.log.With(slog.String("op", op)).
		Info("server started", slog.Int("port", a.port))

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Error("failed to start http server", sl.Err(err))
		return err
	}

	return nil
}

func (a *App) Stop() {
	const op = "httpapp.Stop"

	a.log.With(slog.String("op", op)).
		Info("stopping HTTP server", slog.Int("port", a.port))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("failed to shut down http server", sl.Err(err))
		return
	}

	a.log.Info("Gracefully stopped")
}

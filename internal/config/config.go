package config

import (
	"flag"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"bookMarketBot/internal/app"
	httpapp "bookMarketBot/internal/app/http"
	"bookMarketBot/internal/repository/postgres"
)

type Config struct {
	Env      string          `yaml:"env" env-default:"local"`
	App      app.Config      `yaml:"app"`
	HTTP     httpapp.Config  `yaml:"http_server"`
	Postgres postgres.Config `yaml:"postgres"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	if cfg.App.BotToken == "" {
		panic("telegram bot token is empty")
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "config/local.yaml", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}

package config

import (
	"flag"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DefaultRunAddress      = "localhost:8080"
	DefaultDataDir         = "./data"
	DefaultDatabaseURI     = ""
	DefaultDispatchAddress = ""
	DefaultRiderID         = "rider-1"
)

type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	DataDir         string `env:"DATA_DIR"`
	DatabaseURI     string `env:"DATABASE_URI"`
	DispatchAddress string `env:"DISPATCH_ADDRESS"`
	RiderID         string `env:"DEFAULT_RIDER_ID"`
}

func New() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", DefaultRunAddress, "server address")
	flag.StringVar(&cfg.DataDir, "f", DefaultDataDir, "data directory for JSON documents")
	flag.StringVar(&cfg.DatabaseURI, "d", DefaultDatabaseURI, "database URI (overrides file storage)")
	flag.StringVar(&cfg.DispatchAddress, "r", DefaultDispatchAddress, "dispatch feed address")
	flag.StringVar(&cfg.RiderID, "i", DefaultRiderID, "default rider id")
	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

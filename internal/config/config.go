package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Backend selects which document store implementation serves the engines.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
)

type Config struct {
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:":8080"`
	DataDir      string `env:"DATA_DIR" envDefault:"./data"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseAPIKey          string `env:"FIREBASE_API_KEY"`
	FirebaseCredentialsJSON string `env:"FIREBASE_CREDENTIALS_JSON"`
	StorageBucket           string `env:"FIREBASE_STORAGE_BUCKET"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"sozial"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendFirestore, BackendMongo:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendFirestore && cfg.FirebaseProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore backend")
	}
	if cfg.StoreBackend == BackendMongo && cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required for the mongo backend")
	}
	return cfg, nil
}

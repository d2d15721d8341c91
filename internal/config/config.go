package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	DBDSN          string        `envconfig:"DB_DSN" default:"storefront.db"`
	StoreDriver    string        `envconfig:"STORE_DRIVER" default:"sqlite"` // sqlite | redis | memory
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:8000/api"`
	MediaBaseURL   string        `envconfig:"MEDIA_BASE_URL" default:"http://localhost:8000"`
	BranchID       int64         `envconfig:"BRANCH_ID" default:"1"`
	UserID         int64         `envconfig:"USER_ID" default:"1"`
	StoreName      string        `envconfig:"STORE_NAME" default:"Importadora Miranda"`
	LogoPath       string        `envconfig:"LOGO_PATH" default:"./web/static/logo.png"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	SearchDebounce time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"400ms"`
	SessionIdle    time.Duration `envconfig:"SESSION_IDLE" default:"30m"` // 0 keeps session state forever
	LogFile        string        `envconfig:"LOG_FILE" default:"./storefront.log"`
	CSRF           bool          `envconfig:"CSRF" default:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	log.WithFields(log.Fields{
		"port":         cfg.Port,
		"db_dsn":       cfg.DBDSN,
		"store_driver": cfg.StoreDriver,
		"backend_url":  cfg.BackendURL,
		"branch_id":    cfg.BranchID,
		"log_file":     cfg.LogFile,
	}).Info("config.loaded")
	return cfg, nil
}

package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	JWTSecret         string        `env:"JWT_SECRET,required=true" validate:"min=16"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h" validate:"gt=0"`
	DefaultChannel    string        `env:"DEFAULT_CHANNEL,default=messages" validate:"required,excludesall=:/*"`
	MaxMessageLength  int           `env:"MAX_MESSAGE_LENGTH,default=2000" validate:"gte=0"`
	SnapshotLimit     int           `env:"SNAPSHOT_LIMIT,default=0" validate:"gte=0"`

	StoreBackend     string `env:"STORE_BACKEND,default=memory" validate:"oneof=memory badger sqlite postgres"`
	BadgerFilepath   string `env:"BADGER_FILEPATH" validate:"required_if=StoreBackend badger"`
	SQLitePath       string `env:"SQLITE_PATH" validate:"required_if=StoreBackend sqlite"`
	PostgresDSN      string `env:"POSTGRES_DSN" validate:"required_if=StoreBackend postgres"`
	PostgresMaxConns int    `env:"POSTGRES_MAX_CONNS,default=8" validate:"gt=0"`
	RedisAddr        string `env:"REDIS_ADDR"`
	ChangesChannel   string `env:"CHANGES_CHANNEL,default=folio:changes"`

	DocstoreAddr string `env:"DOCSTORE_ADDR"`
	GRPCPort     int    `env:"GRPC_PORT,default=50051" validate:"gt=0,lt=65536"`
	HTTPAddr     string `env:"HTTP_ADDR,default=:8080"`
	DebugPort    int    `env:"DEBUG_PORT,default=8081"`

	ModerationWordsFile string `env:"MODERATION_WORDS_FILE"`
	CharReplacement     string `env:"CHARACTER_REPLACEMENT,default=*"`

	WSWriteTimeout  time.Duration `env:"WS_WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	WSPingInterval  time.Duration `env:"WS_PING_INTERVAL,default=30s" validate:"gt=0"`
	WSReadTimeout   time.Duration `env:"WS_READ_TIMEOUT,default=60s" validate:"gtfield=WSPingInterval"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := c.CharacterRune(); err != nil {
		return err
	}
	return nil
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}

// Origins splits ALLOWED_ORIGINS on commas. Empty means any origin.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

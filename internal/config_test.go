package internal

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"folio-chat/domain"
	"folio-chat/feed"
	"folio-chat/repositories"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		LogLevel:          "INFO",
		JWTSecret:         "0123456789abcdef",
		AuthTokenDuration: time.Hour,
		DefaultChannel:    "messages",
		MaxMessageLength:  2000,
		StoreBackend:      BackendMemory,
		PostgresMaxConns:  4,
		GRPCPort:          50051,
		CharReplacement:   "*",
		WSWriteTimeout:    time.Second,
		WSPingInterval:    30 * time.Second,
		WSReadTimeout:     time.Minute,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("messages", config.DefaultChannel)
	req.Equal(BackendMemory, config.StoreBackend)
	req.Equal(24*time.Hour, config.AuthTokenDuration)
	req.Equal(50051, config.GRPCPort)
	req.Equal(60*time.Second, config.WSReadTimeout)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "mongo" }, wantErr: true},
		{name: "badger without path", mutate: func(c *Config) { c.StoreBackend = BackendBadger }, wantErr: true},
		{name: "badger with path", mutate: func(c *Config) { c.StoreBackend = BackendBadger; c.BadgerFilepath = "/tmp/x" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreBackend = BackendPostgres }, wantErr: true},
		{name: "channel with separator", mutate: func(c *Config) { c.DefaultChannel = "a:b" }, wantErr: true},
		{name: "read timeout under ping", mutate: func(c *Config) { c.WSReadTimeout = time.Second }, wantErr: true},
		{name: "two character mask", mutate: func(c *Config) { c.CharReplacement = "**" }, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := validConfig()
			tc.mutate(&config)
			err := config.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_Origins(t *testing.T) {
	req := require.New(t)
	config := validConfig()
	req.Empty(config.Origins())

	config.AllowedOrigins = " https://a.example, ,https://b.example"
	req.Equal([]string{"https://a.example", "https://b.example"}, config.Origins())
}

func TestOpenModerator(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	config := validConfig()

	// Given no word list, moderation is off
	moderator, err := OpenModerator(log, config)
	req.NoError(err)
	req.Nil(moderator)

	// Given a word list file
	path := filepath.Join(t.TempDir(), "words.txt")
	req.NoError(os.WriteFile(path, []byte("casino\n# comment\n"), 0o600))
	config.ModerationWordsFile = path
	moderator, err = OpenModerator(log, config)
	req.NoError(err)
	censored, _ := moderator.Censor("casino")
	req.Equal("******", censored)
}

func TestOpenBackend_Badger_IsInspectable(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	config := validConfig()
	config.StoreBackend = BackendBadger
	config.BadgerFilepath = t.TempDir()

	backend, db, err := OpenBackend(ctx, config)
	req.NoError(err)
	req.NotNil(db)
	store, client := OpenStore(log, backend, config)
	req.Nil(client)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Insert(ctx, "general", feed.ToFields("hello", domain.Identity{ID: "u1", DisplayName: "Al"}))
	req.NoError(err)

	// When the inspector is asked for the general collection
	w := httptest.NewRecorder()
	InspectHandler(db, nil, func() map[string]any { return map[string]any{"subscribers": 0} }).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inspect?prefix=doc:general:", nil))

	// Then the stored message is listed
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "Al: hello")
	req.Contains(w.Body.String(), "subscribers")
}

func TestDocumentMapper_RawValue(t *testing.T) {
	req := require.New(t)

	row := DocumentMapper("doc:general:0000000000000000001:01ABC", []byte("garbage"))

	req.Equal("general", row.Collection)
	req.Equal("01ABC", row.DocumentID)
	req.Equal("Size: 7 bytes", row.Detail)
}

func TestOpenBackend_Memory(t *testing.T) {
	req := require.New(t)
	backend, db, err := OpenBackend(context.Background(), validConfig())
	req.NoError(err)
	req.Nil(db)
	req.IsType(&repositories.MemoryBackend{}, backend)
}

package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"folio-chat/moderation"
	"folio-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
)

// OpenBackend opens the backend named by STORE_BACKEND.
// The badger handle is returned too so the debug inspector can read it, nil otherwise.
func OpenBackend(ctx context.Context, config Config) (repositories.Backend, *badger.DB, error) {
	switch config.StoreBackend {
	case BackendBadger:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		return repositories.NewBadgerBackend(db), db, nil
	case BackendSQLite:
		backend, err := repositories.OpenSQLite(ctx, config.SQLitePath)
		return backend, nil, err
	case BackendPostgres:
		backend, err := repositories.OpenPostgres(ctx, config.PostgresDSN, int32(config.PostgresMaxConns))
		return backend, nil, err
	case BackendMemory, "":
		return repositories.NewMemoryBackend(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", config.StoreBackend)
	}
}

// OpenStore builds the document store with its optional redis change feed.
// The returned client is nil when REDIS_ADDR is unset.
func OpenStore(log *slog.Logger, backend repositories.Backend, config Config) (*repositories.Store, *redis.Client) {
	opts := []repositories.Option{repositories.WithLimit(config.SnapshotLimit)}
	var client *redis.Client
	if config.RedisAddr != "" {
		client = redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		opts = append(opts, repositories.WithNotifier(
			repositories.NewRedisNotifier(log, client, config.ChangesChannel)))
		log.Info("Change feed enabled", "redis", config.RedisAddr, "channel", config.ChangesChannel)
	}
	return repositories.NewStore(log, backend, opts...), client
}

// OpenModerator returns nil when no word list is configured.
func OpenModerator(log *slog.Logger, config Config) (*moderation.Moderator, error) {
	if config.ModerationWordsFile == "" {
		return nil, nil
	}
	mask, err := config.CharacterRune()
	if err != nil {
		return nil, err
	}
	file, err := os.Open(config.ModerationWordsFile)
	if err != nil {
		return nil, fmt.Errorf("opening moderation words: %w", err)
	}
	defer file.Close()
	words, err := moderation.ReadWords(file)
	if err != nil {
		return nil, err
	}
	return moderation.NewModerator(words, mask, log)
}

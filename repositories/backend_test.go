package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"folio-chat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "folio.db"))
	require.NoError(t, err)

	all := map[string]Backend{
		"memory": NewMemoryBackend(),
		"badger": NewBadgerBackend(db),
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, b := range all {
			_ = b.Close()
		}
	})
	return all
}

func TestBackends_ScanReturnsWriteOrderPerCollection(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			// Given documents written into two collections
			req.NoError(backend.Put(ctx, "general", domain.Document{ID: "a", Fields: domain.Fields{"text": "first", "createdAt": base}}, base))
			req.NoError(backend.Put(ctx, "random", domain.Document{ID: "x", Fields: domain.Fields{"text": "elsewhere"}}, base.Add(time.Nanosecond)))
			req.NoError(backend.Put(ctx, "general", domain.Document{ID: "b", Fields: domain.Fields{"text": "second", "createdAt": base.Add(2)}}, base.Add(2)))

			// When general is scanned
			docs, err := backend.Scan(ctx, "general")
			req.NoError(err)

			// Then only its documents come back, oldest write first, with their types
			req.Len(docs, 2)
			req.Equal("a", docs[0].ID)
			req.Equal("b", docs[1].ID)
			createdAt, ok := docs[1].Time("createdAt")
			req.True(ok)
			req.Equal(base.Add(2), createdAt)
		})
	}
}

func TestBackends_UnknownCollectionIsEmpty(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			docs, err := backend.Scan(context.Background(), "nobody-here")
			require.NoError(t, err)
			require.Empty(t, docs)
		})
	}
}

func TestBackends_PrefixDoesNotLeakAcrossCollections(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			req.NoError(backend.Put(ctx, "gen", domain.Document{ID: "short", Fields: domain.Fields{}}, at))
			req.NoError(backend.Put(ctx, "general", domain.Document{ID: "long", Fields: domain.Fields{}}, at))

			docs, err := backend.Scan(ctx, "gen")
			req.NoError(err)
			req.Len(docs, 1)
			req.Equal("short", docs[0].ID)
		})
	}
}

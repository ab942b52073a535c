package repositories

import (
	"context"
	"fmt"
	"time"

	"folio-chat/domain"

	"github.com/dgraph-io/badger/v4"
)

type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend takes ownership of db, Close closes it.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

// Put stores the document under "doc:{collection}:{write_time_padded}:{id}".
// The 19-digit padding keeps lexicographic key order equal to write order.
func (b *BadgerBackend) Put(_ context.Context, collection string, doc domain.Document, at time.Time) error {
	key := fmt.Sprintf("%s%019d:%s", collectionPrefix(collection), at.UnixNano(), doc.ID)
	value, err := MarshalDocument(doc)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Scan walks the collection prefix forward, oldest write first.
func (b *BadgerBackend) Scan(ctx context.Context, collection string) ([]domain.Document, error) {
	var values [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(collectionPrefix(collection))
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(values))
	for _, value := range values {
		doc, err := UnmarshalDocument(value)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func collectionPrefix(collection string) string {
	return "doc:" + collection + ":"
}

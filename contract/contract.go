//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"folio-chat/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// SnapshotListener receives complete ordered snapshots of a collection.
// Calls are never concurrent for a single subscription.
type SnapshotListener interface {
	OnSnapshot(docs []domain.Document)
	OnError(err error)
}

// DocumentStore is a shared append-only collection store.
// The store owns ordering: it assigns server timestamps and ids at write time.
type DocumentStore interface {
	SubscribeOrdered(collection, orderField string, listener SnapshotListener) (Unsubscribe, error)
	Insert(ctx context.Context, collection string, fields domain.Fields) (string, error)
}

// IdentityProvider yields the signed-in identity, nil when signed out.
type IdentityProvider interface {
	// OnChange calls fn with the current identity, then on every change.
	OnChange(fn func(*domain.Identity)) func()
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	Current() *domain.Identity
}

// AllCollections is passed to a change callback when every collection may have changed,
// e.g. right after a notifier (re)connects.
const AllCollections = "*"

// ChangeNotifier spreads "collection changed" signals between store nodes.
type ChangeNotifier interface {
	Publish(ctx context.Context, collection string) error
	// Listen blocks until ctx is done or the underlying connection fails.
	Listen(ctx context.Context, onChange func(collection string)) error
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dhawalhost/dirsync/internal/adapter"
	"github.com/dhawalhost/dirsync/internal/identity"
	"github.com/dhawalhost/dirsync/internal/record"
	"go.uber.org/zap"
)

const testRealm = "master"

func newTestEngine(chunkSize int) (*Engine, *record.MemStore, *identity.MemStore) {
	records := record.NewMemStore()
	identities := identity.NewMemStore()
	engine := NewEngine(records, identities, Config{
		Realm:     testRealm,
		ChunkSize: chunkSize,
		MapNames:  true,
	}, zap.NewNop())
	return engine, records, identities
}

func insertRecords(t *testing.T, store *record.MemStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := &record.UserRecord{
			Username: fmt.Sprintf("user%03d", i),
			Email:    fmt.Sprintf("user%03d@x.com", i),
		}
		if err := store.Insert(context.Background(), rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestFullSyncCreatesSingleUser(t *testing.T) {
	engine, records, identities := newTestEngine(50)
	ctx := context.Background()

	rec := &record.UserRecord{Username: "alice", Email: "alice@x.com", MobilePhone: "555-1111"}
	if err := records.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	res, err := engine.SyncFull(ctx)
	if err != nil {
		t.Fatalf("full sync: %v", err)
	}
	if res.Added != 1 || res.Updated != 0 || res.Failed != 0 {
		t.Fatalf("expected added=1 updated=0 failed=0, got %+v", res)
	}

	user, err := identities.FindByUsername(ctx, testRealm, "alice")
	if err != nil {
		t.Fatalf("identity lookup: %v", err)
	}
	if user.Email != "alice@x.com" || !user.EmailVerified {
		t.Fatalf("unexpected identity user %+v", user)
	}
	if got := user.FirstAttribute(adapter.AttrMobilePhone); got != "555-1111" {
		t.Fatalf("mobilePhone = %q, want 555-1111", got)
	}
	if !user.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created timestamp not taken from record: %v vs %v", user.CreatedAt, rec.CreatedAt)
	}

	stored, _ := records.FindByID(ctx, rec.ID)
	if stored.LastSyncedAt == nil {
		t.Fatalf("expected last-synced mark after upsert")
	}
}

func TestFullSyncPaginationCompleteness(t *testing.T) {
	const pageSize = 3
	for _, n := range []int{0, 1, pageSize, pageSize + 1, 2 * pageSize} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			engine, records, _ := newTestEngine(pageSize)
			insertRecords(t, records, n)

			res, err := engine.SyncFull(context.Background())
			if err != nil {
				t.Fatalf("full sync: %v", err)
			}
			if res.Added != n || res.Updated != 0 || res.Failed != 0 {
				t.Fatalf("expected each of %d records visited exactly once, got %+v", n, res)
			}

			// A second pass must see every record exactly once again,
			// now as updates.
			res, err = engine.SyncFull(context.Background())
			if err != nil {
				t.Fatalf("second full sync: %v", err)
			}
			if res.Added != 0 || res.Updated != n {
				t.Fatalf("expected added=0 updated=%d, got %+v", n, res)
			}
		})
	}
}

func TestIncrementalSyncIsIdempotent(t *testing.T) {
	engine, records, _ := newTestEngine(2)
	ctx := context.Background()
	insertRecords(t, records, 5)

	res, err := engine.SyncChanged(ctx)
	if err != nil {
		t.Fatalf("incremental sync: %v", err)
	}
	if res.Added != 5 {
		t.Fatalf("expected first incremental run to add 5, got %+v", res)
	}

	res, err = engine.SyncChanged(ctx)
	if err != nil {
		t.Fatalf("second incremental sync: %v", err)
	}
	if res.Added != 0 || res.Updated != 0 || res.Failed != 0 {
		t.Fatalf("expected no upserts with no intervening changes, got %+v", res)
	}
}

func TestIncrementalSyncPicksUpModifiedRecord(t *testing.T) {
	engine, records, _ := newTestEngine(50)
	ctx := context.Background()

	rec := &record.UserRecord{Username: "alice", Email: "alice@x.com"}
	if err := records.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := engine.SyncFull(ctx); err != nil {
		t.Fatalf("full sync: %v", err)
	}

	rec.Status = "suspended"
	if err := records.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	start := time.Now().UTC()
	res, err := engine.SyncChanged(ctx)
	if err != nil {
		t.Fatalf("incremental sync: %v", err)
	}
	if res.Added != 0 || res.Updated != 1 {
		t.Fatalf("expected added=0 updated=1, got %+v", res)
	}

	stored, _ := records.FindByID(ctx, rec.ID)
	if stored.LastSyncedAt == nil || stored.LastSyncedAt.Before(start) {
		t.Fatalf("last-synced mark did not advance: %v", stored.LastSyncedAt)
	}
}

func TestSyncNeverErasesExistingAttributes(t *testing.T) {
	engine, records, identities := newTestEngine(50)
	ctx := context.Background()

	user, err := identities.Create(ctx, testRealm, "alice")
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	user.SetAttribute(adapter.AttrMobilePhone, "555-1234")
	if err := identities.Update(ctx, testRealm, user); err != nil {
		t.Fatalf("update identity: %v", err)
	}

	// Blank mobile phone on the directory side.
	rec := &record.UserRecord{Username: "alice", Email: "alice@x.com"}
	if err := records.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	res, err := engine.SyncFull(ctx)
	if err != nil {
		t.Fatalf("full sync: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("expected existing user to be updated, got %+v", res)
	}

	after, _ := identities.FindByUsername(ctx, testRealm, "alice")
	if got := after.FirstAttribute(adapter.AttrMobilePhone); got != "555-1234" {
		t.Fatalf("blank record value erased existing attribute: %q", got)
	}
}

func TestSyncSkipsAndCountsBadRecords(t *testing.T) {
	engine, records, _ := newTestEngine(50)
	ctx := context.Background()

	insertRecords(t, records, 2)
	if err := records.Insert(ctx, &record.UserRecord{Email: "nameless@x.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	res, err := engine.SyncFull(ctx)
	if err != nil {
		t.Fatalf("full sync: %v", err)
	}
	if res.Added != 2 || res.Failed != 1 {
		t.Fatalf("expected added=2 failed=1, got %+v", res)
	}
}

func TestUserCreatedCallbackFiresPerCreation(t *testing.T) {
	engine, records, _ := newTestEngine(2)
	insertRecords(t, records, 3)

	var events []Event
	engine.OnUserCreated(func(ev Event) { events = append(events, ev) })

	if _, err := engine.SyncFull(context.Background()); err != nil {
		t.Fatalf("full sync: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 created events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Type != EventUserCreated || ev.ID == "" || ev.Username == "" {
			t.Fatalf("malformed event %+v", ev)
		}
	}

	// Updates must not fire creation events.
	events = nil
	if _, err := engine.SyncFull(context.Background()); err != nil {
		t.Fatalf("second full sync: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events on update-only run, got %d", len(events))
	}
}

// overlapStore flags any concurrent page listing, which would mean two
// sync runs were interleaved.
type overlapStore struct {
	*record.MemStore
	active  int32
	overlap int32
}

func (s *overlapStore) enter() {
	if atomic.AddInt32(&s.active, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	time.Sleep(time.Millisecond)
}

func (s *overlapStore) exit() { atomic.AddInt32(&s.active, -1) }

func (s *overlapStore) ListAll(ctx context.Context, offset, limit int) ([]record.UserRecord, error) {
	s.enter()
	defer s.exit()
	return s.MemStore.ListAll(ctx, offset, limit)
}

func (s *overlapStore) ListChangedSince(ctx context.Context, since time.Time, offset, limit int) ([]record.UserRecord, error) {
	s.enter()
	defer s.exit()
	return s.MemStore.ListChangedSince(ctx, since, offset, limit)
}

func TestConcurrentRunsAreSerialized(t *testing.T) {
	store := &overlapStore{MemStore: record.NewMemStore()}
	identities := identity.NewMemStore()
	engine := NewEngine(store, identities, Config{Realm: testRealm, ChunkSize: 2, MapNames: true}, zap.NewNop())

	insertRecords(t, store.MemStore, 10)

	done := make(chan struct{}, 2)
	go func() {
		_, _ = engine.SyncFull(context.Background())
		done <- struct{}{}
	}()
	go func() {
		_, _ = engine.SyncChanged(context.Background())
		done <- struct{}{}
	}()
	<-done
	<-done

	if atomic.LoadInt32(&store.overlap) != 0 {
		t.Fatalf("full and incremental runs interleaved")
	}
}

// failingStore aborts page fetches after a number of successful calls.
type failingStore struct {
	*record.MemStore
	succeed int32
}

func (s *failingStore) ListAll(ctx context.Context, offset, limit int) ([]record.UserRecord, error) {
	if atomic.AddInt32(&s.succeed, -1) < 0 {
		return nil, &record.StorageError{Op: "list all", Err: errors.New("connection reset")}
	}
	return s.MemStore.ListAll(ctx, offset, limit)
}

func TestStorageErrorAbortsRun(t *testing.T) {
	store := &failingStore{MemStore: record.NewMemStore(), succeed: 1}
	identities := identity.NewMemStore()
	engine := NewEngine(store, identities, Config{Realm: testRealm, ChunkSize: 2, MapNames: true}, zap.NewNop())

	insertRecords(t, store.MemStore, 6)

	res, err := engine.SyncFull(context.Background())
	if err == nil {
		t.Fatalf("expected run to surface the storage error")
	}
	var serr *record.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	// The first page committed before the failure; partial progress is
	// reported, not rolled back.
	if res.Added != 2 {
		t.Fatalf("expected 2 records from the committed page, got %+v", res)
	}
}

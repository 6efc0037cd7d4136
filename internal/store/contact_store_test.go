package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/softside/user-message/internal/domain"
	"github.com/softside/user-message/internal/store"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "store.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st, db
}

func seedMessage(t *testing.T, st *store.Store, from, to uuid.UUID) uuid.UUID {
	t.Helper()
	msg := domain.Message{ID: uuid.New(), Body: "seed", SenderID: from, ReceiverID: to}
	if err := st.Messages().Create(context.Background(), &msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg.ID
}

func TestGetOrCreateReturnsExistingUnchanged(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	m1 := seedMessage(t, st, a, b)
	m2 := seedMessage(t, st, b, a)

	created1, created, err := st.Contacts().GetOrCreate(ctx, a, b, m1)
	if err != nil {
		t.Fatalf("first get_or_create: %v", err)
	}
	if !created {
		t.Fatalf("expected creation on first call")
	}

	// Second call in the opposite direction finds the same row and must not
	// touch its latest message.
	found, created, err := st.Contacts().GetOrCreate(ctx, b, a, m2)
	if err != nil {
		t.Fatalf("second get_or_create: %v", err)
	}
	if created {
		t.Fatalf("expected lookup, not creation")
	}
	if found.ID != created1.ID {
		t.Fatalf("expected the same contact row, got %s and %s", created1.ID, found.ID)
	}
	if found.LatestMessageID != m1 {
		t.Fatalf("get_or_create must not reassign latest message, got %s", found.LatestMessageID)
	}
}

func TestUpsertLatestAdvancesPointer(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	m1 := seedMessage(t, st, a, b)
	m2 := seedMessage(t, st, b, a)

	c1, err := st.Contacts().UpsertLatest(ctx, a, b, m1)
	if err != nil {
		t.Fatalf("upsert m1: %v", err)
	}
	c2, err := st.Contacts().UpsertLatest(ctx, b, a, m2)
	if err != nil {
		t.Fatalf("upsert m2: %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("expected one contact row for the pair, got %s and %s", c1.ID, c2.ID)
	}
	if c2.LatestMessageID != m2 {
		t.Fatalf("expected latest message %s, got %s", m2, c2.LatestMessageID)
	}
	if c2.FromUserID != a || c2.ToUserID != b {
		t.Fatalf("expected stored direction %s->%s, got %s->%s", a, b, c2.FromUserID, c2.ToUserID)
	}
}

func TestUpsertLatestConcurrentPair(t *testing.T) {
	st, db := setupStore(t)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()

	const workers = 8
	ids := make([]uuid.UUID, workers)
	for i := range ids {
		if i%2 == 0 {
			ids[i] = seedMessage(t, st, a, b)
		} else {
			ids[i] = seedMessage(t, st, b, a)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a, b
			if i%2 == 1 {
				from, to = b, a
			}
			_, errs[i] = st.Contacts().UpsertLatest(ctx, from, to, ids[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}

	var n int64
	if err := db.Model(&domain.Contact{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one contact row under concurrency, got %d", n)
	}
}

func TestContactsForFindsBothDirections(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	m1 := seedMessage(t, st, a, b)
	m2 := seedMessage(t, st, c, a)

	if _, err := st.Contacts().UpsertLatest(ctx, a, b, m1); err != nil {
		t.Fatalf("upsert a-b: %v", err)
	}
	if _, err := st.Contacts().UpsertLatest(ctx, c, a, m2); err != nil {
		t.Fatalf("upsert c-a: %v", err)
	}

	contacts, err := st.Contacts().ContactsFor(ctx, a)
	if err != nil {
		t.Fatalf("contacts for a: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected contacts on both sides, got %d", len(contacts))
	}

	contacts, err = st.Contacts().ContactsFor(ctx, b)
	if err != nil {
		t.Fatalf("contacts for b: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact for b, got %d", len(contacts))
	}
}

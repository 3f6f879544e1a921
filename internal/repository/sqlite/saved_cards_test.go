package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sakif/servicecard/internal/model"
)

const testNamespace = "doggeSavedCards"

// newTestDB opens a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func savedCard(id, name string) model.Card {
	c := model.NewCard(2026)
	c.ID = id
	c.ProviderInfo.Name = name
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c.SavedAt = &at
	return c
}

// =========================================================================
// LOAD TESTS
// =========================================================================

func TestLoadSavedCards_EmptyNamespace(t *testing.T) {
	db := newTestDB(t)

	rec, err := db.LoadSavedCards(context.Background(), testNamespace)
	if err != nil {
		t.Fatalf("LoadSavedCards() error = %v", err)
	}
	if len(rec.Cards) != 0 {
		t.Errorf("got %d cards, want 0", len(rec.Cards))
	}
	if rec.Seq != 0 {
		t.Errorf("Seq = %d, want 0", rec.Seq)
	}
}

func TestLoadSavedCards_RequiresNamespace(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.LoadSavedCards(context.Background(), " "); err == nil {
		t.Error("LoadSavedCards() with blank namespace should fail")
	}
}

func TestLoadSavedCards_CorruptPayloadKeepsSeq(t *testing.T) {
	db := newTestDB(t)

	_, err := db.conn.Exec(
		`INSERT INTO saved_card_records (namespace, payload, seq) VALUES (?, ?, ?)`,
		testNamespace, "{not json", 7,
	)
	if err != nil {
		t.Fatalf("seeding corrupt record: %v", err)
	}

	rec, err := db.LoadSavedCards(context.Background(), testNamespace)
	if err == nil {
		t.Fatal("LoadSavedCards() should fail on a corrupt payload")
	}
	if rec.Seq != 7 {
		t.Errorf("Seq = %d, want 7 even on decode failure", rec.Seq)
	}
}

// =========================================================================
// SAVE TESTS
// =========================================================================

func TestSaveSavedCards_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cards := []model.Card{savedCard("a", "Jane"), savedCard("b", "Bob")}
	if err := db.SaveSavedCards(ctx, testNamespace, 1, cards); err != nil {
		t.Fatalf("SaveSavedCards() error = %v", err)
	}

	rec, err := db.LoadSavedCards(ctx, testNamespace)
	if err != nil {
		t.Fatalf("LoadSavedCards() error = %v", err)
	}
	if rec.Seq != 1 {
		t.Errorf("Seq = %d, want 1", rec.Seq)
	}
	if diff := cmp.Diff(cards, rec.Cards); diff != "" {
		t.Errorf("loaded cards mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveSavedCards_LastWriteWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveSavedCards(ctx, testNamespace, 1, []model.Card{savedCard("a", "Jane")}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := db.SaveSavedCards(ctx, testNamespace, 2, []model.Card{}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rec, err := db.LoadSavedCards(ctx, testNamespace)
	if err != nil {
		t.Fatalf("LoadSavedCards() error = %v", err)
	}
	if len(rec.Cards) != 0 {
		t.Errorf("got %d cards, want the full collection replaced by an empty one", len(rec.Cards))
	}
}

func TestSaveSavedCards_StaleWriteIgnored(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	newer := []model.Card{savedCard("a", "Jane"), savedCard("b", "Bob")}
	older := []model.Card{savedCard("a", "Jane")}

	// The newer snapshot lands first; the older one completes afterwards.
	if err := db.SaveSavedCards(ctx, testNamespace, 5, newer); err != nil {
		t.Fatalf("newer save: %v", err)
	}
	if err := db.SaveSavedCards(ctx, testNamespace, 4, older); err != nil {
		t.Fatalf("stale save: %v", err)
	}
	if err := db.SaveSavedCards(ctx, testNamespace, 5, older); err != nil {
		t.Fatalf("same-seq save: %v", err)
	}

	rec, err := db.LoadSavedCards(ctx, testNamespace)
	if err != nil {
		t.Fatalf("LoadSavedCards() error = %v", err)
	}
	if rec.Seq != 5 {
		t.Errorf("Seq = %d, want 5", rec.Seq)
	}
	if diff := cmp.Diff(newer, rec.Cards); diff != "" {
		t.Errorf("stale write regressed the record (-want +got):\n%s", diff)
	}
}

func TestSaveSavedCards_NamespacesAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveSavedCards(ctx, "one", 1, []model.Card{savedCard("a", "Jane")}); err != nil {
		t.Fatalf("save one: %v", err)
	}

	rec, err := db.LoadSavedCards(ctx, "two")
	if err != nil {
		t.Fatalf("LoadSavedCards(two) error = %v", err)
	}
	if len(rec.Cards) != 0 {
		t.Errorf("namespace two sees %d cards, want 0", len(rec.Cards))
	}
}

func TestSaveSavedCards_PersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/cards.db"
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cards := []model.Card{savedCard("a", "Jane")}
	if err := db.SaveSavedCards(ctx, testNamespace, 3, cards); err != nil {
		t.Fatalf("SaveSavedCards() error = %v", err)
	}
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	rec, err := reopened.LoadSavedCards(ctx, testNamespace)
	if err != nil {
		t.Fatalf("LoadSavedCards() error = %v", err)
	}
	if rec.Seq != 3 {
		t.Errorf("Seq = %d, want 3", rec.Seq)
	}
	if diff := cmp.Diff(cards, rec.Cards); diff != "" {
		t.Errorf("cards after reopen mismatch (-want +got):\n%s", diff)
	}
}

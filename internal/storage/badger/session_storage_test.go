package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: tmpDir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testRecord(userID, targetID string, ttl time.Duration) *models.SessionRecord {
	now := time.Now().UTC()
	return &models.SessionRecord{
		UserID:   userID,
		TargetID: targetID,
		State: models.BrowserState{
			Cookies: []models.Cookie{
				{Name: "auth", Value: "token-1", Domain: ".example.com", Path: "/"},
			},
			LocalStorage: map[string]string{"lang": "en"},
		},
		SavedAt:   now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSessionPutGetRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	record := testRecord("user-1", "deu", 24*time.Hour)
	if err := storage.Put(ctx, record); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	loaded, err := storage.Get(ctx, "user-1", "deu")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}

	if loaded.UserID != "user-1" || loaded.TargetID != "deu" {
		t.Errorf("Unexpected key fields: %s/%s", loaded.UserID, loaded.TargetID)
	}
	if len(loaded.State.Cookies) != 1 || loaded.State.Cookies[0].Name != "auth" {
		t.Errorf("Cookies lost in round trip: %+v", loaded.State.Cookies)
	}
	if loaded.State.LocalStorage["lang"] != "en" {
		t.Errorf("Storage state lost in round trip: %+v", loaded.State.LocalStorage)
	}
}

func TestSessionGetIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if err := storage.Put(ctx, testRecord("User-1", "DEU", time.Hour)); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	if _, err := storage.Get(ctx, "user-1", "deu"); err != nil {
		t.Fatalf("Case-insensitive lookup failed: %v", err)
	}
}

func TestSessionGetMissingReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())

	_, err := storage.Get(context.Background(), "nobody", "deu")
	if err != interfaces.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
}

func TestSessionPutOverwritesPriorRecord(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := testRecord("user-1", "deu", time.Hour)
	if err := storage.Put(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := testRecord("user-1", "deu", 48*time.Hour)
	second.State.Cookies[0].Value = "token-2"
	if err := storage.Put(ctx, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := storage.Get(ctx, "user-1", "deu")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.State.Cookies[0].Value != "token-2" {
		t.Errorf("Expected last write to win, got cookie value %s", loaded.State.Cookies[0].Value)
	}

	records, err := storage.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("Expected single record after overwrite, got %d", len(records))
	}
}

func TestSessionDelete(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if err := storage.Put(ctx, testRecord("user-1", "deu", time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := storage.Delete(ctx, "user-1", "deu"); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.Get(ctx, "user-1", "deu"); err != interfaces.ErrNotFound {
		t.Fatalf("Expected ErrNotFound after delete, got: %v", err)
	}

	// Deleting a missing key is not an error
	if err := storage.Delete(ctx, "user-1", "deu"); err != nil {
		t.Fatalf("Deleting missing key should not error: %v", err)
	}
}

func TestScanLogAppendAndRecent(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanLogStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		result := &models.ScanResult{
			Success:   true,
			Target:    "Germany",
			Message:   "No appointments available",
			ScannedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := storage.Append(ctx, result); err != nil {
			t.Fatalf("Failed to append result %d: %v", i, err)
		}
		if result.ID == "" {
			t.Fatal("Append should assign an ID")
		}
	}

	recent, err := storage.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ScannedAt.After(recent[i-1].ScannedAt) {
			t.Error("Results not sorted newest first")
		}
	}

	count, err := storage.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("Expected count 5, got %d", count)
	}
}

package store

import (
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "state", "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// storedKeys lists every key in the storage table, in order.
func storedKeys(t *testing.T, d *Database) []string {
	t.Helper()
	rows, err := d.db.Query(`SELECT key FROM storage ORDER BY key`)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			t.Fatalf("scan key: %v", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("keys: %v", err)
	}
	return keys
}

func TestSetGetRemove(t *testing.T) {
	db := tempDB(t)

	if _, ok, err := db.GetItem(KeyToken); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := db.SetItems(map[string]string{KeyToken: "abc"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetItems(map[string]string{KeyToken: "def"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := db.GetItem(KeyToken)
	if err != nil || !ok || v != "def" {
		t.Fatalf("get = %q ok=%v err=%v, want def", v, ok, err)
	}

	if err := db.RemoveItems(KeyToken); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := db.RemoveItems(KeyToken); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if _, ok, _ := db.GetItem(KeyToken); ok {
		t.Fatalf("key still present after remove")
	}
}

func TestSetItemsAndRemoveItemsTogether(t *testing.T) {
	db := tempDB(t)

	if err := db.SetItems(map[string]string{KeyToken: "t", KeyUser: `{"username":"u"}`}); err != nil {
		t.Fatalf("set items: %v", err)
	}
	keys := storedKeys(t, db)
	if len(keys) != 2 || keys[0] != KeyToken || keys[1] != KeyUser {
		t.Fatalf("keys = %v", keys)
	}

	if err := db.RemoveItems(KeyToken, KeyUser); err != nil {
		t.Fatalf("remove items: %v", err)
	}
	if keys := storedKeys(t, db); len(keys) != 0 {
		t.Fatalf("keys after remove = %v", keys)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.SetItems(map[string]string{KeyUser: "persisted"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	db.Close()

	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	v, ok, err := db.GetItem(KeyUser)
	if err != nil || !ok || v != "persisted" {
		t.Fatalf("after reopen get = %q ok=%v err=%v", v, ok, err)
	}
}

package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/pierce/dbopen"
)

func pragma(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	var v string
	if err := db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		t.Fatalf("PRAGMA %s: %v", name, err)
	}
	return v
}

func TestOpen_Pragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "p.db")
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithBusyTimeout(1234))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	want := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "1234",
		"synchronous":  "1", // NORMAL
	}
	for name, v := range want {
		if got := pragma(t, db, name); got != v {
			t.Errorf("%s = %q, want %q", name, got, v)
		}
	}
}

func TestOpenMemory_Schema(t *testing.T) {
	db := dbopen.OpenMemory(t,
		dbopen.WithSchema(`CREATE TABLE IF NOT EXISTS a (id TEXT PRIMARY KEY)`),
		dbopen.WithSchema(`CREATE TABLE IF NOT EXISTS b (a_id TEXT REFERENCES a(id))`),
		dbopen.WithBusyTimeout(0),
	)
	if got := pragma(t, db, "busy_timeout"); got != "10000" {
		t.Errorf("zero busy timeout should keep the default, got %s", got)
	}
	if _, err := db.Exec(`INSERT INTO b (a_id) VALUES ('missing')`); err == nil {
		t.Error("foreign key violation should fail")
	}
}

func TestOpen_BadSchema(t *testing.T) {
	_, err := dbopen.Open(":memory:", dbopen.WithSchema(`CREATE NONSENSE`))
	if err == nil {
		t.Fatal("expected schema error")
	}
}

func TestRunTx(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`))
	ctx := context.Background()

	if err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO kv VALUES ('a', '1')`)
		return err
	}); err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	boom := errors.New("boom")
	err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		tx.Exec(`INSERT INTO kv VALUES ('b', '2')`)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunTx error = %v, want boom", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n)
	if n != 1 {
		t.Errorf("rows = %d, want 1 after rollback", n)
	}
}

func TestRunTx_Cancelled(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := dbopen.RunTx(ctx, db, func(*sql.Tx) error { return nil }); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

// lock holds the write lock of path on its own connection until release.
func lock(t *testing.T, path string) (release func()) {
	t.Helper()
	db, err := dbopen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(context.Background(), `BEGIN IMMEDIATE`); err != nil {
		t.Fatal(err)
	}
	return func() {
		conn.ExecContext(context.Background(), `COMMIT`)
		conn.Close()
		db.Close()
	}
}

func TestBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.db")
	db, err := dbopen.Open(path, dbopen.WithBusyTimeout(1), dbopen.WithSchema(`CREATE TABLE t (x INTEGER)`))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	release := lock(t, path)
	_, err = db.Exec(`INSERT INTO t VALUES (1)`)
	if !dbopen.IsBusy(err) {
		t.Fatalf("IsBusy(%v) = false", err)
	}
	if dbopen.IsBusy(errors.New("database is locked")) {
		t.Error("plain errors are not driver busy errors")
	}

	// The lock goes away during the backoff and the retry succeeds.
	go func() {
		time.Sleep(30 * time.Millisecond)
		release()
	}()
	if _, err := dbopen.Exec(context.Background(), db, `INSERT INTO t VALUES (2)`); err != nil {
		t.Fatalf("Exec should succeed after the lock is released: %v", err)
	}
}

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/pierce/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func TestSelectorCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sel := &Selector{ID: "sel-1", Name: "price", Selector: "x-shop >>> .price", Source: "https://shop.example"}
	if err := s.SaveSelector(ctx, sel); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetSelector(ctx, "price")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Selector != "x-shop >>> .price" || got.Mode != "all" || got.Stealth != "auto" {
		t.Errorf("got %+v", got)
	}

	// Saving under the same name updates in place and keeps the ID.
	upd := &Selector{ID: "sel-2", Name: "price", Selector: ".price", Mode: "first"}
	if err := s.SaveSelector(ctx, upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.ID != "sel-1" || upd.CreatedAt != got.CreatedAt {
		t.Errorf("update should keep identity: %+v", upd)
	}
	got, _ = s.GetSelector(ctx, "price")
	if got.Selector != ".price" || got.Mode != "first" {
		t.Errorf("after update: %+v", got)
	}

	if err := s.SaveSelector(ctx, &Selector{ID: "sel-3", Name: "alpha", Selector: "h1"}); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListSelectors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "alpha" {
		t.Errorf("list: %+v", list)
	}

	if err := s.DeleteSelector(ctx, "price"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteSelector(ctx, "price"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	if got, err := s.GetSelector(ctx, "price"); got != nil || err != nil {
		t.Errorf("deleted selector: %v %v", got, err)
	}
}

func TestRecordRun_Changed(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	record := func(id, hash, errMsg string, at int64) *Run {
		t.Helper()
		r := &Run{ID: id, Selector: "li", Source: "https://a.example", ResultHash: hash, Error: errMsg, CreatedAt: at}
		if err := s.RecordRun(ctx, r); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
		return r
	}

	if r := record("r1", "aaa", "", 1); r.Changed {
		t.Error("first run has nothing to compare against")
	}
	if r := record("r2", "aaa", "", 2); r.Changed {
		t.Error("same hash should not be changed")
	}
	if r := record("r3", "", "timeout", 3); r.Changed {
		t.Error("failed run should not be changed")
	}
	if r := record("r4", "bbb", "", 4); !r.Changed {
		t.Error("new hash after a failure should compare against the last success")
	}

	runs, err := s.ListRuns(ctx, RunFilter{Selector: "li", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "r4" || !runs[0].Changed || runs[1].Error != "timeout" {
		t.Errorf("ListRuns: %+v", runs)
	}
}

func TestRuns_SelectorDeleted(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sel := &Selector{ID: "sel-1", Name: "n", Selector: "p"}
	if err := s.SaveSelector(ctx, sel); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, &Run{ID: "r1", SelectorID: sel.ID, Selector: "p", Source: "inline"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSelector(ctx, "n"); err != nil {
		t.Fatal(err)
	}
	runs, err := s.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].SelectorID != "" {
		t.Errorf("run should survive detached: %+v", runs)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "pierce.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if err := s.SaveSelector(context.Background(), &Selector{ID: "x", Name: "x", Selector: "p"}); err != nil {
		t.Fatal(err)
	}
}

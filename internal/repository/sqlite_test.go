package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dastanaron/dial/internal/models"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func intPtr(i int) *int { return &i }

func childIDs(t *testing.T, repo *SQLiteRepository, id string) []string {
	t.Helper()
	children, err := repo.GetChildren(context.Background(), id)
	if err != nil {
		t.Fatalf("GetChildren(%s): %v", id, err)
	}
	ids := make([]string, 0, len(children))
	for i, c := range children {
		if c.Index != i {
			t.Errorf("child %s of %s has index %d, want %d", c.ID, id, c.Index, i)
		}
		ids = append(ids, c.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSeededRoots(t *testing.T) {
	repo := newTestRepo(t)
	ids := childIDs(t, repo, models.RootID)
	if !equalIDs(ids, []string{"1", "2"}) {
		t.Fatalf("top level = %v, want [1 2]", ids)
	}
	tree, err := repo.GetTree(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tree.ID != models.RootID || len(tree.Children) != 2 {
		t.Fatalf("unexpected tree root %+v", tree)
	}
	if tree.Children[0].Children == nil {
		t.Error("empty folder in full tree should have a non-nil child slice")
	}
}

func TestCreateInsertsAtIndex(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var events []models.Event
	repo.Subscribe(func(ev models.Event) { events = append(events, ev) })

	a, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "a", URL: "https://a.example/"})
	b, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "b", URL: "https://b.example/"})
	c, err := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "c", URL: "https://c.example/", Index: intPtr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if c.Index != 1 {
		t.Errorf("c.Index = %d, want 1", c.Index)
	}
	if got := childIDs(t, repo, "1"); !equalIDs(got, []string{a.ID, c.ID, b.ID}) {
		t.Errorf("children = %v", got)
	}
	if len(events) != 3 || events[2].Kind != models.EventCreated || events[2].Node.ParentID != "1" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestCreateErrors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	bm, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "a", URL: "https://a.example/"})

	tests := []struct {
		name string
		d    models.CreateDetails
		want error
	}{
		{"root", models.CreateDetails{ParentID: models.RootID, Title: "x"}, ErrPermission},
		{"missing parent", models.CreateDetails{ParentID: "999", Title: "x"}, ErrNotFound},
		{"bookmark parent", models.CreateDetails{ParentID: bm.ID, Title: "x"}, ErrNotFolder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.Create(ctx, tt.d); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMoveWithinFolderUsesFinalIndex(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	var ids []string
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		n, err := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: title, URL: "https://" + title + ".example/"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, n.ID)
	}

	var moved models.Event
	repo.Subscribe(func(ev models.Event) { moved = ev })

	if _, err := repo.Move(ctx, ids[0], models.Destination{ParentID: "1", Index: intPtr(2)}); err != nil {
		t.Fatal(err)
	}
	want := []string{ids[1], ids[2], ids[0], ids[3], ids[4]}
	if got := childIDs(t, repo, "1"); !equalIDs(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
	if moved.Kind != models.EventMoved || moved.Move.OldIndex != 0 || moved.Move.Index != 2 {
		t.Errorf("unexpected move event %+v", moved)
	}

	if _, err := repo.Move(ctx, ids[1], models.Destination{ParentID: "1"}); err != nil {
		t.Fatal(err)
	}
	want = []string{ids[2], ids[0], ids[3], ids[4], ids[1]}
	if got := childIDs(t, repo, "1"); !equalIDs(got, want) {
		t.Errorf("after append children = %v, want %v", got, want)
	}
}

func TestMoveAcrossFolders(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "a", URL: "https://a.example/"})
	b, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "b", URL: "https://b.example/"})
	x, _ := repo.Create(ctx, models.CreateDetails{ParentID: "2", Title: "x", URL: "https://x.example/"})

	if _, err := repo.Move(ctx, a.ID, models.Destination{ParentID: "2", Index: intPtr(0)}); err != nil {
		t.Fatal(err)
	}
	if got := childIDs(t, repo, "1"); !equalIDs(got, []string{b.ID}) {
		t.Errorf("folder 1 = %v", got)
	}
	if got := childIDs(t, repo, "2"); !equalIDs(got, []string{a.ID, x.ID}) {
		t.Errorf("folder 2 = %v", got)
	}
}

func TestMoveFolderIntoDescendantFails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	outer, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "outer"})
	inner, _ := repo.Create(ctx, models.CreateDetails{ParentID: outer.ID, Title: "inner"})

	_, err := repo.Move(ctx, outer.ID, models.Destination{ParentID: inner.ID})
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("err = %v, want ErrInvalidMove", err)
	}
	if _, err := repo.Move(ctx, "1", models.Destination{ParentID: "2"}); !errors.Is(err, ErrPermission) {
		t.Fatalf("moving a top-level folder: err = %v, want ErrPermission", err)
	}
}

func TestRemoveAndRemoveTree(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	folder, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "folder"})
	leaf, _ := repo.Create(ctx, models.CreateDetails{ParentID: folder.ID, Title: "leaf", URL: "https://leaf.example/"})
	after, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "after", URL: "https://after.example/"})

	if err := repo.Remove(ctx, folder.ID); !errors.Is(err, ErrFolderNotEmpty) {
		t.Fatalf("Remove non-empty folder: err = %v", err)
	}

	var removed models.Event
	repo.Subscribe(func(ev models.Event) { removed = ev })
	if err := repo.RemoveTree(ctx, folder.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, leaf.ID); !IsNotFound(err) {
		t.Errorf("leaf still present: %v", err)
	}
	if got := childIDs(t, repo, "1"); !equalIDs(got, []string{after.ID}) {
		t.Errorf("folder 1 = %v", got)
	}
	if removed.Kind != models.EventRemoved || removed.Remove.ParentID != "1" || len(removed.Remove.Node.Children) != 1 {
		t.Errorf("unexpected removed event %+v", removed)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	bm, _ := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "a", URL: "https://a.example/"})
	title := "renamed"
	got, err := repo.Update(ctx, bm.ID, models.Changes{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "renamed" || got.URL != "https://a.example/" {
		t.Errorf("Update returned %+v", got)
	}
	url := "https://b.example/"
	if _, err := repo.Update(ctx, "1", models.Changes{URL: &url}); !errors.Is(err, ErrPermission) {
		t.Errorf("updating a top-level folder: err = %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	calls := 0
	unsubscribe := repo.Subscribe(func(models.Event) { calls++ })
	repo.BeginImport()
	unsubscribe()
	unsubscribe()
	repo.EndImport()
	if _, err := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "f"}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCheckExternalChanges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.db")
	mine, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer mine.Close()
	other, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	var kinds []models.EventKind
	mine.Subscribe(func(ev models.Event) { kinds = append(kinds, ev.Kind) })

	if _, err := mine.Create(ctx, models.CreateDetails{ParentID: "1", Title: "own"}); err != nil {
		t.Fatal(err)
	}
	if changed, err := mine.CheckExternalChanges(ctx); err != nil || changed {
		t.Fatalf("own write reported as external: %v, %v", changed, err)
	}

	if _, err := other.Create(ctx, models.CreateDetails{ParentID: "2", Title: "theirs"}); err != nil {
		t.Fatal(err)
	}
	if changed, err := mine.CheckExternalChanges(ctx); err != nil || !changed {
		t.Fatalf("external write missed: %v, %v", changed, err)
	}
	if changed, _ := mine.CheckExternalChanges(ctx); changed {
		t.Error("second check without writes reported a change")
	}
	if len(kinds) != 2 || kinds[1] != models.EventImportEnded {
		t.Errorf("events = %v", kinds)
	}
	if got := childIDs(t, mine, "2"); len(got) != 1 {
		t.Errorf("external node not visible: %v", got)
	}
}

package service

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/reorder"
	"github.com/dastanaron/dial/internal/repository"
	"github.com/dastanaron/dial/internal/settings"
)

func newTestDeps(t *testing.T) (*repository.SQLiteRepository, *settings.Store) {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	st, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return repo, st
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "example.com", want: "https://example.com/"},
		{in: "  https://Example.com/path?q=1 ", want: "https://example.com/path?q=1"},
		{in: "http://localhost:8080", want: "http://localhost:8080/"},
		{in: "mailto:someone@example.com", want: "mailto:someone@example.com"},
		{in: "", wantErr: true},
		{in: "not a url", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("NormalizeURL(%q) err = %v, want ErrInvalidURL", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestHostTitle(t *testing.T) {
	tests := map[string]string{
		"https://www.Example.com/a": "example.com",
		"https://news.example.org/": "news.example.org",
		"::not a url":               "::not a url",
	}
	for in, want := range tests {
		if got := HostTitle(in); got != want {
			t.Errorf("HostTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnsureFolderCreatesOnce(t *testing.T) {
	ctx := context.Background()
	repo, st := newTestDeps(t)
	keeper := NewFolderKeeper(repo, st, "", nil)

	id, err := keeper.EnsureFolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	node, err := repo.Get(ctx, id)
	if err != nil || node.Title != DefaultFolderTitle || node.ParentID != BarFolderID {
		t.Fatalf("folder = %+v, %v", node, err)
	}
	again, err := keeper.EnsureFolder(ctx)
	if err != nil || again != id {
		t.Errorf("second EnsureFolder = %q, %v; want %q", again, err, id)
	}
	if stored, _ := st.FolderID(); stored != id {
		t.Errorf("stored id = %q", stored)
	}
	prefs, err := st.LoadPreferences()
	if err != nil || len(prefs.FolderSelection.SelectedIDs) != 1 || prefs.FolderSelection.SelectedIDs[0] != id {
		t.Errorf("preferences = %+v, %v", prefs, err)
	}
}

func TestEnsureFolderFindsByTitle(t *testing.T) {
	ctx := context.Background()
	repo, st := newTestDeps(t)
	parent, _ := repo.Create(ctx, models.CreateDetails{ParentID: "2", Title: "nested"})
	existing, _ := repo.Create(ctx, models.CreateDetails{ParentID: parent.ID, Title: "Dial"})

	id, err := NewFolderKeeper(repo, st, "Dial", nil).EnsureFolder(ctx)
	if err != nil || id != existing.ID {
		t.Errorf("EnsureFolder = %q, %v; want %q", id, err, existing.ID)
	}
}

func TestEnsureFolderIgnoresRenamedStoredFolder(t *testing.T) {
	ctx := context.Background()
	repo, st := newTestDeps(t)
	keeper := NewFolderKeeper(repo, st, "", nil)
	first, err := keeper.EnsureFolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	renamed := "something else"
	if _, err := repo.Update(ctx, first, models.Changes{Title: &renamed}); err != nil {
		t.Fatal(err)
	}
	second, err := keeper.EnsureFolder(ctx)
	if err != nil || second == first {
		t.Errorf("EnsureFolder = %q, %v; want a new folder", second, err)
	}
}

func TestResetFolderRecreatesRemovedFolder(t *testing.T) {
	ctx := context.Background()
	repo, st := newTestDeps(t)
	keeper := NewFolderKeeper(repo, st, "", nil)
	first, err := keeper.EnsureFolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.RemoveTree(ctx, first); err != nil {
		t.Fatal(err)
	}
	second, err := keeper.ResetFolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("ResetFolder returned the removed id")
	}
	if node, err := repo.Get(ctx, second); err != nil || !node.IsFolder() {
		t.Errorf("recreated folder = %+v, %v", node, err)
	}
}

func TestDialServiceOperations(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestDeps(t)
	svc := NewDialService(repo)

	a, err := svc.AddShortcut(ctx, "1", "www.example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Title != "example.com" || a.URL != "https://www.example.com/" {
		t.Errorf("added %+v", a)
	}
	b, err := svc.AddShortcut(ctx, "1", "https://b.example/", " B ")
	if err != nil || b.Title != "B" {
		t.Fatalf("added %+v, %v", b, err)
	}

	if err := svc.MoveShortcut(ctx, "1", b.ID, 0); err != nil {
		t.Fatal(err)
	}
	children, _ := repo.GetChildren(ctx, "1")
	if len(children) != 2 || children[0].ID != b.ID {
		t.Errorf("order after move = %+v", children)
	}

	if err := svc.MoveToFolder(ctx, a.ID, "2"); err != nil {
		t.Fatal(err)
	}
	if moved, _ := repo.Get(ctx, a.ID); moved.ParentID != "2" {
		t.Errorf("parent = %q", moved.ParentID)
	}

	if err := svc.Rename(ctx, b.ID, "Bee"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoveShortcut(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, b.ID); !repository.IsNotFound(err) {
		t.Errorf("removed shortcut still present: %v", err)
	}
}

func TestMoveShortcutSkipsSubfolders(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestDeps(t)
	svc := NewDialService(repo)

	if _, err := repo.Create(ctx, models.CreateDetails{ParentID: "1", Title: "Folder"}); err != nil {
		t.Fatal(err)
	}
	ids := map[string]string{}
	for _, name := range []string{"a", "b", "c"} {
		n, err := svc.AddShortcut(ctx, "1", "https://"+name+".example/", name)
		if err != nil {
			t.Fatal(err)
		}
		ids[n.ID] = name
	}

	dialOrder := func() []string {
		children, err := repo.GetChildren(ctx, "1")
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, n := range children {
			if n.URL != "" {
				names = append(names, ids[n.ID])
			}
		}
		return names
	}
	listIDs := func() []string {
		children, _ := repo.GetChildren(ctx, "1")
		var list []string
		for _, n := range children {
			if n.URL != "" {
				list = append(list, n.ID)
			}
		}
		return list
	}

	tests := []struct {
		name      string
		dragged   int // position in the dial list
		target    int
		after     bool
		appending bool
		want      []string
	}{
		{name: "after last", dragged: 0, target: 2, after: true, want: []string{"b", "c", "a"}},
		{name: "before first", dragged: 2, target: 0, want: []string{"a", "b", "c"}},
		{name: "after first", dragged: 2, target: 0, after: true, want: []string{"a", "c", "b"}},
		{name: "onto add tile", dragged: 0, appending: true, want: []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := listIDs()
			rect := reorder.Rect{X: 0, Y: 0, Width: 10, Height: 4}
			p := reorder.Point{X: 1, Y: 1}
			if tt.after {
				p.X = 8
			}
			var index int
			var err error
			if tt.appending {
				index, err = reorder.PlanAppend(list, list[tt.dragged])
			} else {
				index, err = reorder.PlanDrop(list, list[tt.dragged], list[tt.target], rect, p)
			}
			if err != nil {
				t.Fatal(err)
			}
			if err := svc.MoveShortcut(ctx, "1", list[tt.dragged], index); err != nil {
				t.Fatal(err)
			}
			if got := dialOrder(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("dial order = %v, want %v", got, tt.want)
			}
			if children, _ := repo.GetChildren(ctx, "1"); children[0].URL != "" {
				t.Errorf("subfolder moved from the front: %+v", children[0])
			}
		})
	}
}

func TestSiblingIndex(t *testing.T) {
	folder := func(id string) models.TreeNode { return models.TreeNode{ID: id} }
	bookmark := func(id string) models.TreeNode { return models.TreeNode{ID: id, URL: "https://" + id + ".test/"} }
	children := []models.TreeNode{folder("f"), bookmark("a"), folder("g"), bookmark("b"), bookmark("c")}

	tests := []struct {
		id    string
		index int
		want  int
	}{
		{"a", 0, 2},  // before b, after the folder g
		{"a", 1, 3},  // before c
		{"a", 2, 4},  // after c
		{"a", 9, 4},  // clamped to after the last bookmark
		{"c", 0, 1},  // before a
		{"c", -1, 1}, // negative is the front of the list
		{"x", 3, 5},  // unknown id still maps past the last bookmark
	}
	for _, tt := range tests {
		if got := siblingIndex(children, tt.id, tt.index); got != tt.want {
			t.Errorf("siblingIndex(%s, %d) = %d, want %d", tt.id, tt.index, got, tt.want)
		}
	}

	if got := siblingIndex([]models.TreeNode{folder("f"), bookmark("a")}, "a", 0); got != 1 {
		t.Errorf("only bookmark = %d, want 1", got)
	}
}

func TestDialServiceErrors(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestDeps(t)
	svc := NewDialService(repo)

	var calls int
	repo.Subscribe(func(models.Event) { calls++ })
	if _, err := svc.AddShortcut(ctx, "1", "not a url", ""); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}
	if calls != 0 {
		t.Error("invalid URL reached the store")
	}

	err := svc.RemoveShortcut(ctx, "999")
	var opErr *OperationError
	if !errors.As(err, &opErr) || !repository.IsNotFound(err) {
		t.Errorf("err = %v, want OperationError wrapping ErrNotFound", err)
	}
	if err := svc.MoveShortcut(ctx, "1", "999", 0); !repository.IsNotFound(err) {
		t.Errorf("move err = %v", err)
	}
}

func TestSearch(t *testing.T) {
	bookmarks := []models.TreeNode{
		{ID: "1", Title: "Go docs", URL: "https://go.dev/doc/"},
		{ID: "2", Title: "News", URL: "https://news.example/"},
	}
	if got := Search(bookmarks, "GO"); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("title match = %+v", got)
	}
	if got := Search(bookmarks, "example"); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("url match = %+v", got)
	}
	if got := Search(bookmarks, ""); len(got) != 2 {
		t.Errorf("empty query = %+v", got)
	}
}

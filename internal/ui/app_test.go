package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dastanaron/dial/internal/palette"
	"github.com/dastanaron/dial/internal/repository"
	"github.com/dastanaron/dial/internal/service"
	"github.com/dastanaron/dial/internal/settings"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: %q", service.ErrInvalidURL, "::"), "valid URL"},
		{&service.OperationError{Op: "reorder", Err: repository.ErrNotFound}, "Could not reorder: the bookmark no longer exists."},
		{&service.OperationError{Op: "rename", Err: repository.ErrPermission}, "Could not rename: top-level folders"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("userMessage(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

func TestSystemDark(t *testing.T) {
	tests := map[string]bool{
		"":       true,
		"15;0":   true,
		"0;15":   false,
		"0;7":    false,
		"7;8":    true,
		"0;x":    true,
		"12;4;1": true,
	}
	for env, want := range tests {
		t.Setenv("COLORFGBG", env)
		if got := systemDark(); got != want {
			t.Errorf("COLORFGBG=%q: dark = %v, want %v", env, got, want)
		}
	}
}

func TestBackgroundFor(t *testing.T) {
	tests := []struct {
		name string
		bg   *settings.Background
		want string
	}{
		{"unset", nil, ""},
		{"gradient", &settings.Background{Mode: settings.BackgroundGradient, GradientID: "ocean"}, "ocean"},
		{"unknown gradient", &settings.Background{Mode: settings.BackgroundGradient, GradientID: "nope"}, palette.DefaultGradientID},
		{"custom image", &settings.Background{Mode: settings.BackgroundCustom, GradientID: "ocean"}, ""},
	}
	for _, tt := range tests {
		got := backgroundFor(settings.Preferences{Background: tt.bg})
		id := ""
		if got != nil {
			id = got.ID
		}
		if id != tt.want {
			t.Errorf("%s: background = %q, want %q", tt.name, id, tt.want)
		}
	}
}

func TestChosenBackgroundIsSavedAndPainted(t *testing.T) {
	st, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.SavePreferences(withGradient(settings.Preferences{Theme: "dark"}, "forest")); err != nil {
		t.Fatal(err)
	}
	prefs, err := st.LoadPreferences()
	if err != nil {
		t.Fatal(err)
	}
	bg := backgroundFor(prefs)
	if bg == nil || bg.ID != "forest" {
		t.Fatalf("background = %+v", prefs.Background)
	}

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(60, 20)

	theme := palette.ThemeFor(prefs.Theme, false)
	g := NewDialGrid(18, 5)
	g.SetBorder(true)
	g.SetRect(0, 0, 60, 20)
	g.SetAppearance(theme, palette.Accent(prefs.Accent))
	g.SetBackground(bg)
	g.SetBookmarks(nodes("a", "b", "c"))
	g.Draw(screen)

	cells := []struct {
		x, y int
		t    float64
	}{
		{1, 1, 0},   // top left of the inner area
		{58, 18, 1}, // bottom right
	}
	for _, c := range cells {
		_, _, style, _ := screen.GetContent(c.x, c.y)
		_, got, _ := style.Decompose()
		if want := tcellColor(bg.At(true, c.t)); got != want {
			t.Errorf("cell %d,%d background = %v, want %v", c.x, c.y, got, want)
		}
	}
	_, _, style, _ := screen.GetContent(1, 1)
	if _, got, _ := style.Decompose(); got == tcellColor(theme.Background) {
		t.Error("gradient should replace the plain theme background")
	}
}

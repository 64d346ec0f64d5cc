package palette

import colorful "github.com/lucasb-eyer/go-colorful"

// AccentOption is one selectable accent colour
type AccentOption struct {
	ID       string
	Label    string
	Base     colorful.Color
	Contrast colorful.Color
}

const DefaultAccentID = "cobalt"

var Accents = []AccentOption{
	accent("cobalt", "Cobalt", "#2563eb", "#f8fafc"),
	accent("violet", "Violet", "#8b5cf6", "#faf5ff"),
	accent("emerald", "Emerald", "#059669", "#ecfdf5"),
	accent("amber", "Amber", "#d97706", "#fffbeb"),
	accent("rose", "Rose", "#e11d48", "#fff1f2"),
	accent("slate", "Slate", "#475569", "#f8fafc"),
	accent("sky", "Sky", "#0284c7", "#e0f2fe"),
	accent("blush", "Blush", "#ec4899", "#fff0f6"),
	accent("moss", "Moss", "#4d7c0f", "#ecfccb"),
	accent("bronze", "Bronze", "#b45309", "#fff7ed"),
	accent("orchid", "Orchid", "#c026d3", "#fdf4ff"),
	accent("mint", "Mint", "#14b8a6", "#e0fefa"),
	accent("graphite", "Graphite", "#1f2937", "#f8fafc"),
	accent("sunset", "Sunset", "#ea580c", "#fff7ed"),
	accent("glacier", "Glacier", "#0ea5e9", "#f0f9ff"),
	accent("amethyst", "Amethyst", "#6d28d9", "#f5f3ff"),
	accent("sand", "Sand", "#ca8a04", "#fffbeb"),
	accent("cranberry", "Cranberry", "#be123c", "#fff1f5"),
}

func accent(id, label, base, contrast string) AccentOption {
	return AccentOption{ID: id, Label: label, Base: mustHex(base), Contrast: mustHex(contrast)}
}

// Accent looks up an accent by id, falling back to cobalt
func Accent(id string) AccentOption {
	for _, a := range Accents {
		if a.ID == id {
			return a
		}
	}
	return Accents[0]
}

// Theme is the set of surface colours for the whole screen
type Theme struct {
	ID         string
	Dark       bool
	Background colorful.Color
	Surface    colorful.Color
	Text       colorful.Color
	Muted      colorful.Color
}

var ThemeIDs = []string{"dark", "light", "system"}

var (
	darkTheme = Theme{
		Dark:       true,
		Background: mustHex("#0f172a"),
		Surface:    mustHex("#1e293b"),
		Text:       mustHex("#f8fafc"),
		Muted:      mustHex("#94a3b8"),
	}
	lightTheme = Theme{
		Background: mustHex("#f8fafc"),
		Surface:    mustHex("#e2e8f0"),
		Text:       mustHex("#0f172a"),
		Muted:      mustHex("#475569"),
	}
)

// ThemeFor resolves a theme id. "system", and any unknown id, follows
// systemDark.
func ThemeFor(id string, systemDark bool) Theme {
	var t Theme
	switch {
	case id == "dark":
		t = darkTheme
	case id == "light":
		t = lightTheme
	case systemDark:
		t = darkTheme
		id = "system"
	default:
		t = lightTheme
		id = "system"
	}
	t.ID = id
	return t
}

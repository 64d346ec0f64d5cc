package palette

import colorful "github.com/lucasb-eyer/go-colorful"

const DefaultGradientID = "aurora"

// Stop is one colour of a gradient at Pos (0..1)
type Stop struct {
	Pos   float64
	Color colorful.Color
}

// Gradient is a page background with a light and a dark rendition. Accent
// is the accent id that goes well with it.
type Gradient struct {
	ID     string
	Label  string
	Light  []Stop
	Dark   []Stop
	Accent string
}

var Gradients = []Gradient{
	gradient("aurora", "Aurora", "violet",
		stops("#d8b4fe", 0.5, "#6366f1", "#22d3ee"),
		stops("#312e81", 0.5, "#1e3a8a", "#0f172a")),
	gradient("sunrise", "Sunrise", "amber",
		stops("#fef3c7", 0.5, "#fdba74", "#f97316"),
		stops("#7c2d12", 0.45, "#c2410c", "#ea580c")),
	gradient("forest", "Forest", "emerald",
		stops("#bbf7d0", 0.5, "#34d399", "#0f766e"),
		stops("#064e3b", 0.5, "#059669", "#0f172a")),
	gradient("ocean", "Ocean", "sky",
		stops("#bae6fd", 0.5, "#38bdf8", "#0ea5e9"),
		stops("#0c4a6e", 0.5, "#0369a1", "#082f49")),
	gradient("twilight", "Twilight", "orchid",
		stops("#fecdd3", 0.5, "#fda4af", "#fb7185"),
		stops("#7f1d1d", 0.5, "#be123c", "#9f1239")),
	gradient("slate", "Slate", "slate",
		stops("#e2e8f0", 0.5, "#cbd5f5", "#94a3b8"),
		stops("#1e293b", 0.5, "#0f172a", "#020617")),
	gradient("blossom", "Blossom", "blush",
		stops("#ffe4e6", 0.45, "#fbcfe8", "#f472b6"),
		stops("#831843", 0.5, "#9d174d", "#701a75")),
	gradient("lagoon", "Lagoon", "mint",
		stops("#f0fdfa", 0.4, "#ccfbf1", "#5eead4"),
		stops("#022c22", 0.45, "#0d9488", "#14b8a6")),
	gradient("ember", "Ember", "rose",
		stops("#fef2f2", 0.4, "#fee2e2", "#fb7185"),
		stops("#450a0a", 0.5, "#9f1239", "#be123c")),
	gradient("lilac", "Lilac", "violet",
		stops("#f5f3ff", 0.45, "#ede9fe", "#d8b4fe"),
		stops("#312e81", 0.5, "#5b21b6", "#7c3aed")),
	gradient("zenith", "Zenith", "cobalt",
		stops("#e0f2fe", 0.45, "#dbeafe", "#818cf8"),
		stops("#1e293b", 0.45, "#1f3b8a", "#3730a3")),
	gradient("sage", "Sage", "moss",
		stops("#ecfccb", 0.45, "#bbf7d0", "#84cc16"),
		stops("#052e16", 0.45, "#166534", "#15803d")),
	gradient("velvet", "Velvet", "orchid",
		stops("#fdf4ff", 0.45, "#f5d0fe", "#f0abfc"),
		stops("#4a044e", 0.45, "#6b21a8", "#86198f")),
	gradient("citrus", "Citrus", "amber",
		stops("#fefce8", 0.45, "#fef08a", "#facc15"),
		stops("#422006", 0.5, "#854d0e", "#b45309")),
	gradient("glacier", "Glacier", "sky",
		stops("#f0f9ff", 0.45, "#e0f2fe", "#bae6fd"),
		stops("#082f49", 0.45, "#0c4a6e", "#0284c7")),
	gradient("terracotta", "Terracotta", "bronze",
		stops("#fff7ed", 0.45, "#fed7aa", "#f97316"),
		stops("#431407", 0.45, "#7c2d12", "#9a3412")),
	gradient("nocturne", "Nocturne", "slate",
		stops("#ede9fe", 0.45, "#c7d2fe", "#4338ca"),
		stops("#020617", 0.45, "#111827", "#312e81")),
	gradient("horizon", "Horizon", "cobalt",
		stops("#fef3c7", 0.4, "#fdba74", "#60a5fa"),
		stops("#451a03", 0.45, "#9a3412", "#1d4ed8")),
}

func gradient(id, label, accent string, light, dark []Stop) Gradient {
	return Gradient{ID: id, Label: label, Light: light, Dark: dark, Accent: accent}
}

// stops builds a three-stop gradient with the middle stop at mid
func stops(first string, mid float64, middle, last string) []Stop {
	return []Stop{
		{Pos: 0, Color: mustHex(first)},
		{Pos: mid, Color: mustHex(middle)},
		{Pos: 1, Color: mustHex(last)},
	}
}

// GradientFor looks up a gradient by id, falling back to aurora
func GradientFor(id string) Gradient {
	for _, g := range Gradients {
		if g.ID == id {
			return g
		}
	}
	return Gradients[0]
}

// At returns the colour at t (0..1) along the dark or light rendition
func (g Gradient) At(dark bool, t float64) colorful.Color {
	s := g.Light
	if dark {
		s = g.Dark
	}
	if t <= s[0].Pos {
		return s[0].Color
	}
	if t >= s[len(s)-1].Pos {
		return s[len(s)-1].Color
	}
	for i := 1; i < len(s); i++ {
		if t <= s[i].Pos {
			span := s[i].Pos - s[i-1].Pos
			if span <= 0 {
				return s[i].Color
			}
			return s[i-1].Color.BlendLab(s[i].Color, (t-s[i-1].Pos)/span).Clamped()
		}
	}
	return s[len(s)-1].Color
}

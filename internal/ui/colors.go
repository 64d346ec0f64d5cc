package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
)

func tcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// blend returns the colour at t (0..1) across a tile's gradient
func blend(from, to colorful.Color, t float64) colorful.Color {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	return from.BlendLab(to, t).Clamped()
}

// systemDark guesses the terminal background from COLORFGBG ("fg;bg").
// Terminals that do not set it are assumed dark.
func systemDark() bool {
	v := os.Getenv("COLORFGBG")
	if v == "" {
		return true
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return true
	}
	return bg != 7 && bg < 9
}

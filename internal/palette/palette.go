// Package palette derives tile colours, accents and themes.
package palette

import (
	"math"
	"strings"
	"unicode/utf16"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette colours one tile. Background and Accent are the two ends of the
// tile's gradient.
type Palette struct {
	Background colorful.Color
	Accent     colorful.Color
	Text       colorful.Color
	DarkText   bool
}

var (
	amberLight = mustHex("#fde68a")
	amberDark  = mustHex("#fbbf24")
	darkText   = colorful.Color{R: 30.0 / 255, G: 41.0 / 255, B: 59.0 / 255}
	slateText  = colorful.Color{R: 15.0 / 255, G: 23.0 / 255, B: 42.0 / 255}
	lightText  = colorful.Color{R: 1, G: 1, B: 1}
)

// ForTitle returns the same palette for the same title, ignoring case and
// surrounding space.
func ForTitle(title string) Palette {
	text := strings.ToLower(strings.TrimSpace(title))
	if text == "" {
		return Palette{Background: amberLight, Accent: amberDark, Text: slateText, DarkText: true}
	}

	var hueSeed int
	var satSeed, lightSeed float64
	for i, code := range utf16.Encode([]rune(text)) {
		weight := float64(i + 1)
		hueSeed += int(code) * (i + 1)
		satSeed += float64(code) * (weight + 1.5)
		lightSeed += float64(code) * (weight + 2.5)
	}

	baseHue := positiveMod(float64(hueSeed), 360)
	hueSpread := positiveMod(satSeed, 36) - 18
	accentHue := positiveMod(baseHue+24+hueSpread, 360)

	baseSaturation := 52 + math.Mod(math.Abs(satSeed), 30)
	baseLightness := 42 + math.Mod(math.Abs(lightSeed), 20)
	accentSaturation := math.Min(96, baseSaturation+8)
	accentLightness := math.Min(78, baseLightness+12)

	p := Palette{
		Background: colorful.Hsl(baseHue, baseSaturation/100, baseLightness/100),
		Accent:     colorful.Hsl(accentHue, accentSaturation/100, accentLightness/100),
		Text:       lightText,
	}
	if baseLightness > 54 {
		p.Text, p.DarkText = darkText, true
	}
	return p
}

// Initials is the first two characters of the first word, upper-cased
func Initials(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "•"
	}
	runes := []rune(fields[0])
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

func positiveMod(v, m float64) float64 {
	return math.Mod(math.Mod(v, m)+m, m)
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

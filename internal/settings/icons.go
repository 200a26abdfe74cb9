package settings

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"cloudnav/internal/dataurl"
)

// PaletteSize is the number of candidate icons in one palette.
const PaletteSize = 12

// Hues start at 20° and span 280°, leaving out the red/magenta band.
const (
	hueStart = 20.0
	hueSpan  = 280.0
)

// monogramFallback replaces single Latin letters, which make poor monograms.
const monogramFallback = "Nav"

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">
<defs>
<linearGradient id="%[1]s" x1="0" y1="0" x2="1" y2="1">
<stop offset="0%%" stop-color="%[2]s"/>
<stop offset="100%%" stop-color="%[3]s"/>
</linearGradient>
</defs>
<rect width="100%%" height="100%%" fill="url(#%[1]s)" rx="16"/>
<text x="50%%" y="48%%" dy=".32em" fill="white" font-family="'Arial Narrow', sans-serif-condensed, Impact, sans-serif" font-weight="bold" font-size="32" text-anchor="middle" transform="scale(0.8, 1.2)" transform-origin="center">%[4]s</text>
</svg>`

// Palette generates PaletteSize gradient icons showing the monogram of
// navTitle. Colours and gradient ids come from rng; gradient ids are unique
// within one call.
func Palette(navTitle string, rng *rand.Rand) []string {
	mark := xmlEscape(Monogram(navTitle))
	used := make(map[string]struct{}, PaletteSize)

	icons := make([]string, 0, PaletteSize)
	for i := 0; i < PaletteSize; i++ {
		h := hueStart + float64(i)*(hueSpan/PaletteSize)
		s := 65 + rng.Float64()*20
		l := 45 + rng.Float64()*15
		h2 := mod360(h + 40 + rng.Float64()*40)

		id := gradientID(rng)
		for {
			if _, dup := used[id]; !dup {
				break
			}
			id = gradientID(rng)
		}
		used[id] = struct{}{}

		svg := fmt.Sprintf(svgTemplate, id, hsl(h, s, l), hsl(h2, 75, 50), mark)
		icons = append(icons, dataurl.Encode("image/svg+xml", []byte(svg)))
	}
	return icons
}

// Monogram returns the first character of navTitle, or "Nav" when the title
// is empty or starts with an ASCII letter.
func Monogram(navTitle string) string {
	r, size := utf8.DecodeRuneInString(navTitle)
	if size == 0 || r == utf8.RuneError {
		return monogramFallback
	}
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return monogramFallback
	}
	return string(r)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func gradientID(rng *rand.Rand) string {
	var sb strings.Builder
	sb.WriteString("g_")
	for i := 0; i < 9; i++ {
		sb.WriteByte(base36[rng.IntN(len(base36))])
	}
	return sb.String()
}

func hsl(h, s, l float64) string {
	return fmt.Sprintf("hsl(%.1f, %.1f%%, %.1f%%)", h, s, l)
}

func mod360(h float64) float64 {
	for h >= 360 {
		h -= 360
	}
	return h
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}

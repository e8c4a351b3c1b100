package asciicast

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Theme is a terminal color theme: default foreground and background plus a
// 16-entry ANSI palette. All colors use the '#rrggbb' form.
type Theme struct {
	FG      string
	BG      string
	Palette []string
}

// NewTheme builds a theme from a foreground, a background and a
// colon-separated palette of 8 or 16 colors. An 8-color palette is extended
// to 16 entries by deriving bright variants.
func NewTheme(fg, bg, palette string) (*Theme, error) {
	if !isHexColor(fg) {
		return nil, fmt.Errorf("invalid foreground color: %q", fg)
	}
	if !isHexColor(bg) {
		return nil, fmt.Errorf("invalid background color: %q", bg)
	}

	colors := strings.Split(palette, ":")
	switch {
	case len(colors) >= 16 && allHexColors(colors[:16]):
		colors = colors[:16]
	case len(colors) >= 8 && allHexColors(colors[:8]):
		colors = extendPalette(colors[:8])
	default:
		return nil, fmt.Errorf("invalid palette: the first 8 or 16 colors must be valid")
	}

	return &Theme{FG: fg, BG: bg, Palette: colors}, nil
}

// Color returns the palette entry for indices 0-15 and falls back to the
// default foreground for anything else.
func (t *Theme) Color(index int) string {
	if index >= 0 && index < len(t.Palette) {
		return t.Palette[index]
	}
	return t.FG
}

// extendPalette derives the bright variants 8..15 from the normal colors
// 0..7 by raising lightness in HCL space.
func extendPalette(base []string) []string {
	out := make([]string, 0, 16)
	out = append(out, base...)
	for _, hex := range base {
		c, err := colorful.Hex(hex)
		if err != nil {
			out = append(out, hex)
			continue
		}
		h, ch, l := c.Hcl()
		l += 0.2
		if l > 1 {
			l = 1
		}
		out = append(out, colorful.Hcl(h, ch, l).Clamped().Hex())
	}
	return out
}

// DefaultTheme returns the fallback theme used when neither the cast header
// nor the configuration provides one.
func DefaultTheme() *Theme {
	theme, err := NewTheme("#d3d7cf", "#000000", strings.Join([]string{
		"#000000", "#cc0000", "#4e9a06", "#c4a000",
		"#3465a4", "#75507b", "#06989a", "#d3d7cf",
		"#555753", "#ef2929", "#8ae234", "#fce94f",
		"#729fcf", "#ad7fa8", "#34e2e2", "#eeeeec",
	}, ":"))
	if err != nil {
		panic(err)
	}
	return theme
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func allHexColors(colors []string) bool {
	for _, c := range colors {
		if !isHexColor(c) {
			return false
		}
	}
	return true
}

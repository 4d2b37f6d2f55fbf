package styles

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// ApplyGradient colors text cell by cell, blending from one color to the
// other across the whole string.
func ApplyGradient(text string, from, to lipgloss.Color) string {
	var clusters []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}

	switch len(clusters) {
	case 0:
		return ""
	case 1:
		return lipgloss.NewStyle().Foreground(from).Render(text)
	}

	colors := Blend(len(clusters), from, to)
	var b strings.Builder
	for i, cluster := range clusters {
		b.WriteString(lipgloss.NewStyle().Foreground(colors[i]).Render(cluster))
	}
	return b.String()
}

// Blend returns size colors spaced evenly between from and to in HCL space.
func Blend(size int, from, to lipgloss.Color) []lipgloss.Color {
	if size <= 0 {
		return nil
	}
	if size == 1 {
		return []lipgloss.Color{from}
	}

	c1 := toColorful(from)
	c2 := toColorful(to)

	out := make([]lipgloss.Color, size)
	for i := range size {
		t := float64(i) / float64(size-1)
		out[i] = lipgloss.Color(c1.BlendHcl(c2, t).Clamped().Hex())
	}
	return out
}

// toColorful parses a "#rrggbb" color. ANSI palette indexes fall back to gray.
func toColorful(c lipgloss.Color) colorful.Color {
	if col, err := colorful.Hex(string(c)); err == nil {
		return col
	}
	gray, _ := colorful.MakeColor(color.Gray{Y: 128})
	return gray
}

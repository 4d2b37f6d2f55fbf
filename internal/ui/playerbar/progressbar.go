package playerbar

import (
	"strings"

	"github.com/llehouerou/castdeck/internal/ui/styles"
)

const (
	filledCell = "━"
	emptyCell  = "─"
)

// ProgressBar renders a width-cell bar with the played part in a gradient.
func ProgressBar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	ratio = min(max(ratio, 0), 1)
	filled := min(int(float64(width)*ratio), width)

	t := styles.T()
	return styles.ApplyGradient(strings.Repeat(filledCell, filled), t.Accent, t.AccentEnd) +
		t.S().Subtle.Render(strings.Repeat(emptyCell, width-filled))
}

package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempus/internal/domain"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// PhaseProgress renders the remaining share of a Pomodoro phase as a bar
// like [████░░░░] 12:34, colored by phase.
func PhaseProgress(phase domain.Phase, remainingMillis, totalMillis int64, width int) string {
	if width < 2 {
		width = 2
	}
	frac := 0.0
	if totalMillis > 0 {
		frac = float64(totalMillis-remainingMillis) / float64(totalMillis)
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(frac * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	s := remainingMillis / 1000
	return fmt.Sprintf("[%s] %d:%02d", PhaseColor(phase).Render(bar), s/60, s%60)
}

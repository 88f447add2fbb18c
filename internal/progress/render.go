package progress

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/artemiysm/TG-Video/internal/domain"
)

// BarWidth is the number of cells in the rendered progress bar.
const BarWidth = 10

const (
	filledCell = "█"
	emptyCell  = "░"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// SanitizePercent parses an engine percent label such as "\x1b[0;94m 42.5%\x1b[0m".
// Unparseable input yields 0. The result is clamped to [0, 100].
func SanitizePercent(s string) float64 {
	s = ansiEscape.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return clamp(v)
}

// RenderBar draws percent as a fixed-width block bar, rounded to the nearest cell.
func RenderBar(percent float64) string {
	filled := int(math.Round(clamp(percent) * BarWidth / 100))
	return strings.Repeat(filledCell, filled) + strings.Repeat(emptyCell, BarWidth-filled)
}

// Render returns the status message text for a progress state.
func Render(st domain.ProgressState) string {
	var b strings.Builder
	b.WriteString("⏬ Downloading...\n")
	fmt.Fprintf(&b, "[%s] %.1f%%\n", RenderBar(st.Percent), st.Percent)
	fmt.Fprintf(&b, "⚡ %s · ⏳ %s", orDash(st.Speed), orDash(st.ETA))
	return b.String()
}

func orDash(s string) string {
	s = strings.TrimSpace(ansiEscape.ReplaceAllString(s, ""))
	if s == "" {
		return "—"
	}
	return s
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

package indicator

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/signcap/internal/recognition"
	"github.com/rbright/signcap/internal/timing"
)

const (
	barFilled = "█"
	barEmpty  = "░"
)

type painter struct {
	r *lipgloss.Renderer
}

func (p painter) fg(color lipgloss.Color, bold bool, text string) string {
	return p.r.NewStyle().Foreground(color).Bold(bold).Render(text)
}

// bar draws a progress bar whose first prepFraction of cells is the
// preparation zone and the rest the record zone.
func (p painter) bar(width int, progress float64, prepFraction float64) string {
	if width <= 0 {
		return ""
	}
	progress = clamp(progress)
	prepCells := int(math.Round(clamp(prepFraction) * float64(width)))
	filled := int(math.Round(progress * float64(width)))

	var prep, record strings.Builder
	for i := 0; i < width; i++ {
		cell := barEmpty
		if i < filled {
			cell = barFilled
		}
		if i < prepCells {
			prep.WriteString(cell)
		} else {
			record.WriteString(cell)
		}
	}
	return p.fg(prepareColor, false, prep.String()) + p.fg(recordColor, false, record.String())
}

func (p painter) phaseLine(m messages, phase timing.Phase, width int, progress float64, prepFraction float64) string {
	label, color := m.phaseText(phase)
	if label == "" {
		return ""
	}
	return p.fg(color, true, label) + "  " + p.bar(width, progress, prepFraction)
}

func (p painter) outcomeLine(o recognition.Outcome) string {
	switch v := o.(type) {
	case recognition.Recognized:
		line := p.fg(recordColor, true, v.Label)
		if v.Confidence != nil {
			line += p.fg(mutedColor, false, fmt.Sprintf(" (%.2f)", *v.Confidence))
		}
		return line
	case recognition.NotRecognized:
		return p.fg(mutedColor, false, "No sign recognized: "+v.Reason)
	default:
		return ""
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

package indicator

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/signcap/internal/timing"
)

type messages struct {
	prepare    string
	record     string
	processing string
	errorText  string
}

func defaultMessages() messages {
	return messages{
		prepare:    "Get ready...",
		record:     "SIGN NOW!",
		processing: "Processing...",
		errorText:  "Sign recognition error",
	}
}

var (
	prepareColor  = lipgloss.Color("#ff3b30")
	recordColor   = lipgloss.Color("#34c759")
	completeColor = lipgloss.Color("#0096ff")
	errorColor    = lipgloss.Color("#f38ba8")
	mutedColor    = lipgloss.Color("#6c7086")
)

// phaseText returns the label and color shown for phase. Idle has no label.
func (m messages) phaseText(phase timing.Phase) (string, lipgloss.Color) {
	switch phase {
	case timing.PhasePrepare:
		return m.prepare, prepareColor
	case timing.PhaseRecord:
		return m.record, recordColor
	case timing.PhaseComplete:
		return m.processing, completeColor
	default:
		return "", mutedColor
	}
}

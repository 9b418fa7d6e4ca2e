package app

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rbright/signcap/internal/audio"
)

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio input devices found")
		return 1
	}
	renderDevices(r.Stdout, devices)
	return 0
}

// renderDevices prints one row per source; "*" marks the server default.
func renderDevices(w io.Writer, devices []audio.Device) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "ID", "DESCRIPTION", "STATE", "USABLE")
	for _, d := range devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		usable := "yes"
		switch {
		case !d.Available:
			usable = "no (unplugged)"
		case d.Muted:
			usable = "no (muted)"
		}
		t.Row(mark, d.ID, d.Description, d.State, usable)
	}
	fmt.Fprintln(w, t.Render())
}

package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/signcap/internal/audio"
)

func TestRenderDevicesMarksDefaultAndUsability(t *testing.T) {
	var out bytes.Buffer
	renderDevices(&out, []audio.Device{
		{ID: "alsa_input.usb", Description: "USB Mic", State: "running", Available: true, Default: true},
		{ID: "alsa_input.pci", Description: "Built-in", State: "suspended", Available: true, Muted: true},
		{ID: "bluez_input.headset", Description: "Headset", State: "idle"},
	})

	lines := strings.Split(out.String(), "\n")
	row := func(id string) string {
		for _, line := range lines {
			if strings.Contains(line, id) {
				return line
			}
		}
		t.Fatalf("no row for %s in:\n%s", id, out.String())
		return ""
	}

	require.Contains(t, out.String(), "DESCRIPTION")
	require.Contains(t, row("alsa_input.usb"), "*")
	require.Contains(t, row("alsa_input.usb"), "yes")
	require.Contains(t, row("alsa_input.pci"), "no (muted)")
	require.NotContains(t, row("alsa_input.pci"), "*")
	require.Contains(t, row("bluez_input.headset"), "no (unplugged)")
}

// Package audio captures microphone speech for transcription.
package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/signcap/internal/apperr"
)

const clientName = "signcap"

// Device is one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the source can deliver audio right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Selection is the chosen source and, when a fallback was taken, why.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(clientName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect pulse server: %v", apperr.ErrDeviceUnavailable, err)
	}
	return client, nil
}

// ListDevices returns the Pulse input sources.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// SelectDevice resolves the configured input and fallback against live sources.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// preference is a normalized device search term; empty means the default source.
type preference string

func newPreference(raw string) preference {
	term := strings.ToLower(strings.TrimSpace(raw))
	if term == "default" {
		term = ""
	}
	return preference(term)
}

func (p preference) resolve(devices []Device) (Device, bool) {
	for _, dev := range devices {
		if p == "" && dev.Default {
			return dev, true
		}
		if p != "" && deviceMatches(dev, string(p)) {
			return dev, true
		}
	}
	return Device{}, false
}

func (p preference) String() string {
	if p == "" {
		return "default"
	}
	return string(p)
}

func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: no audio input devices found", apperr.ErrDeviceUnavailable)
	}

	primaryPref := newPreference(input)
	primary, ok := primaryPref.resolve(devices)
	if !ok {
		if primaryPref == "" {
			return Selection{}, fmt.Errorf("%w: default audio source is unavailable", apperr.ErrDeviceUnavailable)
		}
		return Selection{}, fmt.Errorf("%w: audio.input %q did not match any device", apperr.ErrDeviceUnavailable, primaryPref)
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	fallbackPref := newPreference(fallback)
	alt, ok := fallbackPref.resolve(devices)
	if !ok {
		return Selection{}, fmt.Errorf("%w: audio input %q is %s and fallback %q was not found", apperr.ErrDeviceUnavailable, primary.ID, reason, fallbackPref)
	}
	if !alt.Usable() {
		altReason := "not available"
		if alt.Muted {
			altReason = "muted"
		}
		return Selection{}, fmt.Errorf("%w: audio input %q is %s and fallback %q is %s", apperr.ErrDeviceUnavailable, primary.ID, reason, alt.ID, altReason)
	}

	return Selection{
		Device:   alt,
		Warning:  fmt.Sprintf("audio input %q is %s; using %q", primary.ID, reason, alt.ID),
		Fallback: alt.ID != primary.ID,
	}, nil
}

func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable checks the active port; Pulse reports unknown=0, no=1, yes=2.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != 1
		}
	}
	return true
}

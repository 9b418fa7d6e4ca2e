package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"

	"github.com/rbright/signcap/internal/apperr"
)

func TestSelectDeviceFromListPrimaryDefault(t *testing.T) {
	devices := []Device{
		{ID: "webcam-mic", Description: "Logitech C920 Analog Stereo", Available: true, Default: true},
		{ID: "headset", Description: "USB Headset Mono", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "default", "default")
	require.NoError(t, err)
	require.Equal(t, "webcam-mic", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestSelectDeviceFromListMatchesDescription(t *testing.T) {
	devices := []Device{
		{ID: "webcam-mic", Description: "Logitech C920 Analog Stereo", Available: true, Default: true},
		{ID: "headset", Description: "USB Headset Mono", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "USB Headset", "")
	require.NoError(t, err)
	require.Equal(t, "headset", selection.Device.ID)
}

func TestSelectDeviceFromListMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "webcam-mic", Description: "Logitech C920", Available: true, Muted: true, Default: true},
		{ID: "headset", Description: "USB Headset Mono", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "webcam", "headset")
	require.NoError(t, err)
	require.Equal(t, "headset", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectDeviceFromListFailsWhenPrimaryAndFallbackMuted(t *testing.T) {
	devices := []Device{
		{ID: "webcam-mic", Description: "Logitech C920", Available: true, Muted: true, Default: true},
	}

	_, err := selectDeviceFromList(devices, "default", "default")
	require.ErrorIs(t, err, apperr.ErrDeviceUnavailable)
	require.Contains(t, err.Error(), "muted")
}

func TestSelectDeviceFromListUnknownInput(t *testing.T) {
	devices := []Device{{ID: "webcam-mic", Available: true, Default: true}}

	_, err := selectDeviceFromList(devices, "missing", "default")
	require.ErrorIs(t, err, apperr.ErrDeviceUnavailable)
	require.Contains(t, err.Error(), "did not match")
}

func TestSelectDeviceFromListEmpty(t *testing.T) {
	_, err := selectDeviceFromList(nil, "", "")
	require.ErrorIs(t, err, apperr.ErrDeviceUnavailable)
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-logitech", Description: "Logitech C920 Analog Stereo"}
	require.True(t, deviceMatches(dev, "logitech"))
	require.True(t, deviceMatches(dev, "c920 analog"))
	require.False(t, deviceMatches(dev, "missing"))
	require.False(t, deviceMatches(dev, ""))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.ErrorIs(t, err, apperr.ErrDeviceUnavailable)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(7)", sourceStateString(7))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	unplugged := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, unplugged, []sourcePort{{name: "line", available: 2}, {name: "mic", available: 1}})
	require.False(t, sourceAvailable(unplugged))
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceValue := reflect.MakeSlice(reflect.TypeOf(reply.Ports), len(ports), len(ports))
	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}

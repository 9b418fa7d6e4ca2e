package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/rbright/signcap/internal/media"
)

func pcmSamples(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestEncodeWAVRoundTripsSamples(t *testing.T) {
	data, err := EncodeWAV(pcmSamples(0, 1000, -1000, 32767), SampleRate)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[:4]))

	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, uint32(SampleRate), dec.SampleRate)
	require.Equal(t, uint16(1), dec.NumChans)
	require.Equal(t, uint16(16), dec.BitDepth)
	require.Equal(t, []int{0, 1000, -1000, 32767}, buf.Data)
}

func TestEncodeWAVDropsTrailingHalfSample(t *testing.T) {
	pcm := append(pcmSamples(42), 0x01)
	data, err := EncodeWAV(pcm, SampleRate)
	require.NoError(t, err)

	buf, err := wav.NewDecoder(bytes.NewReader(data)).FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, []int{42}, buf.Data)
}

func TestCaptureOnPCMStopsAtDurationCap(t *testing.T) {
	capture := newCapture(Device{ID: "mic"}, 10*time.Millisecond)
	require.Equal(t, 320, capture.maxBytes)

	n, err := capture.onPCM(make([]byte, 200))
	require.NoError(t, err)
	require.Equal(t, 200, n)

	select {
	case <-capture.Full():
		t.Fatal("capture reported full early")
	default:
	}

	n, err = capture.onPCM(make([]byte, 200))
	require.NoError(t, err)
	require.Equal(t, 200, n)
	<-capture.Full()
	require.Equal(t, 10*time.Millisecond, capture.Duration())

	_, err = capture.onPCM(make([]byte, 10))
	require.ErrorIs(t, err, io.EOF)
}

func TestCaptureStopReturnsWAVAndRejectsLaterPCM(t *testing.T) {
	capture := newCapture(Device{ID: "mic"}, 0)
	_, err := capture.onPCM(pcmSamples(5, 6, 7))
	require.NoError(t, err)

	res, err := capture.Stop()
	require.NoError(t, err)
	require.Equal(t, media.KindAudio, res.Kind)
	require.Equal(t, "audio/wav", res.ContentType)

	buf, err := wav.NewDecoder(bytes.NewReader(res.Data)).FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, []int{5, 6, 7}, buf.Data)

	_, err = capture.onPCM(pcmSamples(8))
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "mic", capture.Device().ID)
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	var got []byte
	writer := writerFunc(func(b []byte) (int, error) {
		got = append(got, b...)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, got)
}

package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/signcap/internal/media"
)

const (
	SampleRate     = 16000
	bytesPerSample = 2
	fragmentBytes  = 640 // 20ms @ 16kHz mono s16
)

// Capture records one utterance from a Pulse source into memory.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	maxBytes int

	mu      sync.Mutex
	pcm     []byte
	stopped bool
	full    chan struct{}
	once    sync.Once
}

// StartCapture opens a 16 kHz mono s16 stream. Recording ends at Stop, when
// ctx is done, or after maxDuration (zero means unbounded).
func StartCapture(ctx context.Context, selected Device, maxDuration time.Duration) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := newCapture(selected, maxDuration)
	capture.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("signcap speech"),
	)
	if err != nil {
		capture.closeStream()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			capture.closeStream()
		case <-capture.full:
		}
	}()

	return capture, nil
}

func newCapture(device Device, maxDuration time.Duration) *Capture {
	return &Capture{
		device:   device,
		maxBytes: int(maxDuration.Seconds() * SampleRate * bytesPerSample),
		full:     make(chan struct{}),
	}
}

func (c *Capture) Device() Device {
	return c.device
}

// Full is closed once the duration cap has been reached.
func (c *Capture) Full() <-chan struct{} {
	return c.full
}

// Duration is the length of audio captured so far.
func (c *Capture) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pcmDuration(len(c.pcm))
}

// Stop ends the stream and returns the captured audio as WAV.
func (c *Capture) Stop() (media.Resource, error) {
	c.closeStream()

	c.mu.Lock()
	pcm := append([]byte(nil), c.pcm...)
	c.mu.Unlock()

	wav, err := EncodeWAV(pcm, SampleRate)
	if err != nil {
		return media.Resource{}, err
	}
	return media.Audio(wav), nil
}

func (c *Capture) closeStream() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Capture) onPCM(buffer []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0, io.EOF
	}

	chunk := buffer
	if c.maxBytes > 0 {
		room := c.maxBytes - len(c.pcm)
		if room <= 0 {
			return 0, io.EOF
		}
		if len(chunk) > room {
			chunk = chunk[:room]
		}
	}
	c.pcm = append(c.pcm, chunk...)

	if c.maxBytes > 0 && len(c.pcm) >= c.maxBytes {
		c.once.Do(func() { close(c.full) })
	}
	return len(buffer), nil
}

func pcmDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / (SampleRate * bytesPerSample)
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

package indicator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/jfreymuth/pulse"

	"github.com/rbright/signcap/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const (
	synthRate = 16000
	toneGap   = 22 * time.Millisecond
	// maxCueLength bounds user cue files; longer files are cut.
	maxCueLength = 2 * time.Second
)

type tone struct {
	hz     float64
	length time.Duration
	gain   float64
}

// cue is one audible event: a user WAV file when configured and readable,
// otherwise a short synthesized chime.
type cue struct {
	file  func(config.IndicatorConfig) string
	chime []int16
}

var cues = map[cueKind]cue{
	// Rising: the countdown started.
	cueStart: {
		file:  func(c config.IndicatorConfig) string { return c.SoundStartFile },
		chime: renderChime(tone{660, 60 * time.Millisecond, 0.16}, tone{990, 80 * time.Millisecond, 0.16}),
	},
	cueStop: {
		file:  func(c config.IndicatorConfig) string { return c.SoundStopFile },
		chime: renderChime(tone{620, 120 * time.Millisecond, 0.18}),
	},
	cueComplete: {
		file:  func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
		chime: renderChime(tone{740, 65 * time.Millisecond, 0.18}, tone{988, 90 * time.Millisecond, 0.18}),
	},
	// Falling: the capture was thrown away.
	cueCancel: {
		file:  func(c config.IndicatorConfig) string { return c.SoundCancelFile },
		chime: renderChime(tone{480, 75 * time.Millisecond, 0.18}, tone{360, 90 * time.Millisecond, 0.18}),
	},
}

// emitCue plays the cue for kind through PulseAudio.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := cues[kind]
	if !ok {
		return nil
	}

	samples, rate := c.chime, synthRate
	var fileErr error
	if path := expandUserPath(c.file(cfg)); path != "" {
		pcm, fileRate, err := loadCueWAV(path)
		if err == nil {
			samples, rate = pcm, fileRate
		}
		fileErr = err
	}
	if len(samples) == 0 {
		return fileErr
	}
	return playPCM(samples, rate)
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}

// loadCueWAV decodes a PCM WAV file to mono s16, averaging channels.
func loadCueWAV(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open cue file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("cue file %q is not a PCM WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode cue file %q: %w", path, err)
	}
	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	if channels <= 0 || rate <= 0 || len(buf.Data) < channels {
		return nil, 0, errors.New("cue file has no audio")
	}

	frames := len(buf.Data) / channels
	if limit := int(maxCueLength.Seconds() * float64(rate)); frames > limit {
		frames = limit
	}
	out := make([]int16, frames)
	for i := range out {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += toS16(buf.Data[i*channels+ch], int(dec.BitDepth))
		}
		out[i] = int16(sum / channels)
	}
	return out, rate, nil
}

func toS16(v int, bitDepth int) int {
	switch bitDepth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

func playPCM(samples []int16, rate int) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("signcap"),
		pulse.ClientApplicationIconName("camera-video"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(rate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("signcap capture cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}

// renderChime renders tones back to back with a short silence between them.
func renderChime(tones ...tone) []int16 {
	gap := make([]int16, sampleCount(toneGap))
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, t.render()...)
	}
	return pcm
}

// render is a sine with a linear fade of at most 5ms at each end.
func (t tone) render() []int16 {
	n := sampleCount(t.length)
	if n <= 0 || t.hz <= 0 || t.gain <= 0 {
		return nil
	}
	fade := min(max(n/10, 1), synthRate/200)

	pcm := make([]int16, n)
	for i := range pcm {
		env := min(1.0, float64(i)/float64(fade), float64(n-1-i)/float64(fade))
		s := math.Sin(2 * math.Pi * t.hz * float64(i) / synthRate)
		pcm[i] = int16(math.Round(s * t.gain * env * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * synthRate))
}

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV wraps little-endian mono s16 PCM in a WAV container.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm)%bytesPerSample != 0 {
		pcm = pcm[:len(pcm)-1]
	}

	tmp, err := os.CreateTemp("", "signcap-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create wav buffer: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := writeWAV(tmp, pcm, sampleRate); err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind wav buffer: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("read wav buffer: %w", err)
	}
	return data, nil
}

func writeWAV(ws io.WriteSeeker, pcm []byte, sampleRate int) error {
	samples := make([]int, len(pcm)/bytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])))
	}

	enc := wav.NewEncoder(ws, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Format describes linear PCM samples.
type Format struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// BytesPerFrame is the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// Duration of n bytes of PCM in this format.
func (f Format) Duration(n int) time.Duration {
	bpf := f.BytesPerFrame()
	if bpf == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := n / bpf
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

const wavPCM = 1

// DecodeWAV parses a RIFF/WAVE clip and returns its PCM payload.
// Only uncompressed 8, 16 and 32 bit PCM is accepted.
func DecodeWAV(clip []byte) (Format, []byte, error) {
	if len(clip) < 12 || !bytes.Equal(clip[0:4], []byte("RIFF")) || !bytes.Equal(clip[8:12], []byte("WAVE")) {
		return Format{}, nil, fmt.Errorf("%w: not a RIFF/WAVE clip", ErrUnsupportedFormat)
	}

	var (
		format    Format
		haveFmt   bool
		pos       = 12
		le        = binary.LittleEndian
		audioType uint16
	)
	for pos+8 <= len(clip) {
		id := string(clip[pos : pos+4])
		size := int(le.Uint32(clip[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if size < 0 || end > len(clip) {
			// servers that stream WAV often leave the data size unset
			end = len(clip)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return Format{}, nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedFormat)
			}
			audioType = le.Uint16(clip[body:])
			format.Channels = le.Uint16(clip[body+2:])
			format.SampleRate = le.Uint32(clip[body+4:])
			format.BitsPerSample = le.Uint16(clip[body+14:])
			haveFmt = true
		case "data":
			if !haveFmt {
				return Format{}, nil, fmt.Errorf("%w: data before fmt", ErrUnsupportedFormat)
			}
			if audioType != wavPCM {
				return Format{}, nil, fmt.Errorf("%w: encoding %d", ErrUnsupportedFormat, audioType)
			}
			switch format.BitsPerSample {
			case 8, 16, 32:
			default:
				return Format{}, nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, format.BitsPerSample)
			}
			if format.Channels == 0 || format.SampleRate == 0 {
				return Format{}, nil, fmt.Errorf("%w: empty format", ErrUnsupportedFormat)
			}
			pcm := clip[body:end]
			if len(pcm) == 0 {
				return Format{}, nil, ErrNoAudio
			}
			return format, pcm, nil
		}

		// chunks are word aligned
		pos = end + size%2
	}
	return Format{}, nil, ErrNoAudio
}

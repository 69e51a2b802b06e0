package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func buildWAV(t *testing.T, format uint16, channels uint16, rate uint32, bits uint16, pcm []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("RIFF")
	binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, le, uint32(16))
	binary.Write(&buf, le, format)
	binary.Write(&buf, le, channels)
	binary.Write(&buf, le, rate)
	binary.Write(&buf, le, rate*uint32(channels)*uint32(bits/8))
	binary.Write(&buf, le, channels*bits/8)
	binary.Write(&buf, le, bits)
	buf.WriteString("data")
	binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	pcm := make([]byte, 48000*2) // one second of mono 16-bit at 48kHz
	clip := buildWAV(t, 1, 1, 48000, 16, pcm)

	f, data, err := DecodeWAV(clip)
	if err != nil {
		t.Fatalf("DecodeWAV() failed: %v", err)
	}
	if f.SampleRate != 48000 || f.Channels != 1 || f.BitsPerSample != 16 {
		t.Errorf("format = %+v", f)
	}
	if len(data) != len(pcm) {
		t.Errorf("pcm length = %d", len(data))
	}
	if f.Duration(len(data)) != time.Second {
		t.Errorf("duration = %v", f.Duration(len(data)))
	}
}

func TestDecodeWAV_SkipsUnknownChunks(t *testing.T) {
	clip := buildWAV(t, 1, 2, 22050, 16, []byte{1, 2, 3, 4})
	// splice a LIST chunk between fmt and data
	list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
	at := 12 + 8 + 16
	spliced := append(append(append([]byte{}, clip[:at]...), list...), clip[at:]...)

	_, data, err := DecodeWAV(spliced)
	if err != nil {
		t.Fatalf("DecodeWAV() failed: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Errorf("data = %v", data)
	}
}

func TestDecodeWAV_Errors(t *testing.T) {
	tests := []struct {
		name string
		clip []byte
		want error
	}{
		{"not riff", []byte("ID3 mp3 data here"), ErrUnsupportedFormat},
		{"float encoding", buildWAV(t, 3, 1, 16000, 32, []byte{0, 0, 0, 0}), ErrUnsupportedFormat},
		{"24 bit", buildWAV(t, 1, 1, 16000, 24, []byte{0, 0, 0}), ErrUnsupportedFormat},
		{"empty data", buildWAV(t, 1, 1, 16000, 16, nil), ErrNoAudio},
		{"header only", []byte("RIFF\x04\x00\x00\x00WAVE"), ErrNoAudio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeWAV(tt.clip)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

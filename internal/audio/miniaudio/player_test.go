package miniaudio

import (
	"errors"
	"testing"
	"time"

	"github.com/gen2brain/malgo"

	"aidebate/internal/audio"
)

func TestSampleFormat(t *testing.T) {
	tests := []struct {
		bits uint16
		want malgo.FormatType
		err  bool
	}{
		{8, malgo.FormatU8, false},
		{16, malgo.FormatS16, false},
		{32, malgo.FormatS32, false},
		{24, malgo.FormatUnknown, true},
	}
	for _, tt := range tests {
		got, err := sampleFormat(tt.bits)
		if (err != nil) != tt.err {
			t.Errorf("sampleFormat(%d) err = %v", tt.bits, err)
		}
		if tt.err && !errors.Is(err, audio.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
		if got != tt.want {
			t.Errorf("sampleFormat(%d) = %v, want %v", tt.bits, got, tt.want)
		}
	}
}

func TestPlayback_FillDrainsAndSignalsEnd(t *testing.T) {
	ended := make(chan error, 1)
	b := &playback{
		format: audio.Format{SampleRate: 4, Channels: 1, BitsPerSample: 16},
		pcm:    []byte{1, 2, 3, 4, 5, 6},
		onEnd:  func(err error) { ended <- err },
	}

	out := make([]byte, 4)
	b.fill(out, nil, 2)
	if string(out) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("first period = %v", out)
	}
	if b.Position() != 500*time.Millisecond {
		t.Errorf("position = %v", b.Position())
	}

	b.fill(out, nil, 2)
	if string(out) != string([]byte{5, 6, 0, 0}) {
		t.Errorf("second period should pad with silence: %v", out)
	}

	select {
	case err := <-ended:
		if err != nil {
			t.Errorf("onEnd err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("onEnd not called")
	}

	b.fill(out, nil, 2)
	select {
	case <-ended:
		t.Error("onEnd must fire once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSilenceByte(t *testing.T) {
	if silence(malgo.FormatU8) != 0x80 {
		t.Error("u8 silence should be 0x80")
	}
	if silence(malgo.FormatS16) != 0 {
		t.Error("s16 silence should be 0")
	}
}

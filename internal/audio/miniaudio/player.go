// Package miniaudio plays synthesized speech through the system output
// device using miniaudio.
package miniaudio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"aidebate/internal/audio"
)

// Player owns the miniaudio context. Each clip gets its own device so that
// the device format always matches the clip.
type Player struct {
	audioContext *malgo.AllocatedContext
	logger       *slog.Logger
}

func NewPlayer(logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}
	return &Player{audioContext: audioCtx, logger: logger}, nil
}

func (p *Player) Close() error {
	if p.audioContext == nil {
		return nil
	}
	if err := p.audioContext.Uninit(); err != nil {
		return err
	}
	p.audioContext.Free()
	p.audioContext = nil
	return nil
}

func sampleFormat(bits uint16) (malgo.FormatType, error) {
	switch bits {
	case 8:
		return malgo.FormatU8, nil
	case 16:
		return malgo.FormatS16, nil
	case 32:
		return malgo.FormatS32, nil
	}
	return malgo.FormatUnknown, fmt.Errorf("%w: %d bits per sample", audio.ErrUnsupportedFormat, bits)
}

// Open decodes a WAV clip and prepares a stopped playback device for it.
func (p *Player) Open(clip []byte, onEnd func(error)) (audio.Playback, error) {
	format, pcm, err := audio.DecodeWAV(clip)
	if err != nil {
		return nil, err
	}
	sf, err := sampleFormat(format.BitsPerSample)
	if err != nil {
		return nil, err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = format.SampleRate
	cfg.Playback.Format = sf
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.Alsa.NoMMap = 1

	pb := &playback{
		format: format,
		pcm:    pcm,
		onEnd:  onEnd,
		silent: silence(sf),
	}
	device, err := malgo.InitDevice(p.audioContext.Context, cfg, malgo.DeviceCallbacks{Data: pb.fill})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	pb.device = device
	return pb, nil
}

func silence(f malgo.FormatType) byte {
	// unsigned 8-bit PCM is centred on 128
	if f == malgo.FormatU8 {
		return 0x80
	}
	return 0
}

type playback struct {
	device *malgo.Device
	format audio.Format
	silent byte
	onEnd  func(error)

	mu     sync.Mutex
	pcm    []byte
	offset int
	done   bool

	closeOnce sync.Once
}

func (b *playback) fill(out, _ []byte, frameCount uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	if !b.done {
		n = copy(out, b.pcm[b.offset:])
		b.offset += n
	}
	for i := n; i < len(out); i++ {
		out[i] = b.silent
	}

	if !b.done && b.offset >= len(b.pcm) {
		b.done = true
		// never call back into the device from its own callback
		go b.onEnd(nil)
	}
}

func (b *playback) Play() error {
	if err := b.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (b *playback) Pause() error {
	if err := b.device.Stop(); err != nil {
		return fmt.Errorf("failed to pause playback device: %w", err)
	}
	return nil
}

func (b *playback) Resume() error {
	return b.Play()
}

func (b *playback) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format.Duration(b.offset)
}

func (b *playback) Close() error {
	b.closeOnce.Do(func() {
		b.device.Uninit()
		b.mu.Lock()
		b.pcm = nil
		b.offset = 0
		b.done = true
		b.mu.Unlock()
	})
	return nil
}

package audiolevel

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"capture-bridge/internal/domain"
)

func samples(values ...int32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v)&0x00FF_FFFF)
	}
	return buf
}

func TestProcess_silenceFloor(t *testing.T) {
	p := New()
	buffers := [][]byte{make([]byte, 64), make([]byte, 64)}
	frame, err := p.Process(buffers, domain.AudioDescription{SampleRate: 48000, ChannelsPerFrame: 2, BitsPerChannel: 32})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if frame.Channels != 2 {
		t.Fatalf("channels = %d, want 2", frame.Channels)
	}
	for i, l := range frame.LevelVector() {
		if l != SilenceFloor {
			t.Errorf("channel %d level = %v, want %v", i, l, SilenceFloor)
		}
	}
}

func TestProcess_averageAmplitude(t *testing.T) {
	p := New()
	half := int32(1 << 22) // 0.5 of full scale
	frame, err := p.Process([][]byte{samples(half, half, half, half)}, domain.AudioDescription{})
	if err != nil {
		t.Fatal(err)
	}
	want := float32(20 * math.Log10(0.5))
	if d := frame.Levels[0] - want; d > 1e-4 || d < -1e-4 {
		t.Errorf("level = %v, want %v", frame.Levels[0], want)
	}
}

func TestProcess_negativeAverageIsFloor(t *testing.T) {
	p := New()
	frame, err := p.Process([][]byte{samples(-(1 << 22), -(1 << 21))}, domain.AudioDescription{})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Levels[0] != SilenceFloor {
		t.Errorf("level = %v, want floor", frame.Levels[0])
	}
	wantPeak := float32(20 * math.Log10(0.5))
	if d := frame.Peaks[0] - wantPeak; d > 1e-4 || d < -1e-4 {
		t.Errorf("peak = %v, want %v", frame.Peaks[0], wantPeak)
	}
}

func TestProcess_signExtension(t *testing.T) {
	if got := amplitude(0x00FF_FFFF); got != -1.0/float32(1<<23) {
		t.Errorf("amplitude(0xFFFFFF) = %v", got)
	}
	if got := amplitude(0xAB80_0000); got != -1 {
		t.Errorf("amplitude ignores upper byte: got %v, want -1", got)
	}
	if got := amplitude(0x007F_FFFF); got <= 0.99 {
		t.Errorf("amplitude(max) = %v", got)
	}
}

func TestProcess_channelCountExceededReportedOnce(t *testing.T) {
	p := New()
	buffers := make([][]byte, domain.MaxPlanes+3)
	for i := range buffers {
		buffers[i] = make([]byte, 8)
	}

	frame, err := p.Process(buffers, domain.AudioDescription{})
	if !errors.Is(err, domain.ErrChannelCountExceeded) {
		t.Fatalf("first Process err = %v, want ErrChannelCountExceeded", err)
	}
	if frame.Channels != domain.MaxPlanes {
		t.Errorf("channels = %d, want %d", frame.Channels, domain.MaxPlanes)
	}

	for i := 0; i < 3; i++ {
		frame, err = p.Process(buffers, domain.AudioDescription{})
		if err != nil {
			t.Fatalf("Process #%d err = %v, want nil", i+2, err)
		}
		if frame.Channels != domain.MaxPlanes {
			t.Errorf("channels = %d, want %d", frame.Channels, domain.MaxPlanes)
		}
	}
}

func TestProcess_bufferFormatError(t *testing.T) {
	p := New()
	_, err := p.Process([][]byte{make([]byte, 6)}, domain.AudioDescription{})
	if !errors.Is(err, domain.ErrBufferFormat) {
		t.Errorf("err = %v, want ErrBufferFormat", err)
	}
}

func TestProcess_emptyBufferIsFloor(t *testing.T) {
	p := New()
	frame, err := p.Process([][]byte{{}}, domain.AudioDescription{})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Levels[0] != SilenceFloor {
		t.Errorf("level = %v, want floor", frame.Levels[0])
	}
}

func TestFormatFromFlags(t *testing.T) {
	tests := []struct {
		flags, bits uint32
		want        domain.AudioFormat
	}{
		{FlagIsFloat | FlagIsPacked, 32, domain.AudioFormatFloat},
		{FlagIsFloat | FlagIsNonInterleaved, 32, domain.AudioFormatFloatPlanar},
		{0, 8, domain.AudioFormatU8},
		{FlagIsNonInterleaved, 8, domain.AudioFormatU8Planar},
		{0, 16, domain.AudioFormatUnknown},
		{FlagIsSignedInteger, 16, domain.AudioFormatS16},
		{FlagIsSignedInteger | FlagIsNonInterleaved, 16, domain.AudioFormatS16Planar},
		{FlagIsSignedInteger, 32, domain.AudioFormatS32},
		{FlagIsSignedInteger | FlagIsNonInterleaved, 32, domain.AudioFormatS32Planar},
		{FlagIsSignedInteger, 24, domain.AudioFormatUnknown},
	}
	for _, tt := range tests {
		if got := FormatFromFlags(tt.flags, tt.bits); got != tt.want {
			t.Errorf("FormatFromFlags(%#x, %d) = %s, want %s", tt.flags, tt.bits, got, tt.want)
		}
	}
}

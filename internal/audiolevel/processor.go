// Package audiolevel reduces raw capture buffers to per-channel level metrics.
package audiolevel

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"capture-bridge/internal/domain"
)

// SilenceFloor is the level reported for channels without positive amplitude.
const SilenceFloor float32 = -60.0

const (
	sampleBytes = 4
	signBit     = 0x0080_0000
	low24Mask   = 0x00FF_FFFF
	fullScale   = float32(1 << 23)
)

// Format flags as carried by AudioDescription.FormatFlags.
const (
	FlagIsFloat          uint32 = 1 << 0
	FlagIsBigEndian      uint32 = 1 << 1
	FlagIsSignedInteger  uint32 = 1 << 2
	FlagIsPacked         uint32 = 1 << 3
	FlagIsNonInterleaved uint32 = 1 << 5
)

// FormatFromFlags maps stream format flags and bit depth to an AudioFormat.
func FormatFromFlags(flags, bits uint32) domain.AudioFormat {
	planar := flags&FlagIsNonInterleaved != 0

	if flags&FlagIsFloat != 0 {
		if planar {
			return domain.AudioFormatFloatPlanar
		}
		return domain.AudioFormatFloat
	}
	if flags&FlagIsSignedInteger == 0 {
		if bits == 8 {
			if planar {
				return domain.AudioFormatU8Planar
			}
			return domain.AudioFormatU8
		}
		return domain.AudioFormatUnknown
	}

	switch bits {
	case 16:
		if planar {
			return domain.AudioFormatS16Planar
		}
		return domain.AudioFormatS16
	case 32:
		if planar {
			return domain.AudioFormatS32Planar
		}
		return domain.AudioFormatS32
	}
	return domain.AudioFormatUnknown
}

// Processor computes level vectors for one session. It remembers whether the
// channel count overflow was already reported.
type Processor struct {
	channelCountReported atomic.Bool
}

// New returns a Processor.
func New() *Processor {
	return &Processor{}
}

// Process reduces one buffer list to an AudioFrame. Each buffer is one channel
// of 24-bit samples in 32-bit little-endian containers.
//
// Buffers beyond domain.MaxPlanes are dropped. The first truncation returns the
// frame together with domain.ErrChannelCountExceeded; later truncations return
// a nil error. A buffer that is not a whole number of samples fails with
// domain.ErrBufferFormat.
func (p *Processor) Process(buffers [][]byte, desc domain.AudioDescription) (domain.AudioFrame, error) {
	frame := domain.AudioFrame{
		SampleRate:       desc.SampleRate,
		ChannelsPerFrame: desc.ChannelsPerFrame,
		BitsPerChannel:   desc.BitsPerChannel,
		Format:           FormatFromFlags(desc.FormatFlags, desc.BitsPerChannel),
	}

	n := len(buffers)
	var overflow error
	if n > domain.MaxPlanes {
		if p.channelCountReported.CompareAndSwap(false, true) {
			overflow = fmt.Errorf("%w: %d buffers, max %d", domain.ErrChannelCountExceeded, n, domain.MaxPlanes)
		}
		n = domain.MaxPlanes
	}

	for i := 0; i < n; i++ {
		if len(buffers[i])%sampleBytes != 0 {
			return domain.AudioFrame{}, fmt.Errorf("%w: channel %d has %d bytes", domain.ErrBufferFormat, i, len(buffers[i]))
		}
		avg, peak := reduce(buffers[i])
		frame.Levels[i] = ToDecibels(avg)
		frame.Peaks[i] = ToDecibels(peak)
	}
	frame.Channels = n

	return frame, overflow
}

// ToDecibels converts a linear amplitude, clamping non-positive values to the
// silence floor.
func ToDecibels(v float32) float32 {
	if v > 0 {
		return float32(20 * math.Log10(float64(v)))
	}
	return SilenceFloor
}

// reduce returns the average signed amplitude and the peak absolute amplitude.
func reduce(buf []byte) (avg, peak float32) {
	count := len(buf) / sampleBytes
	if count == 0 {
		return 0, 0
	}

	var sum float32
	for i := 0; i < count; i++ {
		a := amplitude(binary.LittleEndian.Uint32(buf[i*sampleBytes:]))
		sum += a
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	return sum / float32(count), peak
}

func amplitude(sample uint32) float32 {
	v := int32(sample & low24Mask)
	if v&signBit != 0 {
		v -= 1 << 24
	}
	return float32(v) / fullScale
}

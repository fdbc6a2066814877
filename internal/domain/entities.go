package domain

import "sync/atomic"

// MaxPlanes is the maximum number of video planes or audio channels carried by a frame.
const MaxPlanes = 10

// MediaKind selects the family of input devices.
type MediaKind int

const (
	MediaKindVideo MediaKind = iota + 1
	MediaKindAudio
)

// String returns the wire name of the kind ("video" or "audio").
func (k MediaKind) String() string {
	switch k {
	case MediaKindVideo:
		return "video"
	case MediaKindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ParseMediaKind maps a wire name back to a MediaKind.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch s {
	case "video":
		return MediaKindVideo, true
	case "audio":
		return MediaKindAudio, true
	default:
		return 0, false
	}
}

// MediaType is the media carried by an opened input.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeMuxed
)

// Device is an input device reported by discovery.
type Device struct {
	UniqueID    string    // Stable device identifier
	DisplayName string    // Human readable name
	Kind        MediaKind // Video or audio
}

// ColorSpace is the YCbCr matrix standard of a video stream.
type ColorSpace int

const (
	ColorSpaceDefault ColorSpace = iota
	ColorSpaceBT601
	ColorSpaceBT709
	ColorSpaceRGB
	ColorSpacePQ
	ColorSpaceHLG
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceDefault:
		return "default"
	case ColorSpaceBT601:
		return "bt601"
	case ColorSpaceBT709:
		return "bt709"
	case ColorSpaceRGB:
		return "rgb"
	case ColorSpacePQ:
		return "pq"
	case ColorSpaceHLG:
		return "hlg"
	default:
		return "invalid"
	}
}

// VideoRange is the numeric range of luma and chroma values.
type VideoRange int

const (
	VideoRangeDefault VideoRange = iota
	VideoRangePartial
	VideoRangeFull
)

func (r VideoRange) String() string {
	switch r {
	case VideoRangeDefault:
		return "default"
	case VideoRangePartial:
		return "partial"
	case VideoRangeFull:
		return "full"
	default:
		return "invalid"
	}
}

// VideoInfo is the negotiated colorspace/range state of a session.
type VideoInfo struct {
	ColorSpace ColorSpace
	Range      VideoRange
	IsValid    bool
}

// CaptureInfo holds the configuration and negotiated state of one session.
type CaptureInfo struct {
	UseAudio       bool
	UseVideo       bool
	IsFastPath     bool
	DeviceUniqueID string
	VideoInfo      VideoInfo
	LastError      error
}

// Plane is one plane of pixel data.
type Plane struct {
	Data     []byte
	LineSize int
}

// VideoFrame is the decoded unit handed to a frame sink.
//
// Plane buffers on the conversion path are allocated per frame and lent to the
// sink only for the duration of the callback. On the fast path Surface points at
// the hardware surface held by the session; the sink must not release it.
type VideoFrame struct {
	TimestampNanos uint64
	Width          uint32
	Height         uint32
	Format         VideoFormat
	Planes         [MaxPlanes]Plane
	ColorMatrix    [16]float32
	RangeMin       [3]float32
	RangeMax       [3]float32
	FullRange      bool
	Surface        *Surface
}

// AudioFormat is the sample layout of an audio buffer.
type AudioFormat int

const (
	AudioFormatUnknown AudioFormat = iota
	AudioFormatFloat
	AudioFormatFloatPlanar
	AudioFormatU8
	AudioFormatU8Planar
	AudioFormatS16
	AudioFormatS16Planar
	AudioFormatS32
	AudioFormatS32Planar
)

func (f AudioFormat) String() string {
	switch f {
	case AudioFormatFloat:
		return "float"
	case AudioFormatFloatPlanar:
		return "float_planar"
	case AudioFormatU8:
		return "u8"
	case AudioFormatU8Planar:
		return "u8_planar"
	case AudioFormatS16:
		return "s16"
	case AudioFormatS16Planar:
		return "s16_planar"
	case AudioFormatS32:
		return "s32"
	case AudioFormatS32Planar:
		return "s32_planar"
	default:
		return "unknown"
	}
}

// AudioFrame carries the level metrics computed from one audio buffer.
type AudioFrame struct {
	SampleRate       float64
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
	Format           AudioFormat
	TimestampNanos   uint64
	Channels         int // Number of valid entries in Levels and Peaks
	Levels           [MaxPlanes]float32
	Peaks            [MaxPlanes]float32
}

// LevelVector returns the valid per-channel levels.
func (f AudioFrame) LevelVector() []float32 {
	out := make([]float32, f.Channels)
	copy(out, f.Levels[:f.Channels])
	return out
}

// PeakVector returns the valid per-channel peaks.
func (f AudioFrame) PeakVector() []float32 {
	out := make([]float32, f.Channels)
	copy(out, f.Peaks[:f.Channels])
	return out
}

// FormatDescription carries the colour extensions attached to a video sample.
type FormatDescription struct {
	YCbCrMatrix      string
	TransferFunction string
}

// YCbCr matrix and transfer function names used in FormatDescription.
const (
	YCbCrMatrixITU601  = "ITU_R_601_4"
	YCbCrMatrixITU709  = "ITU_R_709_2"
	YCbCrMatrixITU2020 = "ITU_R_2020"

	TransferFunctionPQ  = "SMPTE_ST_2084_PQ"
	TransferFunctionHLG = "ITU_R_2100_HLG"
)

// ColorSpaceFromDescription derives the colorspace announced by a sample.
func ColorSpaceFromDescription(d FormatDescription) ColorSpace {
	switch d.YCbCrMatrix {
	case YCbCrMatrixITU601:
		return ColorSpaceBT601
	case YCbCrMatrixITU709:
		return ColorSpaceBT709
	case YCbCrMatrixITU2020:
		switch d.TransferFunction {
		case TransferFunctionPQ:
			return ColorSpacePQ
		case TransferFunctionHLG:
			return ColorSpaceHLG
		}
	}
	return ColorSpaceDefault
}

// VideoSample is a raw video buffer produced by a capture input.
type VideoSample struct {
	TimestampNanos uint64
	Width          int
	Height         int
	Subtype        FourCC
	Description    FormatDescription
	Planes         []Plane
	Surface        *Surface // Set when the input produced a hardware surface
}

// AudioDescription is the stream description attached to an audio sample.
type AudioDescription struct {
	SampleRate       float64
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
	FormatFlags      uint32
}

// AudioSample is a raw audio buffer list produced by a capture input.
// Each entry of Buffers holds one channel.
type AudioSample struct {
	TimestampNanos uint64
	Description    AudioDescription
	Buffers        [][]byte
}

// Surface is a reference counted hardware surface.
type Surface struct {
	ID       uint64
	Width    int
	Height   int
	Subtype  FourCC
	Data     []byte
	LineSize int

	useCount atomic.Int32
}

// IncrementUseCount marks the surface as in use by one more holder.
func (s *Surface) IncrementUseCount() int32 {
	return s.useCount.Add(1)
}

// DecrementUseCount releases one holder. It panics on underflow.
func (s *Surface) DecrementUseCount() int32 {
	n := s.useCount.Add(-1)
	if n < 0 {
		panic("domain: surface use count underflow")
	}
	return n
}

// UseCount returns the current number of holders.
func (s *Surface) UseCount() int32 {
	return s.useCount.Load()
}

package domain

import "fmt"

// FourCC is a native four character pixel format code.
type FourCC uint32

// Native pixel subtypes understood by the bridge.
const (
	SubtypeNone             FourCC = 0
	SubtypeARGB32           FourCC = 0x00000020
	SubtypeUYVY422          FourCC = '2'<<24 | 'v'<<16 | 'u'<<8 | 'y'
	SubtypeYUVS422          FourCC = 'y'<<24 | 'u'<<16 | 'v'<<8 | 's'
	SubtypeYUVF422          FourCC = 'y'<<24 | 'u'<<16 | 'v'<<8 | 'f'
	SubtypeBGRA32           FourCC = 'B'<<24 | 'G'<<16 | 'R'<<8 | 'A'
	Subtype420BiPlanarVideo FourCC = '4'<<24 | '2'<<16 | '0'<<8 | 'v'
	Subtype420BiPlanarFull  FourCC = '4'<<24 | '2'<<16 | '0'<<8 | 'f'
	Subtype420PlanarFull    FourCC = 'f'<<24 | '4'<<16 | '2'<<8 | '0'
	Subtype420TenVideo      FourCC = 'x'<<24 | '4'<<16 | '2'<<8 | '0'
	Subtype420TenFull       FourCC = 'x'<<24 | 'f'<<16 | '2'<<8 | '0'
	SubtypeARGB2101010      FourCC = 'l'<<24 | '1'<<16 | '0'<<8 | 'r'
)

// String renders printable codes as their four characters.
func (c FourCC) String() string {
	b := []byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(c))
		}
	}
	return string(b)
}

// VideoFormat is the internal pixel format of a frame.
type VideoFormat int

const (
	VideoFormatNone VideoFormat = iota
	VideoFormatI420
	VideoFormatNV12
	VideoFormatYVYU
	VideoFormatYUY2
	VideoFormatUYVY
	VideoFormatRGBA
	VideoFormatBGRA
	VideoFormatBGRX
	VideoFormatY800
	VideoFormatI444
	VideoFormatBGR3
	VideoFormatI422
	VideoFormatI40A
	VideoFormatI42A
	VideoFormatYUVA
	VideoFormatAYUV
	VideoFormatI010
	VideoFormatP010
	VideoFormatI210
	VideoFormatI412
	VideoFormatYA2L
	VideoFormatP216
	VideoFormatP416
	VideoFormatV210
	VideoFormatR10L
)

var videoFormatNames = map[VideoFormat]string{
	VideoFormatNone: "none",
	VideoFormatI420: "i420",
	VideoFormatNV12: "nv12",
	VideoFormatYVYU: "yvyu",
	VideoFormatYUY2: "yuy2",
	VideoFormatUYVY: "uyvy",
	VideoFormatRGBA: "rgba",
	VideoFormatBGRA: "bgra",
	VideoFormatBGRX: "bgrx",
	VideoFormatY800: "y800",
	VideoFormatI444: "i444",
	VideoFormatBGR3: "bgr3",
	VideoFormatI422: "i422",
	VideoFormatI40A: "i40a",
	VideoFormatI42A: "i42a",
	VideoFormatYUVA: "yuva",
	VideoFormatAYUV: "ayuv",
	VideoFormatI010: "i010",
	VideoFormatP010: "p010",
	VideoFormatI210: "i210",
	VideoFormatI412: "i412",
	VideoFormatYA2L: "ya2l",
	VideoFormatP216: "p216",
	VideoFormatP416: "p416",
	VideoFormatV210: "v210",
	VideoFormatR10L: "r10l",
}

func (f VideoFormat) String() string {
	if s, ok := videoFormatNames[f]; ok {
		return s
	}
	return "invalid"
}

// Classify maps a native subtype to its VideoFormat. Unknown subtypes map to
// VideoFormatNone.
func Classify(subtype FourCC) VideoFormat {
	switch subtype {
	case SubtypeUYVY422:
		return VideoFormatUYVY
	case SubtypeYUVS422:
		return VideoFormatYUY2
	case SubtypeBGRA32:
		return VideoFormatBGRA
	case Subtype420BiPlanarVideo, Subtype420BiPlanarFull:
		return VideoFormatNV12
	case Subtype420TenVideo, Subtype420TenFull:
		return VideoFormatP010
	default:
		return VideoFormatNone
	}
}

// IsYUV reports whether the format stores luma/chroma rather than RGB.
func IsYUV(f VideoFormat) bool {
	switch f {
	case VideoFormatI420, VideoFormatNV12, VideoFormatI422, VideoFormatI210,
		VideoFormatYVYU, VideoFormatYUY2, VideoFormatUYVY, VideoFormatI444,
		VideoFormatI412, VideoFormatI40A, VideoFormatI42A, VideoFormatYUVA,
		VideoFormatYA2L, VideoFormatAYUV, VideoFormatI010, VideoFormatP010,
		VideoFormatP216, VideoFormatP416, VideoFormatV210:
		return true
	default:
		return false
	}
}

// IsFullRangeFormat reports whether the subtype carries full range samples.
func IsFullRangeFormat(subtype FourCC) bool {
	switch subtype {
	case Subtype420PlanarFull, Subtype420BiPlanarFull, Subtype420TenFull, SubtypeYUVF422:
		return true
	default:
		return false
	}
}

// BitsPerComponent returns the component depth used to pick a conversion matrix.
func BitsPerComponent(f VideoFormat) uint32 {
	switch f {
	case VideoFormatI010, VideoFormatP010, VideoFormatI210, VideoFormatV210, VideoFormatR10L:
		return 10
	case VideoFormatI412, VideoFormatYA2L:
		return 12
	case VideoFormatP216, VideoFormatP416:
		return 16
	default:
		return 8
	}
}

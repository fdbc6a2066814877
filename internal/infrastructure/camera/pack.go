package camera

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/wave"
	xdraw "golang.org/x/image/draw"

	"capture-bridge/internal/audiolevel"
	"capture-bridge/internal/domain"
)

const (
	uyvyBytesPerPixel = 2
	bgraBytesPerPixel = 4
	sampleBytes       = 4
	int24Max          = 1<<23 - 1
)

// subtypeForFormat reports the subtype the input delivers for a driver frame
// format before any override. Compressed formats report SubtypeNone.
func subtypeForFormat(f frame.Format) domain.FourCC {
	switch f {
	case frame.FormatUYVY, frame.FormatYUY2, frame.FormatNV12, frame.FormatI420:
		return domain.SubtypeUYVY422
	case frame.FormatRGBA:
		return domain.SubtypeBGRA32
	default:
		return domain.SubtypeNone
	}
}

// videoSample repacks a decoded image into the requested output subtype.
// An unset output falls back to UYVY.
func videoSample(img image.Image, output domain.FourCC, surfaceID uint64, ts uint64) (domain.VideoSample, bool) {
	b := img.Bounds()
	if b.Empty() {
		return domain.VideoSample{}, false
	}
	sample := domain.VideoSample{
		TimestampNanos: ts,
		Width:          b.Dx(),
		Height:         b.Dy(),
		Description:    domain.FormatDescription{YCbCrMatrix: domain.YCbCrMatrixITU601},
	}

	switch output {
	case domain.SubtypeBGRA32:
		data, lineSize := packBGRA(img)
		sample.Subtype = domain.SubtypeBGRA32
		sample.Description = domain.FormatDescription{}
		sample.Planes = []domain.Plane{{Data: data, LineSize: lineSize}}
		sample.Surface = &domain.Surface{
			ID:       surfaceID,
			Width:    sample.Width,
			Height:   sample.Height,
			Subtype:  domain.SubtypeBGRA32,
			Data:     data,
			LineSize: lineSize,
		}
	default:
		data, lineSize := packUYVY(img)
		sample.Subtype = domain.SubtypeUYVY422
		sample.Planes = []domain.Plane{{Data: data, LineSize: lineSize}}
	}
	return sample, true
}

// packUYVY writes Cb Y0 Cr Y1 per horizontal pixel pair. Chroma is taken from
// the left pixel of each pair.
func packUYVY(img image.Image) ([]byte, int) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	pairs := (width + 1) / 2
	lineSize := pairs * 2 * uyvyBytesPerPixel
	out := make([]byte, lineSize*height)

	ycc, isYCbCr := img.(*image.YCbCr)
	for row := 0; row < height; row++ {
		y := b.Min.Y + row
		line := out[row*lineSize:]
		for p := 0; p < pairs; p++ {
			x0 := b.Min.X + 2*p
			x1 := x0 + 1
			if x1 >= b.Max.X {
				x1 = x0
			}

			var y0, y1, cb, cr uint8
			if isYCbCr {
				y0 = ycc.Y[ycc.YOffset(x0, y)]
				y1 = ycc.Y[ycc.YOffset(x1, y)]
				ci := ycc.COffset(x0, y)
				cb, cr = ycc.Cb[ci], ycc.Cr[ci]
			} else {
				y0, cb, cr = toYCbCr(img.At(x0, y))
				y1, _, _ = toYCbCr(img.At(x1, y))
			}

			i := p * 4
			line[i] = cb
			line[i+1] = y0
			line[i+2] = cr
			line[i+3] = y1
		}
	}
	return out, lineSize
}

func toYCbCr(c color.Color) (y, cb, cr uint8) {
	r, g, b, _ := c.RGBA()
	return color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// packBGRA renders img as tightly packed BGRA.
func packBGRA(img image.Image) ([]byte, int) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*bgraBytesPerPixel || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Copy(rgba, image.Point{}, img, b, xdraw.Src, nil)
	}

	lineSize := b.Dx() * bgraBytesPerPixel
	out := make([]byte, lineSize*b.Dy())
	for i := 0; i+3 < len(out) && i+3 < len(rgba.Pix); i += 4 {
		out[i] = rgba.Pix[i+2]
		out[i+1] = rgba.Pix[i+1]
		out[i+2] = rgba.Pix[i]
		out[i+3] = rgba.Pix[i+3]
	}
	return out, lineSize
}

// audioSample splits a chunk into one buffer per channel holding 24-bit
// samples in 32-bit little-endian containers.
func audioSample(chunk wave.Audio, ts uint64) (domain.AudioSample, bool) {
	info := chunk.ChunkInfo()
	if info.Channels <= 0 {
		return domain.AudioSample{}, false
	}

	buffers := make([][]byte, info.Channels)
	for ch := range buffers {
		buffers[ch] = make([]byte, info.Len*sampleBytes)
	}

	switch c := chunk.(type) {
	case *wave.Int16Interleaved:
		for i := 0; i < info.Len; i++ {
			for ch := 0; ch < info.Channels; ch++ {
				put24(buffers[ch], i, int32(c.Data[i*info.Channels+ch])<<8)
			}
		}
	case *wave.Int16NonInterleaved:
		for ch := 0; ch < info.Channels && ch < len(c.Data); ch++ {
			for i, v := range c.Data[ch] {
				if i < info.Len {
					put24(buffers[ch], i, int32(v)<<8)
				}
			}
		}
	case *wave.Float32Interleaved:
		for i := 0; i < info.Len; i++ {
			for ch := 0; ch < info.Channels; ch++ {
				put24(buffers[ch], i, floatTo24(c.Data[i*info.Channels+ch]))
			}
		}
	case *wave.Float32NonInterleaved:
		for ch := 0; ch < info.Channels && ch < len(c.Data); ch++ {
			for i, v := range c.Data[ch] {
				if i < info.Len {
					put24(buffers[ch], i, floatTo24(v))
				}
			}
		}
	default:
		return domain.AudioSample{}, false
	}

	return domain.AudioSample{
		TimestampNanos: ts,
		Description: domain.AudioDescription{
			SampleRate:       float64(info.SamplingRate),
			ChannelsPerFrame: uint32(info.Channels),
			BitsPerChannel:   32,
			FormatFlags:      audiolevel.FlagIsSignedInteger | audiolevel.FlagIsNonInterleaved,
		},
		Buffers: buffers,
	}, true
}

func put24(buf []byte, i int, v int32) {
	binary.LittleEndian.PutUint32(buf[i*sampleBytes:], uint32(v))
}

func floatTo24(f float32) int32 {
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int32(f * int24Max)
}

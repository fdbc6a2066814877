package conversion

import (
	"fmt"

	"capture-bridge/internal/domain"
)

// BytesPerPixel is the size of one converted BGRA pixel.
const BytesPerPixel = 4

// permuteMap reorders ARGB into BGRA byte order.
var permuteMap = [4]int{3, 2, 1, 0}

// Convert turns a packed 4:2:2 '2vuy' buffer (Cb Y0 Cr Y1) into a newly
// allocated width*height*4 BGRA buffer with opaque alpha. Any other subtype
// fails with domain.ErrUnsupportedPixelFormat.
func Convert(src []byte, width, height, lineSize int, subtype domain.FourCC, m Matrix) ([]byte, error) {
	if subtype != domain.SubtypeUYVY422 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPixelFormat, subtype)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", domain.ErrInvalidParameters, width, height)
	}

	pairs := (width + 1) / 2
	if lineSize < pairs*4 {
		return nil, fmt.Errorf("%w: line size %d too small for width %d", domain.ErrBufferFormat, lineSize, width)
	}
	if len(src) < lineSize*(height-1)+pairs*4 {
		return nil, fmt.Errorf("%w: buffer %d bytes too small for %dx%d", domain.ErrBufferFormat, len(src), width, height)
	}

	dst := make([]byte, width*height*BytesPerPixel)
	var argb [4]byte
	argb[0] = 255

	for row := 0; row < height; row++ {
		in := src[row*lineSize:]
		out := dst[row*width*BytesPerPixel:]

		for p := 0; p < pairs; p++ {
			cb := float32(in[p*4]) / 255
			cr := float32(in[p*4+2]) / 255

			for k := 0; k < 2; k++ {
				x := p*2 + k
				if x >= width {
					break
				}
				y := float32(in[p*4+1+k*2]) / 255
				r, g, b := m.Apply(y, cb, cr)
				argb[1], argb[2], argb[3] = toByte(r), toByte(g), toByte(b)

				px := out[x*BytesPerPixel : x*BytesPerPixel+4]
				for i, from := range permuteMap {
					px[i] = argb[from]
				}
			}
		}
	}

	return dst, nil
}

func toByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}

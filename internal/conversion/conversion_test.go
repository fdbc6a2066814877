package conversion

import (
	"errors"
	"testing"

	"capture-bridge/internal/domain"
)

func TestBuildConversion_deterministic(t *testing.T) {
	spaces := []domain.ColorSpace{
		domain.ColorSpaceDefault, domain.ColorSpaceBT601, domain.ColorSpaceBT709,
		domain.ColorSpaceRGB, domain.ColorSpacePQ, domain.ColorSpaceHLG,
	}
	ranges := []domain.VideoRange{domain.VideoRangeDefault, domain.VideoRangePartial, domain.VideoRangeFull}
	for _, cs := range spaces {
		for _, r := range ranges {
			for _, bpc := range []uint32{0, 8, 10, 12, 16, 32} {
				a, err := BuildConversion(cs, r, bpc)
				if err != nil {
					t.Fatalf("BuildConversion(%s, %s, %d): %v", cs, r, bpc, err)
				}
				b, _ := BuildConversion(cs, r, bpc)
				if a != b {
					t.Errorf("BuildConversion(%s, %s, %d) not deterministic", cs, r, bpc)
				}
			}
		}
	}
}

func TestBuildConversion_normalization(t *testing.T) {
	def, _ := BuildConversion(domain.ColorSpaceDefault, domain.VideoRangePartial, 8)
	rgb, _ := BuildConversion(domain.ColorSpaceRGB, domain.VideoRangePartial, 8)
	bt709, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangePartial, 8)
	if def != bt709 || rgb != bt709 {
		t.Error("default and rgb should resolve to bt709")
	}

	hlg, _ := BuildConversion(domain.ColorSpaceHLG, domain.VideoRangeFull, 10)
	pq, _ := BuildConversion(domain.ColorSpacePQ, domain.VideoRangeFull, 10)
	if hlg != pq {
		t.Error("hlg should resolve to pq")
	}

	bt601, _ := BuildConversion(domain.ColorSpaceBT601, domain.VideoRangePartial, 8)
	if bt601 == bt709 {
		t.Error("bt601 and bt709 matrices should differ")
	}
}

func TestBuildConversion_bpcClamped(t *testing.T) {
	low, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangePartial, 4)
	eight, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangePartial, 8)
	if low != eight {
		t.Error("bpc below 8 should clamp to 8")
	}
	high, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangePartial, 24)
	sixteen, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangePartial, 16)
	if high != sixteen {
		t.Error("bpc above 16 should clamp to 16")
	}
}

func TestBuildConversion_ranges(t *testing.T) {
	full, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangeFull, 8)
	if full.RangeMin != [3]float32{0, 0, 0} || full.RangeMax != [3]float32{1, 1, 1} || !full.Full {
		t.Errorf("full range clamp = %v..%v", full.RangeMin, full.RangeMax)
	}
	partial, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangePartial, 8)
	if !near(partial.RangeMin[0], 16.0/255, 1e-6) || !near(partial.RangeMax[0], 235.0/255, 1e-6) {
		t.Errorf("partial luma range = %v..%v", partial.RangeMin[0], partial.RangeMax[0])
	}
	if !near(partial.RangeMax[1], 240.0/255, 1e-6) {
		t.Errorf("partial chroma max = %v", partial.RangeMax[1])
	}
}

func TestBuildConversion_unsupportedColorSpace(t *testing.T) {
	_, err := BuildConversion(domain.ColorSpace(99), domain.VideoRangeFull, 8)
	if !errors.Is(err, domain.ErrUnsupportedParameters) {
		t.Errorf("expected ErrUnsupportedParameters, got %v", err)
	}
}

func flatUYVY(width, height int, y, cb, cr byte) []byte {
	buf := make([]byte, 0, width*height*2)
	for i := 0; i < width*height/2; i++ {
		buf = append(buf, cb, y, cr, y)
	}
	return buf
}

func TestConvert_midGray(t *testing.T) {
	tests := []struct {
		name string
		r    domain.VideoRange
		want byte
	}{
		{"full", domain.VideoRangeFull, 128},
		{"partial", domain.VideoRangePartial, 130},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := BuildConversion(domain.ColorSpaceBT709, tt.r, 8)
			if err != nil {
				t.Fatal(err)
			}
			const w, h = 4, 2
			out, err := Convert(flatUYVY(w, h, 128, 128, 128), w, h, w*2, domain.SubtypeUYVY422, m)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if len(out) != w*h*4 {
				t.Fatalf("len = %d, want %d", len(out), w*h*4)
			}
			for i := 0; i < w*h; i++ {
				px := out[i*4 : i*4+4]
				for c := 0; c < 3; c++ {
					if diff := int(px[c]) - int(tt.want); diff < -2 || diff > 2 {
						t.Fatalf("pixel %d channel %d = %d, want ~%d", i, c, px[c], tt.want)
					}
				}
				if px[3] != 255 {
					t.Fatalf("pixel %d alpha = %d, want 255", i, px[3])
				}
			}
		})
	}
}

func TestConvert_byteOrderIsBGRA(t *testing.T) {
	m, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangeFull, 8)
	// Strong Cr pushes red up and blue down.
	out, err := Convert(flatUYVY(2, 1, 128, 128, 255), 2, 1, 4, domain.SubtypeUYVY422, m)
	if err != nil {
		t.Fatal(err)
	}
	b, r := out[0], out[2]
	if r <= b {
		t.Errorf("expected red > blue in BGRA output, got b=%d r=%d", b, r)
	}
}

func TestConvert_honorsLineSize(t *testing.T) {
	m, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangeFull, 8)
	const w, h, stride = 2, 2, 8
	src := make([]byte, stride*h)
	copy(src[0:], []byte{128, 10, 128, 10})
	copy(src[stride:], []byte{128, 200, 128, 200})
	out, err := Convert(src, w, h, stride, domain.SubtypeUYVY422, m)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 10 || out[w*4] != 200 {
		t.Errorf("rows not read with stride: row0=%d row1=%d", out[0], out[w*4])
	}
}

func TestConvert_oddWidth(t *testing.T) {
	m, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangeFull, 8)
	out, err := Convert([]byte{128, 50, 128, 0}, 1, 1, 4, domain.SubtypeUYVY422, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 4 || out[0] != 50 {
		t.Errorf("out = %v", out)
	}
}

func TestConvert_rejectsOtherSubtypes(t *testing.T) {
	m, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangeFull, 8)
	for _, st := range []domain.FourCC{domain.SubtypeBGRA32, domain.SubtypeYUVS422, domain.Subtype420BiPlanarVideo} {
		_, err := Convert(make([]byte, 64), 4, 2, 8, st, m)
		if !errors.Is(err, domain.ErrUnsupportedPixelFormat) {
			t.Errorf("Convert(%s) err = %v, want ErrUnsupportedPixelFormat", st, err)
		}
	}
}

func TestConvert_shortBuffer(t *testing.T) {
	m, _ := BuildConversion(domain.ColorSpaceBT709, domain.VideoRangeFull, 8)
	_, err := Convert(make([]byte, 7), 4, 1, 8, domain.SubtypeUYVY422, m)
	if !errors.Is(err, domain.ErrBufferFormat) {
		t.Errorf("err = %v, want ErrBufferFormat", err)
	}
}

func near(a, b, eps float32) bool {
	d := a - b
	return d < eps && d > -eps
}

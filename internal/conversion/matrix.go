// Package conversion builds YCbCr to RGB conversion matrices and converts
// packed 4:2:2 buffers into BGRA.
package conversion

import (
	"fmt"
	"sync"

	"capture-bridge/internal/domain"
)

// Matrix is a YCbCr→RGB transform for normalized components plus the clamp
// range applied to the input.
//
// Rows 0..2 produce R, G and B from (Y, Cb, Cr, 1); row 3 is identity.
type Matrix struct {
	Values   [16]float32
	RangeMin [3]float32
	RangeMax [3]float32
	Full     bool
}

type coefficients struct {
	colorSpace domain.ColorSpace
	kb, kr     float32
}

var formats = []coefficients{
	{domain.ColorSpaceBT601, 0.114, 0.299},
	{domain.ColorSpaceBT709, 0.0722, 0.2126},
	{domain.ColorSpacePQ, 0.0593, 0.2627},
}

const (
	minBPC   = 8
	maxBPC   = 16
	bpcCount = maxBPC - minBPC + 1
)

type bpcInfo struct {
	floatRangeMin [3]float32
	floatRangeMax [3]float32
}

type table struct {
	bpc [bpcCount]bpcInfo
	// matrices[format][bpc][full]
	matrices [][bpcCount][2][16]float32
}

var (
	tableOnce sync.Once
	tbl       table
)

func initMatrix(kb, kr float32, bitRangeMax int, rangeMin, rangeMax, blackLevels [3]float32, m *[16]float32) {
	yvals := rangeMax[0] - rangeMin[0]
	uvals := (rangeMax[1] - rangeMin[1]) / 2
	vvals := (rangeMax[2] - rangeMin[2]) / 2

	yscale := float32(bitRangeMax) / yvals
	uscale := float32(bitRangeMax) / uvals
	vscale := float32(bitRangeMax) / vvals

	kg := 1 - kb - kr

	rows := [3][3]float32{
		{yscale, 0, vscale * (1 - kr)},
		{yscale, uscale * (kb - 1) * kb / kg, vscale * (kr - 1) * kr / kg},
		{yscale, uscale * (1 - kb), 0},
	}

	var offsets [3]float32
	for i := range offsets {
		offsets[i] = -blackLevels[i] / float32(bitRangeMax)
	}

	for r := 0; r < 3; r++ {
		var off float32
		for c := 0; c < 3; c++ {
			m[r*4+c] = rows[r][c]
			off += offsets[c] * rows[r][c]
		}
		m[r*4+3] = off
	}
	m[12], m[13], m[14], m[15] = 0, 0, 0, 1
}

func buildTable() {
	tbl.matrices = make([][bpcCount][2][16]float32, len(formats))

	for i := 0; i < bpcCount; i++ {
		bpc := uint(minBPC + i)
		shift := bpc - 8
		bitRangeMax := (1 << bpc) - 1

		scaled := func(v int) float32 { return float32(v << shift) }

		partialMin := [3]float32{scaled(16), scaled(16), scaled(16)}
		partialMax := [3]float32{scaled(235), scaled(240), scaled(240)}
		fullMin := [3]float32{0, 0, 0}
		top := float32(bitRangeMax)
		fullMax := [3]float32{top, top, top}

		partialBlack := [3]float32{scaled(16), scaled(128), scaled(128)}
		fullBlack := [3]float32{0, scaled(128), scaled(128)}

		for c := 0; c < 3; c++ {
			tbl.bpc[i].floatRangeMin[c] = partialMin[c] / top
			tbl.bpc[i].floatRangeMax[c] = partialMax[c] / top
		}

		for f, info := range formats {
			initMatrix(info.kb, info.kr, bitRangeMax, partialMin, partialMax, partialBlack, &tbl.matrices[f][i][0])
			initMatrix(info.kb, info.kr, bitRangeMax, fullMin, fullMax, fullBlack, &tbl.matrices[f][i][1])
		}
	}
}

// BuildConversion selects the conversion matrix for a colorspace, range and
// component depth. Default and RGB resolve to BT.709, HLG resolves to PQ and
// bpc is clamped into [8, 16].
func BuildConversion(cs domain.ColorSpace, r domain.VideoRange, bpc uint32) (Matrix, error) {
	tableOnce.Do(buildTable)

	switch cs {
	case domain.ColorSpaceDefault, domain.ColorSpaceRGB:
		cs = domain.ColorSpaceBT709
	case domain.ColorSpaceHLG:
		cs = domain.ColorSpacePQ
	}

	if bpc < minBPC {
		bpc = minBPC
	} else if bpc > maxBPC {
		bpc = maxBPC
	}
	bpcIndex := bpc - minBPC

	full := r == domain.VideoRangeFull
	fullIndex := 0
	if full {
		fullIndex = 1
	}

	for i, info := range formats {
		if info.colorSpace != cs {
			continue
		}
		m := Matrix{Values: tbl.matrices[i][bpcIndex][fullIndex], Full: full}
		if full {
			m.RangeMin = [3]float32{0, 0, 0}
			m.RangeMax = [3]float32{1, 1, 1}
		} else {
			m.RangeMin = tbl.bpc[bpcIndex].floatRangeMin
			m.RangeMax = tbl.bpc[bpcIndex].floatRangeMax
		}
		return m, nil
	}

	return Matrix{}, fmt.Errorf("%w: colorspace %s", domain.ErrUnsupportedParameters, cs)
}

// Apply transforms one normalized YCbCr triple into normalized RGB.
func (m *Matrix) Apply(y, cb, cr float32) (r, g, b float32) {
	y = clamp(y, m.RangeMin[0], m.RangeMax[0])
	cb = clamp(cb, m.RangeMin[1], m.RangeMax[1])
	cr = clamp(cr, m.RangeMin[2], m.RangeMax[2])

	v := &m.Values
	r = v[0]*y + v[1]*cb + v[2]*cr + v[3]
	g = v[4]*y + v[5]*cb + v[6]*cr + v[7]
	b = v[8]*y + v[9]*cb + v[10]*cr + v[11]
	return r, g, b
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

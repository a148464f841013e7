package loader

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-toon/common"
)

// ErrInvalidSpec is returned for a malformed procedural texture spec.
var ErrInvalidSpec = errors.New("loader: invalid texture spec")

const (
	specSolid    = "solid"
	specChecker  = "checker"
	specGradient = "gradient"
	specNormal   = "normal"

	checkerSize    = 64
	gradientHeight = 64
)

// generate builds the pixels for a procedural spec.
func generate(spec string) (common.TextureStagingData, error) {
	parts := strings.Split(spec, ":")
	fail := func(reason string) (common.TextureStagingData, error) {
		return common.TextureStagingData{}, fmt.Errorf("%w: %q: %s", ErrInvalidSpec, spec, reason)
	}

	switch parts[0] {
	case specSolid:
		if len(parts) != 2 {
			return fail("want solid:#rrggbb")
		}
		c, err := parseColor(parts[1])
		if err != nil {
			return fail(err.Error())
		}
		return common.TextureStagingData{Pixels: c[:], Width: 1, Height: 1}, nil

	case specChecker:
		if len(parts) != 4 {
			return fail("want checker:#rrggbb:#rrggbb:N")
		}
		a, err := parseColor(parts[1])
		if err != nil {
			return fail(err.Error())
		}
		b, err := parseColor(parts[2])
		if err != nil {
			return fail(err.Error())
		}
		n, err := strconv.Atoi(parts[3])
		if err != nil || n < 1 || n > checkerSize {
			return fail(fmt.Sprintf("cell count must be 1..%d", checkerSize))
		}
		return checker(a, b, n), nil

	case specGradient:
		if len(parts) != 3 {
			return fail("want gradient:#top:#bottom")
		}
		top, err := parseColor(parts[1])
		if err != nil {
			return fail(err.Error())
		}
		bottom, err := parseColor(parts[2])
		if err != nil {
			return fail(err.Error())
		}
		return gradient(top, bottom), nil

	case specNormal:
		if len(parts) != 2 || parts[1] != "flat" {
			return fail("only normal:flat is supported")
		}
		return common.TextureStagingData{Pixels: []byte{128, 128, 255, 255}, Width: 1, Height: 1}, nil
	}
	return fail("unknown kind")
}

// parseColor reads #rrggbb or #rrggbbaa.
func parseColor(s string) ([4]byte, error) {
	raw, ok := strings.CutPrefix(s, "#")
	if !ok || (len(raw) != 6 && len(raw) != 8) {
		return [4]byte{}, fmt.Errorf("color %q is not #rrggbb", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return [4]byte{}, fmt.Errorf("color %q: %w", s, err)
	}
	c := [4]byte{b[0], b[1], b[2], 255}
	if len(b) == 4 {
		c[3] = b[3]
	}
	return c, nil
}

func checker(a, b [4]byte, cells int) common.TextureStagingData {
	cell := max(1, checkerSize/cells)
	pix := make([]byte, checkerSize*checkerSize*4)
	for y := range checkerSize {
		for x := range checkerSize {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			copy(pix[(y*checkerSize+x)*4:], c[:])
		}
	}
	return common.TextureStagingData{Pixels: pix, Width: checkerSize, Height: checkerSize}
}

// gradient is a vertical blend from top (v = 0) to bottom (v = 1), one pixel wide.
func gradient(top, bottom [4]byte) common.TextureStagingData {
	pix := make([]byte, gradientHeight*4)
	for y := range gradientHeight {
		t := float32(y) / float32(gradientHeight-1)
		for i := range 4 {
			v := float32(top[i]) + (float32(bottom[i])-float32(top[i]))*t
			pix[y*4+i] = uint8(common.Clamp(v+0.5, 0, 255))
		}
	}
	return common.TextureStagingData{Pixels: pix, Width: 1, Height: gradientHeight}
}

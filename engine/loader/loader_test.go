package loader

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-toon/engine/renderer/device/soft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoader(t *testing.T, options ...LoaderBuilderOption) Loader {
	t.Helper()
	dev, err := soft.NewDevice(4, 4)
	require.NoError(t, err)
	return NewLoader(dev, append([]LoaderBuilderOption{WithWorkers(2)}, options...)...)
}

func writePNG(t *testing.T, dir, name string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func pixels(t *testing.T, l Loader, name string) *image.RGBA {
	t.Helper()
	a, ok := l.Asset(name)
	require.True(t, ok, name)
	return a.Texture.(*soft.Texture).Image()
}

func TestLoadTexturesDecodesInParallel(t *testing.T) {
	dir := t.TempDir()
	red := writePNG(t, dir, "red.png", 4, 2, color.RGBA{255, 0, 0, 255})
	blue := writePNG(t, dir, "blue.png", 2, 2, color.RGBA{0, 0, 255, 255})
	l := newLoader(t)

	views, err := l.LoadTextures([]string{red, blue, red})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, 4, views[red].Texture().Width())
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, pixels(t, l, blue).RGBAAt(1, 1))

	again, err := l.LoadTexture(red)
	require.NoError(t, err)
	assert.Same(t, views[red], again)

	a, _ := l.Asset(red)
	b, _ := l.Asset(blue)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLoadTexturesReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "good.png", 1, 1, color.RGBA{1, 2, 3, 255})
	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	missing := filepath.Join(dir, "missing.png")

	l := newLoader(t)
	views, err := l.LoadTextures([]string{good, junk, missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "junk.png")
	assert.Contains(t, err.Error(), "missing.png")
	assert.Contains(t, views, good)

	_, ok := l.Asset(junk)
	assert.False(t, ok)
}

func TestLargeTexturesAreDownscaled(t *testing.T) {
	path := writePNG(t, t.TempDir(), "wide.png", 32, 16, color.RGBA{0, 200, 0, 255})
	l := newLoader(t, WithMaxTextureSize(8))

	view, err := l.LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, 8, view.Texture().Width())
	assert.Equal(t, 4, view.Texture().Height())
	assert.InDelta(t, 200, pixels(t, l, path).RGBAAt(3, 2).G, 1)
}

func TestProceduralTextures(t *testing.T) {
	l := newLoader(t)

	solid, err := l.Texture("solid:#ff8000")
	require.NoError(t, err)
	assert.Equal(t, 1, solid.Texture().Width())
	assert.Equal(t, color.RGBA{255, 128, 0, 255}, pixels(t, l, "solid:#ff8000").RGBAAt(0, 0))

	_, err = l.Texture("checker:#000000:#ffffff:4")
	require.NoError(t, err)
	board := pixels(t, l, "checker:#000000:#ffffff:4")
	assert.Equal(t, uint8(0), board.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), board.RGBAAt(16, 0).R)
	assert.Equal(t, uint8(0), board.RGBAAt(16, 16).R)

	_, err = l.Texture("gradient:#0000ff:#ffffff")
	require.NoError(t, err)
	sky := pixels(t, l, "gradient:#0000ff:#ffffff")
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, sky.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, sky.RGBAAt(0, gradientHeight-1))

	_, err = l.Texture("normal:flat")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{128, 128, 255, 255}, pixels(t, l, "normal:flat").RGBAAt(0, 0))

	again, err := l.Texture("solid:#ff8000")
	require.NoError(t, err)
	assert.Same(t, solid, again)
}

func TestMalformedSpecsAreRejected(t *testing.T) {
	l := newLoader(t)
	for _, spec := range []string{
		"solid:ff8000",
		"solid:#ff80",
		"solid:#gg0000",
		"checker:#000000:#ffffff",
		"checker:#000000:#ffffff:0",
		"gradient:#000000",
		"normal:bumpy",
	} {
		_, err := l.Texture(spec)
		assert.ErrorIs(t, err, ErrInvalidSpec, spec)
	}
}

func TestSamplerIsCachedAndReleased(t *testing.T) {
	l := newLoader(t)
	desc := device.SamplerDesc{Label: "wrap", Filter: device.FilterLinear, AddressU: device.AddressWrap, AddressV: device.AddressWrap}

	a, err := l.Sampler(desc)
	require.NoError(t, err)
	b, err := l.Sampler(desc)
	require.NoError(t, err)
	assert.Same(t, a, b)

	tex, err := l.Texture("solid:#ffffff")
	require.NoError(t, err)

	l.Release()
	assert.True(t, a.Released())
	assert.True(t, tex.Released())
	_, ok := l.Asset("solid:#ffffff")
	assert.False(t, ok)
}

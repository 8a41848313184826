package picture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/models"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// gradient 生成一张有结构的图片，避免纯色图片的感知哈希全部相同。
func gradient(w, h int, flip bool) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / w)
			if flip {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{R: v, G: uint8(y * 255 / h), B: 0, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) models.ImageRef {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return models.ImageRef{FileName: name, StoredPath: path}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("png is embedded as is", func(t *testing.T) {
		ref := writePNG(t, dir, "a.png", solid(40, 20, color.White))
		raw, err := os.ReadFile(ref.StoredPath)
		require.NoError(t, err)

		pic, err := Load(ref)
		require.NoError(t, err)
		assert.Equal(t, "png", pic.Image.Format)
		assert.Equal(t, 40, pic.Image.Width)
		assert.Equal(t, 20, pic.Image.Height)
		assert.Equal(t, raw, pic.Image.Data)
		assert.False(t, pic.Transcoded())
		assert.NotEmpty(t, pic.PHash)
		assert.Equal(t, ref, pic.Ref)
	})

	t.Run("bmp is supported", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, bmp.Encode(&buf, solid(8, 8, color.Black)))
		path := filepath.Join(dir, "b.bmp")
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

		pic, err := Load(models.ImageRef{FileName: "b.bmp", StoredPath: path})
		require.NoError(t, err)
		assert.Equal(t, "bmp", pic.Image.Format)
		assert.False(t, pic.Transcoded())
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.png")
		require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

		_, err := Load(models.ImageRef{FileName: "broken.png", StoredPath: path})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrAssembly)
	})

	t.Run("truncated png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, gradient(64, 64, false)))
		data := buf.Bytes()[:buf.Len()/2]

		_, err := Decode(models.ImageRef{FileName: "half.png"}, data)
		assert.ErrorIs(t, err, apperr.ErrAssembly)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(models.ImageRef{FileName: "gone.png", StoredPath: filepath.Join(dir, "gone.png")})
		assert.ErrorIs(t, err, apperr.ErrAssembly)
	})
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	var refs []models.ImageRef
	for i, name := range []string{"1.png", "2.png", "3.png", "4.png", "5.png"} {
		refs = append(refs, writePNG(t, dir, name, solid(10+i, 10, color.White)))
	}

	pics, err := LoadAll(context.Background(), refs, 2)
	require.NoError(t, err)
	require.Len(t, pics, len(refs))
	for i, pic := range pics {
		assert.Equal(t, refs[i].FileName, pic.Ref.FileName)
		assert.Equal(t, 10+i, pic.Image.Width)
	}

	t.Run("one bad image fails the batch", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.png")
		require.NoError(t, os.WriteFile(bad, []byte{0x89, 'P', 'N', 'G'}, 0644))
		withBad := append(append([]models.ImageRef{}, refs...), models.ImageRef{FileName: "bad.png", StoredPath: bad})

		pics, err := LoadAll(context.Background(), withBad, 0)
		assert.ErrorIs(t, err, apperr.ErrAssembly)
		assert.Nil(t, pics)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := LoadAll(ctx, refs, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty input", func(t *testing.T) {
		pics, err := LoadAll(context.Background(), nil, 4)
		require.NoError(t, err)
		assert.Empty(t, pics)
	})
}

func TestDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", gradient(64, 64, false))
	b := writePNG(t, dir, "b.png", gradient(64, 64, true))
	c := writePNG(t, dir, "c.png", gradient(64, 64, false))

	pics, err := LoadAll(context.Background(), []models.ImageRef{a, b, c}, 3)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 2}}, Duplicates(pics))
	assert.Empty(t, Duplicates(pics[:2]))
}

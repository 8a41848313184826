package docx

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, name string, w, h int, c color.Color) Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Image{Name: name, Data: buf.Bytes(), Format: "png", Width: w, Height: h}
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = string(content)
	}
	return files
}

func TestMerge(t *testing.T) {
	doc := New()
	tbl := doc.AddTable(3, 6)

	tbl.Cell(1, 4).SetText("leftover")
	merged, err := tbl.Merge(1, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Span())
	assert.Same(t, merged, tbl.Cell(1, 3))
	assert.Same(t, merged, tbl.Cell(1, 5))
	assert.Len(t, tbl.RowCells(1), 4)
	assert.Equal(t, "leftover", merged.Text())

	merged.SetText("desc")
	assert.Equal(t, "desc", tbl.Cell(1, 4).Text())

	_, err = tbl.Merge(1, 4, 5)
	assert.Error(t, err)
	_, err = tbl.Merge(0, 2, 6)
	assert.Error(t, err)
	_, err = tbl.Merge(5, 0, 1)
	assert.Error(t, err)

	assert.Nil(t, tbl.Cell(3, 0))
}

func TestNewInlinePicture(t *testing.T) {
	img := pngImage(t, "wide.png", 200, 100, color.White)

	pic, err := NewInlinePicture(img, 5000000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000000), pic.WidthEMU)
	assert.Equal(t, int64(2500000), pic.HeightEMU)

	_, err = NewInlinePicture(Image{Name: "x.webp", Data: []byte("x"), Format: "webp", Width: 1, Height: 1}, 100)
	assert.Error(t, err)
	_, err = NewInlinePicture(Image{Name: "x.png", Format: "png", Width: 1, Height: 1}, 100)
	assert.Error(t, err)
	_, err = NewInlinePicture(Image{Name: "x.png", Data: []byte("x"), Format: "png"}, 100)
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	red := pngImage(t, "red.png", 4, 3, color.RGBA{R: 255, A: 255})
	blue := pngImage(t, "blue.png", 3, 4, color.RGBA{B: 255, A: 255})

	doc := New()
	doc.Properties.Title = "Site A & B"
	doc.AddHeading("Image Report", 0)
	doc.AddParagraph("Title: <Site A>")

	for _, img := range []Image{red, red, blue} {
		tbl := doc.AddTable(3, 6)
		cell, err := tbl.Merge(0, 0, 5)
		require.NoError(t, err)
		_, err = cell.AddPicture(img, 5000000)
		require.NoError(t, err)
	}
	doc.AddPageBreak()
	doc.AddParagraph("line1\nline2")

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	files := readZip(t, buf.Bytes())

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"docProps/app.xml",
		"word/styles.xml",
		"word/_rels/document.xml.rels",
		"word/document.xml",
		"word/media/image1.png",
		"word/media/image2.png",
	} {
		assert.Contains(t, files, name)
	}
	// 相同内容的图片只保存一份
	assert.NotContains(t, files, "word/media/image3.png")

	body := files["word/document.xml"]
	assert.Equal(t, 3, strings.Count(body, "<w:tbl>"))
	assert.Equal(t, 3, strings.Count(body, `<w:gridSpan w:val="6"/>`))
	assert.Equal(t, 3, strings.Count(body, "<w:drawing>"))
	assert.Equal(t, 2, strings.Count(body, `r:embed="rId2"`))
	assert.Equal(t, 1, strings.Count(body, `r:embed="rId3"`))
	assert.Equal(t, 1, strings.Count(body, `<w:br w:type="page"/>`))
	assert.Contains(t, body, `<w:pStyle w:val="Title"/>`)
	assert.Contains(t, body, "Title: &lt;Site A&gt;")
	assert.Contains(t, body, `line1</w:t><w:br/><w:t xml:space="preserve">line2`)

	rels := files["word/_rels/document.xml.rels"]
	assert.Contains(t, rels, `Target="media/image1.png"`)
	assert.Contains(t, rels, `Target="media/image2.png"`)
	assert.Contains(t, files["docProps/core.xml"], "<dc:title>Site A &amp; B</dc:title>")
	assert.NotContains(t, files, "docProps/thumbnail.jpeg")
	assert.NotContains(t, files["_rels/.rels"], "thumbnail")
}

func TestEncodeThumbnail(t *testing.T) {
	doc := New()
	doc.AddParagraph("Title: Site A")
	doc.Thumbnail = []byte{0xff, 0xd8, 0xff, 0xd9}

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	files := readZip(t, buf.Bytes())

	assert.Equal(t, string(doc.Thumbnail), files["docProps/thumbnail.jpeg"])
	assert.Contains(t, files["_rels/.rels"], `Target="docProps/thumbnail.jpeg"`)
}

func TestSave(t *testing.T) {
	doc := New()
	doc.AddHeading("Image Report", 0)
	path := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, doc.Save(path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	assert.NotEmpty(t, zr.File)
}

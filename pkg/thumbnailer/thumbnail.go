package thumbnailer

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// 缩略图的默认尺寸上限
const (
	DefaultWidth  = 256
	DefaultHeight = 256
)

// JPEG 把 srcImage 缩小到不超过 width×height（保持比例）并编码为 JPEG。
// 原图本来就更小时不会放大。
func JPEG(srcImage image.Image, width, height int) ([]byte, error) {
	thumbImage := imaging.Fit(srcImage, width, height, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, thumbImage, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

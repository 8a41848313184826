// Package picture 把落盘的上传图片解码成可以嵌入报告的图片。
//
// 解码可以并发进行（LoadAll），结果按原始顺序返回，
// 组装文档时再严格按顺序逐张追加。
package picture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"runtime"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/models"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/docx"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/hasher"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/thumbnailer"
)

// Picture 是一张已解码、已校验的图片。
type Picture struct {
	Ref   models.ImageRef
	Image docx.Image

	// SourceFormat 是上传文件的实际编码格式，Image.Format 可能因转码而不同。
	SourceFormat string
	// PHash 是感知哈希，用于发现同一批上传中的重复图片。
	PHash string
}

// Transcoded 表示嵌入的数据不是上传的原始字节。
func (p *Picture) Transcoded() bool {
	return p.SourceFormat != p.Image.Format
}

// Load 读取并完整解码 ref 指向的图片。损坏或无法识别的文件返回 ErrAssembly。
//
// Word 能直接显示的格式 (png/jpeg/gif/bmp) 原样嵌入；其他格式 (webp) 以及
// EXIF 方向为 90/270 度的图片会按解码结果重新编码为 PNG。
func Load(ref models.ImageRef) (*Picture, error) {
	data, err := os.ReadFile(ref.StoredPath)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法读取图片 %s: %w", apperr.ErrAssembly, ref.FileName, err)
	}
	return Decode(ref, data)
}

// Decode 与 Load 相同，但使用已经读入内存的数据。
func Decode(ref models.ImageRef, data []byte) (*Picture, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: 无法识别图片 %s: %w", apperr.ErrAssembly, ref.FileName, err)
	}

	// 完整解码一次，既是损坏检查，也是计算 pHash 的输入
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: 图片 %s 已损坏: %w", apperr.ErrAssembly, ref.FileName, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: 图片 %s 尺寸为空", apperr.ErrAssembly, ref.FileName)
	}

	pic := &Picture{
		Ref:          ref,
		SourceFormat: format,
		PHash:        hasher.PerceptualHash(img),
		Image: docx.Image{
			Name:   ref.FileName,
			Data:   data,
			Format: format,
			Width:  cfg.Width,
			Height: cfg.Height,
		},
	}

	rotated := bounds.Dx() != cfg.Width || bounds.Dy() != cfg.Height
	if !docx.SupportedFormat(format) || rotated {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("%w: 图片 %s 转码失败: %w", apperr.ErrAssembly, ref.FileName, err)
		}
		pic.Image.Data = buf.Bytes()
		pic.Image.Format = "png"
		pic.Image.Width = bounds.Dx()
		pic.Image.Height = bounds.Dy()
	}
	return pic, nil
}

// Thumbnail 从嵌入的图片数据生成 JPEG 缩略图。
func (p *Picture) Thumbnail(width, height int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(p.Image.Data))
	if err != nil {
		return nil, err
	}
	return thumbnailer.JPEG(img, width, height)
}

// LoadAll 用最多 workers 个 goroutine 并发解码，返回的切片与 refs 一一对应。
// 任意一张失败时取消其余任务并返回第一个错误。workers <= 0 时使用 CPU 核心数。
func LoadAll(ctx context.Context, refs []models.ImageRef, workers int) ([]*Picture, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pics := make([]*Picture, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ref := range refs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pic, err := Load(ref)
			if err != nil {
				return err
			}
			pics[i] = pic
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pics, nil
}

// Duplicates 返回感知哈希相同的图片下标分组（按首次出现的顺序）。
func Duplicates(pics []*Picture) [][]int {
	groups := make(map[string][]int)
	var order []string
	for i, p := range pics {
		if p == nil || p.PHash == "" {
			continue
		}
		if _, ok := groups[p.PHash]; !ok {
			order = append(order, p.PHash)
		}
		groups[p.PHash] = append(groups[p.PHash], i)
	}

	var dups [][]int
	for _, h := range order {
		if len(groups[h]) > 1 {
			dups = append(dups, groups[h])
		}
	}
	return dups
}

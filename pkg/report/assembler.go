// Package report 把元数据和图片组装成报告文档，并串起一次上传的完整处理流程。
package report

import (
	"fmt"
	"time"

	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/models"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/docx"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/picture"
)

const (
	sectionRows = 3
	sectionCols = 6
)

// Assembler 根据 Layout 生成文档模型。相同的输入总是得到相同的文档。
type Assembler struct {
	layout Layout
}

// NewAssembler 创建 Assembler，layout 中为空或非法的字段使用 DefaultLayout 的值。
func NewAssembler(layout Layout) *Assembler {
	d := DefaultLayout()
	layout.Heading = orDefault(layout.Heading, d.Heading)
	layout.TitleLabel = orDefault(layout.TitleLabel, d.TitleLabel)
	layout.DescriptionLabel = orDefault(layout.DescriptionLabel, d.DescriptionLabel)
	layout.PhotoNoLabel = orDefault(layout.PhotoNoLabel, d.PhotoNoLabel)
	layout.ShootingTimeLabel = orDefault(layout.ShootingTimeLabel, d.ShootingTimeLabel)
	layout.ShootingLocationLabel = orDefault(layout.ShootingLocationLabel, d.ShootingLocationLabel)
	layout.PhotographerLabel = orDefault(layout.PhotographerLabel, d.PhotographerLabel)
	if layout.ImageWidthEMU <= 0 {
		layout.ImageWidthEMU = d.ImageWidthEMU
	}
	if layout.ImagesPerPage <= 0 {
		layout.ImagesPerPage = d.ImagesPerPage
	}
	return &Assembler{layout: layout}
}

func (a *Assembler) Layout() Layout {
	return a.layout
}

// Assemble 按顺序为每张图片生成一个 3x6 表格。
// 每 ImagesPerPage 张图片之后分页并重复标题段落，最后一张图片之后不分页。
// 任何一张图片无法嵌入时整个文档作废，返回 ErrAssembly。
func (a *Assembler) Assemble(meta models.MetadataRecord, pics []*picture.Picture, created time.Time) (*docx.Document, error) {
	if len(pics) == 0 {
		return nil, fmt.Errorf("%w: 没有图片", apperr.ErrValidation)
	}

	doc := docx.New()
	doc.Properties = docx.Properties{
		Title:       meta.Title,
		Subject:     a.layout.Heading,
		Creator:     meta.Photographer,
		Description: meta.Description,
		Created:     created,
	}

	doc.AddHeading(a.layout.Heading, 0)
	a.addTitle(doc, meta)
	if a.layout.IncludeDescription {
		doc.AddParagraph(fmt.Sprintf("%s: %s", a.layout.DescriptionLabel, meta.Description))
	}

	n := len(pics)
	for i, pic := range pics {
		if pic == nil {
			return nil, fmt.Errorf("%w: 第 %d 张图片为空", apperr.ErrAssembly, i+1)
		}
		if err := a.addSection(doc, meta, i, pic); err != nil {
			return nil, fmt.Errorf("%w: 第 %d 张图片 %s: %w", apperr.ErrAssembly, i+1, pic.Ref.FileName, err)
		}
		if (i+1)%a.layout.ImagesPerPage == 0 && i+1 != n {
			doc.AddPageBreak()
			a.addTitle(doc, meta)
		}
	}
	return doc, nil
}

func (a *Assembler) addTitle(doc *docx.Document, meta models.MetadataRecord) {
	doc.AddParagraph(fmt.Sprintf("%s: %s", a.layout.TitleLabel, meta.Title))
}

// addSection 追加第 i 张图片的表格：
//
//	row 0: | picture (0-5)                                             |
//	row 1: | Photo No.     | 01   | Description       | text (3-5)     |
//	row 2: | Shooting Time | date | Shooting Location | loc | Photographer | name |
func (a *Assembler) addSection(doc *docx.Document, meta models.MetadataRecord, i int, pic *picture.Picture) error {
	tbl := doc.AddTable(sectionRows, sectionCols)

	imgCell, err := tbl.Merge(0, 0, sectionCols-1)
	if err != nil {
		return err
	}
	if _, err := imgCell.AddPicture(pic.Image, a.layout.ImageWidthEMU); err != nil {
		return err
	}

	tbl.Cell(1, 0).SetText(a.layout.PhotoNoLabel)
	tbl.Cell(1, 1).SetText(IndexLabel(i))
	tbl.Cell(1, 2).SetText(a.layout.DescriptionLabel)
	descCell, err := tbl.Merge(1, 3, sectionCols-1)
	if err != nil {
		return err
	}
	descCell.SetText(meta.Description)

	row2 := []string{
		a.layout.ShootingTimeLabel, meta.ShootingTime,
		a.layout.ShootingLocationLabel, meta.ShootingLocation,
		a.layout.PhotographerLabel, meta.Photographer,
	}
	for c, text := range row2 {
		tbl.Cell(2, c).SetText(text)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// IndexLabel 返回第 i 张（从 0 开始）图片的编号，至少两位。
func IndexLabel(i int) string {
	return fmt.Sprintf("%02d", i+1)
}

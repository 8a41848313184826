// Package docx 是一个只写的 Word (.docx, Office Open XML) 文档模型和编码器。
//
// 支持的内容只有报告需要的几种：标题、段落、分页符、可横向合并单元格的表格，
// 以及嵌入在段落里的图片。用法与 python-docx 类似：
//
//	doc := docx.New()
//	doc.AddHeading("Image Report", 0)
//	doc.AddParagraph("Title: Site A")
//	tbl := doc.AddTable(3, 6)
//	cell, _ := tbl.Merge(0, 0, 5)
//	cell.AddPicture(img, 5000000)
//	doc.AddPageBreak()
//	err := doc.Save("report.docx")
package docx

import (
	"fmt"
	"strings"
	"time"
)

const (
	// EMUPerInch 是 OOXML 长度单位换算。
	EMUPerInch int64 = 914400
	// EMUPerPixel 按 96 DPI 换算。
	EMUPerPixel int64 = 9525
)

// Block 是文档正文中的一个顶层元素：*Heading、*Paragraph、*Table 或 *PageBreak。
type Block interface {
	block()
}

type Heading struct {
	Text string
	// Level 0 使用 Title 样式，1-9 使用 Heading1-Heading9。
	Level int
}

type Paragraph struct {
	Runs []Run
}

// Run 是段落中的一段文字或一张图片，两者只有一个有效。
type Run struct {
	Text    string
	Bold    bool
	Picture *InlinePicture
}

type PageBreak struct{}

func (*Heading) block()   {}
func (*Paragraph) block() {}
func (*Table) block()     {}
func (*PageBreak) block() {}

// Text 返回段落中所有文字 run 拼接后的文本。
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// AddText 追加一段文字。
func (p *Paragraph) AddText(text string) *Paragraph {
	p.Runs = append(p.Runs, Run{Text: text})
	return p
}

// Image 是要嵌入的图片数据。Format 取值 png、jpeg、gif、bmp。
type Image struct {
	Name   string
	Data   []byte
	Format string
	Width  int
	Height int
}

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
}

// SupportedFormat 判断 Word 能否直接显示该格式。
func SupportedFormat(format string) bool {
	_, ok := contentTypes[format]
	return ok
}

// InlinePicture 是已经确定显示尺寸的图片。
type InlinePicture struct {
	Image     Image
	WidthEMU  int64
	HeightEMU int64
}

// NewInlinePicture 以固定显示宽度嵌入图片，高度按原图比例计算。
func NewInlinePicture(img Image, widthEMU int64) (*InlinePicture, error) {
	if !SupportedFormat(img.Format) {
		return nil, fmt.Errorf("docx: 不支持的图片格式 %q", img.Format)
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("docx: 图片 %s 没有数据", img.Name)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("docx: 图片 %s 尺寸无效 (%dx%d)", img.Name, img.Width, img.Height)
	}
	if widthEMU <= 0 {
		widthEMU = int64(img.Width) * EMUPerPixel
	}
	height := widthEMU * int64(img.Height) / int64(img.Width)
	if height <= 0 {
		height = 1
	}
	return &InlinePicture{Image: img, WidthEMU: widthEMU, HeightEMU: height}, nil
}

// Properties 写入 docProps/core.xml。
type Properties struct {
	Title       string
	Subject     string
	Creator     string
	Description string
	Created     time.Time
}

type Document struct {
	Properties Properties
	Body       []Block

	// Thumbnail 是可选的 JPEG 预览图，写入 docProps/thumbnail.jpeg，供文件管理器显示。
	Thumbnail []byte
}

func New() *Document {
	return &Document{}
}

func (d *Document) AddHeading(text string, level int) *Heading {
	if level < 0 {
		level = 0
	}
	if level > 9 {
		level = 9
	}
	h := &Heading{Text: text, Level: level}
	d.Body = append(d.Body, h)
	return h
}

func (d *Document) AddParagraph(text string) *Paragraph {
	p := &Paragraph{}
	if text != "" {
		p.Runs = append(p.Runs, Run{Text: text})
	}
	d.Body = append(d.Body, p)
	return p
}

func (d *Document) AddPageBreak() *PageBreak {
	pb := &PageBreak{}
	d.Body = append(d.Body, pb)
	return pb
}

// AddTable 添加一个 rows×cols 的表格，使用 TableGrid 样式。
func (d *Document) AddTable(rows, cols int) *Table {
	t := newTable(rows, cols)
	d.Body = append(d.Body, t)
	return t
}

// Tables 按出现顺序返回文档中的所有表格。
func (d *Document) Tables() []*Table {
	var tables []*Table
	for _, b := range d.Body {
		if t, ok := b.(*Table); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// PageBreaks 返回文档中分页符的数量。
func (d *Document) PageBreaks() int {
	n := 0
	for _, b := range d.Body {
		if _, ok := b.(*PageBreak); ok {
			n++
		}
	}
	return n
}

package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/hasher"
)

// 页面为 Letter，左右边距 1.25 英寸，正文宽度 6 英寸 (8640 twips)。
const (
	pageWidthTwips  = 12240
	pageHeightTwips = 15840
	marginTopTwips  = 1440
	marginSideTwips = 1800
	textWidthTwips  = pageWidthTwips - 2*marginSideTwips
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	relTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeStyle = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
)

// mediaPart 是 word/media 下的一个文件。内容相同的图片只保存一份。
type mediaPart struct {
	relID string
	path  string
	data  []byte
}

type encoder struct {
	body   bytes.Buffer
	media  []*mediaPart
	byHash map[string]*mediaPart
	nextID int
}

// Save 把文档编码后写入 path。
func (d *Document) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode 把文档编码为 .docx (zip) 写入 w。
func (d *Document) Encode(w io.Writer) error {
	enc := &encoder{byHash: make(map[string]*mediaPart)}
	if err := enc.writeBody(d.Body); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	parts := []struct {
		name    string
		content []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML())},
		{"_rels/.rels", []byte(rootRelsXML(len(d.Thumbnail) > 0))},
		{"docProps/core.xml", []byte(coreXML(d.Properties))},
		{"docProps/app.xml", []byte(appXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/_rels/document.xml.rels", []byte(enc.documentRelsXML())},
		{"word/document.xml", enc.documentXML()},
	}
	if len(d.Thumbnail) > 0 {
		parts = append(parts, struct {
			name    string
			content []byte
		}{thumbnailPart, d.Thumbnail})
	}
	for _, m := range enc.media {
		parts = append(parts, struct {
			name    string
			content []byte
		}{"word/" + m.path, m.data})
	}

	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("docx: 创建 %s 失败: %w", p.name, err)
		}
		if _, err := fw.Write(p.content); err != nil {
			return fmt.Errorf("docx: 写入 %s 失败: %w", p.name, err)
		}
	}
	return zw.Close()
}

func (e *encoder) writeBody(blocks []Block) error {
	for _, b := range blocks {
		switch v := b.(type) {
		case *Heading:
			style := "Title"
			if v.Level > 0 {
				style = "Heading" + strconv.Itoa(v.Level)
			}
			e.body.WriteString(`<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`)
			e.writeTextRun(v.Text, false)
			e.body.WriteString(`</w:p>`)
		case *Paragraph:
			if err := e.writeParagraph(v); err != nil {
				return err
			}
		case *PageBreak:
			e.body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		case *Table:
			if err := e.writeTable(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("docx: 未知的元素类型 %T", b)
		}
	}
	return nil
}

func (e *encoder) writeParagraph(p *Paragraph) error {
	e.body.WriteString(`<w:p>`)
	for _, r := range p.Runs {
		if r.Picture != nil {
			if err := e.writePicture(r.Picture); err != nil {
				return err
			}
			continue
		}
		e.writeTextRun(r.Text, r.Bold)
	}
	e.body.WriteString(`</w:p>`)
	return nil
}

func (e *encoder) writeTextRun(text string, bold bool) {
	e.body.WriteString(`<w:r>`)
	if bold {
		e.body.WriteString(`<w:rPr><w:b/></w:rPr>`)
	}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			e.body.WriteString(`<w:br/>`)
		}
		e.body.WriteString(`<w:t xml:space="preserve">`)
		e.body.WriteString(escape(line))
		e.body.WriteString(`</w:t>`)
	}
	e.body.WriteString(`</w:r>`)
}

func (e *encoder) writeTable(t *Table) error {
	colWidth := textWidthTwips / t.Cols()
	style := t.Style
	if style == "" {
		style = "TableGrid"
	}

	e.body.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="` + escape(style) + `"/>`)
	e.body.WriteString(`<w:tblW w:w="0" w:type="auto"/><w:tblLook w:val="04A0"/></w:tblPr><w:tblGrid>`)
	for c := 0; c < t.Cols(); c++ {
		e.body.WriteString(`<w:gridCol w:w="` + strconv.Itoa(colWidth) + `"/>`)
	}
	e.body.WriteString(`</w:tblGrid>`)

	for r := 0; r < t.Rows(); r++ {
		e.body.WriteString(`<w:tr>`)
		for _, cell := range t.RowCells(r) {
			e.body.WriteString(`<w:tc><w:tcPr><w:tcW w:w="` + strconv.Itoa(colWidth*cell.Span()) + `" w:type="dxa"/>`)
			if cell.Span() > 1 {
				e.body.WriteString(`<w:gridSpan w:val="` + strconv.Itoa(cell.Span()) + `"/>`)
			}
			e.body.WriteString(`</w:tcPr>`)
			// 每个单元格至少要有一个段落
			if len(cell.Paragraphs) == 0 {
				e.body.WriteString(`<w:p/>`)
			}
			for _, p := range cell.Paragraphs {
				if err := e.writeParagraph(p); err != nil {
					return err
				}
			}
			e.body.WriteString(`</w:tc>`)
		}
		e.body.WriteString(`</w:tr>`)
	}
	e.body.WriteString(`</w:tbl>`)
	return nil
}

func (e *encoder) writePicture(pic *InlinePicture) error {
	if !SupportedFormat(pic.Image.Format) {
		return fmt.Errorf("docx: 不支持的图片格式 %q", pic.Image.Format)
	}
	part := e.addMedia(pic.Image)
	e.nextID++
	id := strconv.Itoa(e.nextID)
	cx := strconv.FormatInt(pic.WidthEMU, 10)
	cy := strconv.FormatInt(pic.HeightEMU, 10)
	name := escape(pic.Image.Name)
	if name == "" {
		name = "Picture " + id
	}

	e.body.WriteString(`<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`)
	e.body.WriteString(`<wp:extent cx="` + cx + `" cy="` + cy + `"/>`)
	e.body.WriteString(`<wp:docPr id="` + id + `" name="Picture ` + id + `"/>`)
	e.body.WriteString(`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`)
	e.body.WriteString(`<a:graphic><a:graphicData uri="` + nsPic + `"><pic:pic>`)
	e.body.WriteString(`<pic:nvPicPr><pic:cNvPr id="0" name="` + name + `"/><pic:cNvPicPr/></pic:nvPicPr>`)
	e.body.WriteString(`<pic:blipFill><a:blip r:embed="` + part.relID + `"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`)
	e.body.WriteString(`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="` + cx + `" cy="` + cy + `"/></a:xfrm>`)
	e.body.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`)
	e.body.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`)
	return nil
}

func (e *encoder) addMedia(img Image) *mediaPart {
	sum := hasher.SHA256FromBytes(img.Data)
	if part, ok := e.byHash[sum]; ok {
		return part
	}
	n := len(e.media) + 1
	part := &mediaPart{
		// rId1 留给 styles.xml
		relID: "rId" + strconv.Itoa(n+1),
		path:  fmt.Sprintf("media/image%d.%s", n, img.Format),
		data:  img.Data,
	}
	e.media = append(e.media, part)
	e.byHash[sum] = part
	return part
}

func (e *encoder) documentXML() []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `" xmlns:wp="` + nsWP + `" xmlns:a="` + nsA + `" xmlns:pic="` + nsPic + `"><w:body>`)
	b.Write(e.body.Bytes())
	fmt.Fprintf(&b, `<w:sectPr><w:pgSz w:w="%d" w:h="%d"/><w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`,
		pageWidthTwips, pageHeightTwips, marginTopTwips, marginSideTwips, marginTopTwips, marginSideTwips)
	b.WriteString(`</w:body></w:document>`)
	return b.Bytes()
}

func (e *encoder) documentRelsXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="` + relTypeStyle + `" Target="styles.xml"/>`)
	for _, m := range e.media {
		b.WriteString(`<Relationship Id="` + m.relID + `" Type="` + relTypeImage + `" Target="` + m.path + `"/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func contentTypesXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	for _, ext := range []string{"png", "jpeg", "gif", "bmp"} {
		b.WriteString(`<Default Extension="` + ext + `" ContentType="` + contentTypes[ext] + `"/>`)
	}
	b.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	b.WriteString(`</Types>`)
	return b.String()
}

func coreXML(p Properties) string {
	created := p.Created
	if created.IsZero() {
		created = time.Now()
	}
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString(`<dc:title>` + escape(p.Title) + `</dc:title>`)
	b.WriteString(`<dc:subject>` + escape(p.Subject) + `</dc:subject>`)
	b.WriteString(`<dc:creator>` + escape(p.Creator) + `</dc:creator>`)
	b.WriteString(`<dc:description>` + escape(p.Description) + `</dc:description>`)
	stamp := created.UTC().Format(time.RFC3339)
	b.WriteString(`<dcterms:created xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:created>`)
	b.WriteString(`<dcterms:modified xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:modified>`)
	b.WriteString(`</cp:coreProperties>`)
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	// strings.Builder 的 Write 不会返回错误
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

const thumbnailPart = "docProps/thumbnail.jpeg"

func rootRelsXML(withThumbnail bool) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>`)
	b.WriteString(`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`)
	b.WriteString(`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>`)
	if withThumbnail {
		b.WriteString(`<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail" Target="` + thumbnailPart + `"/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

const appXML = xmlHeader + `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">` +
	`<Application>PhotoConsolidationBackEndSys</Application></Properties>`

var stylesXML = xmlHeader + `<w:styles xmlns:w="` + nsW + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:eastAsia="Microsoft JhengHei" w:cs="Calibri"/><w:sz w:val="22"/><w:szCs w:val="22"/><w:lang w:val="en-US" w:eastAsia="zh-TW"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="120" w:line="264" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:spacing w:after="300"/><w:contextualSpacing/></w:pPr><w:rPr><w:color w:val="17365D"/><w:spacing w:val="5"/><w:kern w:val="28"/><w:sz w:val="52"/><w:szCs w:val="52"/></w:rPr></w:style>` +
	headingStyle(1, 28) + headingStyle(2, 26) + headingStyle(3, 24) + headingStyle(4, 22) + headingStyle(5, 22) +
	headingStyle(6, 22) + headingStyle(7, 22) + headingStyle(8, 20) + headingStyle(9, 20) +
	`<w:style w:type="table" w:default="1" w:styleId="TableNormal"><w:name w:val="Normal Table"/><w:uiPriority w:val="99"/><w:semiHidden/>` +
	`<w:tblPr><w:tblInd w:w="0" w:type="dxa"/><w:tblCellMar><w:top w:w="0" w:type="dxa"/><w:left w:w="108" w:type="dxa"/><w:bottom w:w="0" w:type="dxa"/><w:right w:w="108" w:type="dxa"/></w:tblCellMar></w:tblPr></w:style>` +
	`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:basedOn w:val="TableNormal"/><w:uiPriority w:val="59"/>` +
	`<w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr>` +
	`<w:tblPr><w:tblBorders>` +
	`<w:top w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:left w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:right w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:insideV w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`</w:tblBorders></w:tblPr></w:style>` +
	`</w:styles>`

func headingStyle(level, halfPoints int) string {
	n := strconv.Itoa(level)
	sz := strconv.Itoa(halfPoints)
	return `<w:style w:type="paragraph" w:styleId="Heading` + n + `"><w:name w:val="heading ` + n + `"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>` +
		`<w:pPr><w:keepNext/><w:keepLines/><w:spacing w:before="240" w:after="0"/><w:outlineLvl w:val="` + strconv.Itoa(level-1) + `"/></w:pPr>` +
		`<w:rPr><w:b/><w:color w:val="365F91"/><w:sz w:val="` + sz + `"/><w:szCs w:val="` + sz + `"/></w:rPr></w:style>`
}

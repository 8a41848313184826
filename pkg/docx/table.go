package docx

import (
	"fmt"
	"strings"
)

// Cell 是表格的一个单元格。横向合并后，被合并的所有网格位置指向同一个 Cell。
type Cell struct {
	Paragraphs []*Paragraph
	span       int
}

// Span 返回单元格横跨的列数。
func (c *Cell) Span() int {
	return c.span
}

// SetText 用一段文字替换单元格内容。
func (c *Cell) SetText(text string) {
	c.Paragraphs = []*Paragraph{{Runs: []Run{{Text: text}}}}
}

// Text 返回单元格文字，段落之间用换行分隔。
func (c *Cell) Text() string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// AddPicture 在单元格第一个段落末尾插入图片。
func (c *Cell) AddPicture(img Image, widthEMU int64) (*InlinePicture, error) {
	pic, err := NewInlinePicture(img, widthEMU)
	if err != nil {
		return nil, err
	}
	if len(c.Paragraphs) == 0 {
		c.Paragraphs = append(c.Paragraphs, &Paragraph{})
	}
	p := c.Paragraphs[0]
	p.Runs = append(p.Runs, Run{Picture: pic})
	return pic, nil
}

// Pictures 返回单元格内所有图片。
func (c *Cell) Pictures() []*InlinePicture {
	var pics []*InlinePicture
	for _, p := range c.Paragraphs {
		for _, r := range p.Runs {
			if r.Picture != nil {
				pics = append(pics, r.Picture)
			}
		}
	}
	return pics
}

func (c *Cell) empty() bool {
	for _, p := range c.Paragraphs {
		if len(p.Runs) > 0 {
			return false
		}
	}
	return true
}

type Table struct {
	Style string
	cols  int
	grid  [][]*Cell
}

func newTable(rows, cols int) *Table {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	grid := make([][]*Cell, rows)
	for r := range grid {
		grid[r] = make([]*Cell, cols)
		for c := range grid[r] {
			grid[r][c] = &Cell{span: 1}
		}
	}
	return &Table{Style: "TableGrid", cols: cols, grid: grid}
}

func (t *Table) Rows() int {
	return len(t.grid)
}

func (t *Table) Cols() int {
	return t.cols
}

// Cell 返回覆盖 (row, col) 网格位置的单元格；越界时返回 nil。
func (t *Table) Cell(row, col int) *Cell {
	if row < 0 || row >= len(t.grid) || col < 0 || col >= t.cols {
		return nil
	}
	return t.grid[row][col]
}

// RowCells 返回一行中去重后的单元格，顺序与列顺序一致。
func (t *Table) RowCells(row int) []*Cell {
	if row < 0 || row >= len(t.grid) {
		return nil
	}
	var cells []*Cell
	var prev *Cell
	for _, c := range t.grid[row] {
		if c != prev {
			cells = append(cells, c)
		}
		prev = c
	}
	return cells
}

// Merge 把第 row 行的 from..to 列（含两端）合并成一个单元格并返回它。
// 被合并单元格中的非空内容追加到合并结果中。
func (t *Table) Merge(row, from, to int) (*Cell, error) {
	if row < 0 || row >= len(t.grid) {
		return nil, fmt.Errorf("docx: 行号 %d 越界", row)
	}
	if from < 0 || to >= t.cols || from > to {
		return nil, fmt.Errorf("docx: 无效的合并范围 %d..%d", from, to)
	}
	cells := t.grid[row]
	if from > 0 && cells[from-1] == cells[from] {
		return nil, fmt.Errorf("docx: 合并范围 %d..%d 与已合并的单元格部分重叠", from, to)
	}
	if to < t.cols-1 && cells[to] == cells[to+1] {
		return nil, fmt.Errorf("docx: 合并范围 %d..%d 与已合并的单元格部分重叠", from, to)
	}

	target := cells[from]
	prev := target
	for c := from + 1; c <= to; c++ {
		if cells[c] != prev && !cells[c].empty() {
			target.Paragraphs = append(target.Paragraphs, cells[c].Paragraphs...)
		}
		prev = cells[c]
		cells[c] = target
	}
	target.span = to - from + 1
	return target, nil
}

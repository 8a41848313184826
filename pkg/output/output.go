// Package output 把组装好的文档写入工作目录。
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/models"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/docx"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/imagestore"
)

// Ext 是生成报告的扩展名。
const Ext = ".docx"

// TempPrefix 是写入过程中临时文件的前缀，这些文件不带 Ext 后缀，不会被列出。
const TempPrefix = ".report-"

const (
	fallbackTitle   = "Untitled"
	maxNameAttempts = 1000
)

// Writer 把文档写成 {title}_{unix}.docx。
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// WithClock 替换时间来源，用于测试。
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

func (w *Writer) Dir() string {
	return w.dir
}

// FileName 返回 title 在时间 t 生成时的基本文件名 (不含冲突后缀)。
func FileName(title string, t time.Time) string {
	return fmt.Sprintf("%s_%d%s", safeTitle(title), t.Unix(), Ext)
}

func safeTitle(title string) string {
	if s := imagestore.SanitizeName(title); s != "" {
		return s
	}
	return fallbackTitle
}

// Write 先把 doc 编码到工作目录内的隐藏临时文件，写完后再以最终文件名发布。
// 临时文件与目标在同一目录，发布不会跨文件系统；发布之前目标名不可见。
// 同一秒内同名的报告依次得到 _1、_2…… 后缀。
// 任何 I/O 错误都返回 ErrWrite，此时工作目录中不会留下新报告。
func (w *Writer) Write(doc *docx.Document, title string) (models.GeneratedFile, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return models.GeneratedFile{}, fmt.Errorf("%w: 无法创建工作目录 %s: %w", apperr.ErrWrite, w.dir, err)
	}

	tmp, err := os.CreateTemp(w.dir, TempPrefix+"*.tmp")
	if err != nil {
		return models.GeneratedFile{}, fmt.Errorf("%w: 无法创建临时文件: %w", apperr.ErrWrite, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := doc.Encode(tmp); err != nil {
		tmp.Close()
		return models.GeneratedFile{}, fmt.Errorf("%w: 编码文档失败: %w", apperr.ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return models.GeneratedFile{}, fmt.Errorf("%w: 写入临时文件失败: %w", apperr.ErrWrite, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return models.GeneratedFile{}, fmt.Errorf("%w: 无法设置文件权限: %w", apperr.ErrWrite, err)
	}

	createdAt := w.now()
	name, err := w.publish(tmpPath, title, createdAt)
	if err != nil {
		return models.GeneratedFile{}, err
	}

	return models.GeneratedFile{
		Name:       name,
		Path:       filepath.Join(w.dir, name),
		Title:      title,
		ImageCount: len(doc.Tables()),
		CreatedAt:  createdAt,
	}, nil
}

// publish 用硬链接把写好的临时文件发布为最终文件名：
// 名字已存在时 os.Link 返回 ErrExist，换下一个后缀重试，不会覆盖已有报告。
func (w *Writer) publish(tmpPath, title string, t time.Time) (string, error) {
	base := strings.TrimSuffix(FileName(title, t), Ext)
	for i := 0; i < maxNameAttempts; i++ {
		name := base + Ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, Ext)
		}
		err := os.Link(tmpPath, filepath.Join(w.dir, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: 无法保存报告 %s: %w", apperr.ErrWrite, name, err)
		}
	}
	return "", fmt.Errorf("%w: 同名报告过多: %s", apperr.ErrWrite, base)
}

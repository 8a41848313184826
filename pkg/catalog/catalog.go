// Package catalog 列出、定位和删除工作目录中已生成的报告。
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/imagestore"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/output"
)

type Catalog struct {
	dir   string
	store *imagestore.Store
}

// New 返回工作目录 dir 上的 Catalog。不会创建目录。
func New(dir string) *Catalog {
	return &Catalog{dir: dir, store: imagestore.Open(dir)}
}

func (c *Catalog) Dir() string {
	return c.dir
}

// ListGenerated 返回工作目录中所有报告文件名（目录读取顺序）。
// 只认小写 .docx 后缀，与生成时的命名一致。
// 目录不存在或不可读时返回 ErrDirectoryUnavailable。成功时从不返回 nil。
func (c *Catalog) ListGenerated() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrDirectoryUnavailable, c.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(entry.Name(), output.Ext) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// ResolveForDownload 返回 name 对应的完整路径。名字非法、是目录或不存在时返回 ErrNotFound。
func (c *Catalog) ResolveForDownload(name string) (string, error) {
	if !imagestore.IsPlainName(name) {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
	}
	path := filepath.Join(c.dir, name)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
		}
		return "", fmt.Errorf("%w: 无法读取 %s: %w", apperr.ErrStorage, name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
	}
	return path, nil
}

// DeleteNamed 删除工作目录中的一个文件。
func (c *Catalog) DeleteNamed(name string) error {
	return c.store.RemoveNamed(name)
}

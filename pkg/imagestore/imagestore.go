package imagestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/models"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
)

// maxNameAttempts 限制同名文件追加 " (n)" 后缀的次数
const maxNameAttempts = 1000

// imageExtensions 是 PurgeImages 会删除的扩展名（比较时不区分大小写）。
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
}

var nameReplacer = strings.NewReplacer("<", " ", ">", " ", ":", " ", "\"", " ", "/", " ", "\\", " ", "|", " ", "?", " ", "*", " ")

// Store 管理一个目录下的图片文件。
type Store struct {
	dir string
}

// New 创建 Store，目录不存在时自动创建。
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: 无法创建目录 %s: %w", apperr.ErrStorage, dir, err)
	}
	return &Store{dir: dir}, nil
}

// Open 返回已有目录 dir 上的 Store，不检查也不创建目录。
func Open(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Persist 把 r 的内容写入 dir/name。name 会先经过 SanitizeName 清理；
// 目录里已有同名文件时改用 "name (1).ext"、"name (2).ext"……，保证同一批上传的图片都能保留。
func (s *Store) Persist(name string, r io.Reader) (models.ImageRef, error) {
	safe := SanitizeName(name)
	if safe == "" {
		return models.ImageRef{}, fmt.Errorf("%w: 非法的文件名 %q", apperr.ErrStorage, name)
	}

	file, fileName, err := s.createUnique(safe)
	if err != nil {
		return models.ImageRef{}, err
	}
	path := filepath.Join(s.dir, fileName)

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(path)
		return models.ImageRef{}, fmt.Errorf("%w: 写入图片 %s 失败: %w", apperr.ErrStorage, fileName, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return models.ImageRef{}, fmt.Errorf("%w: 写入图片 %s 失败: %w", apperr.ErrStorage, fileName, err)
	}

	return models.ImageRef{FileName: fileName, StoredPath: path}, nil
}

func (s *Store) createUnique(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}
		file, err := os.OpenFile(filepath.Join(s.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("%w: 无法创建文件 %s: %w", apperr.ErrStorage, candidate, err)
		}
	}
	return nil, "", fmt.Errorf("%w: 同名文件过多: %s", apperr.ErrStorage, name)
}

// PurgeImages 删除目录中所有图片文件（见 imageExtensions），不会动其他文件和子目录。
// 返回已删除的文件名；单个文件删除失败不会中止其余删除，所有错误合并后返回。
func (s *Store) PurgeImages() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: 无法读取目录 %s: %w", apperr.ErrStorage, s.dir, err)
	}

	var removed []string
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsImageName(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			errs = append(errs, fmt.Errorf("%w: 删除 %s 失败: %w", apperr.ErrStorage, entry.Name(), err))
			continue
		}
		removed = append(removed, entry.Name())
	}
	return removed, errors.Join(errs...)
}

// RemoveNamed 按精确文件名删除一个文件，不限扩展名。
func (s *Store) RemoveNamed(name string) error {
	if !IsPlainName(name) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
	}
	path := filepath.Join(s.dir, name)

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
		}
		return fmt.Errorf("%w: 无法读取 %s: %w", apperr.ErrStorage, name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
		}
		return fmt.Errorf("%w: 删除 %s 失败: %w", apperr.ErrStorage, name, err)
	}
	return nil
}

// IsImageName 判断文件名是否带有可识别的图片扩展名。
func IsImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsPlainName 判断 name 能否直接作为工作目录下的一级路径使用。
func IsPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}

// SanitizeName 去掉控制字符，把路径分隔符和 Windows 保留字符替换为空格，
// 并去掉首尾的空白和点。结果为空表示该名字不可用。
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	s := nameReplacer.Replace(name)
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ". ")
	if !IsPlainName(s) {
		return ""
	}
	return s
}

package imagestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/google/uuid"
)

// Workspace 是单个请求专用的临时目录 <root>/<uuid>。
// 上传的图片和未完成的输出都只写在这里，请求结束时整个目录被删除，
// 因此并发请求之间不会互相清理对方的图片。
type Workspace struct {
	*Store
	ID string
}

func NewWorkspace(root string) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: 无法创建请求工作区 %s: %w", apperr.ErrStorage, dir, err)
	}
	return &Workspace{Store: &Store{dir: dir}, ID: id}, nil
}

// Close 先清理图片，再删除整个工作区目录。返回被删除的图片名。
func (w *Workspace) Close() ([]string, error) {
	removed, purgeErr := w.PurgeImages()
	var rmErr error
	if err := os.RemoveAll(w.dir); err != nil {
		rmErr = fmt.Errorf("%w: 无法删除请求工作区 %s: %w", apperr.ErrStorage, w.dir, err)
	}
	return removed, errors.Join(purgeErr, rmErr)
}

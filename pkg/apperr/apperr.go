// Package apperr 定义报告服务的错误分类。
//
// 各组件用 fmt.Errorf("%w: ...: %w", apperr.ErrXxx, err) 包装底层错误，
// 调用方（HTTP 层、CLI）用 errors.Is 判断类别并决定状态码。
package apperr

import "errors"

var (
	// ErrValidation 表示请求输入不完整，例如没有上传任何图片。在产生任何副作用之前返回。
	ErrValidation = errors.New("validation error")
	// ErrStorage 表示文件系统写入或删除失败，也包括非法的文件名。
	ErrStorage = errors.New("storage error")
	// ErrAssembly 表示某张图片无法解码或嵌入文档。
	ErrAssembly = errors.New("assembly error")
	// ErrWrite 表示生成的文档无法写入工作目录。
	ErrWrite = errors.New("write error")
	// ErrNotFound 表示引用的文件不存在。
	ErrNotFound = errors.New("not found")
	// ErrDirectoryUnavailable 表示工作目录不存在或不可读。
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// Kind 返回 err 所属的类别名称，用于日志；无法归类时返回 "internal"。
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDirectoryUnavailable):
		return "directory_unavailable"
	case errors.Is(err, ErrAssembly):
		return "assembly"
	case errors.Is(err, ErrWrite):
		return "write"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}

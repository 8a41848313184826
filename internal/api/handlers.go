// 文件: internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mozillazg/go-unidecode"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/catalog"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/logger"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/metadata"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/report"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// 解析 multipart 时保留在内存中的上限，超出部分由 net/http 写入临时文件
const multipartMemory = 32 << 20

// APIHandlers 持有所有依赖
type APIHandlers struct {
	generator *report.Generator
	catalog   *catalog.Catalog
	cfg       *config.Config
}

// NewAPIHandlers 创建一个新的API处理器实例
func NewAPIHandlers(cfg *config.Config, gen *report.Generator, cat *catalog.Catalog) *APIHandlers {
	return &APIHandlers{
		generator: gen,
		catalog:   cat,
		cfg:       cfg,
	}
}

// --- 辅助函数 ---

// respondJSON 辅助函数，用于统一返回JSON响应
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError 辅助函数，用于统一返回错误信息
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

// statusFor 把错误类别映射为 HTTP 状态码。存储、组装、写入错误对调用方不做区分。
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrDirectoryUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录错误类别并返回对应的错误响应。
func fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "kind", apperr.Kind(err), "error", err)
	} else {
		log.Warn(msg, "kind", apperr.Kind(err), "error", err)
	}
	respondError(w, status, err.Error())
}

// --- 报告处理器 ---

// HandleUpload 接收图片和元数据，生成报告并返回文件名。
func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if limit := h.cfg.Storage.MaxUploadMB; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("上传内容超过 %d MB", h.cfg.Storage.MaxUploadMB))
			return
		}
		respondError(w, http.StatusBadRequest, "无法解析表单: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads := uploadsFromForm(r.MultipartForm)
	if len(uploads) == 0 {
		respondError(w, http.StatusBadRequest, "No images uploaded")
		return
	}

	raw := metadata.Raw{
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		ShootingTime:     r.FormValue("shooting_time"),
		ShootingLocation: r.FormValue("shooting_location"),
		Photographer:     r.FormValue("photographer"),
	}

	file, err := h.generator.Generate(r.Context(), raw, uploads)
	if err != nil {
		fail(w, r, "生成报告失败", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message":   "Word document generated successfully",
		"word_file": file.Name,
	})
}

// uploadsFromForm 按提交顺序取出 images 字段的文件，跳过未选择文件的空字段。
func uploadsFromForm(form *multipart.Form) []report.Upload {
	if form == nil {
		return nil
	}
	var uploads []report.Upload
	for _, fh := range form.File["images"] {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		uploads = append(uploads, report.Upload{
			FileName: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}

// HandleListFiles 列出已生成的报告。
func (h *APIHandlers) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := h.catalog.ListGenerated()
	if err != nil {
		fail(w, r, "无法列出报告", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"docx_files": names})
}

// HandleDownload 以附件形式返回一个报告文件。
func (h *APIHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name, err := fileParam(r)
	if err != nil {
		fail(w, r, "无法下载报告", err)
		return
	}
	path, err := h.catalog.ResolveForDownload(name)
	if err != nil {
		fail(w, r, "无法下载报告", err)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		fail(w, r, "无法下载报告", fmt.Errorf("%w: %w", apperr.ErrStorage, err))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		fail(w, r, "无法下载报告", fmt.Errorf("%w: %w", apperr.ErrStorage, err))
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", contentDisposition(name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

// fileParam 返回路由中的 {filename}。客户端的转义方式与默认不同时 (例如 & 写成 %26)，
// chi 按 RawPath 匹配，参数仍是转义后的形式，需要再解码一次。
func fileParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "filename")
	if r.URL.RawPath == "" {
		return name, nil
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
	}
	return decoded, nil
}

// HandleDelete 删除一个文件。
func (h *APIHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	name, err := fileParam(r)
	if err != nil {
		fail(w, r, "无法删除文件", err)
		return
	}
	if err := h.catalog.DeleteNamed(name); err != nil {
		fail(w, r, "无法删除文件", err)
		return
	}
	logger.FromContext(r.Context()).Info("文件已删除", "file", name)
	respondJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("File %s deleted successfully", name)})
}

// --- 配置处理器 ---

// HandleGetConfig 获取当前应用配置
func (h *APIHandlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cfg)
}

// contentDisposition 生成附件头：filename 是 ASCII 近似（中文转为拼音），
// 文件名含非 ASCII 字符时再附加按 RFC 2231 编码的 filename*。
func contentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, unidecode.Unidecode(name))
	if strings.TrimSpace(fallback) == "" {
		fallback = "report.docx"
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": fallback})
	if strings.IndexFunc(name, func(r rune) bool { return r > 0x7e }) >= 0 {
		// 参数值含非 ASCII 字符时 FormatMediaType 输出 filename*=utf-8''...
		encoded := mime.FormatMediaType("attachment", map[string]string{"filename": name})
		disposition += strings.TrimPrefix(encoded, "attachment")
	}
	return disposition
}

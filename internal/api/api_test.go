package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/catalog"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/imagestore"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/report"
)

func newTestServer(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.WorkDir = t.TempDir()
	return RegisterRoutes(cfg, report.NewGeneratorFromConfig(cfg), catalog.New(cfg.Storage.WorkDir)), cfg
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte, order []string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range order {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func upload(t *testing.T, h http.Handler, title string, n int) *httptest.ResponseRecorder {
	t.Helper()
	files := map[string][]byte{}
	var order []string
	for i := 0; i < n; i++ {
		name := string(rune('a'+i)) + ".png"
		files[name] = pngData(t, 12+i, 12)
		order = append(order, name)
	}
	body, ct := multipartBody(t, map[string]string{"title": title}, files, order)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadListDownloadDelete(t *testing.T) {
	h, cfg := newTestServer(t)

	rec := upload(t, h, "Site A", 3)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON(t, rec)
	name, _ := resp["word_file"].(string)
	assert.True(t, strings.HasPrefix(name, "Site A_"), name)
	assert.NotEmpty(t, resp["message"])

	// 上传的图片不应残留
	err := filepath.WalkDir(cfg.Storage.WorkDir, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		assert.False(t, !d.IsDir() && imagestore.IsImageName(d.Name()), path)
		return nil
	})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{name}, decodeJSON(t, rec)["docx_files"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/download/"+pathEscape(name), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, docxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment;")
	assert.Equal(t, "PK", rec.Body.String()[:2])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/delete/"+pathEscape(name), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decodeJSON(t, rec)["docx_files"])
}

// pathEscape 按浏览器 encodeURIComponent 的方式转义路径段。
func pathEscape(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

func TestReservedCharactersInNames(t *testing.T) {
	for _, title := range []string{"A&B", "A+B", "Site A, B", "100% done", "工地"} {
		t.Run(title, func(t *testing.T) {
			h, _ := newTestServer(t)

			rec := upload(t, h, title, 1)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			name, _ := decodeJSON(t, rec)["word_file"].(string)
			require.True(t, strings.HasPrefix(name, title+"_"), name)

			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, []any{name}, decodeJSON(t, rec)["docx_files"])

			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/download/"+pathEscape(name), nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "PK", rec.Body.String()[:2])
			_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
			require.NoError(t, err)
			assert.Equal(t, name, params["filename"])

			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/delete/"+pathEscape(name), nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
			assert.Equal(t, []any{}, decodeJSON(t, rec)["docx_files"])
		})
	}
}

func TestUploadErrors(t *testing.T) {
	h, _ := newTestServer(t)

	t.Run("no images", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "x"}, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, decodeJSON(t, rec)["error"])
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("corrupt image", func(t *testing.T) {
		body, ct := multipartBody(t, nil, map[string][]byte{"bad.png": []byte("nope")}, []string{"bad.png"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotEmpty(t, decodeJSON(t, rec)["error"])
	})
}

func TestNotFound(t *testing.T) {
	h, cfg := newTestServer(t)

	for _, target := range []string{"/api/download/missing.docx", "/api/delete/missing.docx"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	require.NoError(t, os.RemoveAll(cfg.Storage.WorkDir))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition("工地_1700000000.docx")
	assert.True(t, strings.HasPrefix(got, `attachment; filename=`), got)
	assert.NotContains(t, strings.SplitN(got, "filename*", 2)[0], "工")
	assert.Contains(t, got, `filename*=utf-8''%E5%B7%A5%E5%9C%B0_1700000000.docx`)

	_, params, err := mime.ParseMediaType(got)
	require.NoError(t, err)
	assert.Equal(t, "工地_1700000000.docx", params["filename"])

	assert.Equal(t, `attachment; filename="Site A.docx"`, contentDisposition("Site A.docx"))
	assert.Equal(t, `attachment; filename=report_1.docx`, contentDisposition("report_1.docx"))
}

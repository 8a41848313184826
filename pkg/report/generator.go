package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/models"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/apperr"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/imagestore"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/logger"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/metadata"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/output"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/picture"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/thumbnailer"
)

// Upload 是一张待处理的上传图片。Open 在处理时才被调用，每张图片只调用一次。
type Upload struct {
	FileName string
	Open     func() (io.ReadCloser, error)
}

// UploadFromFile 把本地文件包装成 Upload，供命令行使用。
func UploadFromFile(path string) Upload {
	return Upload{
		FileName: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// Options 配置 Generator。
type Options struct {
	// StagingDir 是请求工作区的根目录。
	StagingDir    string
	Layout        Layout
	Defaults      metadata.Defaults
	DecodeWorkers int
}

// Generator 执行一次上传的完整流程：
// 规范化元数据 -> 保存图片到独立工作区 -> 并发解码 -> 按顺序组装 -> 写出报告 -> 清理图片。
type Generator struct {
	assembler  *Assembler
	writer     *output.Writer
	stagingDir string
	defaults   metadata.Defaults
	workers    int
	now        func() time.Time

	// closeWorkspace 清理请求工作区，测试中可替换
	closeWorkspace func(*imagestore.Workspace) ([]string, error)
}

func NewGenerator(writer *output.Writer, opts Options) *Generator {
	return &Generator{
		assembler:  NewAssembler(opts.Layout),
		writer:     writer,
		stagingDir: opts.StagingDir,
		defaults:   opts.Defaults,
		workers:    opts.DecodeWorkers,
		now:        time.Now,

		closeWorkspace: (*imagestore.Workspace).Close,
	}
}

// NewGeneratorFromConfig 按配置创建 Generator，报告写入 cfg.Storage.WorkDir。
func NewGeneratorFromConfig(cfg *config.Config) *Generator {
	return NewGenerator(output.NewWriter(cfg.Storage.WorkDir), Options{
		StagingDir:    cfg.StagingPath(),
		Layout:        LayoutFromConfig(cfg.Report),
		Defaults:      metadata.DefaultsFromConfig(cfg.Metadata.Defaults),
		DecodeWorkers: cfg.Report.DecodeWorkers,
	})
}

// WithClock 替换时间来源，同时影响默认拍摄日期和报告文件名。
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	g.writer.WithClock(now)
	return g
}

// Generate 生成一份报告并返回它的文件信息。
//
// 没有图片时在任何副作用之前返回 ErrValidation。无论成功与否，
// 本次上传的图片都会被删除；删除失败只记录日志，不影响返回结果。
func (g *Generator) Generate(ctx context.Context, raw metadata.Raw, uploads []Upload) (models.GeneratedFile, error) {
	if len(uploads) == 0 {
		return models.GeneratedFile{}, fmt.Errorf("%w: 没有上传图片", apperr.ErrValidation)
	}
	for _, up := range uploads {
		if up.Open == nil {
			return models.GeneratedFile{}, fmt.Errorf("%w: 图片 %s 没有内容", apperr.ErrValidation, up.FileName)
		}
	}
	log := logger.FromContext(ctx)

	now := g.now()
	meta := metadata.Normalize(raw, g.defaults, now)

	ws, err := imagestore.NewWorkspace(g.stagingDir)
	if err != nil {
		return models.GeneratedFile{}, err
	}
	log = log.With("workspace", ws.ID)
	defer g.cleanup(log, ws)

	refs := make([]models.ImageRef, 0, len(uploads))
	for _, up := range uploads {
		ref, err := persist(ws, up)
		if err != nil {
			return models.GeneratedFile{}, err
		}
		if ref.FileName != up.FileName {
			log.Debug("上传文件已改名", "original", up.FileName, "stored", ref.FileName)
		}
		refs = append(refs, ref)
	}
	log.Info("上传图片已保存", "count", len(refs), "title", meta.Title)

	pics, err := picture.LoadAll(ctx, refs, g.workers)
	if err != nil {
		return models.GeneratedFile{}, err
	}
	warnDuplicates(log, pics)

	doc, err := g.assembler.Assemble(meta, pics, now)
	if err != nil {
		return models.GeneratedFile{}, err
	}
	// 预览图生成失败时仍然输出报告
	if thumb, err := pics[0].Thumbnail(thumbnailer.DefaultWidth, thumbnailer.DefaultHeight); err != nil {
		log.Warn("无法生成报告预览图", "file", pics[0].Ref.FileName, "error", err)
	} else {
		doc.Thumbnail = thumb
	}

	file, err := g.writer.Write(doc, meta.Title)
	if err != nil {
		return models.GeneratedFile{}, err
	}
	log.Info("报告已生成", "file", file.Name, "images", file.ImageCount, "pageBreaks", doc.PageBreaks())
	return file, nil
}

func persist(ws *imagestore.Workspace, up Upload) (models.ImageRef, error) {
	rc, err := up.Open()
	if err != nil {
		return models.ImageRef{}, fmt.Errorf("%w: 无法读取上传的图片 %s: %w", apperr.ErrStorage, up.FileName, err)
	}
	defer rc.Close()
	return ws.Persist(up.FileName, rc)
}

// cleanup 删除本次上传的图片和整个工作区。
func (g *Generator) cleanup(log *slog.Logger, ws *imagestore.Workspace) {
	removed, err := g.closeWorkspace(ws)
	if err != nil {
		log.Warn("清理上传图片失败", "removed", len(removed), "error", err)
		return
	}
	log.Debug("上传图片已清理", "removed", removed)
}

func warnDuplicates(log *slog.Logger, pics []*picture.Picture) {
	for _, group := range picture.Duplicates(pics) {
		names := make([]string, 0, len(group))
		for _, i := range group {
			names = append(names, pics[i].Ref.FileName)
		}
		log.Warn("发现重复图片", "files", names, "phash", pics[group[0]].PHash)
	}
}

package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/hasher"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/output"
)

// Maintenance 定义了维护工具的接口
type Maintenance interface {
	GenerateFileManifest(ctx context.Context, workDir, outputPath string) (string, error)
	SweepStaleWorkspaces(stagingRoot string, olderThan time.Duration) ([]string, error)
}

type defaultMaintenance struct {
	logger     *slog.Logger
	numWorkers int
	now        func() time.Time
}

// NewMaintenance 创建一个新的维护模块实例
func NewMaintenance(logger *slog.Logger, workerCount int) Maintenance {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &defaultMaintenance{
		logger:     logger.With("component", "maintenance"),
		numWorkers: workerCount,
		now:        time.Now,
	}
}

// GenerateFileManifest 并发地为工作目录中的报告生成 SHA-256 清单，
// 格式与 sha256sum 相同 ("<hash> *<name>")，按文件名排序。返回清单文件路径。
func (m *defaultMaintenance) GenerateFileManifest(ctx context.Context, workDir, outputPath string) (string, error) {
	m.logger.Info("开始生成文件清单", "workDir", workDir)

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", fmt.Errorf("无法读取工作目录: %w", err)
	}

	// 1. 创建输出文件
	manifestFileName := fmt.Sprintf("manifest_%s.txt", m.now().Format("2006-01-02"))
	manifestPath := filepath.Join(outputPath, manifestFileName)
	file, err := os.Create(manifestPath)
	if err != nil {
		return "", fmt.Errorf("无法创建清单文件: %w", err)
	}
	defer file.Close()

	// 2. 设置并发工作池
	var wg sync.WaitGroup
	tasks := make(chan string, m.numWorkers)
	results := make(chan string, m.numWorkers)

	for i := 0; i < m.numWorkers; i++ {
		wg.Add(1)
		go m.manifestWorker(&wg, workDir, tasks, results)
	}

	// 单独的协程收集结果，写文件前排序
	var lines []string
	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for line := range results {
			lines = append(lines, line)
		}
	}()

	// 3. 分发任务
dispatch:
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), output.Ext) {
			continue
		}
		select {
		case <-ctx.Done():
			break dispatch
		case tasks <- entry.Name():
		}
	}

	close(tasks)
	wg.Wait()
	close(results)
	collectWg.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i][strings.Index(lines[i], "*"):] < lines[j][strings.Index(lines[j], "*"):]
	})
	for _, line := range lines {
		if _, err := file.WriteString(line); err != nil {
			return "", fmt.Errorf("写入清单文件失败: %w", err)
		}
	}

	m.logger.Info("文件清单生成完毕", "path", manifestPath, "files", len(lines))
	return manifestPath, nil
}

// manifestWorker 是计算哈希并格式化输出的工人
func (m *defaultMaintenance) manifestWorker(wg *sync.WaitGroup, dir string, tasks <-chan string, results chan<- string) {
	defer wg.Done()
	for name := range tasks {
		hash, err := hasher.SHA256File(filepath.Join(dir, name))
		if err != nil {
			m.logger.Warn("计算文件哈希失败", "file", name, "error", err)
			continue
		}
		results <- fmt.Sprintf("%s *%s\n", hash, name)
	}
}

// SweepStaleWorkspaces 删除 stagingRoot 下修改时间早于 olderThan 的请求工作区。
// 只处理以 UUID 命名的目录，通常是进程崩溃后留下的。返回被删除的工作区 ID。
func (m *defaultMaintenance) SweepStaleWorkspaces(stagingRoot string, olderThan time.Duration) ([]string, error) {
	entries, err := os.ReadDir(stagingRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("无法读取工作区目录: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	var removed []string
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(stagingRoot, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, entry.Name())
	}

	if len(removed) > 0 {
		m.logger.Info("已清理过期工作区", "count", len(removed))
	}
	return removed, errors.Join(errs...)
}

// StartJanitor 在后台每隔 interval 清理一次过期工作区，ctx 取消时退出。
func StartJanitor(ctx context.Context, m Maintenance, stagingRoot string, interval, olderThan time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.SweepStaleWorkspaces(stagingRoot, olderThan); err != nil {
					slog.Warn("清理过期工作区失败", "error", err)
				}
			}
		}
	}()
}

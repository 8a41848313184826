package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

var (
	mu       sync.Mutex
	fileSink *lumberjack.Logger
)

// InitLogger 根据配置初始化全局的 slog 日志记录器。
// cfg.Path 非空时日志同时写入该文件，文件按 MaxSizeMB 滚动。
func InitLogger(cfg config.LoggerConfig) error {
	logLevel := new(slog.LevelVar)
	if err := setLogLevel(cfg.Level, logLevel); err != nil {
		return err
	}

	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
		// AddSource: true, // 如果需要输出源码位置（文件名和行号），取消此行注释
	}

	slog.SetDefault(slog.New(newHandler(cfg, output(cfg), handlerOpts)))
	return nil
}

func output(cfg config.LoggerConfig) io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if fileSink != nil {
		fileSink.Close()
		fileSink = nil
	}
	if cfg.Path == "" {
		return os.Stdout
	}
	fileSink = &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return io.MultiWriter(os.Stdout, fileSink)
}

// newHandler 根据配置选择日志格式 (text 或 json)
func newHandler(cfg config.LoggerConfig, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Close 关闭日志文件（如果有）。
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}

// setLogLevel 将字符串形式的日志级别转换为 slog.Level 类型
func setLogLevel(levelStr string, levelVar *slog.LevelVar) error {
	switch levelStr {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "", "info":
		levelVar.Set(slog.LevelInfo)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		return errors.New("无效的日志级别: " + levelStr)
	}
	return nil
}

// WithContext 把 logger 附加到 context 中，请求处理链上的代码用 FromContext 取回。
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext 返回 context 中的 logger，没有时返回默认 logger。
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// Discard 返回一个丢弃所有日志的 logger，主要用于测试，避免不必要的日志输出。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/dep2p/go-peerset/pkg/lib/log"
)

var (
	// globalOutput 全局日志输出目标，默认为 stderr
	globalOutput   io.Writer = os.Stderr
	globalOutputMu sync.RWMutex
)

// dynamicWriter 是一个动态查找 globalOutput 的 io.Writer
// 这样即使在 handler 创建后修改 globalOutput，也能生效
type dynamicWriter struct{}

func (w *dynamicWriter) Write(p []byte) (n int, err error) {
	globalOutputMu.RLock()
	output := globalOutput
	globalOutputMu.RUnlock()
	return output.Write(p)
}

// levelTable 各组件的日志级别，运行时可调整
type levelTable struct {
	mu  sync.RWMutex
	cfg *Config
}

func (t *levelTable) level(component string) slog.Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.LevelForSubsystem(component)
}

func (t *levelTable) set(subsystem string, level slog.Level) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if subsystem == "" {
		t.cfg.DefaultLevel = level
		return
	}
	t.cfg.SubsystemLevels[subsystem] = level
}

// componentHandler 按 component 属性选择日志级别的 slog.Handler
//
// pkg/lib/log.LazyLogger 通过 With(component, name) 写入组件名，
// WithAttrs 在这里截获该属性。
type componentHandler struct {
	table     *levelTable
	component string
	inner     slog.Handler
}

// newHandler 创建组件 Handler
func newHandler(table *levelTable, format LogFormat, addSource bool) *componentHandler {
	opts := &slog.HandlerOptions{
		// 过滤由 Enabled 完成，内部 handler 放行所有级别
		Level:     slog.LevelDebug,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelToString(lvl))
				}
			}
			return a
		},
	}

	output := &dynamicWriter{}

	var inner slog.Handler
	if format == FormatJSON {
		inner = slog.NewJSONHandler(output, opts)
	} else {
		inner = slog.NewTextHandler(output, opts)
	}

	return &componentHandler{table: table, inner: inner}
}

// Enabled 检查是否启用指定级别
func (h *componentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.table.level(h.component)
}

// Handle 处理日志记录
func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

// WithAttrs 添加属性
func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == log.ComponentKey {
			component = a.Value.String()
		}
	}
	return &componentHandler{
		table:     h.table,
		component: component,
		inner:     h.inner.WithAttrs(attrs),
	}
}

// WithGroup 添加组
func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{
		table:     h.table,
		component: h.component,
		inner:     h.inner.WithGroup(name),
	}
}

// levelToString 将日志级别转换为小写字符串
func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

// discardHandler 丢弃所有日志的 Handler（用于测试）
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

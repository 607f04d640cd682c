package logger

import (
	"io"
	"log/slog"
	"sync"

	"github.com/dep2p/go-peerset/pkg/lib/log"
)

var (
	installed   *levelTable
	installedMu sync.Mutex
)

// Setup 根据 cfg 安装全局 slog handler
//
// cfg 为 nil 时从环境变量读取。重复调用会替换之前的配置。
//
// 示例:
//
//	logger.Setup(nil)
//	var l = log.Logger("core/peerset")
//	l.Debug("slot allocation", "protocol", p)
func Setup(cfg *Config) {
	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	if cfg.SubsystemLevels == nil {
		cfg.SubsystemLevels = make(map[string]slog.Level)
	}

	table := &levelTable{cfg: cfg}

	installedMu.Lock()
	installed = table
	installedMu.Unlock()

	log.SetDefault(slog.New(newHandler(table, cfg.Format, cfg.AddSource)))
}

// SetLevel 动态设置子系统的日志级别
//
// subsystem 为空时设置默认级别。Setup 之前调用无效。
//
// 示例:
//
//	logger.SetLevel("core/peerset", slog.LevelDebug)
func SetLevel(subsystem string, level slog.Level) {
	installedMu.Lock()
	table := installed
	installedMu.Unlock()

	if table != nil {
		table.set(subsystem, level)
	}
}

// SetOutput 设置全局日志输出目标
//
// 由于使用了 dynamicWriter，已创建的 logger 的输出也会重定向。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}

// Logger 获取指定子系统的 Logger
func Logger(subsystem string) *slog.Logger {
	return slog.Default().With(log.ComponentKey, subsystem)
}

// Discard 返回一个丢弃所有日志的 Logger
//
// 主要用于测试，避免日志输出干扰测试结果。
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

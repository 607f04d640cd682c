// Package logger 安装 go-peerset 的全局日志 handler
//
// 支持通过环境变量配置日志级别：
//   - PEERSET_LOG_LEVEL: 设置日志级别，支持按子系统配置
//     格式: 子系统=级别,子系统=级别,默认级别
//     示例: core/peerset=debug,core/peerstore=warn,info
//   - PEERSET_LOG_FORMAT: 日志格式 (text 或 json)
//   - PEERSET_LOG_ADD_SOURCE: 是否输出源码位置
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// 环境变量名
const (
	EnvLogLevel     = "PEERSET_LOG_LEVEL"
	EnvLogFormat    = "PEERSET_LOG_FORMAT"
	EnvLogAddSource = "PEERSET_LOG_ADD_SOURCE"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// SubsystemLevels 各子系统的日志级别
	//
	// 键是组件名或组件名前缀（按 "/" 分段），如 "core" 覆盖 "core/peerset"。
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// AddSource 是否添加源码位置
	AddSource bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
	}
}

// LevelForSubsystem 获取指定子系统的日志级别
//
// 按最长前缀匹配：core/peerset → core → 默认级别。
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	name := subsystem
	for {
		if level, ok := c.SubsystemLevels[name]; ok {
			return level
		}
		i := strings.LastIndex(name, "/")
		if i < 0 {
			return c.DefaultLevel
		}
		name = name[:i]
	}
}

// ConfigFromEnv 从环境变量解析配置
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if levelStr := os.Getenv(EnvLogLevel); levelStr != "" {
		ParseLevelSpec(cfg, levelStr)
	}

	if formatStr := os.Getenv(EnvLogFormat); formatStr != "" {
		cfg.Format = ParseFormat(formatStr)
	}

	if addSourceStr := os.Getenv(EnvLogAddSource); addSourceStr != "" {
		cfg.AddSource = addSourceStr != "false" && addSourceStr != "0"
	}

	return cfg
}

// ParseLevelSpec 解析日志级别配置字符串到 cfg
//
// 格式: subsystem=level,subsystem=level,defaultLevel
// 无法识别的级别名被忽略。
func ParseLevelSpec(cfg *Config, levelStr string) {
	for _, part := range strings.Split(levelStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if subsystem, levelName, ok := strings.Cut(part, "="); ok {
			if level, ok := parseLevel(strings.TrimSpace(levelName)); ok {
				cfg.SubsystemLevels[strings.TrimSpace(subsystem)] = level
			}
			continue
		}

		if level, ok := parseLevel(part); ok {
			cfg.DefaultLevel = level
		}
	}
}

// ParseFormat 解析日志格式名称
func ParseFormat(name string) LogFormat {
	if strings.EqualFold(name, "json") {
		return FormatJSON
	}
	return FormatText
}

// parseLevel 解析日志级别名称
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// 环境变量（均使用 PEERSET_ 前缀）
const (
	EnvPrefix       = "PEERSET_"
	EnvPreset       = "PRESET"
	EnvDataDir      = "DATA_DIR"
	EnvPersist      = "PERSIST"
	EnvMetricsAddr  = "METRICS_ADDR"
	EnvMaxIn        = "MAX_IN"
	EnvMaxOut       = "MAX_OUT"
	EnvReservedOnly = "RESERVED_ONLY"
	EnvKnownPeers   = "KNOWN_PEERS"
	EnvLogFile      = "LOG_FILE"
)

// LookupFunc 查找环境变量，签名同 os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv 应用环境变量覆盖
//
// 环境变量优先级高于配置文件，低于命令行参数。
// MAX_IN、MAX_OUT、RESERVED_ONLY 作用于所有协议；KNOWN_PEERS 逗号分隔，追加到已知节点。
// PRESET 不在这里处理，由调用方在加载配置前读取。
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if v, ok := lookup(EnvPrefix + EnvDataDir); ok && v != "" {
		cfg.Storage.DataDir = v
	}

	if v, ok := lookup(EnvPrefix + EnvPersist); ok && v != "" {
		cfg.Peerstore.Persist = ParseBool(v)
	}

	if v, ok := lookup(EnvPrefix + EnvMetricsAddr); ok {
		cfg.Metrics.ListenAddr = v
	}

	if v, ok := lookup(EnvPrefix + EnvMaxIn); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, EnvMaxIn, err)
		}
		for i := range cfg.Protocols {
			cfg.Protocols[i].MaxIn = n
		}
	}

	if v, ok := lookup(EnvPrefix + EnvMaxOut); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, EnvMaxOut, err)
		}
		for i := range cfg.Protocols {
			cfg.Protocols[i].MaxOut = n
		}
	}

	if v, ok := lookup(EnvPrefix + EnvReservedOnly); ok && v != "" {
		on := ParseBool(v)
		for i := range cfg.Protocols {
			cfg.Protocols[i].ReservedOnly = on
		}
	}

	if v, ok := lookup(EnvPrefix + EnvKnownPeers); ok && v != "" {
		for _, id := range SplitAndTrim(v, ",") {
			cfg.KnownPeers = append(cfg.KnownPeers, KnownPeer{PeerID: id})
		}
	}

	return nil
}

// ParseBool 解析布尔值字符串
func ParseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// SplitAndTrim 分割字符串并去除空白
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

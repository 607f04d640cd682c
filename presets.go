package peerset

import (
	"github.com/dep2p/go-peerset/config"
)

// 预设名称常量
const (
	// PresetNameTest 测试预设：内存存储、严格不变量、固定退避、无 HTTP 指标
	PresetNameTest = "test"

	// PresetNameServer 服务器预设：更大的槽位与持久化信誉
	PresetNameServer = "server"
)

// GetTestConfig 获取测试配置
//
// 示例：
//
//	cfg := peerset.GetTestConfig(config.DefaultPeersetConfig("/block-announces/1"))
func GetTestConfig(protocols ...config.PeersetConfig) *config.Config {
	return presetConfig(PresetNameTest, protocols)
}

// GetServerConfig 获取服务器配置
func GetServerConfig(protocols ...config.PeersetConfig) *config.Config {
	return presetConfig(PresetNameServer, protocols)
}

func presetConfig(name string, protocols []config.PeersetConfig) *config.Config {
	cfg := config.NewConfig()
	cfg.Protocols = append(cfg.Protocols, protocols...)
	// 预设名称均为已知值
	_ = config.ApplyPreset(cfg, name)
	return cfg
}

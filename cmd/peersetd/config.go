package main

import (
	"flag"

	"github.com/dep2p/go-peerset/config"
)

// ============================================================================
//                              配置构建（CLI 专用）
// ============================================================================

// buildConfig 合并配置来源
//
// 优先级（从高到低）：
//  1. 命令行参数
//  2. 环境变量（PEERSET_* 前缀）
//  3. 配置文件
//  4. 预设与默认值
func buildConfig(fs *flag.FlagSet, f *cliFlags, lookup config.LookupFunc) (*config.Config, error) {
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	// 1. 配置文件
	cfg := config.NewConfig()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// 协议要在环境变量之前确定，MAX_IN 等作用于全部协议
	if f.protocols != "" {
		cfg.Protocols = cfg.Protocols[:0]
		for _, p := range config.SplitAndTrim(f.protocols, ",") {
			cfg.Protocols = append(cfg.Protocols, config.DefaultPeersetConfig(p))
		}
	}
	if len(cfg.Protocols) == 0 {
		cfg.Protocols = append(cfg.Protocols, config.DefaultPeersetConfig(config.DefaultProtocol))
	}

	// 2. 预设（命令行 > 环境变量）
	preset := f.preset
	if preset == "" {
		if v, ok := lookup(config.EnvPrefix + config.EnvPreset); ok {
			preset = v
		}
	}
	if err := config.ApplyPreset(cfg, preset); err != nil {
		return nil, err
	}

	// 3. 环境变量
	if err := config.ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	// 4. 命令行参数
	for i := range cfg.Protocols {
		p := &cfg.Protocols[i]
		if set["max-in"] {
			p.MaxIn = f.maxIn
		}
		if set["max-out"] {
			p.MaxOut = f.maxOut
		}
		if f.reserved != "" {
			*p = p.WithReservedPeers(config.SplitAndTrim(f.reserved, ",")...)
		}
		if set["reserved-only"] {
			p.ReservedOnly = f.reservedOnly
		}
	}
	if set["remote-peers"] {
		cfg.Transport.RemotePeers = f.remotePeers
	}
	if set["failure-rate"] {
		cfg.Transport.OpenFailureRate = f.failureRate
	}
	if set["metrics-addr"] {
		cfg.Metrics.ListenAddr = f.metricsAddr
		if f.metricsAddr != "" {
			cfg.Metrics.Enabled = true
		}
	}
	if set["persist"] {
		cfg.Peerstore.Persist = f.persist
	}
	if f.dataDir != "" {
		cfg.Storage.DataDir = f.dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

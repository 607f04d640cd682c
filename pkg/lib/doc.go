// Package lib 包含基础设施工具库
//
// 本目录包含与架构组件无关的通用工具库：
//
//   - log: 组件级日志封装（log/slog）
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含三类内容：
//
//   - interfaces/: 组件公共接口（Transport、Peerstore）
//   - types/: 公共类型定义（PeerID、ProtocolID、信誉变更）
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import "github.com/dep2p/go-peerset/pkg/lib/log"
//
//	var logger = log.Logger("core/peerset")
package lib

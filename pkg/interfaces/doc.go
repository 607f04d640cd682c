// Package interfaces 定义 go-peerset 的公共接口
//
// peerset 核心只通过这些边界接口与外部协作者交互：
//   - transport.go  - 通知传输层（执行打开/关闭子流，回报结果）
//   - peerstore.go  - 节点信息存储（候选节点、封禁、信誉）
//
// # 依赖方向
//
//	cmd → peerset(Node) → notification → peerset(core) → interfaces → types
//
// 禁止反向依赖。
package interfaces

// Package peerset 提供按通知协议管理节点槽位的 peerset 节点
//
// 每个通知协议（如 /block-announces/1）拥有一个独立的 peerset：
// 它决定与哪些节点保持子流、入站与出站各允许多少并发，
// 并把传输层异步、可能相互竞争的子流事件（双向同时拨号、迟到的失败、运维断开）
// 归并成一致的节点状态视图。
//
// # 快速开始
//
//	node, err := peerset.New(
//	    peerset.WithPreset(peerset.PresetNameTest),
//	    peerset.WithProtocols(config.DefaultPeersetConfig("/block-announces/1")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	status, _ := node.Status("/block-announces/1")
//	fmt.Println(status.NumIn, status.NumOut)
//
// # 模块组成
//
//   - internal/core/peerset: 状态表、槽位计数、命令队列与动作批次
//   - internal/core/peerstore: 已知节点、信誉、封禁与候选者
//   - internal/core/backoff: 重拨退避策略与定时器
//   - internal/core/notification: 驱动 peerset 的协议控制器
//   - internal/core/transport: 内存模拟传输
//   - internal/core/metrics: Prometheus 指标（Metrics.Enabled 时装配）
//   - internal/core/storage: BadgerDB 存储（Peerstore.Persist 时装配）
package peerset

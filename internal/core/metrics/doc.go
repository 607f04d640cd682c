// Package metrics 提供 peerset 的 Prometheus 指标
//
// Tracer 实现 peerset.Tracer，把核心事件转换为指标：
//   - peerset_state_transitions_total  状态转换（protocol, from, to）
//   - peerset_peers                    各状态的节点数（protocol, state）
//   - peerset_slots                    槽位占用（protocol, direction）
//   - peerset_inbound_total            入站校验结果（protocol, result）
//   - peerset_actions_total            发出的动作批次（protocol, kind）
//   - peerset_action_batch_size        动作批次大小（protocol, kind）
//   - peerset_commands_total           处理的命令（protocol, command）
//
// 另外通过 GaugeFunc 暴露共享的已连接计数与 Peerstore 规模：
//   - peerset_connected_peers
//   - peerset_known_peers / peerset_banned_peers
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	tracer := metrics.NewTracer(metrics.WithRegisterer(reg))
//	tracer.RegisterConnected(&connected)
//
//	ps, handle, err := peerset.New(cfg, &connected, book, peerset.WithTracer(tracer))
//
// # 快照
//
// SnapshotLogger 周期性输出每个协议的槽位与状态分布，便于日志分析：
//
//	snap := metrics.NewSnapshotLogger(tracer, 30*time.Second)
//	snap.Start()
//	defer snap.Stop()
package metrics

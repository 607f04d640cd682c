// Package peerset 实现通知协议的节点连接槽位管理器
//
// 每个通知协议拥有一个独立的 Peerset。Peerset 为每个节点维护唯一状态，
// 执行入站/出站槽位上限与保留节点策略，并把操作命令和传输层回报
// 翻译为批量的打开/关闭子流动作。
//
// # 节点状态
//
//	(absent) ──打开/接受──▶ Opening(dir) ──opened──▶ Connected(dir) ──closed──▶ Backoff
//	                          │                          │                       │
//	                   DisconnectPeer             DisconnectPeer           退避到期
//	                          ▼                          ▼                       ▼
//	                     Canceled(dir) ──opened──▶ Closing(dir) ──closed──▶  (absent)
//
// Opening/Canceled 打开失败 → Backoff。dir 记录发起方向以及进入状态时节点是否为保留节点。
//
// # 槽位计数
//
// numIn/numOut 始终等于方向匹配的 Opening/Connected/Closing/Canceled 条目数。
// 所有计数修改都发生在唯一的状态转换函数 transition 中。
// 保留节点同样占用槽位，但不会因为槽位不足被拒绝。
//
// # 并发模型
//
// Peerset 不加锁、不启动 goroutine、不做阻塞 I/O。所有修改方法
// （Report*、AllocateSlots、Poll、Next）必须由所有者串行调用。
// 命令通过 Handle 从任意 goroutine 发送，进入无界 FIFO 队列，
// 在所有者下一次 Poll 时逐条处理。
//
// 已连接节点计数器（*atomic.Int64）可在多个协议间共享：
// 每个 Peerset 只在自己的转换中写入，其他组件只读。
//
// # 快速开始
//
//	ps, handle, err := peerset.New(peerset.Config{
//	    Protocol: "/block-announces/1",
//	    MaxIn:    25,
//	    MaxOut:   15,
//	}, connected, store)
//
//	// 所有者循环
//	for {
//	    action, err := ps.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    execute(action)
//	}
//
//	// 任意 goroutine
//	_ = handle.AddReservedPeers([]types.PeerID{"validator-1"})
package peerset

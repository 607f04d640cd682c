// Package transport 装配通知传输层
//
// 当前只提供内存模拟传输（见 memory 子包）：远端节点在启动时写入 Peerstore，
// 模拟的入站与断开循环随 Fx 生命周期启动与停止。
package transport

// Package mocks 提供 pkg/interfaces 的 GoMock 实现
//
//   - MockTransport: 模拟 interfaces.Transport
//   - MockSubstreamReporter: 模拟 interfaces.SubstreamReporter
//   - MockPeerstore: 模拟 interfaces.Peerstore
//   - MockProtocolHandle: 模拟 interfaces.ProtocolHandle
//
// 重新生成：
//
//	go run go.uber.org/mock/mockgen -package mocks -destination transport.go github.com/dep2p/go-peerset/pkg/interfaces Transport,SubstreamReporter
//	go run go.uber.org/mock/mockgen -package mocks -destination peerstore.go github.com/dep2p/go-peerset/pkg/interfaces Peerstore,ProtocolHandle
package mocks

package types

// ============================================================================
//                              Direction - 子流方向
// ============================================================================

// Direction 子流方向（由哪一端发起）
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站子流
	DirInbound
	// DirOutbound 出站子流
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              ValidationResult - 入站校验结果
// ============================================================================

// ValidationResult 入站子流的校验结果
type ValidationResult int

const (
	// ValidationAccept 接受入站子流
	ValidationAccept ValidationResult = iota
	// ValidationReject 拒绝入站子流
	ValidationReject
)

// String 返回校验结果的字符串表示
func (r ValidationResult) String() string {
	if r == ValidationAccept {
		return "accept"
	}
	return "reject"
}

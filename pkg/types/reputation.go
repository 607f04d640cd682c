package types

import "math"

// ReputationChange 信誉变更
//
// Value 为正表示奖励，为负表示惩罚；Reason 仅用于日志与指标。
type ReputationChange struct {
	Value  int32
	Reason string
}

// NewReputationChange 创建信誉变更
func NewReputationChange(value int32, reason string) ReputationChange {
	return ReputationChange{Value: value, Reason: reason}
}

// NewFatalReputationChange 创建致命信誉变更（直接降到最低）
func NewFatalReputationChange(reason string) ReputationChange {
	return ReputationChange{Value: math.MinInt32, Reason: reason}
}

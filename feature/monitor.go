package feature

import "sync"

// Monitor 记录特征降级（取值失败按默认值处理）的情况。
// metrics.Metrics 提供基于 Prometheus 的实现。
type Monitor interface {
	// FeatureDegraded 记录一次降级
	FeatureDegraded(featureName string)
}

// NopMonitor 不做任何记录。
type NopMonitor struct{}

func (NopMonitor) FeatureDegraded(string) {}

// CountingMonitor 是内存计数实现，测试与单机排查时使用，并发安全。
type CountingMonitor struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewCountingMonitor() *CountingMonitor {
	return &CountingMonitor{counts: make(map[string]int)}
}

func (m *CountingMonitor) FeatureDegraded(featureName string) {
	m.mu.Lock()
	m.counts[featureName]++
	m.mu.Unlock()
}

// Count 返回某个特征的降级次数。
func (m *CountingMonitor) Count(featureName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[featureName]
}

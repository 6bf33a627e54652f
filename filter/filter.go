// Package filter 提供重排前的候选过滤（filter query），过滤发生在分片内、窗口截取之前。
package filter

import (
	"context"

	"github.com/rushteam/ltr/core"
)

// Filter 是过滤器的抽象接口，用于判断一个候选是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断候选是否应该被过滤
	ShouldFilter(ctx context.Context, qctx *core.QueryContext, c *core.Candidate) (bool, error)
}

package filter

import (
	"context"
	"encoding/json"

	"github.com/rushteam/ltr/core"
)

// BlacklistFilter 过滤掉黑名单中的文档。
type BlacklistFilter struct {
	// IDs 是请求携带的黑名单文档 ID
	IDs []string

	// Store/Key 可选：从存储中读取黑名单，值为 JSON 字符串数组
	Store core.Store
	Key   string

	ids map[string]struct{}
}

// NewBlacklistFilter 创建黑名单过滤器，store 中的黑名单在创建时读取一次。
// key 不存在视为空黑名单。
func NewBlacklistFilter(ctx context.Context, ids []string, store core.Store, key string) (*BlacklistFilter, error) {
	f := &BlacklistFilter{IDs: ids, Store: store, Key: key, ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	if store != nil && key != "" {
		raw, err := store.Get(ctx, key)
		switch {
		case core.IsStoreNotFound(err):
		case err != nil:
			return nil, err
		default:
			var stored []string
			if err := json.Unmarshal(raw, &stored); err != nil {
				return nil, core.WrapError(core.ModuleStore, core.ErrorCodeInvalidInput, "decode blacklist "+key, err)
			}
			for _, id := range stored {
				f.ids[id] = struct{}{}
			}
		}
	}
	return f, nil
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(_ context.Context, _ *core.QueryContext, c *core.Candidate) (bool, error) {
	if c == nil {
		return true, nil
	}
	if f.ids == nil {
		for _, id := range f.IDs {
			if c.ID() == id {
				return true, nil
			}
		}
		return false, nil
	}
	_, ok := f.ids[c.ID()]
	return ok, nil
}

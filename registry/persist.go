package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/model"
)

// 持久化布局：
//   - ltr:featurestores          Hash，field 为特征库名（索引）
//   - ltr:featurestore:<store>   String，该特征库的特征定义 JSON 数组
//   - ltr:models                 Hash，field 为模型名，value 为模型定义 JSON
const (
	keyStoreIndex  = "ltr:featurestores"
	keyStorePrefix = "ltr:featurestore:"
	keyModels      = "ltr:models"
)

// persister 把定义读写到 core.KeyValueStore（memory / redis）。
type persister struct {
	kv core.KeyValueStore
}

func storeKey(name string) string { return keyStorePrefix + name }

// load 读取全部已持久化的定义。特征库与模型按名称排序，特征保持写入时的顺序。
func (p *persister) load(ctx context.Context) (Definitions, error) {
	var defs Definitions

	index, err := p.kv.HGetAll(ctx, keyStoreIndex)
	if err != nil && !core.IsStoreNotFound(err) {
		return defs, fmt.Errorf("read feature store index: %w", err)
	}
	storeNames := make([]string, 0, len(index))
	keys := make([]string, 0, len(index))
	for name := range index {
		storeNames = append(storeNames, name)
	}
	sort.Strings(storeNames)
	for _, name := range storeNames {
		keys = append(keys, storeKey(name))
	}

	if len(keys) > 0 {
		values, err := p.kv.BatchGet(ctx, keys)
		if err != nil {
			return defs, fmt.Errorf("read feature stores: %w", err)
		}
		for i, name := range storeNames {
			raw, ok := values[keys[i]]
			if !ok {
				continue
			}
			var features []feature.Definition
			if err := json.Unmarshal(raw, &features); err != nil {
				return defs, core.WrapError(core.ModuleRegistry, core.ErrorCodeConfiguration, "decode feature store "+name, err)
			}
			for _, f := range features {
				f.Store = name
				defs.Features = append(defs.Features, f)
			}
		}
	}

	models, err := p.kv.HGetAll(ctx, keyModels)
	if err != nil && !core.IsStoreNotFound(err) {
		return defs, fmt.Errorf("read models: %w", err)
	}
	modelNames := make([]string, 0, len(models))
	for name := range models {
		modelNames = append(modelNames, name)
	}
	sort.Strings(modelNames)
	for _, name := range modelNames {
		var m model.Definition
		if err := json.Unmarshal(models[name], &m); err != nil {
			return defs, core.WrapError(core.ModuleRegistry, core.ErrorCodeConfiguration, "decode model "+name, err)
		}
		defs.Models = append(defs.Models, m)
	}
	return defs, nil
}

// saveStores 写入若干特征库的完整定义。
func (p *persister) saveStores(ctx context.Context, defs Definitions, stores ...string) error {
	kvs := make(map[string][]byte, len(stores))
	for _, name := range stores {
		data, err := json.Marshal(defs.StoreFeatures(name))
		if err != nil {
			return fmt.Errorf("encode feature store %s: %w", name, err)
		}
		kvs[storeKey(name)] = data
	}
	if err := p.kv.BatchSet(ctx, kvs); err != nil {
		return fmt.Errorf("write feature stores: %w", err)
	}
	for _, name := range stores {
		if err := p.kv.HSet(ctx, keyStoreIndex, name, []byte("1")); err != nil {
			return fmt.Errorf("write feature store index: %w", err)
		}
	}
	return nil
}

func (p *persister) deleteStore(ctx context.Context, name string) error {
	if err := p.kv.HDel(ctx, keyStoreIndex, name); err != nil {
		return fmt.Errorf("delete feature store index: %w", err)
	}
	if err := p.kv.Delete(ctx, storeKey(name)); err != nil && !core.IsStoreNotFound(err) {
		return fmt.Errorf("delete feature store: %w", err)
	}
	return nil
}

func (p *persister) saveModel(ctx context.Context, def model.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode model %s: %w", def.Name, err)
	}
	if err := p.kv.HSet(ctx, keyModels, def.Name, data); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

func (p *persister) deleteModel(ctx context.Context, name string) error {
	if err := p.kv.HDel(ctx, keyModels, name); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	return nil
}

// replace 用 defs 覆盖全部已持久化的定义，删除不再存在的特征库与模型。
func (p *persister) replace(ctx context.Context, defs Definitions) error {
	old, err := p.load(ctx)
	if err != nil {
		return err
	}
	keepStores := make(map[string]bool)
	for _, s := range defs.StoreNames() {
		keepStores[s] = true
	}
	for _, s := range old.StoreNames() {
		if !keepStores[s] {
			if err := p.deleteStore(ctx, s); err != nil {
				return err
			}
		}
	}
	keepModels := make(map[string]bool)
	for _, m := range defs.Models {
		keepModels[m.Name] = true
	}
	for _, m := range old.Models {
		if !keepModels[m.Name] {
			if err := p.deleteModel(ctx, m.Name); err != nil {
				return err
			}
		}
	}

	if stores := defs.StoreNames(); len(stores) > 0 {
		if err := p.saveStores(ctx, defs, stores...); err != nil {
			return err
		}
	}
	for _, m := range defs.Models {
		if err := p.saveModel(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

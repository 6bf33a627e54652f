package registry

import (
	"sort"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/model"
)

// Snapshot 是一组已校验、不可变的特征库与模型。查询在开始时取一次 Snapshot，
// 整个查询期间都使用它，即使期间发生了 reload。
type Snapshot struct {
	version uint64
	defs    Definitions
	stores  map[string]*feature.Store
	models  map[string]model.Model
}

// Build 校验全部定义并构建 Snapshot。任何一个定义非法都返回 CONFIGURATION，不会产生部分结果。
func Build(defs Definitions) (*Snapshot, error) {
	defs = defs.Clone()
	defs.normalize()

	s := &Snapshot{
		defs:   defs,
		stores: make(map[string]*feature.Store),
		models: make(map[string]model.Model, len(defs.Models)),
	}
	for _, name := range defs.StoreNames() {
		fs, err := feature.LoadStore(name, defs.StoreFeatures(name))
		if err != nil {
			return nil, err
		}
		s.stores[name] = fs
	}
	for _, def := range defs.Models {
		if _, dup := s.models[def.Name]; dup {
			return nil, core.Errorf(core.ModuleRegistry, core.ErrorCodeConfiguration, "duplicate model %q", def.Name)
		}
		m, err := model.Load(def, s.stores[def.StoreName()])
		if err != nil {
			return nil, err
		}
		s.models[def.Name] = m
	}
	return s, nil
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		stores: map[string]*feature.Store{},
		models: map[string]model.Model{},
	}
}

// Version 每次安装新的 Snapshot 时递增。
func (s *Snapshot) Version() uint64 { return s.version }

// Model 按名称查找模型，不存在时返回 MODEL_NOT_FOUND。
func (s *Snapshot) Model(name string) (model.Model, error) {
	if m, ok := s.models[name]; ok {
		return m, nil
	}
	return nil, core.Errorf(core.ModuleRegistry, core.ErrorCodeModelNotFound, "model %q not found", name)
}

// FeatureStore 按名称查找特征库，不存在时返回 NOT_FOUND。
func (s *Snapshot) FeatureStore(name string) (*feature.Store, error) {
	if fs, ok := s.stores[name]; ok {
		return fs, nil
	}
	return nil, core.Errorf(core.ModuleRegistry, core.ErrorCodeNotFound, "feature store %q not found", name)
}

// ModelNames 返回模型名（排序）。
func (s *Snapshot) ModelNames() []string {
	names := make([]string, 0, len(s.models))
	for n := range s.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FeatureStoreNames 返回特征库名（排序）。
func (s *Snapshot) FeatureStoreNames() []string {
	names := make([]string, 0, len(s.stores))
	for n := range s.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions 返回构建该 Snapshot 的定义副本。
func (s *Snapshot) Definitions() Definitions { return s.defs.Clone() }

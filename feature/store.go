package feature

import (
	"github.com/rushteam/ltr/core"
)

// DefaultStoreName 是未指定特征库时使用的名称。
const DefaultStoreName = "_DEFAULT_"

// Store 是具名、不可变的特征集合。特征按插入顺序保存，该顺序决定默认的向量布局。
type Store struct {
	name     string
	features []Feature
	index    map[string]int
}

// LoadStore 从定义构建特征库。重名、类型未知或参数非法时返回 CONFIGURATION 错误，
// 不会返回部分构建的特征库。
func LoadStore(name string, defs []Definition) (*Store, error) {
	if name == "" {
		name = DefaultStoreName
	}
	features := make([]Feature, 0, len(defs))
	for _, def := range defs {
		if def.Store != "" && def.Store != name {
			return nil, core.Errorf(core.ModuleFeature, core.ErrorCodeConfiguration,
				"feature %q belongs to store %q, not %q", def.Name, def.Store, name)
		}
		f, err := Build(def)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return NewStore(name, features...)
}

// NewStore 用已构建的特征创建特征库。
func NewStore(name string, features ...Feature) (*Store, error) {
	if name == "" {
		name = DefaultStoreName
	}
	s := &Store{
		name:     name,
		features: make([]Feature, 0, len(features)),
		index:    make(map[string]int, len(features)),
	}
	for _, f := range features {
		if _, dup := s.index[f.Name()]; dup {
			return nil, core.Errorf(core.ModuleFeature, core.ErrorCodeConfiguration,
				"store %q: duplicate feature %q", name, f.Name())
		}
		s.index[f.Name()] = len(s.features)
		s.features = append(s.features, f)
	}
	return s, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) Len() int { return len(s.features) }

// Lookup 按名称查找特征，不存在时返回 UNKNOWN_FEATURE。
func (s *Store) Lookup(name string) (Feature, error) {
	if i, ok := s.index[name]; ok {
		return s.features[i], nil
	}
	return nil, core.Errorf(core.ModuleFeature, core.ErrorCodeUnknownFeature,
		"store %q: unknown feature %q", s.name, name)
}

// Contains 判断特征是否存在。
func (s *Store) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Features 返回特征列表副本（插入顺序）。
func (s *Store) Features() []Feature {
	out := make([]Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Names 返回特征名（插入顺序）。
func (s *Store) Names() []string {
	names := make([]string, len(s.features))
	for i, f := range s.features {
		names[i] = f.Name()
	}
	return names
}

// Definitions 还原为定义（用于持久化与导出）。
func (s *Store) Definitions() []Definition {
	defs := make([]Definition, len(s.features))
	for i, f := range s.features {
		defs[i] = Definition{
			Store:  s.name,
			Name:   f.Name(),
			Class:  f.Class(),
			Params: f.Params(),
		}
	}
	return defs
}

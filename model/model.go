// Package model 定义重排模型：把有序特征向量映射为一个实数分数。
//
// 模型在加载时完成全部校验（特征存在、参数合法），之后不可变，可被并发读取。
// Score 是全函数：对任何长度正确的向量都返回一个数，不返回错误。
package model

import (
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/pkg/validate"
)

// 内置模型类型
const (
	ClassLinear   = "linear"
	ClassLogistic = "logistic"
)

// Model 是重排模型的统一接口。Model 同时满足 feature.Layout，可直接交给 Evaluator。
type Model interface {
	Name() string
	Class() string
	// FeatureStore 返回模型绑定的特征库
	FeatureStore() *feature.Store
	// FeatureNames 返回特征向量布局；调用方不得修改返回的切片
	FeatureNames() []string
	Score(vec core.FeatureVector) float64
	// Definition 返回构建该模型的定义（用于持久化与导出）
	Definition() Definition
}

// Definition 是模型定义。Features 决定特征向量的顺序。
type Definition struct {
	Name     string                          `json:"name" yaml:"name" validate:"required"`
	Class    string                          `json:"class" yaml:"class" validate:"required"`
	Store    string                          `json:"store,omitempty" yaml:"store,omitempty"`
	Features []string                        `json:"features" yaml:"features" validate:"required,min=1,dive,required"`
	Params   map[string]any                  `json:"params,omitempty" yaml:"params,omitempty"`
	Norms    map[string]NormalizerDefinition `json:"norms,omitempty" yaml:"norms,omitempty"`
}

// StoreName 返回模型引用的特征库，未指定时为 feature.DefaultStoreName。
func (d Definition) StoreName() string {
	if d.Store == "" {
		return feature.DefaultStoreName
	}
	return d.Store
}

// Builder 根据公共部分与参数构建具体模型。
type Builder func(b Base, params map[string]any) (Model, error)

var (
	builders   = make(map[string]Builder)
	buildersMu sync.RWMutex
)

func init() {
	Register(ClassLinear, newLinearModel)
	Register(ClassLogistic, newLogisticModel)

	// org.apache.solr.ltr.model.LinearModel 等类名写法
	Register("LinearModel", newLinearModel)
	Register("LogisticModel", newLogisticModel)
}

// Register 注册模型类型。
func Register(class string, b Builder) {
	if class == "" || b == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[class] = b
}

// SupportedClasses 返回已注册的模型类型（排序）。
func SupportedClasses() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	classes := make([]string, 0, len(builders))
	for c := range builders {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

func lookupBuilder(class string) (Builder, bool) {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	if b, ok := builders[class]; ok {
		return b, true
	}
	if i := strings.LastIndexByte(class, '.'); i >= 0 {
		b, ok := builders[class[i+1:]]
		return b, ok
	}
	return nil, false
}

// Load 校验定义并构建模型。以下情况返回 CONFIGURATION：
// 类型未知、特征库不匹配、特征列表为空或重复、特征不在特征库中、参数非法。
func Load(def Definition, store *feature.Store) (Model, error) {
	if err := validate.Struct(def); err != nil {
		return nil, core.WrapError(core.ModuleModel, core.ErrorCodeConfiguration, "model: invalid definition", err)
	}
	if store == nil {
		return nil, configErrorf("model %q: feature store %q not found", def.Name, def.StoreName())
	}
	if store.Name() != def.StoreName() {
		return nil, configErrorf("model %q: references store %q, got %q", def.Name, def.StoreName(), store.Name())
	}
	b, ok := lookupBuilder(def.Class)
	if !ok {
		return nil, configErrorf("model %q: unknown class %q (supported: %v)", def.Name, def.Class, SupportedClasses())
	}

	seen := make(map[string]int, len(def.Features))
	for i, name := range def.Features {
		if _, dup := seen[name]; dup {
			return nil, configErrorf("model %q: duplicate feature %q", def.Name, name)
		}
		if !store.Contains(name) {
			return nil, configErrorf("model %q: feature %q not in store %q", def.Name, name, store.Name())
		}
		seen[name] = i
	}

	norms := make([]Normalizer, len(def.Features))
	for name, nd := range def.Norms {
		i, ok := seen[name]
		if !ok {
			return nil, configErrorf("model %q: normalizer for unknown feature %q", def.Name, name)
		}
		n, err := BuildNormalizer(nd)
		if err != nil {
			return nil, core.WrapError(core.ModuleModel, core.ErrorCodeConfiguration, "model "+quote(def.Name)+": feature "+quote(name), err)
		}
		norms[i] = n
	}

	base := Base{
		name:  def.Name,
		class: def.Class,
		store: store,
		names: append([]string(nil), def.Features...),
		index: seen,
		norms: norms,
		def:   def,
	}
	m, err := b(base, def.Params)
	if err != nil {
		if core.IsConfigurationError(err) {
			return nil, err
		}
		return nil, core.WrapError(core.ModuleModel, core.ErrorCodeConfiguration, "model "+quote(def.Name), err)
	}
	return m, nil
}

// Base 是各模型共享的部分：名称、特征库、特征布局与归一化器。
type Base struct {
	name  string
	class string
	store *feature.Store
	names []string
	index map[string]int
	norms []Normalizer
	def   Definition
}

func (b *Base) Name() string                 { return b.name }
func (b *Base) Class() string                { return b.class }
func (b *Base) FeatureStore() *feature.Store { return b.store }
func (b *Base) FeatureNames() []string       { return b.names }
func (b *Base) Definition() Definition       { return b.def }

// value 返回第 i 个特征的（归一化后）取值。向量未按布局对齐时按名称查找，缺失视为 0。
func (b *Base) value(vec core.FeatureVector, i int) float64 {
	var v float64
	switch {
	case i < len(vec) && vec[i].Name == b.names[i]:
		v = vec[i].Value
	default:
		v, _ = vec.Get(b.names[i])
	}
	if n := b.norms[i]; n != nil {
		v = n.Normalize(v)
	}
	return v
}

func configErrorf(format string, args ...any) error {
	return core.Errorf(core.ModuleModel, core.ErrorCodeConfiguration, format, args...)
}

func quote(s string) string { return `"` + s + `"` }

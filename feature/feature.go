// Package feature 定义特征（Feature）、特征库（Store）与特征向量计算（Evaluator）。
//
// 特征是 (查询上下文, 候选文档) -> 实数 的纯函数，在配置加载时创建，之后不可变，
// 可被任意多个查询 goroutine 并发读取。
package feature

import (
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/validate"
)

// 内置特征类型
const (
	ClassQuery         = "query"          // 查询派生特征：对文档执行数值表达式
	ClassValue         = "value"          // 常量特征
	ClassField         = "field"          // 存储字段值
	ClassOriginalScore = "original_score" // 原生相关性分数
)

// Feature 是特征的统一接口。
//
// Evaluate 返回的 error 只表示"本文档无法取到值"，由 Evaluator 降级为 0 并记录，
// 不会中断整个重排。
type Feature interface {
	Name() string
	Class() string
	Params() map[string]any
	Evaluate(qctx *core.QueryContext, c *core.Candidate) (float64, error)
}

// Definition 是特征定义（来自配置文件或 registry 的 PutFeature）。
type Definition struct {
	Store  string         `json:"store,omitempty" yaml:"store,omitempty"`
	Name   string         `json:"name" yaml:"name" validate:"required"`
	Class  string         `json:"class" yaml:"class" validate:"required"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// StoreName 返回定义所属的特征库，未指定时为 DefaultStoreName。
func (d Definition) StoreName() string {
	if d.Store == "" {
		return DefaultStoreName
	}
	return d.Store
}

// Builder 根据名称与参数构建特征，参数非法时返回错误。
type Builder func(name string, params map[string]any) (Feature, error)

var (
	builders   = make(map[string]Builder)
	buildersMu sync.RWMutex
)

func init() {
	Register(ClassQuery, newQueryFeature)
	Register(ClassValue, newValueFeature)
	Register(ClassField, newFieldFeature)
	Register(ClassOriginalScore, newOriginalScoreFeature)

	// 兼容以类名声明的定义，例如 org.apache.solr.ltr.feature.ValueFeature
	Register("SolrFeature", newQueryFeature)
	Register("ValueFeature", newValueFeature)
	Register("FieldValueFeature", newFieldFeature)
	Register("OriginalScoreFeature", newOriginalScoreFeature)
}

// Register 注册一种特征类型，自定义特征在 init 中调用即可被配置驱动。
func Register(class string, b Builder) {
	if class == "" || b == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[class] = b
}

// SupportedClasses 返回已注册的特征类型（排序），用于错误提示。
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

// Build 根据定义构建特征，失败时返回 CONFIGURATION 错误。
func Build(def Definition) (Feature, error) {
	if err := validate.Struct(def); err != nil {
		return nil, core.WrapError(core.ModuleFeature, core.ErrorCodeConfiguration, "feature: invalid definition", err)
	}
	b, ok := lookupBuilder(def.Class)
	if !ok {
		return nil, core.Errorf(core.ModuleFeature, core.ErrorCodeConfiguration,
			"feature %q: unknown class %q (supported: %v)", def.Name, def.Class, SupportedClasses())
	}
	f, err := b(def.Name, copyParams(def.Params))
	if err != nil {
		return nil, core.WrapError(core.ModuleFeature, core.ErrorCodeConfiguration, "feature "+quote(def.Name), err)
	}
	return f, nil
}

// base 提供 Name/Class/Params 的公共实现。
type base struct {
	name   string
	class  string
	params map[string]any
}

func (b *base) Name() string  { return b.name }
func (b *base) Class() string { return b.class }

// Params 返回参数副本。
func (b *base) Params() map[string]any { return copyParams(b.params) }

func copyParams(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func quote(s string) string { return `"` + s + `"` }

package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/model"
)

// Definitions 是一组完整的特征与模型定义，可以来自文件、持久化存储或 Put* 调用。
//
// 文件格式（YAML 或 JSON）：
//
//	features:
//	  - store: test
//	    name: powpularityS
//	    class: SolrFeature
//	    params:
//	      q: "{!func}pow(doc.popularity,2)"
//	  - store: test
//	    name: c3
//	    class: ValueFeature
//	    params: {value: 2}
//	models:
//	  - name: powpularityS-model
//	    class: LinearModel
//	    store: test
//	    features: [powpularityS, c3]
//	    params:
//	      weights: {powpularityS: 1.0, c3: 1.0}
type Definitions struct {
	Features []feature.Definition `json:"features" yaml:"features"`
	Models   []model.Definition   `json:"models" yaml:"models"`
}

// LoadDefinitionsFile 读取定义文件，扩展名为 .json 时按 JSON 解析，否则按 YAML 解析。
func LoadDefinitionsFile(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("read file: %w", err)
	}
	return ParseDefinitions(data, filepath.Ext(path))
}

// ParseDefinitions 按格式（".json" / ".yaml" / ".yml"）解析定义。
func ParseDefinitions(data []byte, format string) (Definitions, error) {
	var defs Definitions
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &defs); err != nil {
			return Definitions{}, core.WrapError(core.ModuleRegistry, core.ErrorCodeConfiguration, "parse json", err)
		}
	default:
		if err := yaml.Unmarshal(data, &defs); err != nil {
			return Definitions{}, core.WrapError(core.ModuleRegistry, core.ErrorCodeConfiguration, "parse yaml", err)
		}
	}
	defs.normalize()
	return defs, nil
}

// normalize 补全默认特征库名。
func (d *Definitions) normalize() {
	for i := range d.Features {
		d.Features[i].Store = d.Features[i].StoreName()
	}
	for i := range d.Models {
		d.Models[i].Store = d.Models[i].StoreName()
	}
}

// Clone 返回深度足够的副本：切片独立，Params 共享（定义被视为只读）。
func (d Definitions) Clone() Definitions {
	return Definitions{
		Features: append([]feature.Definition(nil), d.Features...),
		Models:   append([]model.Definition(nil), d.Models...),
	}
}

// StoreNames 按首次出现的顺序返回特征库名。
func (d Definitions) StoreNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, f := range d.Features {
		if s := f.StoreName(); !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}
	return names
}

// StoreFeatures 返回某个特征库的定义（保持顺序）。
func (d Definitions) StoreFeatures(store string) []feature.Definition {
	var out []feature.Definition
	for _, f := range d.Features {
		if f.StoreName() == store {
			out = append(out, f)
		}
	}
	return out
}

// putFeature 按 (store, name) 覆盖或追加。
func (d *Definitions) putFeature(def feature.Definition) {
	def.Store = def.StoreName()
	for i, f := range d.Features {
		if f.StoreName() == def.Store && f.Name == def.Name {
			d.Features[i] = def
			return
		}
	}
	d.Features = append(d.Features, def)
}

// putModel 按 name 覆盖或追加。
func (d *Definitions) putModel(def model.Definition) {
	def.Store = def.StoreName()
	for i, m := range d.Models {
		if m.Name == def.Name {
			d.Models[i] = def
			return
		}
	}
	d.Models = append(d.Models, def)
}

func (d *Definitions) deleteModel(name string) bool {
	for i, m := range d.Models {
		if m.Name == name {
			d.Models = append(d.Models[:i:i], d.Models[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Definitions) deleteStore(store string) bool {
	kept := d.Features[:0:0]
	for _, f := range d.Features {
		if f.StoreName() != store {
			kept = append(kept, f)
		}
	}
	deleted := len(kept) != len(d.Features)
	d.Features = kept
	return deleted
}

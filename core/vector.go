package core

import (
	"math"
	"strconv"
	"strings"
)

// FeatureValue 是特征向量中的一项。
type FeatureValue struct {
	Name  string
	Value float64
}

// FeatureVector 是按模型 featureNames 顺序排列的特征值，每个 (query, document) 新建一份。
type FeatureVector []FeatureValue

// Get 按名称取值。
func (v FeatureVector) Get(name string) (float64, bool) {
	for _, fv := range v {
		if fv.Name == name {
			return fv.Value, true
		}
	}
	return 0, false
}

// Names 返回特征名（按向量顺序）。
func (v FeatureVector) Names() []string {
	names := make([]string, len(v))
	for i, fv := range v {
		names[i] = fv.Name
	}
	return names
}

// String 按 "name1:value1;name2:value2" 输出，数值为定点小数（64.0），不使用科学计数法。
func (v FeatureVector) String() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(v) * 16)
	for i, fv := range v {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(fv.Name)
		sb.WriteByte(':')
		sb.WriteString(FormatFeatureValue(fv.Value))
	}
	return sb.String()
}

// FormatFeatureValue 定点格式化，整数值补 ".0"。
func FormatFeatureValue(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

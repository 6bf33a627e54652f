package core

import (
	"math"

	"github.com/rushteam/ltr/pkg/utils"
)

// Document 是分片本地的存储文档：ID + 原始字段（由底层检索引擎提供）。
// 特征只在文档所在的分片上计算，不做跨分片取数。
type Document struct {
	ID     string
	Fields map[string]any
}

// Field 读取字段值。
func (d *Document) Field(name string) (any, bool) {
	if d == nil || d.Fields == nil {
		return nil, false
	}
	v, ok := d.Fields[name]
	return v, ok
}

// Candidate 是重排链路中的统一承载结构：原始排序信息 + 重排分数 + 可选特征向量。
//
// 重排阶段由 rerank.Collector 独占；之后只读地交给响应序列化。
type Candidate struct {
	Doc *Document

	// OriginalScore 是底层检索引擎给出的原生相关性分数
	OriginalScore float64
	// OriginalRank 是在输入排序列表中的位置（从 0 开始）
	OriginalRank int
	// Rank 是重排、合并后的位置
	Rank int

	// RerankScore 仅在 Reranked 为 true 时有意义
	RerankScore float64
	Reranked    bool

	// Vector 仅在请求要求输出特征时附带
	Vector FeatureVector

	ShardID int
	Labels  map[string]utils.Label
}

func NewCandidate(doc *Document, score float64, rank int) *Candidate {
	return &Candidate{
		Doc:           doc,
		OriginalScore: score,
		OriginalRank:  rank,
		Rank:          rank,
		Labels:        make(map[string]utils.Label),
	}
}

// ID 返回文档 ID。
func (c *Candidate) ID() string {
	if c == nil || c.Doc == nil {
		return ""
	}
	return c.Doc.ID
}

// SortScore 是最终排序使用的分数：重排过的用 RerankScore，窗口外的保留原生分数。
func (c *Candidate) SortScore() float64 {
	if c.Reranked {
		return c.RerankScore
	}
	return c.OriginalScore
}

// Clone 浅拷贝候选（Doc 共享，Labels 复制），重排写分数前使用，避免修改调用方的输入。
func (c *Candidate) Clone() *Candidate {
	cp := *c
	cp.Labels = make(map[string]utils.Label, len(c.Labels))
	for k, v := range c.Labels {
		cp.Labels[k] = v
	}
	return &cp
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (c *Candidate) PutLabel(key string, lbl utils.Label) {
	if c.Labels == nil {
		c.Labels = make(map[string]utils.Label)
	}
	if old, ok := c.Labels[key]; ok {
		c.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	c.Labels[key] = lbl
}

// ScoreGreater 按分数降序比较，NaN 视为最小。
func ScoreGreater(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	}
	return a > b
}

// ScoreEqual 判断两个分数在排序意义上相等（NaN 与 NaN 相等）。
func ScoreEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

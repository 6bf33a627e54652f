package engine

import (
	"github.com/rushteam/ltr/core"
)

// Request 是一次检索请求。
type Request struct {
	QueryID string
	// Query 是分片执行的原生查询
	Query string
	Rows  int
	// RQ 是局部参数形式的重排指令，例如 {!ltr model=m reRankDocs=8}；与 Rerank 二选一
	RQ     string
	Rerank *core.RerankDirective
	// FL 是返回字段列表，包含 [fv] 时输出特征向量
	FL string
	// FQ 是过滤表达式（例如 doc.popularity > 3），在重排窗口截取之前应用
	FQ []string
	// ExcludeIDs 是本次请求要排除的文档
	ExcludeIDs []string
	Params     map[string]any
}

// Response 是检索结果。
type Response struct {
	QueryID string
	Docs    []Doc
	// NumFound 是所有成功分片的命中总数
	NumFound int
	// Partial 为 true 表示有分片失败，结果只包含成功分片
	Partial      bool
	FailedShards []int
	// RerankError 非空表示重排没有生效（例如模型不存在），结果为原生排序
	RerankError error
	// SnapshotVersion 是本次查询使用的定义快照版本
	SnapshotVersion uint64

	Candidates []*core.Candidate `json:"-"`
}

// Doc 是单个结果文档的输出视图。
type Doc struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Shard    int            `json:"shard"`
	Reranked bool           `json:"reranked"`
	Features string         `json:"features,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

func newDoc(c *core.Candidate, withFeatures bool) Doc {
	d := Doc{
		ID:       c.ID(),
		Score:    c.SortScore(),
		Shard:    c.ShardID,
		Reranked: c.Reranked,
	}
	if c.Doc != nil {
		d.Fields = c.Doc.Fields
	}
	if withFeatures && c.Vector != nil {
		d.Features = c.Vector.String()
	}
	return d
}

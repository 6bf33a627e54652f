package engine

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/dsl"
)

// MatchAllQuery 匹配全部文档，原生分数均为 1。
const MatchAllQuery = "*:*"

// MemoryShard 是内存中的分片：保存文档，并用数值表达式作为原生查询
// （例如 sub(8, doc.popularity)）。表达式对某个文档求值失败时该文档不命中。
//
// 原生排序：分数降序，分数相同时文档 ID 升序（均为数字时按数值比较）。
type MemoryShard struct {
	mu   sync.RWMutex
	docs []*core.Document

	queries sync.Map // string -> *dsl.Expression
}

func NewMemoryShard(docs ...*core.Document) *MemoryShard {
	s := &MemoryShard{}
	s.Add(docs...)
	return s
}

// Add 添加文档，数值字段统一转换为 float64。
func (s *MemoryShard) Add(docs ...*core.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		if d == nil {
			continue
		}
		s.docs = append(s.docs, &core.Document{ID: d.ID, Fields: dsl.NormalizeFields(d.Fields)})
	}
}

func (s *MemoryShard) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryShard) compile(query string) (*dsl.Expression, error) {
	if e, ok := s.queries.Load(query); ok {
		return e.(*dsl.Expression), nil
	}
	e, err := dsl.Compile(query)
	if err != nil {
		return nil, core.WrapError(core.ModuleShard, core.ErrorCodeInvalidInput, "invalid query", err)
	}
	s.queries.Store(query, e)
	return e, nil
}

// Search 执行原生查询，返回按原生排序的全部命中文档。
func (s *MemoryShard) Search(ctx context.Context, qctx *core.QueryContext) ([]*core.Candidate, error) {
	var expr *dsl.Expression
	if q := strings.TrimSpace(qctx.Query); q != "" && q != MatchAllQuery {
		e, err := s.compile(q)
		if err != nil {
			return nil, err
		}
		expr = e
	}

	s.mu.RLock()
	docs := s.docs
	s.mu.RUnlock()

	type hit struct {
		doc   *core.Document
		score float64
	}
	hits := make([]hit, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := 1.0
		if expr != nil {
			v, err := expr.EvalFloat(dsl.Vars{ID: d.ID, Doc: d.Fields, Params: qctx.Params})
			if err != nil {
				continue
			}
			score = v
		}
		hits = append(hits, hit{doc: d, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if !core.ScoreEqual(hits[i].score, hits[j].score) {
			return core.ScoreGreater(hits[i].score, hits[j].score)
		}
		return lessID(hits[i].doc.ID, hits[j].doc.ID)
	})

	out := make([]*core.Candidate, len(hits))
	for i, h := range hits {
		out[i] = core.NewCandidate(h.doc, h.score, i)
	}
	return out, nil
}

// lessID 比较文档 ID：均为整数时按数值，否则按字典序。
func lessID(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

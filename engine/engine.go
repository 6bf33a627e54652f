// Package engine 编排一次完整的检索：分片并发检索 → 分片内 LTR 重排 → 全局合并。
package engine

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/filter"
	"github.com/rushteam/ltr/metrics"
	"github.com/rushteam/ltr/pipeline"
	"github.com/rushteam/ltr/registry"
	"github.com/rushteam/ltr/rerank"
	"github.com/rushteam/ltr/shard"
)

const instrumentationName = "github.com/rushteam/ltr/engine"

// DefaultRows 是请求未指定 rows 时的返回条数。
const DefaultRows = 10

// Shard 是底层检索引擎的一个分片：执行原生查询，返回按原生排序的候选。
type Shard interface {
	Search(ctx context.Context, qctx *core.QueryContext) ([]*core.Candidate, error)
}

// Engine 处理检索请求。并发安全。
type Engine struct {
	registry *registry.Registry
	shards   []Shard

	fanout    shard.Fanout
	evaluator *feature.Evaluator
	pool      *ants.Pool
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	rows      int

	blacklist    core.Store
	blacklistKey string
}

// Option Engine 配置选项
type Option func(*Engine)

// WithFanout 设置分片并发策略（超时、并发上限、严格模式）
func WithFanout(f shard.Fanout) Option {
	return func(e *Engine) { e.fanout = f }
}

// WithPool 设置窗口内并发打分使用的协程池
func WithPool(p *ants.Pool) Option {
	return func(e *Engine) { e.pool = p }
}

// WithMetrics 设置 Prometheus 指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDefaultRows 设置默认返回条数
func WithDefaultRows(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.rows = n
		}
	}
}

// WithBlacklist 设置全局黑名单：每次查询从 store 的 key 读取一个 JSON 文档 ID 数组
func WithBlacklist(store core.Store, key string) Option {
	return func(e *Engine) {
		e.blacklist = store
		e.blacklistKey = key
	}
}

func New(reg *registry.Registry, shards []Shard, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		shards:   shards,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
		rows:     DefaultRows,
	}
	for _, opt := range opts {
		opt(e)
	}

	evOpts := []feature.EvaluatorOption{feature.WithLogger(e.logger)}
	if e.metrics != nil {
		evOpts = append(evOpts, feature.WithMonitor(e.metrics))
	}
	e.evaluator = feature.NewEvaluator(evOpts...)
	return e
}

// Search 执行检索。
//
// 整个查询只取一次定义快照。模型不存在时退回原生排序并在 Response.RerankError 中说明；
// 单个分片重排失败时该分片退回原生排序。非严格模式下失败的分片不参与合并，
// 结果标记为 Partial。
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	qctx, err := e.queryContext(req)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "ltr.Search", trace.WithAttributes(
		attribute.String("ltr.query_id", qctx.QueryID),
		attribute.Int("ltr.rows", qctx.Rows),
		attribute.Int("ltr.shards", len(e.shards)),
	))
	defer span.End()

	filters, err := e.filters(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	snap := e.registry.Snapshot()
	resp := &Response{QueryID: qctx.QueryID, SnapshotVersion: snap.Version()}
	wantVectors := qctx.Rerank != nil && qctx.Rerank.FeatureVectors

	if d := qctx.Rerank; d != nil {
		span.SetAttributes(attribute.String("ltr.model", d.Model), attribute.Int("ltr.rerank_docs", d.ReRankDocs))
		if _, err := snap.Model(d.Model); err != nil {
			resp.RerankError = err
			qctx.Rerank = nil
			e.fallback(err)
			e.logger.Warn("rerank disabled for query",
				zap.String("query_id", qctx.QueryID),
				zap.String("model", d.Model),
				zap.Error(err),
			)
		}
	}

	// 按分片记录命中数，只累加成功分片；超时分片晚到的写入不计入
	found := make([]atomic.Int64, len(e.shards))
	results, err := e.fanout.Run(ctx, len(e.shards), func(ctx context.Context, shardID int) ([]*core.Candidate, error) {
		res, err := e.searchShard(ctx, snap, qctx, filters, shardID)
		if err != nil {
			return nil, err
		}
		found[shardID].Store(int64(len(res.native)))
		return res.out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp.FailedShards = shard.Failed(results)
	resp.Partial = len(resp.FailedShards) > 0
	for _, r := range results {
		if r.Err != nil {
			e.logger.Warn("shard failed", zap.String("query_id", qctx.QueryID), zap.Int("shard", r.ShardID), zap.Error(r.Err))
			if e.metrics != nil {
				e.metrics.IncShardFailure(strconv.Itoa(r.ShardID))
			}
		}
	}

	resp.Candidates = shard.Merge(results, qctx.Rows)
	for _, r := range results {
		if r.Err == nil {
			resp.NumFound += int(found[r.ShardID].Load())
		}
	}
	resp.Docs = make([]Doc, len(resp.Candidates))
	for i, c := range resp.Candidates {
		resp.Docs[i] = newDoc(c, wantVectors)
	}
	span.SetAttributes(attribute.Int("ltr.num_found", resp.NumFound), attribute.Bool("ltr.partial", resp.Partial))
	return resp, nil
}

type shardOutput struct {
	native []*core.Candidate
	out    []*core.Candidate
}

// searchShard 在单个分片上执行原生查询与重排流水线。
func (e *Engine) searchShard(ctx context.Context, snap *registry.Snapshot, qctx *core.QueryContext, filters *filter.FilterNode, shardID int) (shardOutput, error) {
	ctx, span := e.tracer.Start(ctx, "ltr.Shard", trace.WithAttributes(attribute.Int("ltr.shard", shardID)))
	defer span.End()

	native, err := e.shards[shardID].Search(ctx, qctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return shardOutput{}, err
	}
	if filters != nil {
		// 过滤后重新编号，窗口按过滤后的原生顺序截取
		if native, err = filters.Process(ctx, qctx, native); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return shardOutput{}, err
		}
		for i, c := range native {
			c.OriginalRank = i
			c.Rank = i
		}
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&rerank.LTRNode{Models: snap, Evaluator: e.evaluator, Pool: e.pool},
		&rerank.TopNNode{N: qctx.Rows},
	}}

	start := time.Now()
	out, err := p.Run(ctx, qctx, native)
	if qctx.Rerank != nil && e.metrics != nil {
		e.metrics.ObserveRerank(qctx.Rerank.Model, time.Since(start).Seconds())
	}
	if err == nil {
		return shardOutput{native: native, out: out}, nil
	}
	if ctx.Err() != nil {
		return shardOutput{}, ctx.Err()
	}

	// 重排失败只影响本分片：退回原生排序
	span.RecordError(err)
	e.fallback(err)
	e.logger.Warn("shard rerank failed, using native order",
		zap.String("query_id", qctx.QueryID),
		zap.Int("shard", shardID),
		zap.Error(err),
	)
	out = native
	if qctx.Rows > 0 && len(out) > qctx.Rows {
		out = out[:qctx.Rows]
	}
	for i, c := range out {
		c.Rank = i
	}
	return shardOutput{native: native, out: out}, nil
}

func (e *Engine) fallback(err error) {
	if e.metrics == nil {
		return
	}
	reason := core.ErrorCodeInternalError
	if de := core.GetDomainError(err); de != nil {
		reason = de.Code
	}
	e.metrics.IncModelFallback(reason)
}

// filters 构造本次查询的过滤节点；没有任何过滤条件时返回 nil。
func (e *Engine) filters(ctx context.Context, req Request) (*filter.FilterNode, error) {
	var fs []filter.Filter
	if len(req.ExcludeIDs) > 0 || e.blacklist != nil {
		bl, err := filter.NewBlacklistFilter(ctx, req.ExcludeIDs, e.blacklist, e.blacklistKey)
		if err != nil {
			return nil, err
		}
		fs = append(fs, bl)
	}
	for _, fq := range req.FQ {
		f, err := filter.NewExprFilter(fq)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	if len(fs) == 0 {
		return nil, nil
	}
	return &filter.FilterNode{Filters: fs}, nil
}

// queryContext 把请求转换为 QueryContext：补全查询 ID、rows，解析重排指令，合并 efi 参数。
func (e *Engine) queryContext(req Request) (*core.QueryContext, error) {
	qctx := &core.QueryContext{
		QueryID: req.QueryID,
		Query:   req.Query,
		Rows:    req.Rows,
		Params:  make(map[string]any, len(req.Params)),
	}
	if qctx.QueryID == "" {
		qctx.QueryID = uuid.NewString()
	}
	if qctx.Rows <= 0 {
		qctx.Rows = e.rows
	}
	for k, v := range req.Params {
		qctx.Params[k] = v
	}

	switch {
	case req.Rerank != nil:
		d := *req.Rerank
		if err := d.Validate(); err != nil {
			return nil, err
		}
		qctx.Rerank = &d
	case req.RQ != "":
		d, efi, err := core.ParseRerankDirective(req.RQ)
		if err != nil {
			return nil, err
		}
		for k, v := range efi {
			qctx.Params[k] = v
		}
		qctx.Rerank = d
	}
	if qctx.Rerank != nil && core.WantsFeatureVector(req.FL) {
		qctx.Rerank.FeatureVectors = true
	}
	return qctx, nil
}

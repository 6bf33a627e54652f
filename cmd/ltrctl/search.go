package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/ltr/config"
	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/engine"
	"github.com/rushteam/ltr/metrics"
	"github.com/rushteam/ltr/pkg/log"
	"github.com/rushteam/ltr/registry"
	"github.com/rushteam/ltr/shard"
	"github.com/rushteam/ltr/store"
)

type searchOptions struct {
	docs    string
	shards  int
	q       string
	rq      string
	fl      string
	rows    int
	efi     map[string]string
	fq      []string
	exclude []string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a reranked search over a local document file",
		Long: `Load definitions, split the documents across in-memory shards, run the native
query on every shard, rerank each shard's window and print the merged result as JSON.

Examples:
  ltrctl search --definitions ltr.yaml --docs docs.yaml \
    --q '{!func}sub(8,doc.popularity)' \
    --rq '{!ltr model=powpularityS-model reRankDocs=8}' --fl '*,score,[fv]' --rows 8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return runSearch(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.docs, "docs", "", "documents file: list of {id, fields} (YAML or JSON)")
	cmd.Flags().IntVar(&opts.shards, "shards", 1, "number of in-memory shards")
	cmd.Flags().StringVar(&opts.q, "q", engine.MatchAllQuery, "native query expression")
	cmd.Flags().StringVar(&opts.rq, "rq", "", "rerank directive, e.g. {!ltr model=m reRankDocs=100}")
	cmd.Flags().StringVar(&opts.fl, "fl", "*,score", "field list; include [fv] to return feature vectors")
	cmd.Flags().IntVar(&opts.rows, "rows", 0, "rows to return (default from config)")
	cmd.Flags().StringToStringVar(&opts.efi, "efi", nil, "external feature info, e.g. --efi user_query=foo")
	cmd.Flags().StringArrayVar(&opts.fq, "fq", nil, "filter query expression, repeatable, e.g. --fq 'doc.popularity > 3.0'")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "document ids to exclude")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}

type docFile struct {
	ID     string         `yaml:"id" json:"id"`
	Fields map[string]any `yaml:"fields" json:"fields"`
}

// loadDocuments 读取文档文件（JSON 是 YAML 的子集，统一用 YAML 解析）。
func loadDocuments(path string) ([]*core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	var raw []docFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse documents: %w", err)
	}
	docs := make([]*core.Document, 0, len(raw))
	for i, d := range raw {
		if d.ID == "" {
			return nil, fmt.Errorf("document %d: id is required", i)
		}
		docs = append(docs, &core.Document{ID: d.ID, Fields: d.Fields})
	}
	return docs, nil
}

func newRegistry(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*registry.Registry, func(), error) {
	opts := []registry.Option{
		registry.WithLogger(log.Named("registry")),
		registry.WithObserver(m),
	}
	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		rs, err := store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.DB, store.WithKeyPrefix(cfg.Redis.KeyPrefix))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, registry.WithStore(rs))
		cleanup = func() { _ = rs.Close() }
	}
	reg := registry.New(opts...)

	var err error
	switch {
	case cfg.Definitions != "":
		_, err = reg.LoadFile(ctx, cfg.Definitions)
	case cfg.Redis.Addr != "":
		_, err = reg.Reload(ctx)
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return reg, cleanup, nil
}

func runSearch(cmd *cobra.Command, cfg *config.Config, opts *searchOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.shards <= 0 {
		return fmt.Errorf("--shards must be positive")
	}

	m := metrics.NewMetrics()
	if err := m.Register(prometheus.NewRegistry()); err != nil {
		return err
	}
	reg, cleanup, err := newRegistry(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := loadDocuments(opts.docs)
	if err != nil {
		return err
	}
	mem := make([]*engine.MemoryShard, opts.shards)
	for i := range mem {
		mem[i] = engine.NewMemoryShard()
	}
	for i, d := range docs {
		mem[i%opts.shards].Add(d)
	}
	shards := make([]engine.Shard, len(mem))
	for i, s := range mem {
		shards[i] = s
	}

	engineOpts := []engine.Option{
		engine.WithLogger(log.Named("engine")),
		engine.WithMetrics(m),
		engine.WithDefaultRows(cfg.Search.Rows),
		engine.WithFanout(shard.Fanout{
			Timeout:       cfg.Search.ShardTimeout,
			MaxConcurrent: cfg.Search.MaxConcurrent,
			Strict:        cfg.Search.Strict,
		}),
	}
	if cfg.Search.Workers > 0 {
		pool, err := ants.NewPool(cfg.Search.Workers)
		if err != nil {
			return fmt.Errorf("create worker pool: %w", err)
		}
		defer pool.Release()
		engineOpts = append(engineOpts, engine.WithPool(pool))
	}
	e := engine.New(reg, shards, engineOpts...)

	params := make(map[string]any, len(opts.efi))
	for k, v := range opts.efi {
		params[k] = v
	}
	resp, err := e.Search(ctx, engine.Request{
		Query:      opts.q,
		Rows:       opts.rows,
		RQ:         opts.rq,
		FL:         opts.fl,
		FQ:         opts.fq,
		ExcludeIDs: opts.exclude,
		Params:     params,
	})
	if err != nil {
		return err
	}

	out := struct {
		QueryID      string       `json:"queryId"`
		NumFound     int          `json:"numFound"`
		Partial      bool         `json:"partial,omitempty"`
		FailedShards []int        `json:"failedShards,omitempty"`
		RerankError  string       `json:"rerankError,omitempty"`
		Docs         []engine.Doc `json:"docs"`
	}{
		QueryID:      resp.QueryID,
		NumFound:     resp.NumFound,
		Partial:      resp.Partial,
		FailedShards: resp.FailedShards,
		Docs:         resp.Docs,
	}
	if resp.RerankError != nil {
		out.RerankError = resp.RerankError.Error()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Package main 实现 ltrctl：校验特征/模型定义，并在本地文档集上执行带 LTR 重排的检索。
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/ltr/config"
	"github.com/rushteam/ltr/pkg/log"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath  string
	definitions string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "ltrctl",
		Short: "Learning-to-rank reranking toolkit",
		Long: `ltrctl validates feature/model definitions and runs reranked searches
against a local document set split across in-memory shards.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "engine config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.definitions, "definitions", "", "feature/model definitions file (YAML or JSON); overrides config")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")

	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	return cmd
}

// load 读取配置并初始化日志。
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.definitions != "" {
		cfg.Definitions = o.definitions
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

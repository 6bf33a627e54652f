// Package config 加载引擎配置：默认值 < YAML 文件 < LTR_ 前缀的环境变量。
//
// 环境变量映射（去掉前缀后第一个下划线分隔 section 与字段）：
//
//	LTR_SEARCH_SHARD_TIMEOUT -> search.shard_timeout
//	LTR_REDIS_ADDR           -> redis.addr
//	LTR_LOG_LEVEL            -> log.level
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/pkg/validate"
)

// EnvPrefix 是环境变量前缀。
const EnvPrefix = "LTR_"

// Config 是引擎配置。
type Config struct {
	Log         LogConfig    `koanf:"log"`
	Definitions string       `koanf:"definitions"` // 特征/模型定义文件（YAML/JSON）
	Redis       RedisConfig  `koanf:"redis"`
	Search      SearchConfig `koanf:"search"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=console json"`
}

// RedisConfig 配置定义的持久化存储，Addr 为空时只在内存中保存。
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	DB        int    `koanf:"db" validate:"gte=0"`
	KeyPrefix string `koanf:"key_prefix"`
}

type SearchConfig struct {
	Rows          int           `koanf:"rows" validate:"gte=0"`
	ShardTimeout  time.Duration `koanf:"shard_timeout" validate:"gte=0"`
	MaxConcurrent int           `koanf:"max_concurrent" validate:"gte=0"`
	Strict        bool          `koanf:"strict"`
	// Workers 是窗口内并发打分的协程池大小，0 表示串行打分
	Workers int `koanf:"workers" validate:"gte=0"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Search: SearchConfig{
			Rows:         10,
			ShardTimeout: time.Second,
		},
	}
}

// Load 加载配置，path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, core.WrapError("config", core.ErrorCodeConfiguration, "invalid config", err)
	}
	return cfg, nil
}

// envKey 把 LTR_SEARCH_SHARD_TIMEOUT 映射为 search.shard_timeout。
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

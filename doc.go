// Package ltr 是一个 Learning-to-Rank 重排引擎。
//
// 设计要点：
// - Pipeline-first: 分片内的处理通过 Node 串联（Filter → ReRank → PostProcess）
// - 降级不失败: 单个特征求值失败记为默认值 0.0，查询照常返回
// - 快照: 特征/模型定义以不可变快照发布，reload 原子替换，查询全程只看一个快照
package ltr

import "github.com/rushteam/ltr/pipeline"

// 轻量 facade：便于用户直接 import "ltr" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

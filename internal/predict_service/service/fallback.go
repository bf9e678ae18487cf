package service

import (
	"WhereIsThisPlace/internal/config"
	"WhereIsThisPlace/internal/models"
)

// 请求可以通过 mode 参数显式选择路径。
const (
	ModeModel  = "model"  // 强制使用主模型，任何信号都不触发回退
	ModeOpenAI = "openai" // 强制触发视觉回退
)

// FallbackPolicy 决定一次预测是否应该触发视觉回退。
// 决策是纯函数：只看偏差校正后的 GeoResult 和请求的 mode。
type FallbackPolicy struct {
	cfg config.BiasConfig

	// capable 为 false 时 (未配置 API 密钥) 任何信号都不触发回退。
	capable bool

	// prefer 为 true 时回退是默认路径，仅 mode=model 走主模型。
	prefer bool
}

// NewFallbackPolicy 创建回退决策引擎。
func NewFallbackPolicy(cfg config.BiasConfig, capable, prefer bool) FallbackPolicy {
	return FallbackPolicy{cfg: cfg, capable: capable, prefer: prefer}
}

// Decide 返回是否触发回退以及触发原因 (用于日志)。
// 信号按顺序检查，命中即返回：
//  1. mode 显式强制 (model 禁止 / openai 强制)
//  2. 默认回退策略
//  3. 分数低于低置信度阈值
//  4. 偏差检测已命中 (BiasWarning 非空)
//  5. 坐标在可疑区域内且分数低于次级阈值
func (p FallbackPolicy) Decide(g models.GeoResult, mode string) (bool, string) {
	if !p.capable {
		return false, ""
	}
	if mode == ModeModel {
		return false, ""
	}
	if mode == ModeOpenAI {
		return true, "mode=openai"
	}
	if p.prefer {
		return true, "fallback preferred by default"
	}
	if g.Score < p.cfg.LowScoreFallback {
		return true, "low confidence"
	}
	if g.BiasWarning != nil {
		return true, "bias warning"
	}
	if p.cfg.SuspiciousRegion.Contains(g.Lat, g.Lon) && g.Score < p.cfg.RegionScoreFallback {
		return true, "moderate confidence in suspicious region"
	}
	return false, ""
}

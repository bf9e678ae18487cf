package service

import (
	"strings"

	"WhereIsThisPlace/internal/config"
	"WhereIsThisPlace/internal/models"
)

// 偏差检测命中时写入 BiasWarning 的原因串。
const (
	reasonForeignKeyword = "filename suggests a different region than predicted"
	reasonOverconfident  = "very high confidence in the suspicious region is itself suspicious"
)

// biasRule 是一条 谓词 -> 原因 规则。
// 所有规则共享同一个前置条件：原始坐标落在可疑区域内。
type biasRule struct {
	name    string
	matches func(g models.GeoResult, filename string) bool
	reason  string
}

// BiasCorrector 对落在可疑区域内的预测做启发式偏差检测。
// 命中时只衰减分数，坐标永远不变。
type BiasCorrector struct {
	cfg   config.BiasConfig
	rules []biasRule
}

// NewBiasCorrector 按固定顺序装配检测规则：
// 文件名关键词规则优先于过度自信规则，两者至多命中一条。
func NewBiasCorrector(cfg config.BiasConfig) *BiasCorrector {
	b := &BiasCorrector{cfg: cfg}
	b.rules = []biasRule{
		{
			name: "FilenameKeywordMatch",
			matches: func(g models.GeoResult, filename string) bool {
				return b.matchesForeignKeyword(filename)
			},
			reason: reasonForeignKeyword,
		},
		{
			name: "HighConfidenceInRegion",
			matches: func(g models.GeoResult, filename string) bool {
				return g.Score > cfg.HighScoreThreshold
			},
			reason: reasonOverconfident,
		},
	}
	return b
}

// Correct 对一个 GeoResult 做偏差检测，返回可能被衰减过的副本。
//
// 已经带有 BiasWarning 的输入原样返回，因此对自身输出再次调用是无操作；
// 坐标在可疑区域之外时同样原样返回。
func (b *BiasCorrector) Correct(g models.GeoResult, filename string) models.GeoResult {
	if g.BiasWarning != nil {
		return g
	}
	if !b.cfg.SuspiciousRegion.Contains(g.Lat, g.Lon) {
		return g
	}

	for _, rule := range b.rules {
		if rule.matches(g, filename) {
			return g.WithDampenedScore(b.cfg.DampeningFactor, rule.reason)
		}
	}
	return g
}

// matchesForeignKeyword 判断文件名是否包含与其他地理位置强相关的关键词 (不区分大小写)。
func (b *BiasCorrector) matchesForeignKeyword(filename string) bool {
	lower := strings.ToLower(filename)
	for _, kw := range b.cfg.ForeignKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

package models

// Source 标识最终坐标的来源。
type Source string

const (
	SourceModel  Source = "model"  // 主模型路径 (embedding + 最近邻检索)
	SourceOpenAI Source = "openai" // 视觉回退路径 (多模态模型 + 地名解析)
)

// GeoResult 是预测流水线中流转的核心值对象。
// 每个处理阶段都返回一个新的 GeoResult，而不是就地修改，
// 以避免多个阶段写同一字段时的顺序问题。
type GeoResult struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Score  float64 `json:"score"`
	Source Source  `json:"source"`

	// BiasWarning 仅在偏差检测命中或回退失败时非空，内容为人类可读的原因。
	BiasWarning *string `json:"bias_warning"`

	// OriginalScore 在分数第一次被覆盖 (衰减或回退) 时记录覆盖前的模型分数，
	// 整个请求内至多设置一次。
	OriginalScore *float64 `json:"original_score"`
}

// WithDampenedScore 返回一份分数被衰减后的副本。
// 坐标保持不变；覆盖前的分数在 OriginalScore 尚未设置时被保留。
func (g GeoResult) WithDampenedScore(factor float64, reason string) GeoResult {
	out := g
	out.Score = g.Score * factor
	out.BiasWarning = &reason
	if out.OriginalScore == nil {
		prev := g.Score
		out.OriginalScore = &prev
	}
	return out
}

// WithFallback 返回一份由视觉回退结果整体替换后的副本。
// 坐标与分数原子地一起替换；已有的 BiasWarning 被保留，
// 回退前的模型分数在 OriginalScore 尚未设置时被记录。
func (g GeoResult) WithFallback(lat, lon, score float64) GeoResult {
	out := GeoResult{
		Lat:         lat,
		Lon:         lon,
		Score:       score,
		Source:      SourceOpenAI,
		BiasWarning: g.BiasWarning,
	}
	if g.OriginalScore != nil {
		out.OriginalScore = g.OriginalScore
	} else {
		prev := g.Score
		out.OriginalScore = &prev
	}
	return out
}

// WithWarning 返回一份追加了警告信息的副本。
// 已有警告时用括号追加，否则直接设置。
func (g GeoResult) WithWarning(note string) GeoResult {
	out := g
	if g.BiasWarning != nil && *g.BiasWarning != "" {
		combined := *g.BiasWarning + " (" + note + ")"
		out.BiasWarning = &combined
	} else {
		out.BiasWarning = &note
	}
	return out
}

// ConfidenceLevel 是面向用户的粗粒度置信度分类。
type ConfidenceLevel string

const (
	ConfidenceVeryLow ConfidenceLevel = "very_low"
	ConfidenceLow     ConfidenceLevel = "low"
	ConfidenceMedium  ConfidenceLevel = "medium"
	ConfidenceHigh    ConfidenceLevel = "high"
)

// ConfidenceLevelForScore 将数值分数映射为置信度等级。
// 纯函数，阈值固定：>=0.8 high, >=0.5 medium, >=0.3 low, 否则 very_low。
// 仅用于响应展示，从不参与控制流。
func ConfidenceLevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	case score >= 0.3:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// Prediction 是 /predict 响应中 prediction 字段的结构。
type Prediction struct {
	Lat             float64         `json:"lat"`
	Lon             float64         `json:"lon"`
	Score           float64         `json:"score"`
	Source          Source          `json:"source"`
	BiasWarning     *string         `json:"bias_warning"`
	OriginalScore   *float64        `json:"original_score,omitempty"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`

	// Warning 是面向 UI 的固定警告语，独立于内部的 BiasWarning 原因串。
	Warning string `json:"warning,omitempty"`
}

// BiasNoticeMessage 是 BiasWarning 非空时附加到响应上的用户可见警告语。
const BiasNoticeMessage = "Location prediction may be inaccurate due to model bias"

// NewPrediction 由最终的 GeoResult 构造响应结构。
func NewPrediction(g GeoResult) *Prediction {
	p := &Prediction{
		Lat:             g.Lat,
		Lon:             g.Lon,
		Score:           g.Score,
		Source:          g.Source,
		BiasWarning:     g.BiasWarning,
		OriginalScore:   g.OriginalScore,
		ConfidenceLevel: ConfidenceLevelForScore(g.Score),
	}
	if g.BiasWarning != nil && *g.BiasWarning != "" {
		p.Warning = BiasNoticeMessage
	}
	return p
}

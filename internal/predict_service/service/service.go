package service

import (
	"context"
	"errors"
	"fmt"

	"WhereIsThisPlace/internal/database/milvus"
	"WhereIsThisPlace/internal/embedding"
	"WhereIsThisPlace/internal/geocoder"
	"WhereIsThisPlace/internal/llm"
	"WhereIsThisPlace/internal/models"
	"WhereIsThisPlace/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
)

// allowedContentTypes 是接受的上传图像 MIME 类型。
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// NearestNeighborStore 定义了参考照片库的最近邻检索接口。
type NearestNeighborStore interface {
	// Nearest 返回与查询向量最近的一条记录，无候选时返回 milvus.ErrNotFound。
	Nearest(ctx context.Context, vector []float32) (*milvus.Match, error)
}

// PredictionStore 定义了预测记录的持久化接口 (只追加)。
type PredictionStore interface {
	InsertPrediction(photo *models.Photo) error
}

// PredictInput 是一次预测请求的全部输入。
type PredictInput struct {
	Filename    string
	ContentType string // 为空时根据文件内容嗅探
	Data        []byte
	Mode        string // "", "model" 或 "openai"
}

// Service 是预测流水线的编排器。
// 各阶段的执行顺序是固定的：embedding -> 最近邻检索 -> 偏差校正 ->
// 回退决策 -> (可选) 视觉回退 -> 响应构造 -> 持久化。
type Service struct {
	embedder      embedding.Embedding
	neighbors     NearestNeighborStore
	corrector     *BiasCorrector
	policy        FallbackPolicy
	vision        llm.VisionModel   // 未配置回退能力时为 nil
	geocoder      geocoder.Geocoder // 同上
	store         PredictionStore
	fallbackScore float64
	log           *logger.Logger
}

// NewService 创建一个新的 Service 实例。
// vision 与 geocoder 可以为 nil，此时 policy 必须是不可回退的。
func NewService(
	embedder embedding.Embedding,
	neighbors NearestNeighborStore,
	corrector *BiasCorrector,
	policy FallbackPolicy,
	vision llm.VisionModel,
	geo geocoder.Geocoder,
	store PredictionStore,
	fallbackScore float64,
	log *logger.Logger,
) *Service {
	return &Service{
		embedder:      embedder,
		neighbors:     neighbors,
		corrector:     corrector,
		policy:        policy,
		vision:        vision,
		geocoder:      geo,
		store:         store,
		fallbackScore: fallbackScore,
		log:           log,
	}
}

// Predict 执行完整的预测流水线并返回响应结构。
//
// 回退阶段和持久化阶段的失败在本地恢复，从不让请求失败；
// 其余阶段的失败按错误类型原样向上传播，由 API 层映射状态码。
func (s *Service) Predict(ctx context.Context, in PredictInput) (*models.Prediction, error) {
	contentType, err := s.resolveContentType(in)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedImage(ctx, in.Filename, in.Data, contentType)
	if err != nil {
		return nil, err
	}

	match, err := s.neighbors.Nearest(ctx, vector)
	if err != nil {
		if errors.Is(err, milvus.ErrNotFound) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("最近邻检索失败: %w", err)
	}

	result := models.GeoResult{
		Lat:    match.Lat,
		Lon:    match.Lon,
		Score:  match.Score,
		Source: models.SourceModel,
	}

	result = s.corrector.Correct(result, in.Filename)

	if trigger, reason := s.policy.Decide(result, in.Mode); trigger {
		s.log.WithPayload(map[string]interface{}{
			"filename": in.Filename,
			"reason":   reason,
		}).Info("触发视觉回退")
		result = s.runFallback(ctx, result, in.Data, contentType)
	}

	prediction := models.NewPrediction(result)
	s.persist(result)
	return prediction, nil
}

// resolveContentType 校验上传类型。声明的类型为空或为通用二进制类型时根据文件内容嗅探。
func (s *Service) resolveContentType(in PredictInput) (string, error) {
	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(in.Data).String()
	}
	if !allowedContentTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, nil
}

// runFallback 执行视觉回退：识别地名，再解析为坐标。
// 成功时整体替换结果；任何一步失败都保留主模型结果并追加警告。
func (s *Service) runFallback(ctx context.Context, g models.GeoResult, data []byte, contentType string) models.GeoResult {
	place, err := s.vision.LocatePhoto(ctx, data, contentType)
	if err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("视觉回退失败，保留主模型结果")
		return g.WithWarning("OpenAI fallback unavailable: " + err.Error())
	}

	loc, err := s.geocoder.Geocode(ctx, place)
	if err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("地名解析失败，保留主模型结果")
		return g.WithWarning("OpenAI fallback unavailable: " + err.Error())
	}

	return g.WithFallback(loc.Lat, loc.Lon, s.fallbackScore)
}

// persist 写入一条预测记录。持久化失败只记录日志，从不影响响应。
func (s *Service) persist(g models.GeoResult) {
	if s.store == nil {
		return
	}
	if err := s.store.InsertPrediction(models.NewPhoto(g)); err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error()}).Error("预测记录持久化失败")
	}
}

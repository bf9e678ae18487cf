package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"WhereIsThisPlace/internal/embedding"
	"WhereIsThisPlace/internal/predict_service/service"

	"github.com/gin-gonic/gin"
)

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	service *service.Service

	// managementURL 是推理服务的管理端点，用于健康检查。
	managementURL string
	healthClient  *http.Client
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s *service.Service, managementURL string) *Handler {
	return &Handler{
		service:       s,
		managementURL: managementURL,
		healthClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Predict 处理照片地理位置预测请求。
// 照片通过 multipart 表单的 "photo" 字段上传，
// 可选的 "mode" 参数 (表单或查询串) 用于强制选择预测路径。
func (h *Handler) Predict(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 photo 文件字段"})
		return
	}

	mode := c.PostForm("mode")
	if mode == "" {
		mode = c.Query("mode")
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传的文件"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传的文件"})
		return
	}

	prediction, err := h.service.Predict(c.Request.Context(), service.PredictInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
		Mode:        mode,
	})
	if err != nil {
		status, message := statusForError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"filename":   fileHeader.Filename,
		"message":    "Prediction completed",
		"prediction": prediction,
	})
}

// statusForError 将流水线错误映射为 HTTP 状态码。
// 客户端错误、上游不可用、上游超时、协议错误和无匹配各自独立区分。
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnsupportedType):
		return http.StatusBadRequest, "unsupported content type, expected JPEG or PNG"
	case errors.Is(err, service.ErrNoMatch):
		return http.StatusNotFound, "no matching location found"
	case errors.Is(err, embedding.ErrTimeout):
		return http.StatusGatewayTimeout, "embedding service timed out"
	case errors.Is(err, embedding.ErrUnavailable):
		return http.StatusServiceUnavailable, "embedding service unavailable"
	case errors.Is(err, embedding.ErrBadResponse):
		return http.StatusInternalServerError, "embedding service returned an invalid response"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// Health 检查推理服务管理端点的健康状况。
func (h *Handler) Health(c *gin.Context) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, h.managementURL+"/ping", nil)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	resp, err := h.healthClient.Do(req)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Root 返回服务的基本信息。
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "WhereIsThisPlace",
		"predict": "/api/v1/predict",
		"health":  "/health",
	})
}

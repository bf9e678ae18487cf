package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"WhereIsThisPlace/pkg/circuitbreaker"
	"WhereIsThisPlace/pkg/httpclient"
)

// TorchServeModel 是一个用于 TorchServe 推理端点的 Embedding 客户端。
// 它将图像以 multipart 表单的形式提交到 /predictions/{model}。
type TorchServeModel struct {
	client  *httpclient.Client
	baseURL string
	model   string
}

// NewTorchServeModel 创建一个新的 TorchServeModel 客户端。
//
// 参数:
//
//	baseURL: 推理服务的基础 URL (例如: "http://localhost:8080")。
//	model: 已注册的模型名称 (例如: "where")。
//	timeout: 单次请求的超时时间。
//	breaker: 可选的熔断器；为 nil 时直接调用。
func NewTorchServeModel(baseURL, model string, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker) *TorchServeModel {
	return &TorchServeModel{
		client:  httpclient.New(timeout, breaker),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

// EmbedImage 将图像字节提交给推理服务并返回嵌入向量。
func (m *TorchServeModel) EmbedImage(ctx context.Context, filename string, data []byte, contentType string) ([]float32, error) {
	// 构建 multipart 表单，字段名 "data" 与 TorchServe handler 的约定一致。
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="data"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	url := fmt.Sprintf("%s/predictions/%s", m.baseURL, m.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, string(msg))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrBadResponse, err)
	}
	return decodeEmbedding(raw)
}

// classifyTransportError 将传输层错误归类为超时或不可达。
// 两者都会中止流水线，但要以不同的状态码呈现给调用方。
func classifyTransportError(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// decodeEmbedding 是响应歧义的唯一归一化点：
// 推理服务可能返回 {"embedding": [...]} 对象，也可能直接返回裸数组。
// 两种形式之外的响应一律视为协议错误。
func decodeEmbedding(raw []byte) ([]float32, error) {
	var wrapped struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Embedding != nil {
		return wrapped.Embedding, nil
	}

	var bare []float32
	if err := json.Unmarshal(raw, &bare); err == nil && bare != nil {
		return bare, nil
	}

	return nil, fmt.Errorf("%w: no embedding returned from model", ErrBadResponse)
}

package embedding

import (
	"context"
	"errors"
)

// Embedding 定义了图像 Embedding 推理服务需要实现的接口。
// 推理服务被视为一个不透明的打分预言机：输入原始图像字节，
// 输出一个定长的特征向量。
type Embedding interface {
	// EmbedImage 为一张图像生成嵌入向量。
	//
	// 参数:
	//   ctx: 上下文，用于控制操作的生命周期。
	//   filename: 上传时的文件名，仅用于 multipart 表单。
	//   data: 原始图像字节。
	//   contentType: 图像的 MIME 类型。
	//
	// 返回值:
	//   []float32: 生成的嵌入向量。
	//   error: 服务不可达、超时或响应非法时返回错误。
	EmbedImage(ctx context.Context, filename string, data []byte, contentType string) ([]float32, error)
}

var (
	// ErrUnavailable 表示推理服务不可达 (连接失败或熔断器打开)。
	ErrUnavailable = errors.New("embedding service unavailable")

	// ErrTimeout 表示单次推理请求超时。按设计超时不会重试。
	ErrTimeout = errors.New("embedding service timed out")

	// ErrBadResponse 表示推理服务返回了非成功状态码或缺少嵌入向量的响应体。
	ErrBadResponse = errors.New("invalid embedding service response")
)

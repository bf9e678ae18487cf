package llm

import (
	"context"
	"errors"
)

// VisionModel 定义了视觉回退所需的多模态模型接口。
// 输入一张图像，输出一个简短的地名 (例如 "Paris, France")。
type VisionModel interface {
	// LocatePhoto 请求模型识别照片的拍摄地点。
	//
	// 参数:
	//   ctx: 上下文，用于控制操作的生命周期。
	//   data: 原始图像字节。
	//   contentType: 图像的 MIME 类型。
	//
	// 返回值:
	//   string: 可用于地名解析的地点名称。
	//   error: 调用失败或模型无法识别地点时返回错误。
	LocatePhoto(ctx context.Context, data []byte, contentType string) (string, error)
}

// ErrUnknownPlace 表示模型完成了调用但无法识别照片的拍摄地点。
// 这不是一个可用的地名，调用方应视为回退失败。
var ErrUnknownPlace = errors.New("vision model could not identify the location")

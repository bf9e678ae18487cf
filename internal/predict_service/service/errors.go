package service

import "errors"

var (
	// ErrUnsupportedType 表示上传的文件不是支持的图像类型。
	// 属于客户端错误，不触发任何下游调用，也不尝试持久化。
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrNoMatch 表示参考照片库中没有任何候选。
	// 注意：无候选与低置信度是两回事，低置信度是一个有效匹配。
	ErrNoMatch = errors.New("no matching reference photo found")
)

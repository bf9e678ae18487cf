package geocoder

import (
	"context"
	"errors"
)

// Result 是一次地名解析的结果。
type Result struct {
	Lat float64
	Lon float64
}

// Geocoder 定义了地名到坐标的解析接口。
type Geocoder interface {
	// Geocode 解析一个自由文本地名，返回最佳匹配的坐标。
	// 没有任何候选时返回 ErrNoResults。
	Geocode(ctx context.Context, place string) (*Result, error)
}

// ErrNoResults 表示地名解析服务没有返回任何候选。
var ErrNoResults = errors.New("geocoder returned no results")

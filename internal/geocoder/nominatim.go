package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Nominatim 是一个基于 OpenStreetMap Nominatim 搜索端点的 Geocoder。
type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewNominatim 创建一个新的 Nominatim 客户端。
// Nominatim 的使用条款要求提供可识别的 User-Agent。
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org/search"
	}
	if userAgent == "" {
		userAgent = "WhereIsThisPlace/1.0 (https://github.com/whereisthisplace)"
	}
	return &Nominatim{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// nominatimPlace 对应搜索响应中的单个候选。坐标字段是字符串。
type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode 查询地名的最佳匹配，取第一个候选的坐标。
// 单次尝试，空候选列表视为失败。
func (n *Nominatim) Geocode(ctx context.Context, place string) (*Result, error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decoding geocoder response: %w", err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%w for place: %s", ErrNoResults, place)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in geocoder response: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in geocoder response: %w", err)
	}

	return &Result{Lat: lat, Lon: lon}, nil
}

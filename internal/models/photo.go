package models

import "gorm.io/gorm"

// Photo 代表 photos 表中的一条预测记录。
// 该表是只追加的：每个成功完成的请求恰好写入一行，核心流程从不更新或删除。
type Photo struct {
	gorm.Model

	Lat   float64 `gorm:"not null"`
	Lon   float64 `gorm:"not null"`
	Score float64

	// BiasWarning 记录偏差检测或回退失败时的原因，无警告时为 NULL。
	BiasWarning *string `gorm:"size:1024"`

	// Source 记录坐标来源 ("model" 或 "openai")。
	Source string `gorm:"type:varchar(20);not null"`
}

func (Photo) TableName() string {
	return "photos"
}

// NewPhoto 由最终的 GeoResult 构造一条持久化记录。
func NewPhoto(g GeoResult) *Photo {
	return &Photo{
		Lat:         g.Lat,
		Lon:         g.Lon,
		Score:       g.Score,
		BiasWarning: g.BiasWarning,
		Source:      string(g.Source),
	}
}

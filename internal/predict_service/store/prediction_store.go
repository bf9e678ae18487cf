package store

import (
	"WhereIsThisPlace/internal/models"

	"gorm.io/gorm"
)

// Store 封装了预测记录的数据库访问。
type Store struct {
	DB *gorm.DB
}

// NewStore 创建一个新的 Store 实例。
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// InsertPrediction 追加一条预测记录。
// photos 表是只追加的，这里从不更新或删除已有记录。
func (s *Store) InsertPrediction(photo *models.Photo) error {
	return s.DB.Create(photo).Error
}

// CountPredictions 返回已持久化的预测记录总数。
func (s *Store) CountPredictions() (int64, error) {
	var count int64
	if err := s.DB.Model(&models.Photo{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RecentPredictions 按创建时间倒序返回最近的 n 条预测记录。
func (s *Store) RecentPredictions(n int) ([]models.Photo, error) {
	var photos []models.Photo
	if err := s.DB.Order("created_at DESC").Limit(n).Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

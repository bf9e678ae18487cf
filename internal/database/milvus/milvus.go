package milvus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"WhereIsThisPlace/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// ErrNotFound 在最近邻搜索没有任何候选时返回。
// 注意：没有候选与低置信度是两回事，调用方应将其作为硬失败处理。
var ErrNotFound = fmt.Errorf("not found")

// Match 是参考照片库中距查询向量最近的一条记录。
type Match struct {
	Lat   float64
	Lon   float64
	Score float64 // 相似度，配置为 IP 度量并归一化向量时落在 [0,1]
}

// MilvusClient 包含了 Milvus 客户端实例和参考照片集合的配置。
type MilvusClient struct {
	Client client.Client
	Config *config.MilvusConfig
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// Nearest 返回参考照片集合中与查询向量最近的一条记录。
// 集合为空或搜索无命中时返回 ErrNotFound。
func (c *MilvusClient) Nearest(ctx context.Context, vector []float32) (*Match, error) {
	collName := c.Config.CollectionName

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return nil, fmt.Errorf("加载集合 '%s' 失败: %w", collName, err)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	searchVectors := []entity.Vector{entity.FloatVector(vector)}

	results, err := c.Client.Search(
		ctx,
		collName,
		nil,
		"",
		[]string{"lat", "lon"},
		searchVectors,
		c.Config.VectorField,
		entity.MetricType(c.Config.MetricType),
		1,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("最近邻搜索失败: %w", err)
	}

	if len(results) == 0 || results[0].ResultCount == 0 {
		return nil, ErrNotFound
	}

	res := results[0]
	latCol, ok := res.Fields.GetColumn("lat").(*entity.ColumnDouble)
	if !ok {
		return nil, fmt.Errorf("搜索结果缺少 lat 字段")
	}
	lonCol, ok := res.Fields.GetColumn("lon").(*entity.ColumnDouble)
	if !ok {
		return nil, fmt.Errorf("搜索结果缺少 lon 字段")
	}
	if len(latCol.Data()) == 0 || len(lonCol.Data()) == 0 || len(res.Scores) == 0 {
		return nil, ErrNotFound
	}

	return &Match{
		Lat:   latCol.Data()[0],
		Lon:   lonCol.Data()[0],
		Score: float64(res.Scores[0]),
	}, nil
}

// InsertReference 向参考照片集合中插入一条带坐标的向量记录。
// 供数据集加载工具使用，预测流程本身从不写入该集合。
func (c *MilvusClient) InsertReference(ctx context.Context, lat, lon float64, vector []float32) error {
	latCol := entity.NewColumnDouble("lat", []float64{lat})
	lonCol := entity.NewColumnDouble("lon", []float64{lon})
	vecCol := entity.NewColumnFloatVector(c.Config.VectorField, c.Config.Dim, [][]float32{vector})

	if _, err := c.Client.Insert(ctx, c.Config.CollectionName, "", latCol, lonCol, vecCol); err != nil {
		return fmt.Errorf("failed to insert reference photo into Milvus: %w", err)
	}
	return nil
}

// EnsureCollection 确保参考照片集合存在并已加载。
// 集合不存在时按配置创建 Schema (id/lat/lon/embedding) 和向量索引。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("reference photos for nearest-neighbor geolocation").
			WithField(entity.NewField().WithName("id").WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(true)).
			WithField(entity.NewField().WithName("lat").WithDataType(entity.FieldTypeDouble)).
			WithField(entity.NewField().WithName("lon").WithDataType(entity.FieldTypeDouble)).
			WithField(entity.NewField().WithName(c.Config.VectorField).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.Dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.MetricType(c.Config.MetricType), 128)
		if err != nil {
			return fmt.Errorf("构建索引失败: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, collName, c.Config.VectorField, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", c.Config.VectorField, err)
		}
		log.Printf("✅ 成功创建集合: %s", collName)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
	Address     string `yaml:"address"`     // HTTP 服务监听地址 (例如: ":8000")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// EmbeddingConfig 定义了图像 Embedding 推理服务 (TorchServe) 的配置。
type EmbeddingConfig struct {
	URL           string `yaml:"url"`           // 推理服务基础 URL (例如: "http://localhost:8080")
	ManagementURL string `yaml:"managementURL"` // 管理端点 URL，用于健康检查
	Model         string `yaml:"model"`         // 已注册的模型名称 (例如: "where")
	Timeout       string `yaml:"timeout"`       // 单次推理请求的超时时间 (例如: "30s")
}

// OpenAIConfig 定义了视觉回退 (Vision Fallback) 的配置。
// APIKey 为空时表示回退能力未配置，任何信号都不会触发回退。
type OpenAIConfig struct {
	APIKey         string  `yaml:"apiKey"`         // OpenAI API 密钥
	BaseURL        string  `yaml:"baseURL"`        // 可选的 API 基础 URL
	Model          string  `yaml:"model"`          // 多模态模型名称 (例如: "gpt-4o")
	Timeout        string  `yaml:"timeout"`        // 单次请求超时时间
	PreferFallback bool    `yaml:"preferFallback"` // true 时回退为默认路径，仅 mode=model 强制主模型
	FallbackScore  float64 `yaml:"fallbackScore"`  // 回退成功后赋予的固定置信度 (例如: 0.95)
}

// GeocoderConfig 定义了地名解析服务 (Nominatim) 的配置。
type GeocoderConfig struct {
	URL       string `yaml:"url"`       // 搜索端点 (例如: "https://nominatim.openstreetmap.org/search")
	UserAgent string `yaml:"userAgent"` // 请求使用的 User-Agent 标头
	Timeout   string `yaml:"timeout"`   // 单次请求超时时间
}

// BoundingBox 描述一个经纬度矩形区域。
type BoundingBox struct {
	MinLat float64 `yaml:"minLat"`
	MaxLat float64 `yaml:"maxLat"`
	MinLon float64 `yaml:"minLon"`
	MaxLon float64 `yaml:"maxLon"`
}

// Contains 判断给定坐标是否落在矩形内 (边界包含)。
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BiasConfig 定义了地理偏差检测的启发式参数。
// 默认值对应训练数据中过度表示的纽约区域。
type BiasConfig struct {
	SuspiciousRegion    BoundingBox `yaml:"suspiciousRegion"`    // 可疑的过拟合区域
	ForeignKeywords     []string    `yaml:"foreignKeywords"`     // 与其他地理位置强相关的文件名关键词
	HighScoreThreshold  float64     `yaml:"highScoreThreshold"`  // 触发过度自信规则的分数阈值 (0.9)
	DampeningFactor     float64     `yaml:"dampeningFactor"`     // 分数衰减因子 (0.3)
	LowScoreFallback    float64     `yaml:"lowScoreFallback"`    // 低置信度回退触发阈值 (0.4)
	RegionScoreFallback float64     `yaml:"regionScoreFallback"` // 可疑区域内的次级回退触发阈值 (0.7)
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MilvusConfig 定义了 Milvus 向量数据库的连接和集合配置。
type MilvusConfig struct {
	Address        string `yaml:"address"`        // Milvus 服务地址
	CollectionName string `yaml:"collectionName"` // 参考照片集合名称 (例如: "photos")
	VectorField    string `yaml:"vectorField"`    // 向量字段名称 (例如: "embedding")
	Dim            int    `yaml:"dim"`            // 向量维度
	MetricType     string `yaml:"metricType"`     // 相似度度量类型 (例如: "IP")
	Timeout        string `yaml:"timeout"`        // 单次搜索超时时间
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	MySQL  MySQLConfig  `yaml:"mysql"`  // 预测记录持久化
	Milvus MilvusConfig `yaml:"milvus"` // 最近邻向量检索
	Redis  RedisConfig  `yaml:"redis"`  // 分布式限流计数 (可选)
}

// RateLimiterConfig 定义了入站限流器的配置。
// Backend 为 "redis" 时使用 Redis 固定窗口，否则使用进程内计数器。
type RateLimiterConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"` // "memory" 或 "redis"
	Limit   int    `yaml:"limit"`   // 窗口内允许的请求数
	Period  string `yaml:"period"`  // 窗口长度 (例如: "24h")
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter     RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuitBreaker"`
	EphemeralUpload bool                 `yaml:"ephemeralUpload"` // 是否将上传体暂存到临时文件
}

// CircuitBreakerConfig 定义了保护外部推理服务调用的熔断器配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	Bias       BiasConfig       `yaml:"bias"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults 为未显式配置的启发式参数填入默认值。
func (cfg *AppConfig) applyDefaults() {
	if cfg.Bias.SuspiciousRegion == (BoundingBox{}) {
		cfg.Bias.SuspiciousRegion = BoundingBox{MinLat: 40.4, MaxLat: 41.0, MinLon: -74.5, MaxLon: -73.5}
	}
	if len(cfg.Bias.ForeignKeywords) == 0 {
		cfg.Bias.ForeignKeywords = []string{
			"eiffel", "tower", "brandenburg", "gate", "buckingham", "palace",
			"big_ben", "london", "paris", "berlin", "europe", "colosseum",
			"arc_de_triomphe", "notre_dame", "louvre", "westminster",
		}
	}
	if cfg.Bias.HighScoreThreshold == 0 {
		cfg.Bias.HighScoreThreshold = 0.9
	}
	if cfg.Bias.DampeningFactor == 0 {
		cfg.Bias.DampeningFactor = 0.3
	}
	if cfg.Bias.LowScoreFallback == 0 {
		cfg.Bias.LowScoreFallback = 0.4
	}
	if cfg.Bias.RegionScoreFallback == 0 {
		cfg.Bias.RegionScoreFallback = 0.7
	}
	if cfg.OpenAI.FallbackScore == 0 {
		cfg.OpenAI.FallbackScore = 0.95
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o"
	}
}

// ParseDuration 解析形如 "30s" 的配置值，为空或非法时返回给定的默认值。
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Session   SessionConfig   `yaml:"session"`
	Producer  ProducerConfig  `yaml:"producer"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTPPort 固定端口，用于单例锁
	HTTPPort string `yaml:"http_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path 数据库文件路径，留空表示使用默认路径 ~/.docuchat/docuchat.db
	Path string `yaml:"path"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
	// SendBufferSize 每条连接的发送队列长度，队列满视为死连接
	SendBufferSize int `yaml:"send_buffer_size"`
	// IdleAfterSeconds 无任何入站事件多久后在线状态转为 idle
	IdleAfterSeconds int `yaml:"idle_after_seconds"`
}

// IdleWindow 空闲判定窗口
func (c *WebSocketConfig) IdleWindow() time.Duration {
	return time.Duration(c.IdleAfterSeconds) * time.Second
}

// SessionConfig 协作会话配置
type SessionConfig struct {
	// QueryTimeoutSeconds 文档查询等待外部回答管道的超时时间
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds"`
	// HistoryPageSize 历史消息分页的默认与最大条数
	HistoryPageSize int `yaml:"history_page_size"`
}

// QueryTimeout 查询超时
func (c *SessionConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// ProducerConfig 外部回答管道配置
// BaseURL 为空表示未接入回答管道，文档查询将被拒绝
type ProducerConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// NewConfig 创建配置：默认值 -> 可选配置文件 -> 环境变量覆盖
func NewConfig() *Config {
	cfg := defaultConfig()

	if path := os.Getenv("DOCUCHAT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			// 配置文件错误不中断启动，保留默认值
			fmt.Fprintf(os.Stderr, "warning: failed to load config file %s: %v\n", path, err)
		}
	}

	cfg.applyEnv()
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: ":19880",
		},
		Database: DatabaseConfig{
			Path: "",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			SendBufferSize:   64,
			IdleAfterSeconds: 300,
		},
		Session: SessionConfig{
			QueryTimeoutSeconds: 30,
			HistoryPageSize:     50,
		},
	}
}

// loadFile 从 YAML 文件加载配置
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnv 应用环境变量覆盖
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCUCHAT_HTTP_PORT"); v != "" {
		c.Server.HTTPPort = v
	}
	if v := os.Getenv("DOCUCHAT_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := getEnvInt("DOCUCHAT_QUERY_TIMEOUT_SECONDS"); v > 0 {
		c.Session.QueryTimeoutSeconds = v
	}
	if v := getEnvInt("DOCUCHAT_IDLE_AFTER_SECONDS"); v > 0 {
		c.WebSocket.IdleAfterSeconds = v
	}
	if v := os.Getenv("DOCUCHAT_PRODUCER_URL"); v != "" {
		c.Producer.BaseURL = v
	}
	if v := os.Getenv("DOCUCHAT_PRODUCER_API_KEY"); v != "" {
		c.Producer.APIKey = v
	}
}

// getEnvInt 获取整数环境变量，解析失败返回 0
func getEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewWebSocketConfig 创建 WebSocket 配置
func NewWebSocketConfig(cfg *Config) *WebSocketConfig {
	return &cfg.WebSocket
}

// NewSessionConfig 创建会话配置
func NewSessionConfig(cfg *Config) *SessionConfig {
	return &cfg.Session
}

// NewProducerConfig 创建回答管道配置
func NewProducerConfig(cfg *Config) *ProducerConfig {
	return &cfg.Producer
}

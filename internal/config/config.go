// Package config loads and holds the application configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Conf is the global configuration, populated by Init.
var Conf Config

// Config mirrors the structure of configs/config.yaml.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Data          DataConfig          `mapstructure:"data"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	VectorIndex   VectorIndexConfig   `mapstructure:"vector_index"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Admin         AdminConfig         `mapstructure:"admin"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DataConfig holds the on-disk data layout: where raw documents live and
// where pipeline artifacts are cached.
type DataConfig struct {
	DocumentsDir string `mapstructure:"documents_dir"`
	CacheDir     string `mapstructure:"cache_dir"`
}

// ChunkingConfig holds the chunker settings. Strategy is "words" or
// "sections"; the section strategy falls back to word windows per document
// when too few section markers are found.
type ChunkingConfig struct {
	Strategy  string `mapstructure:"strategy"`
	ChunkSize int    `mapstructure:"chunk_size"`
	Overlap   int    `mapstructure:"overlap"`
	MinChars  int    `mapstructure:"min_chars"`
}

// EmbeddingConfig holds the embedding provider settings. When the remote
// provider cannot be reached at startup the local fallback provider is used.
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

// VectorIndexConfig selects the vector index backend: "local" (file-backed,
// default) or "elasticsearch".
type VectorIndexConfig struct {
	Backend string `mapstructure:"backend"`
}

// ElasticsearchConfig holds the Elasticsearch settings, used only when the
// vector index backend is "elasticsearch".
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// LLMConfig holds the optional generative-answer service settings. An empty
// APIKey disables the service entirely; answers then come from the
// extractive synthesizer.
type LLMConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

// RedisConfig holds the optional answer-cache settings. An empty Addr
// disables the cache.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	AnswerTTLm int    `mapstructure:"answer_ttl_minutes"`
}

// KafkaConfig holds the optional document-ingest event settings. Empty
// Brokers disables the consumer and producer.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig holds the optional remote document store settings. An empty
// Endpoint means documents are read from the local directory only.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// AdminConfig guards the destructive endpoints (cache clear, forced rebuild).
type AdminConfig struct {
	Username               string `mapstructure:"username"`
	PasswordBcrypt         string `mapstructure:"password_bcrypt"`
	JWTSecret              string `mapstructure:"jwt_secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// Init reads the YAML file at configPath into Conf and applies defaults.
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("failed to read config file: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("failed to unmarshal config: %w", err))
	}

	applyDefaults(&Conf)
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Data.DocumentsDir == "" {
		c.Data.DocumentsDir = "bhutan_legal_data/documents"
	}
	if c.Data.CacheDir == "" {
		c.Data.CacheDir = "bhutan_legal_data/cache"
	}
	if c.Chunking.Strategy == "" {
		c.Chunking.Strategy = "words"
	}
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 1200
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 200
	}
	if c.Chunking.MinChars == 0 {
		c.Chunking.MinChars = 100
	}
	if c.Embedding.TimeoutSec == 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.VectorIndex.Backend == "" {
		c.VectorIndex.Backend = "local"
	}
	if c.LLM.TimeoutSec == 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.Redis.AnswerTTLm == 0 {
		c.Redis.AnswerTTLm = 60
	}
	if c.Admin.AccessTokenExpireHours == 0 {
		c.Admin.AccessTokenExpireHours = 12
	}
}

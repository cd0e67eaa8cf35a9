package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the studyowl service.
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Databases   DatabasesConfig   `mapstructure:"databases"`
	VectorIndex VectorIndexConfig `mapstructure:"vector_index"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Quiz        QuizConfig        `mapstructure:"quiz"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen    string `mapstructure:"listen"`
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ProvidersConfig groups external AI provider settings.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig configures the embedding/completion provider.
type OpenAIConfig struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	CompletionModel     string        `mapstructure:"completion_model"`
	EmbeddingModel      string        `mapstructure:"embedding_model"`
	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	MaxTokens           int           `mapstructure:"max_tokens"`
	Temperature         float64       `mapstructure:"temperature"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// DatabasesConfig groups backing store settings.
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig configures the relational record store.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a Postgres connection string from either the URL or the
// individual fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (databases.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// VectorIndexConfig configures the remote vector index. An empty URL means
// the index is not configured and the relational fallback is used alone.
type VectorIndexConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Namespace string        `mapstructure:"namespace"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Configured reports whether a remote index endpoint is set.
func (v VectorIndexConfig) Configured() bool { return v.URL != "" }

// RetrievalConfig tunes the query pipeline.
type RetrievalConfig struct {
	TopK             int     `mapstructure:"top_k"`
	ScoreThreshold   float64 `mapstructure:"score_threshold"`
	MaxQueryLength   int     `mapstructure:"max_query_length"`
	ChunkMaxTokens   int     `mapstructure:"chunk_max_tokens"`
	MaxContextChunks int     `mapstructure:"max_context_chunks"`
}

// QuizConfig bounds quiz generation requests.
type QuizConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
}

// LoadConfig reads configuration from the given file, or searches the usual
// locations when path is empty. Environment variables prefixed with STUDYOWL
// override file values (e.g. STUDYOWL_GENERAL_JWT_SECRET).
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.listen", ":8080")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("providers.openai.completion_model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("providers.openai.embedding_dimensions", 1536)
	viper.SetDefault("providers.openai.max_tokens", 1024)
	viper.SetDefault("providers.openai.temperature", 0.2)
	viper.SetDefault("providers.openai.timeout", "60s")
	viper.SetDefault("vector_index.namespace", "studyowl")
	viper.SetDefault("vector_index.timeout", "15s")
	viper.SetDefault("retrieval.top_k", 5)
	viper.SetDefault("retrieval.score_threshold", 0.70)
	viper.SetDefault("retrieval.max_query_length", 1000)
	viper.SetDefault("retrieval.chunk_max_tokens", 500)
	viper.SetDefault("retrieval.max_context_chunks", 5)
	viper.SetDefault("quiz.max_questions", 20)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("STUDYOWL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional when everything comes from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return &config
}
